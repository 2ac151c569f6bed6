// cmd/quickorder-service/main.go
package main

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"quickorder/internal/pkg/bootstrap"
	"quickorder/internal/pkg/httpclient"
	"quickorder/internal/pkg/mq"
	"quickorder/internal/pkg/redis"
	"quickorder/internal/pkg/zookeeper"
	"quickorder/internal/service/quickorder/application"
	"quickorder/internal/service/quickorder/domain"
	"quickorder/internal/service/quickorder/infrastructure"
	"quickorder/internal/service/quickorder/infrastructure/adapter"
	"quickorder/internal/service/quickorder/infrastructure/rule"
	"quickorder/internal/service/quickorder/interfaces"
	"quickorder/internal/service/quickorder/port"
)

const (
	serviceName         = "quickorder-service"
	intentConsumerGroup = "quickorder-agent-consumer-group"
)

// noopPromotions 在促销开关关闭时替代真实的促销源。
type noopPromotions struct{}

func (noopPromotions) FetchPromotions(ctx context.Context, storeID string, facts map[string]interface{}) (map[string]domain.Promotion, error) {
	return map[string]domain.Promotion{}, nil
}

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	// 1. 初始化不依赖服务发现的基础设施
	redisClient := redis.NewClient(cfg.Infra.Redis.Addr)

	cartAdapter, err := adapter.NewCartRedisAdapter(redisClient)
	if err != nil {
		log.Fatalf("failed to initialize cart adapter: %v", err)
	}

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to mysql: %v", err)
	}
	catalogRepo := infrastructure.NewGormCatalogRepository(db)

	zkConn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers)
	if err != nil {
		log.Fatalf("failed to connect to zookeeper: %v", err)
	}
	locker := adapter.NewZKLockAdapter(zkConn)

	brokers := cfg.Infra.Kafka.Brokers
	commitWriter := mq.NewKafkaWriter(brokers, cfg.Infra.Kafka.Topics.CartCommits)
	resultWriter := mq.NewKafkaWriter(brokers, cfg.Infra.Kafka.Topics.IntentResults)
	intentReader := mq.NewKafkaReader(brokers, intentConsumerGroup, cfg.Infra.Kafka.Topics.AgentIntents)

	hub := interfaces.NewHub()
	go hub.Run()

	var consumer *infrastructure.AgentConsumerAdapter
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())

	// 2. 其余组装在 RegisterHandlers 中完成：
	//    HTTP 客户端需要 Nacos 服务发现，由 bootstrap 注入。
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: cfg.Service.Name,
		Port:        cfg.Service.Port,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			tracer := otel.Tracer(serviceName)
			httpClient := httpclient.NewClient(tracer, appCtx.Nacos)

			catalogAdapter := adapter.NewCatalogHTTPAdapter(httpClient, catalogRepo)

			var promoProvider port.PromotionProvider = noopPromotions{}
			if cfg.App.FeatureFlags.EnablePromotions {
				ruleEngine, err := rule.NewCELEngineAdapter()
				if err != nil {
					log.Fatalf("failed to initialize rule engine: %v", err)
				}
				promoProvider = adapter.NewPromotionHTTPAdapter(httpClient, ruleEngine)
			}

			var notifier port.GridNotifier
			if cfg.App.Grid.PushEnabled {
				notifier = hub
			}

			appSvc := application.NewQuickOrderService(
				catalogAdapter,
				cartAdapter,
				promoProvider,
				notifier,
				adapter.NewCommitKafkaAdapter(commitWriter),
				locker,
				tracer,
				nil,
			)

			interfaces.NewQuickOrderHandler(appSvc).RegisterRoutes(appCtx.Mux)
			appCtx.Mux.HandleFunc("/quickorder/ws", hub.ServeWS)

			// Agent 意图消费者与 HTTP 服务共用同一个应用服务实例
			consumer = infrastructure.NewAgentConsumerAdapter(intentReader, resultWriter, appSvc)
			consumer.Start(consumerCtx)
		},
		OnShutdown: func(ctx context.Context) {
			cancelConsumer()
			if consumer != nil {
				consumer.Stop()
			}
			commitWriter.Close()
			resultWriter.Close()
			if err := redisClient.Close(); err != nil {
				log.Printf("Error closing redis client: %v", err)
			}
			zkConn.Close()
		},
	})
}
