// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"log"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Config 是服务的全量配置。通过 yaml 文件加载，环境变量可覆盖关键项。
type Config struct {
	Service struct {
		Name string `yaml:"name"`
		Port int    `yaml:"port"`
	} `yaml:"service"`

	Infra struct {
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Kafka struct {
			Brokers []string `yaml:"brokers"`
			Topics  struct {
				AgentIntents  string `yaml:"agent_intents"`
				IntentResults string `yaml:"intent_results"`
				CartCommits   string `yaml:"cart_commits"`
			} `yaml:"topics"`
		} `yaml:"kafka"`
		Redis struct {
			Addr string `yaml:"addr"`
		} `yaml:"redis"`
		Mysql struct {
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`
		Zookeeper struct {
			Servers []string `yaml:"servers"`
		} `yaml:"zookeeper"`
		Nacos struct {
			ServerAddrs string `yaml:"server_addrs"`
			Namespace   string `yaml:"namespace"`
			Group       string `yaml:"group"`
		} `yaml:"nacos"`
	} `yaml:"infra"`

	App struct {
		FeatureFlags struct {
			EnablePromotions bool `yaml:"enable_promotions"`
		} `yaml:"feature_flags"`
		Grid struct {
			PushEnabled bool `yaml:"push_enabled"`
		} `yaml:"grid"`
	} `yaml:"app"`
}

var currentConfig atomic.Value // *Config

// Init 加载配置。必须在 StartService 之前调用。
// 配置文件路径由 CONFIG_PATH 指定，缺省为 ./config.yaml；
// 文件不存在时退回到纯环境变量 + 默认值，方便本地起服务。
func Init() {
	cfg := defaultConfig()

	path := getEnv("CONFIG_PATH", "config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			log.Fatalf("FATAL: invalid config file %s: %v", path, err)
		}
		log.Printf("Config loaded from %s", path)
	} else {
		log.Printf("Config file %s not found, using defaults and environment", path)
	}

	applyEnvOverrides(cfg)
	currentConfig.Store(cfg)
}

// GetCurrentConfig 返回当前生效的配置快照。
func GetCurrentConfig() *Config {
	cfg, _ := currentConfig.Load().(*Config)
	if cfg == nil {
		// Init 未被调用时兜底，避免空指针
		cfg = defaultConfig()
		currentConfig.Store(cfg)
	}
	return cfg
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Service.Name = "quickorder-service"
	cfg.Service.Port = 8090
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Infra.Kafka.Topics.AgentIntents = "quickorder-agent-intents"
	cfg.Infra.Kafka.Topics.IntentResults = "quickorder-intent-results"
	cfg.Infra.Kafka.Topics.CartCommits = "quickorder-cart-commits"
	cfg.Infra.Redis.Addr = "localhost:6379"
	cfg.Infra.Mysql.DSN = "root:root@tcp(localhost:3306)/quickorder?charset=utf8mb4&parseTime=True"
	cfg.Infra.Zookeeper.Servers = []string{"localhost:2181"}
	cfg.Infra.Nacos.ServerAddrs = "localhost:8848"
	cfg.Infra.Nacos.Group = "DEFAULT_GROUP"
	cfg.App.FeatureFlags.EnablePromotions = true
	cfg.App.Grid.PushEnabled = true
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JAEGER_ENDPOINT"); v != "" {
		cfg.Infra.Jaeger.Endpoint = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Infra.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Infra.Redis.Addr = v
	}
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		cfg.Infra.Mysql.DSN = v
	}
	if v := os.Getenv("ZOOKEEPER_SERVERS"); v != "" {
		cfg.Infra.Zookeeper.Servers = strings.Split(v, ",")
	}
	if v := os.Getenv("NACOS_SERVER_ADDRS"); v != "" {
		cfg.Infra.Nacos.ServerAddrs = v
	}
	if v := os.Getenv("NACOS_NAMESPACE"); v != "" {
		cfg.Infra.Nacos.Namespace = v
	}
	if v := os.Getenv("NACOS_GROUP"); v != "" {
		cfg.Infra.Nacos.Group = v
	}
}

// getEnv 是一个内部辅助函数，从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
