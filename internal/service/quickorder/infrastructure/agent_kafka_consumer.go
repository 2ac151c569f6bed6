package infrastructure

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"quickorder/internal/pkg/mq"
	"quickorder/internal/service/quickorder/application"
)

// AgentConsumerAdapter 是一个驱动适配器：监听 Agent 意图主题，
// 驱动应用服务解析意图，并把解析结果发回结果主题。
type AgentConsumerAdapter struct {
	reader  *kafka.Reader
	writer  *kafka.Writer
	appSvc  *application.QuickOrderService
	wg      sync.WaitGroup
	stopped bool
}

// NewAgentConsumerAdapter 创建一个新的Kafka消费者适配器。
func NewAgentConsumerAdapter(reader *kafka.Reader, writer *kafka.Writer, appSvc *application.QuickOrderService) *AgentConsumerAdapter {
	return &AgentConsumerAdapter{
		reader: reader,
		writer: writer,
		appSvc: appSvc,
	}
}

// Start 开始监听Kafka主题。这是一个长期运行的方法。
func (a *AgentConsumerAdapter) Start(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		log.Printf("✅ Agent Consumer Adapter started for topic '%s'.", a.reader.Config().Topic)
		for {
			if a.stopped {
				return
			}
			// 用FetchMessage而不是ReadMessage，以便控制退出逻辑
			msg, err := a.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					log.Println("🛑 Agent Consumer Adapter shutting down.")
					return
				}
				log.Printf("ERROR: could not read message: %v. Retrying...", err)
				time.Sleep(1 * time.Second)
				continue
			}

			a.processMessage(ctx, msg)

			if err := a.reader.CommitMessages(ctx, msg); err != nil {
				log.Printf("ERROR: failed to commit messages: %v", err)
			}
		}
	}()
}

// Stop 优雅地停止消费者。
func (a *AgentConsumerAdapter) Stop() {
	a.stopped = true
	a.reader.Close()
	a.wg.Wait()
	log.Printf("✅ Agent Consumer Adapter stopped.")
}

// processMessage 反序列化意图、调用应用服务并回发结果。
func (a *AgentConsumerAdapter) processMessage(parentCtx context.Context, msg kafka.Message) {
	var req application.IntentRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		log.Printf("ERROR: Failed to unmarshal intent: %v. Message will be skipped.", err)
		return
	}

	// 重建上游 Agent 注入的追踪上下文
	propagator := otel.GetTextMapPropagator()
	headerCarrier := mq.KafkaHeaderCarrier(msg.Headers)
	ctx := propagator.Extract(parentCtx, &headerCarrier)

	resp, _, err := a.appSvc.ApplyIntent(ctx, &req)
	if err != nil {
		log.Printf("ERROR: Failed to apply intent for sku %s: %v", req.SKU, err)
		return
	}

	a.publishResult(ctx, &req, resp)
}

// publishResult 把解析结果发到结果主题，供会话式界面消费。
// 以门店 ID 为分区键，同一门店的结果保持有序。
func (a *AgentConsumerAdapter) publishResult(ctx context.Context, req *application.IntentRequest, resp *application.IntentResponse) {
	if a.writer == nil {
		return
	}
	respBytes, err := json.Marshal(resp)
	if err != nil {
		log.Printf("ERROR: Failed to marshal intent result: %v", err)
		return
	}
	if err := mq.ProduceMessage(ctx, a.writer, []byte(req.StoreID), respBytes); err != nil {
		log.Printf("ERROR: Failed to produce intent result to Kafka: %v", err)
	}
}
