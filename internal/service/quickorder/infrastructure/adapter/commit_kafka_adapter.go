package adapter

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"

	"quickorder/internal/pkg/mq"
	"quickorder/internal/service/quickorder/port"
)

// CommitKafkaAdapter 是 port.CommitPublisher 的 Kafka 实现，
// 把提交事件发到下游（订单履约、报表）消费的主题。
type CommitKafkaAdapter struct {
	writer *kafka.Writer
}

// NewCommitKafkaAdapter 创建一个新的提交事件生产者。
func NewCommitKafkaAdapter(writer *kafka.Writer) *CommitKafkaAdapter {
	return &CommitKafkaAdapter{writer: writer}
}

// PublishCommit 发布一次购物车提交事件。
// 以购物车 ID 作为分区键，同一购物车的事件保持有序。
func (p *CommitKafkaAdapter) PublishCommit(ctx context.Context, event *port.CommitEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		log.Printf("ERROR: Failed to marshal commit event: %v", err)
		return err
	}

	if err := mq.ProduceMessage(ctx, p.writer, []byte(event.CartID), eventBytes); err != nil {
		log.Printf("ERROR: Failed to produce commit event to Kafka: %v", err)
		return err
	}
	return nil
}
