package data

import (
	"context"
	"fmt"
	"time"

	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/conf"

	"github.com/IBM/sarama"
	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const defaultConsumerGroup = "chat-delivery"

var _ biz.Consumer = (*kafkaConsumer)(nil)

type kafkaConsumer struct {
	consumerGroup sarama.ConsumerGroup
	log           *log.Helper
	topics        []string
}

// NewConsumer 只有 kafka 驱动需要消费者，其他驱动返回空实现
func NewConsumer(cb *conf.Bootstrap, logger log.Logger) (biz.Consumer, func(), error) {
	logg := log.NewHelper(logger)
	if queueDriver(cb) != QueueDriverKafka {
		return noopConsumer{}, func() {}, nil
	}
	if cb.Data == nil || cb.Data.Kafka == nil || len(cb.Data.Kafka.Brokers) == 0 {
		return nil, nil, fmt.Errorf("kafka queue driver requires data.kafka.brokers")
	}
	kconf := cb.Data.Kafka
	groupID := kconf.GroupId
	if groupID == "" {
		groupID = defaultConsumerGroup
	}
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	config.Consumer.Offsets.Initial = sarama.OffsetOldest // 从最旧消息开始消费
	config.Consumer.Return.Errors = true
	// 只提交已标记的位移，未处理完的消息重新投递
	config.Consumer.Offsets.AutoCommit.Enable = true
	config.Consumer.Offsets.AutoCommit.Interval = 1 * time.Second

	consumerGroup, err := sarama.NewConsumerGroup(kconf.Brokers, groupID, config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	cleanup := func() {
		if err := consumerGroup.Close(); err != nil {
			logg.Errorf("close consumer group failed: %v", err)
		}
	}
	return &kafkaConsumer{
		consumerGroup: consumerGroup,
		log:           logg,
		topics:        []string{deliveryTopic(cb)},
	}, cleanup, nil
}

func (k *kafkaConsumer) Start(ctx context.Context, handler biz.MessageHandler) {
	k.log.Infof("consumer group started. topics=%v", k.topics)
	go func() {
		for err := range k.consumerGroup.Errors() {
			k.log.Errorf("consumer group error: %v", err)
		}
	}()
	go func() {
		h := consumerGroupHandler{handler: handler, log: k.log}
		for {
			if err := k.consumerGroup.Consume(ctx, k.topics, h); err != nil {
				k.log.Errorf("consume error: %v", err)
			}
			if ctx.Err() != nil {
				return
			}
			// 等待一小段时间后重新加入消费者组
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}()
}

// consumerGroupHandler 消费者组处理器
type consumerGroupHandler struct {
	log     *log.Helper
	handler biz.MessageHandler
}

func (h consumerGroupHandler) Setup(_ sarama.ConsumerGroupSession) error {
	return nil
}

func (h consumerGroupHandler) Cleanup(_ sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim 处理失败时结束本轮会话，位移停在失败的消息上
func (h consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		h.log.Debugf("received delivery job. topic=%s, partition=%d, offset=%d, key=%s",
			message.Topic, message.Partition, message.Offset, string(message.Key))
		ctx := extractTraceContext(session.Context(), message.Headers)
		if err := h.handler(ctx, string(message.Key), message.Value); err != nil {
			h.log.WithContext(ctx).Errorf("handle delivery job failed, will be redelivered. offset=%d, error=%v", message.Offset, err)
			return err
		}
		session.MarkMessage(message, "")
	}
	return nil
}

func extractTraceContext(ctx context.Context, headers []*sarama.RecordHeader) context.Context {
	carrier := make(propagation.HeaderCarrier, len(headers))
	for _, hdr := range headers {
		if hdr == nil {
			continue
		}
		carrier.Set(string(hdr.Key), string(hdr.Value))
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

type noopConsumer struct{}

func (noopConsumer) Start(context.Context, biz.MessageHandler) {}
