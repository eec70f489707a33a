package data

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	v1 "github.com/albertcharmelo/andycorporation-server-sub000/api/chat/v1"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/biz/bo"
	"github.com/albertcharmelo/andycorporation-server-sub000/chat/internal/conf"

	"github.com/IBM/sarama"
	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	KafkaTopicChatDelivery = "chat_delivery"

	QueueDriverSync   = "sync"
	QueueDriverWorker = "worker"
	QueueDriverKafka  = "kafka"
)

func queueDriver(cb *conf.Bootstrap) string {
	if cb.Queue == nil || cb.Queue.Driver == "" {
		return QueueDriverSync
	}
	return cb.Queue.Driver
}

func deliveryTopic(cb *conf.Bootstrap) string {
	if cb.Queue != nil && cb.Queue.Topic != "" {
		return cb.Queue.Topic
	}
	return KafkaTopicChatDelivery
}

// NewJobQueue 按配置选择投递队列
// sync 在请求内执行，worker 使用进程内工作池，kafka 交给消费者组
func NewJobQueue(cb *conf.Bootstrap, logger log.Logger, d *biz.Deliverer) (biz.JobQueue, func(), error) {
	switch driver := queueDriver(cb); driver {
	case QueueDriverSync:
		return biz.NewInlineQueue(d), func() {}, nil
	case QueueDriverWorker:
		pool, cleanup := biz.NewWorkerPool(logger, d, cb.Queue.Workers, cb.Queue.Buffer)
		return pool, cleanup, nil
	case QueueDriverKafka:
		return NewKafkaJobQueue(cb, logger, d)
	default:
		return nil, nil, fmt.Errorf("unknown queue driver %q", driver)
	}
}

var _ biz.JobQueue = (*kafkaJobQueue)(nil)

// kafkaJobQueue 投递任务生产者，按订单ID分区保证单订单顺序
type kafkaJobQueue struct {
	producer sarama.AsyncProducer
	topic    string
	log      *log.Helper
	abandon  func(ctx context.Context, job *bo.DeliveryJob, attempts int, err error)
}

// NewKafkaJobQueue 创建Kafka生产者
func NewKafkaJobQueue(cb *conf.Bootstrap, logger log.Logger, d *biz.Deliverer) (biz.JobQueue, func(), error) {
	if cb.Data == nil || cb.Data.Kafka == nil || len(cb.Data.Kafka.Brokers) == 0 {
		return nil, nil, fmt.Errorf("kafka queue driver requires data.kafka.brokers")
	}
	c := cb.Data.Kafka
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll // 所有副本确认
	config.Producer.Retry.Max = int(c.RetryCount)    // 重试次数
	config.Producer.Return.Successes = true          // 返回成功消息
	config.Producer.Return.Errors = true             // 返回错误消息
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner // 相同 key 进入同一分区
	if d := c.Timeout.AsDuration(); d > 0 {
		config.Producer.Timeout = d
	}
	producer, err := sarama.NewAsyncProducer(c.Brokers, config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	q, cleanup := newKafkaJobQueue(producer, deliveryTopic(cb), logger, d.Abandon)
	return q, cleanup, nil
}

func newKafkaJobQueue(producer sarama.AsyncProducer, topic string, logger log.Logger,
	abandon func(ctx context.Context, job *bo.DeliveryJob, attempts int, err error)) (*kafkaJobQueue, func()) {
	q := &kafkaJobQueue{
		producer: producer,
		topic:    topic,
		log:      log.NewHelper(logger),
		abandon:  abandon,
	}
	done := make(chan struct{})
	// 后台处理发送结果
	go func() {
		defer close(done)
		successes, errs := producer.Successes(), producer.Errors()
		for successes != nil || errs != nil {
			select {
			case suc, ok := <-successes:
				if !ok {
					successes = nil
					continue
				}
				q.log.Debugf("delivery job sent. topic=%s, partition=%d, offset=%d", suc.Topic, suc.Partition, suc.Offset)
			case fail, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				q.handleError(fail)
			}
		}
	}()
	cleanup := func() {
		if err := producer.Close(); err != nil {
			q.log.Errorf("close kafka producer failed: %v", err)
		}
		<-done
		q.log.Info("Kafka producer closed")
	}
	return q, cleanup
}

// handleError 没写进Kafka的任务不会被消费，按终止失败清理暂存附件
func (q *kafkaJobQueue) handleError(fail *sarama.ProducerError) {
	var job *bo.DeliveryJob
	if fail.Msg != nil {
		job, _ = fail.Msg.Metadata.(*bo.DeliveryJob)
	}
	if job == nil {
		q.log.Errorf("send delivery job failed. error=%v", fail.Error())
		return
	}
	q.abandon(context.Background(), job, 0, v1.ErrorQueueUnavailable("send delivery job to kafka: %v", fail.Err))
}

// Dispatch 任务写入Kafka后即返回，结果经实时频道送达
func (q *kafkaJobQueue) Dispatch(ctx context.Context, job *bo.DeliveryJob) (*bo.JobResult, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal delivery job: %w", err)
	}
	// 注入链路追踪上下文
	headers := make([]sarama.RecordHeader, 0, 2)
	carrier := make(propagation.HeaderCarrier)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		if len(v) > 0 {
			headers = append(headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v[0])})
		}
	}
	msg := &sarama.ProducerMessage{
		Topic:    q.topic,
		Key:      sarama.StringEncoder(strconv.FormatUint(job.OrderID, 10)),
		Value:    sarama.ByteEncoder(data),
		Headers:  headers,
		Metadata: job,
	}
	select {
	case q.producer.Input() <- msg:
		q.log.WithContext(ctx).Debugf("delivery job queued. job_id=%s, order_id=%d", job.ID, job.OrderID)
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Second):
		return nil, v1.ErrorQueueUnavailable("timed out sending delivery job to kafka")
	}
}
