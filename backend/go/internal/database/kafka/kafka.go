package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"couplecoach/backend/go/internal/config"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// KafkaClient 持有 Kafka writer 的单例实例。消息自带主题，writer 本身不绑定主题。
type KafkaClient struct {
	Writer *kafka.Writer
	Config *config.KafkaConfig
}

var (
	client  *KafkaClient
	once    sync.Once
	initErr error
)

// GetClient 使用单例模式初始化并返回一个 KafkaClient 实例。
// 首次调用时，它会连接到 Kafka 并根据配置自动创建缺失的主题。
func GetClient(cfg *config.KafkaConfig) (*KafkaClient, error) {
	once.Do(func() {
		if len(cfg.Brokers) == 0 {
			initErr = fmt.Errorf("未配置 Kafka brokers")
			return
		}

		if err := ensureTopics(cfg); err != nil {
			initErr = err
			return
		}

		writer := &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{}, // 同一用户的事件进入同一分区，保持顺序
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: false,
		}

		logrus.Info("成功初始化 Kafka 客户端")
		client = &KafkaClient{Writer: writer, Config: cfg}
	})

	return client, initErr
}

// ensureTopics 通过管理连接创建配置中尚不存在的主题。
func ensureTopics(cfg *config.KafkaConfig) error {
	if len(cfg.Topics) == 0 {
		return nil
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("kafka 初始化连接失败: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("无法读取 Kafka 分区信息: %w", err)
	}
	existing := make(map[string]struct{}, len(partitions))
	for _, p := range partitions {
		existing[p.Topic] = struct{}{}
	}

	var toCreate []kafka.TopicConfig
	for _, topic := range cfg.Topics {
		if _, ok := existing[topic]; ok {
			continue
		}
		logrus.WithField("topic", topic).Info("主题不存在，准备创建")
		toCreate = append(toCreate, kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}
	if len(toCreate) == 0 {
		return nil
	}
	if err := conn.CreateTopics(toCreate...); err != nil {
		return fmt.Errorf("自动创建 Kafka 主题失败: %w", err)
	}
	return nil
}

// Close 安全地关闭 Kafka writer。
func (c *KafkaClient) Close() error {
	if c == nil || c.Writer == nil {
		return nil
	}
	if err := c.Writer.Close(); err != nil {
		return fmt.Errorf("关闭 Kafka writer 失败: %w", err)
	}
	return nil
}

// HealthCheck 检查第一个 broker 是否可达。
func (c *KafkaClient) HealthCheck(ctx context.Context) error {
	if c == nil || len(c.Config.Brokers) == 0 {
		return errors.New("kafka 客户端未初始化，无法进行健康检查")
	}
	conn, err := kafka.DialContext(ctx, "tcp", c.Config.Brokers[0])
	if err != nil {
		return err
	}
	return conn.Close()
}
