package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/wfunc/partyroom/models"
)

const DefaultTopic = "game-results"

// Publisher 把已结束的对局发布出去
type Publisher interface {
	PublishGameResult(ctx context.Context, res *models.GameResult) error
	Close() error
}

// messageWriter 是 kafka.Writer 用到的部分，测试时替换
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher 以房间码为 key 写入，同一房间的结果保持顺序
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           50 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

// Message 构造写入 Kafka 的消息
func Message(res *models.GameResult) (kafka.Message, error) {
	value, err := json.Marshal(res)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode game result: %w", err)
	}
	return kafka.Message{
		Key:   []byte(res.RoomCode),
		Value: value,
		Time:  res.FinishedAt,
		Headers: []kafka.Header{
			{Key: "game_id", Value: []byte(res.GameID)},
			{Key: "outcome", Value: []byte(res.Outcome)},
		},
	}, nil
}

func (p *KafkaPublisher) PublishGameResult(ctx context.Context, res *models.GameResult) error {
	msg, err := Message(res)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish game result: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher 未配置 broker 时使用
type NopPublisher struct{}

func (NopPublisher) PublishGameResult(context.Context, *models.GameResult) error { return nil }
func (NopPublisher) Close() error                                                { return nil }

// New 没有 broker 时返回 NopPublisher
func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return NopPublisher{}
	}
	return NewKafkaPublisher(brokers, topic)
}
