// Package publisher hands settlement reports to the external renderer.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/vandelay/guacbot/internal/config"
	"github.com/vandelay/guacbot/internal/services"
)

// InitKafka creates a sync producer that waits for all replicas.
func InitKafka(cfg config.KafkaConfig) (sarama.SyncProducer, error) {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	slog.Info("[KAFKA] producer created", "brokers", cfg.Brokers)
	return producer, nil
}

// KafkaReportPublisher writes each report as JSON keyed by its period.
type KafkaReportPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaReportPublisher(producer sarama.SyncProducer, topic string) *KafkaReportPublisher {
	return &KafkaReportPublisher{producer: producer, topic: topic}
}

func (p *KafkaReportPublisher) Publish(ctx context.Context, report *services.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(report.PeriodKey),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("send report for %s: %w", report.PeriodKey, err)
	}

	slog.Info("[KAFKA] report published", "topic", p.topic, "period", report.PeriodKey, "partition", partition, "offset", offset)
	return nil
}

func (p *KafkaReportPublisher) Close() error {
	return p.producer.Close()
}

// LogPublisher writes the report to the log when no broker is configured.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(l *slog.Logger) *LogPublisher {
	if l == nil {
		l = slog.Default()
	}
	return &LogPublisher{log: l}
}

func (p *LogPublisher) Publish(_ context.Context, report *services.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	p.log.Info("[REPORT] settlement report", "period", report.PeriodKey, "report", string(data))
	return nil
}
