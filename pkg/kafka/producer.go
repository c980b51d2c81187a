package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// Producer wraps a kafka-go writer for JSON event publishing.
type Producer struct {
	writer      *kafka.Writer
	compression string
}

// NewProducer builds a producer. At least one broker is required.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := &ProducerConfig{
		RequiredAcks: -1,
		Compression:  "gzip",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		BatchSize:    100,
		BatchBytes:   1 << 20,
		BatchTimeout: time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	// Hash balancing keeps all events for one key on one partition,
	// which preserves per-instrument ordering downstream.
	balancer := kafka.Balancer(&kafka.LeastBytes{})
	if cfg.HashByKey {
		balancer = &kafka.Hash{}
	}

	registerProducerMetrics()
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     balancer,
			RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
			Compression:  parseCompression(cfg.Compression),
			MaxAttempts:  cfg.MaxAttempts,
			WriteTimeout: cfg.WriteTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			BatchSize:    cfg.BatchSize,
			BatchBytes:   int64(cfg.BatchBytes),
			BatchTimeout: cfg.BatchTimeout,
		},
		compression: cfg.Compression,
	}, nil
}

// Publish writes one keyed message to a topic. Non-byte values are
// JSON-encoded.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	start := time.Now()

	var body []byte
	switch v := value.(type) {
	case []byte:
		body = v
	case string:
		body = []byte(v)
	default:
		var err error
		body, err = json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal value: %w", err)
		}
	}

	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: body,
		Time:  time.Now(),
	})
	observePublish(topic, p.compression, int64(len(body)), time.Since(start), err)
	return err
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

func parseCompression(s string) kafka.Compression {
	switch s {
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Gzip
	}
}

var (
	producerMetricsOnce sync.Once
	publishTotal        *prometheus.CounterVec
	publishBytes        *prometheus.CounterVec
	publishSeconds      *prometheus.HistogramVec
)

func registerProducerMetrics() {
	producerMetricsOnce.Do(func() {
		publishTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigflow_kafka_publish_total",
				Help: "Messages published to Kafka by result",
			},
			[]string{"topic", "compression", "result"},
		)
		publishBytes = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigflow_kafka_publish_bytes_total",
				Help: "Payload bytes published to Kafka",
			},
			[]string{"topic", "compression"},
		)
		publishSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sigflow_kafka_publish_seconds",
				Help:    "Kafka publish latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"topic"},
		)
	})
}

func observePublish(topic, compression string, bytes int64, dur time.Duration, err error) {
	if publishTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	publishTotal.WithLabelValues(topic, compression, result).Inc()
	publishBytes.WithLabelValues(topic, compression).Add(float64(bytes))
	publishSeconds.WithLabelValues(topic).Observe(dur.Seconds())
}
