package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"lifetrack/internal/config"
	"lifetrack/internal/model"
	"lifetrack/internal/series"
)

type pointMessage struct {
	Key    string  `json:"key"`
	Date   string  `json:"date"`
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
	Source string  `json:"source"`
}

// StartKafka consumes JSON metric points pushed by external automations
// (phone shortcuts, cron jobs) and feeds them to the report pipeline.
func StartKafka(ctx context.Context, cfg *config.Manager, out chan<- model.MetricPoint, logger *slog.Logger) {
	current := cfg.Get().Ingest.Kafka
	if !current.Enabled {
		if logger != nil {
			logger.Info("kafka ingest disabled")
		}
		return
	}
	if logger != nil {
		logger.Info("kafka ingest enabled", "brokers", current.Brokers, "topic", current.Topic, "group_id", current.GroupID)
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  current.Brokers,
		Topic:    current.Topic,
		GroupID:  current.GroupID,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	go func() {
		defer reader.Close()
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if logger != nil {
					logger.Warn("kafka read error", "err", err)
				}
				if !BackoffSleep(ctx, time.Second) {
					return
				}
				continue
			}
			pt, err := decodePoint(m.Value)
			if err != nil {
				if logger != nil {
					logger.Warn("kafka decode error", "err", err)
				}
				continue
			}
			if pt.Source == "" {
				pt.Source = "kafka"
			}
			SendNonBlocking(ctx, out, pt, logger)
		}
	}()
}

func decodePoint(raw []byte) (model.MetricPoint, error) {
	var msg pointMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return model.MetricPoint{}, err
	}
	date, err := ParseDate(msg.Date)
	if err != nil {
		return model.MetricPoint{}, err
	}
	return model.MetricPoint{
		Key:    strings.TrimSpace(msg.Key),
		Date:   series.Day(date),
		Metric: strings.TrimSpace(msg.Metric),
		Value:  msg.Value,
		Source: strings.TrimSpace(msg.Source),
	}, nil
}
