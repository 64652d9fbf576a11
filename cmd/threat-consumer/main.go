package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/skillbridge/console/internal/infra"
	"github.com/skillbridge/console/internal/provider"
)

// threatMeta is the metadata shape emitted with threat_detected events.
type threatMeta struct {
	ThreatType string `json:"threat_type"`
	Severity   string `json:"severity"`
	Note       string `json:"note"`
	Path       string `json:"path"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("threat consumer failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	consumer := infra.NewKafkaConsumer(cfg.KafkaBrokers, infra.TopicThreats, "threat-consumer", cfg.KafkaEnabled, logger)
	if !consumer.Enabled() {
		return fmt.Errorf("kafka is disabled; set KAFKA_ENABLED=true")
	}
	defer consumer.Close()

	mailer := provider.NewResendMailer(cfg.MailAPIKey, cfg.MailBaseURL, cfg.MailFrom, logger)
	logger.Info("threat-consumer starting", "topic", infra.TopicThreats, "brokers", cfg.KafkaBrokers)

	for {
		msg, err := consumer.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("threat-consumer shutting down")
				return nil
			}
			logger.Error("read message failed", "error", err)
			continue
		}

		var in infra.ThreatMessage
		if err := json.Unmarshal(msg.Value, &in); err != nil || in.Event == nil {
			logger.Error("malformed threat message", "error", err, "offset", msg.Offset)
			continue
		}
		event := in.Event
		if !event.IsThreat() {
			logger.Warn("skipping non-threat event", "event_type", event.EventType, "offset", msg.Offset)
			continue
		}

		var meta threatMeta
		if len(event.Metadata) > 0 {
			_ = json.Unmarshal(event.Metadata, &meta)
		}

		// The producer stamps the recipient configured at detection time; the
		// operator address from config is the fallback for older messages.
		recipient := in.NotifyEmail
		if recipient == "" {
			recipient = cfg.AdminEmail
		}

		alert := provider.ThreatAlert{
			ThreatType: meta.ThreatType,
			IP:         event.IPAddress,
			Location:   event.Country,
			Path:       meta.Path,
			AdminEmail: recipient,
		}
		if err := mailer.SendThreatAlert(ctx, alert); err != nil {
			logger.Error("threat alert dispatch failed", "error", err, "event_id", event.ID)
			continue
		}
		logger.Info("threat alert dispatched",
			"event_id", event.ID,
			"threat_type", meta.ThreatType,
			"severity", meta.Severity,
			"ip", event.IPAddress,
		)
	}
}
