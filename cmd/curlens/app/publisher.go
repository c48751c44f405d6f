package app

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/curlens/pkg/config"
	"github.com/papercomputeco/curlens/pkg/eventstream"
	"github.com/papercomputeco/curlens/pkg/eventstream/kafka"
	"github.com/papercomputeco/curlens/pkg/eventstream/nop"
)

const (
	providerNone  = ""
	providerKafka = "kafka"
)

// NewPublisher builds the summary event publisher for the configured provider.
func NewPublisher(cfg config.EventsConfig, logger *slog.Logger) (eventstream.Publisher, error) {
	switch cfg.Provider {
	case providerNone, "none":
		return nop.NewPublisher(), nil
	case providerKafka:
		p, err := kafka.NewPublisher(kafka.Config{Brokers: cfg.Brokers, Topic: cfg.Topic})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		logger.Debug("publishing summary events", "provider", cfg.Provider, "topic", cfg.Topic)
		return p, nil
	default:
		return nil, fmt.Errorf("unknown events provider %q", cfg.Provider)
	}
}
