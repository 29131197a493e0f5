package kitchen

import (
	"context"
	"fmt"

	"github.com/itsneelabh/sushichat/core"
)

// New builds the notifier selected by cfg.Backend. Every backend except
// "none" also logs tickets; broker deliveries are retried.
func New(ctx context.Context, cfg core.KitchenConfig, logger core.Logger) (Multi, error) {
	logNotifier := NewLogNotifier(logger)

	switch cfg.Backend {
	case "", "log":
		return Multi{logNotifier}, nil
	case "none":
		return Multi{}, nil
	case "servicebus":
		sb, err := NewServiceBusNotifier(cfg.ServiceBus, logger)
		if err != nil {
			return nil, err
		}
		return Multi{logNotifier, NewRetrying(sb, nil, logger)}, nil
	case "amqp":
		q, err := NewAMQPNotifier(ctx, cfg.AMQP, logger)
		if err != nil {
			return nil, err
		}
		return Multi{logNotifier, NewRetrying(q, nil, logger)}, nil
	case "temporal":
		c, err := DialTemporal(cfg.Temporal, logger)
		if err != nil {
			return nil, err
		}
		return Multi{logNotifier, NewTemporalNotifier(c, cfg.Temporal.TaskQueue, logger)}, nil
	}
	return nil, fmt.Errorf("unknown kitchen backend %q: %w", cfg.Backend, core.ErrInvalidConfiguration)
}
