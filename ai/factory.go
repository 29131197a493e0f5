package ai

import (
	"fmt"

	"github.com/itsneelabh/sushichat/core"
)

// NewClient returns the client selected by cfg.Provider. itemNames feed the
// mock provider's heuristics.
func NewClient(cfg core.AIConfig, itemNames []string, logger core.Logger, telemetry core.Telemetry) (Client, error) {
	switch cfg.Provider {
	case "openai", "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider: %w", ErrMissingAPIKey)
		}
		return NewOpenAIClient(cfg, logger, telemetry), nil
	case "mock":
		return NewMockClient(itemNames), nil
	}
	return nil, fmt.Errorf("unsupported AI provider %q: %w", cfg.Provider, core.ErrInvalidConfiguration)
}
