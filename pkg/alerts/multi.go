package alerts

import (
	"context"
	"errors"
	"log"
)

// Multi sends every alert to each enabled service.
type Multi []AlertService

func (m Multi) IsEnabled() bool {
	for _, s := range m {
		if s.IsEnabled() {
			return true
		}
	}

	return false
}

// Alert delivers to all enabled services. Cooldown skips are not errors.
func (m Multi) Alert(ctx context.Context, alert *Alert) error {
	var errs []error

	for _, s := range m {
		if !s.IsEnabled() {
			continue
		}

		a := *alert
		if err := s.Alert(ctx, &a); err != nil && !errors.Is(err, errWebhookCooldown) {
			log.Printf("Failed to send alert %q: %v", alert.Title, err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
