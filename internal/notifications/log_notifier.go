package notifications

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// LogNotifier is the dev/test provider: it just logs. NOTIFIER_SLEEP_MS and
// NOTIFIER_FAIL simulate a slow or failing upstream.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) simulate(ctx context.Context) error {
	if msStr := os.Getenv("NOTIFIER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if os.Getenv("NOTIFIER_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}

	return nil
}

func (n *LogNotifier) SendWelcome(ctx context.Context, in SendWelcomeInput) error {
	if err := n.simulate(ctx); err != nil {
		return err
	}

	log.Printf("notification.welcome_email email=%s name=%s user=%s",
		in.Email, in.Name, in.UserID,
	)
	return nil
}

func (n *LogNotifier) SendPasswordChanged(ctx context.Context, in SendPasswordChangedInput) error {
	if err := n.simulate(ctx); err != nil {
		return err
	}

	log.Printf("notification.password_changed email=%s user=%s",
		in.Email, in.UserID,
	)
	return nil
}
