package notifications

import "context"

type SendWelcomeInput struct {
	UserID string
	Email  string
	Name   string
}

type SendPasswordChangedInput struct {
	UserID string
	Email  string
}

type Notifier interface {
	SendWelcome(ctx context.Context, input SendWelcomeInput) error
	SendPasswordChanged(ctx context.Context, input SendPasswordChangedInput) error
}
