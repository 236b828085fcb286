package notify

import (
	"context"

	"ipwatch/internal/types"
)

// NotifierType represents the type of notifier
type NotifierType string

const (
	NotifierTelegram NotifierType = "telegram"
)

// Notifier represents notifier interface
type Notifier interface {
	// NotifyIPChange sends IP change notification
	NotifyIPChange(ctx context.Context, change *types.IPChange) error
}
