package types

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCredentials = errors.New("telegram bot token and chat id are required")
	ErrInvalidAddress     = errors.New("invalid IP address")
)

// StatusError is returned when a remote endpoint answers with a non-2xx status
type StatusError struct {
	URL         string
	StatusCode  int
	Description string
}

func (e *StatusError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s returned status %d: %s", e.URL, e.StatusCode, e.Description)
	}
	return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
}

// ProviderError is returned when the messaging API accepts the request
// but reports ok=false
type ProviderError struct {
	Provider    string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%s rejected the message", e.Provider)
	}
	return fmt.Sprintf("%s rejected the message: %s", e.Provider, e.Description)
}
