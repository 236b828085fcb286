package types

import (
	"time"
)

// IPVersion represents IP address family
type IPVersion string

const (
	IPv4 IPVersion = "ipv4"
	IPv6 IPVersion = "ipv6"
)

// IPChangeAction represents how the public address moved
type IPChangeAction string

const (
	IPChangeActionAdd    IPChangeAction = "add"    // no previous address was known
	IPChangeActionUpdate IPChangeAction = "update" // previous address differs
)

// IPChange represents a detected public IP change
type IPChange struct {
	Name      string         `json:"name"`
	Version   IPVersion      `json:"version" validate:"required,oneof=ipv4 ipv6"`
	OldIP     string         `json:"old_ip,omitempty" validate:"omitempty,ip"`
	NewIP     string         `json:"new_ip" validate:"required,ip"`
	Action    IPChangeAction `json:"action" validate:"required,oneof=add update"`
	Timestamp time.Time      `json:"timestamp" validate:"required"`
}

// NewIPChange builds the change record for a transition from old to current.
// An empty old address marks the first sighting.
func NewIPChange(name, old, current string, now time.Time) *IPChange {
	action := IPChangeActionUpdate
	if old == "" {
		action = IPChangeActionAdd
	}
	return &IPChange{
		Name:      name,
		Version:   VersionOf(current),
		OldIP:     old,
		NewIP:     current,
		Action:    action,
		Timestamp: now,
	}
}

// IsFirstSeen reports whether there was no previous address
func (c *IPChange) IsFirstSeen() bool {
	return c.Action == IPChangeActionAdd
}
