// Package events publishes notifications about settlement changes.
package events

import (
	"context"
	"time"
)

// SettlementRecomputed is emitted after a new settlement has been committed.
type SettlementRecomputed struct {
	GroupID    string     `json:"group_id"`
	OwnerID    string     `json:"owner_id"`
	Transfers  []Transfer `json:"transfers"`
	ComputedAt time.Time  `json:"computed_at"`
}

// Transfer is the wire form of one settlement edge. Amount is a decimal string.
type Transfer struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// Publisher delivers settlement events to interested consumers.
type Publisher interface {
	PublishSettlement(ctx context.Context, event SettlementRecomputed) error
	Close() error
}

// Noop discards every event. Used when no broker is configured.
type Noop struct{}

func (Noop) PublishSettlement(context.Context, SettlementRecomputed) error { return nil }
func (Noop) Close() error                                                   { return nil }
