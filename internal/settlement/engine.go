// Package settlement validates group finances, computes settlements and keeps
// groups consistent through their lifecycle.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/dutch/internal/calculator"
	"github.com/mmynk/dutch/internal/events"
	"github.com/mmynk/dutch/internal/metrics"
	"github.com/mmynk/dutch/internal/models"
	"github.com/mmynk/dutch/internal/storage"
)

// Engine recomputes a group's settlement and replaces the stored one.
//
// Runs for the same group are serialized; runs for different groups proceed in
// parallel. Nothing is cached between runs: every run re-reads the ledger.
type Engine struct {
	store     storage.Store
	publisher events.Publisher
	locks     groupLocks
}

// NewEngine creates an Engine. A nil publisher disables settlement events.
func NewEngine(store storage.Store, publisher events.Publisher) *Engine {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Engine{store: store, publisher: publisher}
}

// Recompute validates the group, computes balances and transfers, and atomically
// replaces the group's stored settlement. Running it again on unchanged data
// returns the same transfers in the same order.
func (e *Engine) Recompute(ctx context.Context, ownerID, groupID string) ([]models.Transfer, error) {
	unlock := e.locks.lock(groupID)
	defer unlock()

	return e.recomputeLocked(ctx, ownerID, groupID)
}

// recomputeLocked does the work of Recompute. The caller must hold the group lock.
func (e *Engine) recomputeLocked(ctx context.Context, ownerID, groupID string) (transfers []models.Transfer, err error) {
	start := time.Now()
	defer func() { observeRun(err, len(transfers), time.Since(start)) }()

	// Validating
	group, err := e.store.GetGroup(ctx, groupID, ownerID)
	if err != nil {
		return nil, storageError("load group", err)
	}
	if group == nil {
		return nil, ErrNotFound
	}

	members, err := e.store.ListMembers(ctx, groupID)
	if err != nil {
		return nil, storageError("load members", err)
	}
	if len(members) < 2 {
		return nil, ErrInsufficientMembers
	}
	if paid := paidTotal(members); !paid.Equal(group.TotalAmount) {
		return nil, fmt.Errorf("%w: total %s, paid %s", ErrInconsistentTotal, group.TotalAmount, paid)
	}

	// Calculating
	balances, err := calculator.ComputeBalances(group.TotalAmount, contributions(members))
	if err != nil {
		return nil, err
	}
	matched := calculator.Match(balances)

	transfers = make([]models.Transfer, len(matched))
	for i, t := range matched {
		transfers[i] = models.Transfer{
			GroupID:    groupID,
			Position:   i,
			FromUserID: t.From,
			ToUserID:   t.To,
			Amount:     t.Amount,
		}
	}

	// Replacing
	if err := e.store.ReplaceTransfers(ctx, groupID, transfers); err != nil {
		return nil, storageError("replace transfers", err)
	}

	slog.Info("Settlement recomputed",
		"group_id", groupID,
		"members_count", len(members),
		"transfers_count", len(transfers),
	)

	e.publish(ctx, group, transfers)

	return transfers, nil
}

// publish reports a committed settlement. A failure here cannot undo the
// commit, so it is logged and swallowed.
func (e *Engine) publish(ctx context.Context, group *models.Group, transfers []models.Transfer) {
	event := events.SettlementRecomputed{
		GroupID:    group.ID,
		OwnerID:    group.OwnerID,
		Transfers:  make([]events.Transfer, len(transfers)),
		ComputedAt: time.Now().UTC(),
	}
	for i, t := range transfers {
		event.Transfers[i] = events.Transfer{From: t.FromUserID, To: t.ToUserID, Amount: t.Amount.StringFixed(calculator.Precision)}
	}

	if err := e.publisher.PublishSettlement(context.WithoutCancel(ctx), event); err != nil {
		slog.Warn("Failed to publish settlement event", "group_id", group.ID, "error", err)
	}
}

func observeRun(err error, transfers int, elapsed time.Duration) {
	metrics.SettlementDuration.Observe(elapsed.Seconds())
	switch {
	case err == nil:
		metrics.SettlementRuns.WithLabelValues(metrics.ResultOK).Inc()
		metrics.SettlementTransfers.Observe(float64(transfers))
	case errors.Is(err, ErrStorage):
		metrics.SettlementRuns.WithLabelValues(metrics.ResultError).Inc()
	default:
		metrics.SettlementRuns.WithLabelValues(metrics.ResultRejected).Inc()
	}
}

func paidTotal(members []models.Member) decimal.Decimal {
	sum := decimal.Zero
	for _, m := range members {
		sum = sum.Add(m.Paid)
	}
	return sum
}

func contributions(members []models.Member) []calculator.Contribution {
	out := make([]calculator.Contribution, len(members))
	for i, m := range members {
		out[i] = calculator.Contribution{UserID: m.UserID, Paid: m.Paid}
	}
	return out
}
