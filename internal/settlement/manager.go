package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/dutch/internal/calculator"
	"github.com/mmynk/dutch/internal/models"
	"github.com/mmynk/dutch/internal/storage"
)

// Manager creates, edits and removes groups, keeping each group's settlement in
// step with its ledger.
type Manager struct {
	store  storage.Store
	engine *Engine
}

// NewManager creates a Manager that triggers engine after every financial change.
func NewManager(store storage.Store, engine *Engine) *Manager {
	return &Manager{store: store, engine: engine}
}

// CreateGroupInput describes a new group. Members and Paid are keyed by username.
type CreateGroupInput struct {
	Name        string
	Members     []string
	TotalAmount decimal.Decimal
	Paid        map[string]decimal.Decimal
}

// CreateGroupResult is the stored group with its first settlement.
type CreateGroupResult struct {
	Group     *models.Group
	Transfers []models.Transfer
}

// CreateGroup validates the input, stores the group with its members and
// computes the initial settlement. The creator always becomes a member.
// Nothing is written unless every check passes.
func (m *Manager) CreateGroup(ctx context.Context, ownerID string, in CreateGroupInput) (*CreateGroupResult, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidInput("group name is required")
	}
	for username, paid := range in.Paid {
		if paid.IsNegative() {
			return nil, invalidInput("paid amount for '%s' cannot be negative", username)
		}
	}

	creator, err := m.store.GetUserByID(ctx, ownerID)
	if err != nil {
		return nil, storageError("load creator", err)
	}
	if creator == nil {
		return nil, fmt.Errorf("%w: creator %s", ErrUserNotFound, ownerID)
	}

	usernames := dedupe(append([]string{creator.Username}, in.Members...))

	members := make([]models.Member, 0, len(usernames))
	isMember := make(map[string]bool, len(usernames))
	for _, username := range usernames {
		userID, err := m.store.ResolveUserIDByUsername(ctx, username)
		if err != nil {
			return nil, storageError("resolve username", err)
		}
		if userID == "" {
			return nil, &UserNotFoundError{Username: username}
		}
		isMember[username] = true
		members = append(members, models.Member{UserID: userID, Username: username, Paid: in.Paid[username]})
	}

	for username := range in.Paid {
		if !isMember[username] {
			return nil, invalidInput("'%s' is not a member of the group", username)
		}
	}
	if _, ok := in.Paid[creator.Username]; !ok {
		return nil, ErrMissingCreatorContribution
	}
	if !in.TotalAmount.IsPositive() {
		return nil, ErrInvalidTotal
	}
	if len(members) < 2 {
		return nil, ErrInsufficientMembers
	}
	if paid := paidTotal(members); !paid.Equal(in.TotalAmount) {
		return nil, fmt.Errorf("%w: total %s, paid %s", ErrTotalMismatch, in.TotalAmount, paid)
	}

	exists, err := m.store.GroupNameExists(ctx, ownerID, name)
	if err != nil {
		return nil, storageError("check group name", err)
	}
	if exists {
		return nil, ErrDuplicateGroup
	}

	group := &models.Group{Name: name, OwnerID: ownerID, TotalAmount: in.TotalAmount}
	if err := m.store.CreateGroup(ctx, group, members); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrDuplicateGroup
		}
		return nil, storageError("create group", err)
	}

	slog.Info("Group created",
		"group_id", group.ID,
		"owner_id", ownerID,
		"members_count", group.MemberCount,
	)

	transfers, err := m.engine.Recompute(ctx, ownerID, group.ID)
	if err != nil {
		return nil, err
	}

	return &CreateGroupResult{Group: group, Transfers: transfers}, nil
}

// NewMember is a user to add to an existing group. Spent defaults to zero.
type NewMember struct {
	Username string
	Spent    *decimal.Decimal
}

// UpdateGroupInput describes edits to a group. Nil and empty fields are left alone.
// MemberSpending replaces the paid amount of members, keyed by username.
type UpdateGroupInput struct {
	GroupID        string
	Name           *string
	TotalAmount    *decimal.Decimal
	NewMembers     []NewMember
	MemberSpending map[string]decimal.Decimal
}

// UpdateGroupResult reports what an update did.
type UpdateGroupResult struct {
	Group          *models.Group
	AddedMembers   []string
	SkippedMembers []string

	// Recalculated is set when the update touched money and a new settlement was computed.
	Recalculated bool
	Transfers    []models.Transfer
}

// UpdateGroup applies in's edits in one transaction.
//
// When the total, the members or the paid amounts change, the stored total must
// still equal the sum of paid amounts. If it does, the settlement is recomputed.
// If it does not, the edits are kept, the old settlement is dropped and
// ErrPendingReconciliation is returned; the group stays unsettled until a
// further update makes the numbers agree.
func (m *Manager) UpdateGroup(ctx context.Context, ownerID string, in UpdateGroupInput) (*UpdateGroupResult, error) {
	unlock := m.engine.locks.lock(in.GroupID)
	defer unlock()

	group, err := m.store.GetGroup(ctx, in.GroupID, ownerID)
	if err != nil {
		return nil, storageError("load group", err)
	}
	if group == nil {
		return nil, ErrNotFound
	}

	change := &storage.GroupChange{GroupID: group.ID, OwnerID: ownerID}
	financial := false

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalidInput("group name cannot be empty")
		}
		if name != group.Name {
			exists, err := m.store.GroupNameExists(ctx, ownerID, name)
			if err != nil {
				return nil, storageError("check group name", err)
			}
			if exists {
				return nil, ErrDuplicateGroup
			}
			change.Name = &name
		}
	}

	total := group.TotalAmount
	if in.TotalAmount != nil {
		if !in.TotalAmount.IsPositive() {
			return nil, ErrInvalidTotal
		}
		total = *in.TotalAmount
		change.TotalAmount = in.TotalAmount
		financial = true
	}

	members, err := m.store.ListMembers(ctx, group.ID)
	if err != nil {
		return nil, storageError("load members", err)
	}
	existing := make(map[string]models.Member, len(members))
	memberIDs := make(map[string]bool, len(members))
	for _, member := range members {
		existing[member.Username] = member
		memberIDs[member.UserID] = true
	}

	result := &UpdateGroupResult{}
	added := make(map[string]int)
	for _, nm := range in.NewMembers {
		username := strings.TrimSpace(nm.Username)
		if username == "" {
			return nil, invalidInput("new member username is required")
		}
		userID, err := m.store.ResolveUserIDByUsername(ctx, username)
		if err != nil {
			return nil, storageError("resolve username", err)
		}
		if userID == "" {
			return nil, &UserNotFoundError{Username: username}
		}
		if _, dup := added[username]; dup || memberIDs[userID] {
			result.SkippedMembers = append(result.SkippedMembers, username)
			continue
		}

		spent := decimal.Zero
		if nm.Spent != nil {
			if nm.Spent.IsNegative() {
				return nil, invalidInput("paid amount for '%s' cannot be negative", username)
			}
			spent = *nm.Spent
		}
		added[username] = len(change.NewMembers)
		change.NewMembers = append(change.NewMembers, models.Member{UserID: userID, Username: username, Paid: spent})
		result.AddedMembers = append(result.AddedMembers, username)
		financial = true
	}

	for username, paid := range in.MemberSpending {
		if paid.IsNegative() {
			return nil, invalidInput("paid amount for '%s' cannot be negative", username)
		}
		if member, ok := existing[username]; ok {
			if change.Paid == nil {
				change.Paid = make(map[string]decimal.Decimal)
			}
			change.Paid[member.UserID] = paid
		} else if i, ok := added[username]; ok {
			change.NewMembers[i].Paid = paid
		} else {
			return nil, invalidInput("'%s' is not a member of the group", username)
		}
		financial = true
	}

	paid := decimal.Zero
	for _, member := range members {
		if p, ok := change.Paid[member.UserID]; ok {
			paid = paid.Add(p)
		} else {
			paid = paid.Add(member.Paid)
		}
	}
	paid = paid.Add(paidTotal(change.NewMembers))

	pending := financial && !paid.Equal(total)
	change.ClearTransfers = pending

	if err := m.store.ApplyGroupChange(ctx, change); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, storage.ErrDuplicate) && change.Name != nil:
			return nil, ErrDuplicateGroup
		default:
			return nil, storageError("update group", err)
		}
	}

	slog.Info("Group updated",
		"group_id", group.ID,
		"added_count", len(result.AddedMembers),
		"skipped_count", len(result.SkippedMembers),
		"financial", financial,
	)

	if pending {
		slog.Warn("Group left unsettled",
			"group_id", group.ID,
			"total", total.String(),
			"paid", paid.String(),
		)
		return nil, fmt.Errorf("%w: total %s, paid %s", ErrPendingReconciliation, total, paid)
	}

	if financial {
		transfers, err := m.engine.recomputeLocked(ctx, ownerID, group.ID)
		if err != nil {
			return nil, err
		}
		result.Recalculated = true
		result.Transfers = transfers
	} else {
		transfers, err := m.store.ListTransfers(ctx, group.ID)
		if err != nil {
			return nil, storageError("load transfers", err)
		}
		result.Transfers = transfers
	}

	result.Group, err = m.store.GetGroup(ctx, group.ID, ownerID)
	if err != nil {
		return nil, storageError("reload group", err)
	}
	if result.Group == nil {
		return nil, ErrNotFound
	}

	return result, nil
}

// DeleteGroup removes the group together with its members and settlement.
func (m *Manager) DeleteGroup(ctx context.Context, ownerID, groupID string) error {
	unlock := m.engine.locks.lock(groupID)
	defer unlock()

	if err := m.store.DeleteGroup(ctx, groupID, ownerID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return storageError("delete group", err)
	}

	slog.Info("Group deleted", "group_id", groupID, "owner_id", ownerID)
	return nil
}

// MemberBalance is a member with its balance against the equal share.
type MemberBalance struct {
	models.Member
	Balance decimal.Decimal
}

// GroupSettlement is a group as shown to its owner.
type GroupSettlement struct {
	Group     *models.Group
	Members   []MemberBalance
	Transfers []models.Transfer
}

// GetGroupWithSettlement returns the group, its members with their balances and
// the stored settlement. Balances are left at zero when they cannot be computed
// (fewer than two members).
func (m *Manager) GetGroupWithSettlement(ctx context.Context, ownerID, groupID string) (*GroupSettlement, error) {
	group, err := m.store.GetGroup(ctx, groupID, ownerID)
	if err != nil {
		return nil, storageError("load group", err)
	}
	if group == nil {
		return nil, ErrNotFound
	}

	var (
		members   []models.Member
		transfers []models.Transfer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		members, err = m.store.ListMembers(gctx, groupID)
		return err
	})
	g.Go(func() error {
		var err error
		transfers, err = m.store.ListTransfers(gctx, groupID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storageError("load settlement", err)
	}

	balances := make(map[string]decimal.Decimal, len(members))
	if computed, err := calculator.ComputeBalances(group.TotalAmount, contributions(members)); err == nil {
		for _, b := range computed {
			balances[b.UserID] = b.Balance
		}
	}

	out := &GroupSettlement{
		Group:     group,
		Members:   make([]MemberBalance, len(members)),
		Transfers: transfers,
	}
	for i, member := range members {
		out.Members[i] = MemberBalance{Member: member, Balance: balances[member.UserID]}
	}

	return out, nil
}

// ListGroups returns the groups owned by ownerID.
func (m *Manager) ListGroups(ctx context.Context, ownerID string) ([]*models.Group, error) {
	groups, err := m.store.ListGroups(ctx, ownerID)
	if err != nil {
		return nil, storageError("list groups", err)
	}
	return groups, nil
}

// dedupe drops blank and repeated usernames, keeping first-seen order.
func dedupe(usernames []string) []string {
	seen := make(map[string]bool, len(usernames))
	out := make([]string, 0, len(usernames))
	for _, u := range usernames {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
