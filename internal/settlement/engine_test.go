package settlement

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/dutch/internal/events"
	"github.com/mmynk/dutch/internal/models"
	"github.com/mmynk/dutch/internal/storage"
	"github.com/mmynk/dutch/internal/storage/sqlite"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "dutch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// seedUsers creates users whose IDs sort the same way as their usernames.
func seedUsers(t *testing.T, store storage.Store, usernames ...string) map[string]*models.User {
	t.Helper()
	users := make(map[string]*models.User, len(usernames))
	for _, name := range usernames {
		u := models.NewUser(name, name+"@example.com", "hash")
		u.ID = "user-" + name
		require.NoError(t, store.CreateUser(context.Background(), u))
		users[name] = u
	}
	return users
}

// seedGroup stores a group directly, bypassing lifecycle validation.
func seedGroup(t *testing.T, store storage.Store, owner *models.User, total string, paid map[*models.User]string) *models.Group {
	t.Helper()
	group := &models.Group{Name: t.Name() + " " + total, OwnerID: owner.ID, TotalAmount: d(total)}
	members := make([]models.Member, 0, len(paid))
	for u, amount := range paid {
		members = append(members, models.Member{UserID: u.ID, Paid: d(amount)})
	}
	require.NoError(t, store.CreateGroup(context.Background(), group, members))
	return group
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.SettlementRecomputed
	err    error
}

func (p *recordingPublisher) PublishSettlement(_ context.Context, e events.SettlementRecomputed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []events.SettlementRecomputed {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.SettlementRecomputed(nil), p.events...)
}

// failingStore fails every ReplaceTransfers call.
type failingStore struct {
	storage.Store
}

func (failingStore) ReplaceTransfers(context.Context, string, []models.Transfer) error {
	return errors.New("disk full")
}

// held reports how many group locks are currently tracked.
func (l *groupLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func assertTransfers(t *testing.T, want, got []models.Transfer) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].FromUserID, got[i].FromUserID, "transfer %d from", i)
		assert.Equal(t, want[i].ToUserID, got[i].ToUserID, "transfer %d to", i)
		assert.True(t, want[i].Amount.Equal(got[i].Amount),
			"transfer %d amount = %s, want %s", i, got[i].Amount, want[i].Amount)
		assert.Equal(t, i, got[i].Position, "transfer %d position", i)
	}
}

func TestRecompute(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	users := seedUsers(t, store, "alice", "bob", "carol", "dave")
	alice, bob, carol, dave := users["alice"], users["bob"], users["carol"], users["dave"]

	t.Run("one payer settles two debtors", func(t *testing.T) {
		group := seedGroup(t, store, alice, "300", map[*models.User]string{alice: "300", bob: "0", carol: "0"})
		engine := NewEngine(store, nil)

		got, err := engine.Recompute(ctx, alice.ID, group.ID)
		require.NoError(t, err)

		want := []models.Transfer{
			{FromUserID: bob.ID, ToUserID: alice.ID, Amount: d("100")},
			{FromUserID: carol.ID, ToUserID: alice.ID, Amount: d("100")},
		}
		assertTransfers(t, want, got)

		stored, err := store.ListTransfers(ctx, group.ID)
		require.NoError(t, err)
		assertTransfers(t, want, stored)
	})

	t.Run("two members", func(t *testing.T) {
		group := seedGroup(t, store, alice, "80", map[*models.User]string{alice: "0", bob: "80"})

		got, err := NewEngine(store, nil).Recompute(ctx, alice.ID, group.ID)
		require.NoError(t, err)
		assertTransfers(t, []models.Transfer{{FromUserID: alice.ID, ToUserID: bob.ID, Amount: d("40")}}, got)
	})

	t.Run("equal payments need no transfers", func(t *testing.T) {
		group := seedGroup(t, store, alice, "90", map[*models.User]string{alice: "30", bob: "30", carol: "30"})

		got, err := NewEngine(store, nil).Recompute(ctx, alice.ID, group.ID)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("debtor split across creditors", func(t *testing.T) {
		group := seedGroup(t, store, alice, "160", map[*models.User]string{alice: "90", bob: "70", carol: "0", dave: "0"})
		got, err := NewEngine(store, nil).Recompute(ctx, alice.ID, group.ID)
		require.NoError(t, err)
		assertTransfers(t, []models.Transfer{
			{FromUserID: carol.ID, ToUserID: alice.ID, Amount: d("40")},
			{FromUserID: dave.ID, ToUserID: alice.ID, Amount: d("10")},
			{FromUserID: dave.ID, ToUserID: bob.ID, Amount: d("30")},
		}, got)
	})

	t.Run("idempotent", func(t *testing.T) {
		group := seedGroup(t, store, alice, "100", map[*models.User]string{alice: "100", bob: "0", carol: "0"})
		engine := NewEngine(store, nil)

		first, err := engine.Recompute(ctx, alice.ID, group.ID)
		require.NoError(t, err)
		second, err := engine.Recompute(ctx, alice.ID, group.ID)
		require.NoError(t, err)
		assert.Equal(t, first, second)

		stored, err := store.ListTransfers(ctx, group.ID)
		require.NoError(t, err)
		assertTransfers(t, first, stored)
	})
}

func TestRecompute_Rejections(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	users := seedUsers(t, store, "alice", "bob", "carol")
	alice, bob := users["alice"], users["bob"]
	engine := NewEngine(store, nil)

	t.Run("unknown group", func(t *testing.T) {
		_, err := engine.Recompute(ctx, alice.ID, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("foreign group", func(t *testing.T) {
		group := seedGroup(t, store, alice, "10", map[*models.User]string{alice: "10", bob: "0"})
		_, err := engine.Recompute(ctx, bob.ID, group.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("single member writes nothing", func(t *testing.T) {
		group := seedGroup(t, store, alice, "50", map[*models.User]string{alice: "50"})

		_, err := engine.Recompute(ctx, alice.ID, group.ID)
		assert.ErrorIs(t, err, ErrInsufficientMembers)

		stored, err := store.ListTransfers(ctx, group.ID)
		require.NoError(t, err)
		assert.Empty(t, stored)
	})

	t.Run("inconsistent total keeps the old settlement", func(t *testing.T) {
		group := seedGroup(t, store, alice, "100", map[*models.User]string{alice: "100", bob: "0"})
		before, err := engine.Recompute(ctx, alice.ID, group.ID)
		require.NoError(t, err)

		total := d("150")
		require.NoError(t, store.ApplyGroupChange(ctx, &storage.GroupChange{
			GroupID: group.ID, OwnerID: alice.ID, TotalAmount: &total,
		}))

		_, err = engine.Recompute(ctx, alice.ID, group.ID)
		assert.ErrorIs(t, err, ErrInconsistentTotal)
		assert.NotErrorIs(t, err, ErrStorage)

		stored, err := store.ListTransfers(ctx, group.ID)
		require.NoError(t, err)
		assertTransfers(t, before, stored)
	})
}

func TestRecompute_StorageFailure(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	users := seedUsers(t, store, "alice", "bob")
	alice, bob := users["alice"], users["bob"]
	group := seedGroup(t, store, alice, "60", map[*models.User]string{alice: "60", bob: "0"})

	before, err := NewEngine(store, nil).Recompute(ctx, alice.ID, group.ID)
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	_, err = NewEngine(failingStore{store}, publisher).Recompute(ctx, alice.ID, group.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorage)
	assert.Empty(t, publisher.published(), "failed run must not publish")

	stored, err := store.ListTransfers(ctx, group.ID)
	require.NoError(t, err)
	assertTransfers(t, before, stored)
}

func TestRecompute_PublishesEvent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	users := seedUsers(t, store, "alice", "bob", "carol")
	alice, bob, carol := users["alice"], users["bob"], users["carol"]
	group := seedGroup(t, store, alice, "100", map[*models.User]string{alice: "100", bob: "0", carol: "0"})

	t.Run("event carries the committed transfers", func(t *testing.T) {
		publisher := &recordingPublisher{}
		_, err := NewEngine(store, publisher).Recompute(ctx, alice.ID, group.ID)
		require.NoError(t, err)

		published := publisher.published()
		require.Len(t, published, 1)
		event := published[0]
		assert.Equal(t, group.ID, event.GroupID)
		assert.Equal(t, alice.ID, event.OwnerID)
		assert.Equal(t, []events.Transfer{
			{From: bob.ID, To: alice.ID, Amount: "33.33"},
			{From: carol.ID, To: alice.ID, Amount: "33.33"},
		}, event.Transfers)
	})

	t.Run("publish failure does not fail the run", func(t *testing.T) {
		publisher := &recordingPublisher{err: errors.New("broker down")}
		got, err := NewEngine(store, publisher).Recompute(ctx, alice.ID, group.ID)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestRecompute_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	users := seedUsers(t, store, "alice", "bob", "carol")
	alice, bob, carol := users["alice"], users["bob"], users["carol"]
	first := seedGroup(t, store, alice, "300", map[*models.User]string{alice: "300", bob: "0", carol: "0"})
	second := seedGroup(t, store, alice, "90", map[*models.User]string{alice: "0", bob: "90"})

	engine := NewEngine(store, nil)

	const runs = 8
	var wg sync.WaitGroup
	errs := make(chan error, 2*runs)
	for i := 0; i < runs; i++ {
		for _, groupID := range []string{first.ID, second.ID} {
			wg.Add(1)
			go func(groupID string) {
				defer wg.Done()
				_, err := engine.Recompute(ctx, alice.ID, groupID)
				errs <- err
			}(groupID)
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := store.ListTransfers(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	stored, err = store.ListTransfers(ctx, second.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	assert.Zero(t, engine.locks.held(), "group locks should be released")
}
