package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kharcha/internal/core"
	"kharcha/internal/events"
	"kharcha/internal/storage"
)

// fakeStore scripts the persistence layer so the race paths can be driven
// deterministically.
type fakeStore struct {
	existing     *core.Expense // returned by the idempotency lookup, nil means not found
	insertResult storage.InsertResult
	insertErr    error
	winner       *core.Expense // returned by the post-conflict re-read

	inserted    []*core.Expense
	listOwner   string
	listKey     string
	listSort    core.SortOrder
	listResult  []core.Expense
	categories  []string
	lookupCalls int
}

func (f *fakeStore) InsertExpense(_ context.Context, e *core.Expense) (storage.InsertResult, error) {
	f.inserted = append(f.inserted, e)
	return f.insertResult, f.insertErr
}

func (f *fakeStore) GetExpenseByIdempotencyKey(_ context.Context, _, _ string) (*core.Expense, error) {
	f.lookupCalls++
	if f.lookupCalls == 1 {
		if f.existing != nil {
			return f.existing, nil
		}
		return nil, storage.ErrNotFound
	}
	if f.winner != nil {
		return f.winner, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) ListExpenses(_ context.Context, ownerID, categoryKey string, sort core.SortOrder) ([]core.Expense, error) {
	f.listOwner, f.listKey, f.listSort = ownerID, categoryKey, sort
	return f.listResult, nil
}

func (f *fakeStore) DistinctCategories(_ context.Context, _ string) ([]string, error) {
	return f.categories, nil
}

type fakePublisher struct {
	published []*events.ExpenseCreated
	err       error
}

func (f *fakePublisher) PublishExpenseCreated(_ context.Context, msg *events.ExpenseCreated) error {
	f.published = append(f.published, msg)
	return f.err
}

func validInput() CreateInput {
	return CreateInput{
		Amount:      "125.50",
		Category:    " Food ",
		Description: "Lunch at the canteen",
		Date:        "2026-08-20",
	}
}

func TestCreateFirstSubmission(t *testing.T) {
	store := &fakeStore{insertResult: storage.Inserted}
	pub := &fakePublisher{}
	svc := NewExpenseService(store, pub)

	e, replayed, err := svc.Create(context.Background(), "owner-1", "key-1", validInput())
	require.NoError(t, err)
	assert.False(t, replayed)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "owner-1", e.OwnerID)
	assert.Equal(t, int64(12550), e.AmountPaise)
	assert.Equal(t, "INR", e.Currency)
	assert.Equal(t, "Food", e.Category, "display category is trimmed, case kept")
	assert.Equal(t, "food", e.CategoryKey)
	assert.Equal(t, "key-1", e.IdempotencyKey)

	require.Len(t, store.inserted, 1)
	require.Len(t, pub.published, 1)
	assert.Equal(t, e.ID, pub.published[0].ID)
}

func TestCreateReplayReturnsStoredRecord(t *testing.T) {
	stored := &core.Expense{ID: "e-1", OwnerID: "owner-1", AmountPaise: 100, IdempotencyKey: "key-1"}
	store := &fakeStore{existing: stored}
	pub := &fakePublisher{}
	svc := NewExpenseService(store, pub)

	// The replay submission may differ from the original; the stored record
	// wins regardless.
	in := validInput()
	in.Amount = "999.99"

	e, replayed, err := svc.Create(context.Background(), "owner-1", "key-1", in)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Same(t, stored, e)
	assert.Empty(t, store.inserted, "replay must not insert")
	assert.Empty(t, pub.published, "replay must not publish")
}

func TestCreateConflictReReadsWinner(t *testing.T) {
	winner := &core.Expense{ID: "winner", OwnerID: "owner-1", IdempotencyKey: "key-1"}
	store := &fakeStore{insertResult: storage.Conflict, winner: winner}
	pub := &fakePublisher{}
	svc := NewExpenseService(store, pub)

	e, replayed, err := svc.Create(context.Background(), "owner-1", "key-1", validInput())
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Same(t, winner, e)
	assert.Empty(t, pub.published, "race loser must not publish")
}

func TestCreateConflictWinnerMissing(t *testing.T) {
	store := &fakeStore{insertResult: storage.Conflict}
	svc := NewExpenseService(store, nil)

	_, _, err := svc.Create(context.Background(), "owner-1", "key-1", validInput())
	assert.ErrorIs(t, err, ErrConsistency)
}

func TestCreatePublishFailureDoesNotFailRequest(t *testing.T) {
	store := &fakeStore{insertResult: storage.Inserted}
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewExpenseService(store, pub)

	_, replayed, err := svc.Create(context.Background(), "owner-1", "key-1", validInput())
	require.NoError(t, err)
	assert.False(t, replayed)
}

func TestCreateWithoutPublisher(t *testing.T) {
	store := &fakeStore{insertResult: storage.Inserted}
	svc := NewExpenseService(store, nil)

	_, _, err := svc.Create(context.Background(), "owner-1", "key-1", validInput())
	assert.NoError(t, err)
}

func TestCreateValidationCollectsAllFields(t *testing.T) {
	svc := NewExpenseService(&fakeStore{}, nil)

	_, _, err := svc.Create(context.Background(), "owner-1", "", CreateInput{
		Amount:      "-5",
		Category:    "",
		Description: "   ",
		Date:        "20-08-2026",
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, core.ErrNegativeAmount.Error(), verr.Fields["amount"])
	assert.Equal(t, core.ErrEmptyCategory.Error(), verr.Fields["category"])
	assert.Equal(t, core.ErrEmptyDescription.Error(), verr.Fields["description"])
	assert.Equal(t, core.ErrInvalidDate.Error(), verr.Fields["date"])
	assert.Equal(t, core.ErrMissingIdempotencyKey.Error(), verr.Fields["idempotencyKey"])
	assert.Len(t, verr.Fields, 5)
}

func TestCreateRejectsOverlongKey(t *testing.T) {
	svc := NewExpenseService(&fakeStore{}, nil)

	long := make([]byte, core.MaxIdempotencyKeyLen+1)
	for i := range long {
		long[i] = 'k'
	}

	_, _, err := svc.Create(context.Background(), "owner-1", string(long), validInput())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, core.ErrIdempotencyKeyTooLong.Error(), verr.Fields["idempotencyKey"])
}

func TestListNormalizesCategoryFilter(t *testing.T) {
	store := &fakeStore{}
	svc := NewExpenseService(store, nil)

	_, err := svc.List(context.Background(), "owner-1", "  FOOD ", "date_asc")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", store.listOwner)
	assert.Equal(t, "food", store.listKey)
	assert.Equal(t, core.SortDateAsc, store.listSort)
}

func TestListDefaultsSort(t *testing.T) {
	store := &fakeStore{}
	svc := NewExpenseService(store, nil)

	_, err := svc.List(context.Background(), "owner-1", "", "bogus")
	require.NoError(t, err)
	assert.Equal(t, "", store.listKey)
	assert.Equal(t, core.SortCreatedDesc, store.listSort)
}

func TestCategoriesSorted(t *testing.T) {
	store := &fakeStore{categories: []string{"travel", "Bills", "food"}}
	svc := NewExpenseService(store, nil)

	cats, err := svc.Categories(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bills", "food", "travel"}, cats, "alphabetical, case-insensitive")
}

// TestConcurrentSameKey drives the real SQLite repository with parallel
// submissions of one key and checks that exactly one caller is told the
// record is fresh.
func TestConcurrentSameKey(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "kharcha_test.db")
	repo, err := storage.New(dbPath)
	require.NoError(t, err)
	defer repo.Close()

	owner := &core.User{Username: "racer", Email: "racer@example.com", PasswordHash: "h"}
	require.NoError(t, repo.CreateUser(context.Background(), owner))

	svc := NewExpenseService(repo, nil)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		fresh   int
		ids     = make(map[string]struct{})
		firstEr error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, replayed, err := svc.Create(context.Background(), owner.ID, "same-key", validInput())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstEr == nil {
					firstEr = err
				}
				return
			}
			if !replayed {
				fresh++
			}
			ids[e.ID] = struct{}{}
		}()
	}
	wg.Wait()

	require.NoError(t, firstEr)
	assert.Equal(t, 1, fresh, "exactly one caller creates")
	assert.Len(t, ids, 1, "everyone sees the same record")

	list, err := svc.List(context.Background(), owner.ID, "", "")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
