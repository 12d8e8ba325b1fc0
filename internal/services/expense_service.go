// Package services orchestrates expense operations across storage and the
// message broker. Handlers talk to services, never to SQL directly.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"kharcha/internal/core"
	"kharcha/internal/events"
	"kharcha/internal/metrics"
	"kharcha/internal/storage"
)

// Store is the persistence surface the expense service needs. The SQLite
// repository satisfies it; tests substitute fakes.
type Store interface {
	InsertExpense(ctx context.Context, e *core.Expense) (storage.InsertResult, error)
	GetExpenseByIdempotencyKey(ctx context.Context, ownerID, key string) (*core.Expense, error)
	ListExpenses(ctx context.Context, ownerID, categoryKey string, sort core.SortOrder) ([]core.Expense, error)
	DistinctCategories(ctx context.Context, ownerID string) ([]string, error)
}

// EventPublisher emits expense lifecycle events. Nil-safe at the service
// level: a service built with a nil publisher simply skips publishing.
type EventPublisher interface {
	PublishExpenseCreated(ctx context.Context, msg *events.ExpenseCreated) error
}

// ExpenseService implements idempotent expense recording and listing.
type ExpenseService struct {
	store  Store
	events EventPublisher
}

func NewExpenseService(store Store, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{
		store:  store,
		events: publisher,
	}
}

// CreateInput is the raw client submission. Everything arrives as strings;
// the service owns parsing and validation.
type CreateInput struct {
	Amount      string
	Category    string
	Description string
	Date        string
}

// Create records an expense exactly once per (owner, idempotency key).
// The returned bool reports a replay: true means the key was already
// recorded and the stored expense is returned unchanged.
//
// The write path is lookup, then insert, then on a uniqueness conflict a
// re-read of the winner. Two concurrent submissions with the same key both
// come back with the same stored record; only the race winner publishes an
// event.
func (s *ExpenseService) Create(ctx context.Context, ownerID, idemKey string, in CreateInput) (*core.Expense, bool, error) {
	e, err := buildExpense(ownerID, idemKey, in)
	if err != nil {
		return nil, false, err
	}

	// Fast path: the key has been seen before.
	existing, err := s.store.GetExpenseByIdempotencyKey(ctx, ownerID, idemKey)
	if err == nil {
		metrics.ExpensesReplayed.Inc()
		slog.DebugContext(ctx, "Idempotent replay", "owner_id", ownerID, "expense_id", existing.ID)
		return existing, true, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("lookup idempotency key: %w", err)
	}

	res, err := s.store.InsertExpense(ctx, e)
	if err != nil {
		return nil, false, fmt.Errorf("insert expense: %w", err)
	}

	if res == storage.Conflict {
		// Lost the race to a concurrent duplicate. The winner's record is
		// the canonical one.
		metrics.InsertConflicts.Inc()
		winner, err := s.store.GetExpenseByIdempotencyKey(ctx, ownerID, idemKey)
		if errors.Is(err, storage.ErrNotFound) {
			slog.ErrorContext(ctx, "Conflict winner vanished",
				"owner_id", ownerID, "idempotency_key", idemKey)
			return nil, false, ErrConsistency
		}
		if err != nil {
			return nil, false, fmt.Errorf("re-read after conflict: %w", err)
		}
		metrics.ExpensesReplayed.Inc()
		return winner, true, nil
	}

	metrics.ExpensesCreated.Inc()
	s.publishCreated(ctx, e)
	return e, false, nil
}

// List returns the owner's expenses. Category filters by normalized key so
// "Food" and "food" select the same records; sortParam falls back to newest
// first when unrecognized.
func (s *ExpenseService) List(ctx context.Context, ownerID, category, sortParam string) ([]core.Expense, error) {
	var key string
	if strings.TrimSpace(category) != "" {
		key = core.NormalizeCategory(category)
	}
	return s.store.ListExpenses(ctx, ownerID, key, core.ParseSortOrder(sortParam))
}

// Categories lists the owner's distinct display categories in locale-aware
// alphabetical order.
func (s *ExpenseService) Categories(ctx context.Context, ownerID string) ([]string, error) {
	cats, err := s.store.DistinctCategories(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	collate.New(language.English).SortStrings(cats)
	return cats, nil
}

func (s *ExpenseService) publishCreated(ctx context.Context, e *core.Expense) {
	if s.events == nil {
		return
	}
	// Publishing is best effort: the expense is durable in SQLite and the
	// worker catches up on unsynced rows, so a broker failure never fails
	// the request.
	if err := s.events.PublishExpenseCreated(ctx, events.NewExpenseCreated(e.ID, e.OwnerID)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense created event",
			"expense_id", e.ID, "error", err)
	}
}

// buildExpense parses and validates the raw submission into a ready-to-insert
// record. All field failures are collected into one ValidationError.
func buildExpense(ownerID, idemKey string, in CreateInput) (*core.Expense, error) {
	fields := make(map[string]string)

	paise, err := core.ParseMoneyToPaise(in.Amount)
	if err != nil {
		fields["amount"] = err.Error()
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		fields["category"] = core.ErrEmptyCategory.Error()
	} else if len(category) > core.MaxCategoryLen {
		fields["category"] = core.ErrCategoryTooLong.Error()
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		fields["description"] = core.ErrEmptyDescription.Error()
	} else if len(description) > core.MaxDescriptionLen {
		fields["description"] = core.ErrDescriptionTooLong.Error()
	}

	var date time.Time
	if date, err = time.Parse("2006-01-02", strings.TrimSpace(in.Date)); err != nil {
		fields["date"] = core.ErrInvalidDate.Error()
	}

	if err := core.ValidateIdempotencyKey(idemKey); err != nil {
		fields["idempotencyKey"] = err.Error()
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	return &core.Expense{
		ID:             uuid.New().String(),
		OwnerID:        ownerID,
		AmountPaise:    paise,
		Currency:       core.Currency,
		Category:       category,
		CategoryKey:    core.NormalizeCategory(category),
		Description:    description,
		Date:           date,
		IdempotencyKey: idemKey,
		CreatedAt:      time.Now().UTC(),
	}, nil
}
