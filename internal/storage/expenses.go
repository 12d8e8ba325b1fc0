package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kharcha/internal/core"
)

// listLimit caps every listing to bound response size; there is no
// pagination cursor.
const listLimit = 500

// createdAtFormat pads the fractional second to a fixed nine digits.
// Sorting and the tie-breaks compare created_at as text, so the stored form
// must be fixed-width UTC for lexical order to match chronological order;
// RFC3339Nano trims trailing zeros and breaks that.
const (
	txDateFormat    = "2006-01-02"
	createdAtFormat = "2006-01-02T15:04:05.000000000Z07:00"
)

const expenseColumns = `id, user_id, amount_paise, currency, category, category_key, description, tx_date, idempotency_key, created_at`

// InsertExpense writes a new expense. The insert relies on the
// UNIQUE (user_id, idempotency_key) constraint rather than any prior read:
// when a concurrent duplicate submission wins the race, the result is
// Conflict and no row is written. Any other failure is returned as an error.
func (r *Repository) InsertExpense(ctx context.Context, e *core.Expense) (InsertResult, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (`+expenseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.OwnerID,
		e.AmountPaise,
		e.Currency,
		e.Category,
		e.CategoryKey,
		e.Description,
		e.Date.Format(txDateFormat),
		e.IdempotencyKey,
		e.CreatedAt.UTC().Format(createdAtFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return Conflict, nil
		}
		return 0, fmt.Errorf("insert expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense inserted",
		"id", e.ID,
		"owner_id", e.OwnerID,
		"amount_paise", e.AmountPaise)
	return Inserted, nil
}

// GetExpenseByIdempotencyKey is the point lookup used by both the replay
// fast path and the post-conflict re-read. Returns ErrNotFound when no
// record exists for (ownerID, key).
func (r *Repository) GetExpenseByIdempotencyKey(ctx context.Context, ownerID, key string) (*core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses
		WHERE user_id = ? AND idempotency_key = ?`,
		ownerID, key,
	)
	return scanExpense(row)
}

// GetExpenseByID retrieves a single expense regardless of owner. Used by the
// export worker, which operates on event payloads, not user requests.
func (r *Repository) GetExpenseByID(ctx context.Context, id string) (*core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses
		WHERE id = ?`,
		id,
	)
	return scanExpense(row)
}

// ListExpenses returns the owner's expenses, optionally filtered to one
// category key (exact match on the normalized key), in the order given by
// sort, capped at the listing limit.
func (r *Repository) ListExpenses(ctx context.Context, ownerID, categoryKey string, sort core.SortOrder) ([]core.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE user_id = ?`
	args := []any{ownerID}
	if categoryKey != "" {
		query += ` AND category_key = ?`
		args = append(args, categoryKey)
	}
	query += ` ORDER BY ` + orderClause(sort) + ` LIMIT ?`
	args = append(args, listLimit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

// DistinctCategories returns each distinct display category the owner has
// used, unordered; callers decide collation.
func (r *Repository) DistinctCategories(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT category FROM expenses WHERE user_id = ?`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("distinct categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

// ListUnsynced returns expenses the export worker has not yet written out,
// oldest first.
func (r *Repository) ListUnsynced(ctx context.Context, limit int) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses
		WHERE synced_at IS NULL
		ORDER BY created_at ASC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list unsynced expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unsynced expenses: %w", err)
	}
	return out, nil
}

// MarkSynced records that the export worker wrote the expense out.
func (r *Repository) MarkSynced(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET synced_at = ? WHERE id = ?`,
		time.Now().UTC().Format(createdAtFormat), id,
	)
	if err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	return nil
}

// orderClause maps a sort option to its ORDER BY expression, tie-break
// included. The default (and any unknown value) is newest-created first.
func orderClause(sort core.SortOrder) string {
	switch sort {
	case core.SortDateDesc:
		return "tx_date DESC, created_at DESC"
	case core.SortDateAsc:
		return "tx_date ASC, created_at ASC"
	case core.SortAmountDesc:
		return "amount_paise DESC, tx_date DESC"
	case core.SortAmountAsc:
		return "amount_paise ASC, tx_date DESC"
	case core.SortCategoryAsc:
		return "category_key ASC, tx_date DESC"
	case core.SortCategoryDesc:
		return "category_key DESC, tx_date DESC"
	default:
		return "created_at DESC"
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*core.Expense, error) {
	var (
		e         core.Expense
		txDate    string
		createdAt string
	)
	err := row.Scan(
		&e.ID,
		&e.OwnerID,
		&e.AmountPaise,
		&e.Currency,
		&e.Category,
		&e.CategoryKey,
		&e.Description,
		&txDate,
		&e.IdempotencyKey,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan expense: %w", err)
	}

	if e.Date, err = time.Parse(txDateFormat, txDate); err != nil {
		return nil, fmt.Errorf("parse tx_date %q: %w", txDate, err)
	}
	if e.CreatedAt, err = time.Parse(createdAtFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return &e, nil
}
