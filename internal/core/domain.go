package core

import (
	"errors"
	"strings"
	"time"
)

// Field limits for user-supplied text.
const (
	MaxCategoryLen       = 80
	MaxDescriptionLen    = 240
	MaxIdempotencyKeyLen = 200
)

// Currency is fixed for the whole ledger; amounts are integer paise.
const Currency = "INR"

var (
	ErrAmountRequired    = errors.New("amount is required")
	ErrNegativeAmount    = errors.New("negative amount is not allowed")
	ErrInvalidAmount     = errors.New("amount must be a positive number with up to 2 decimals")
	ErrAmountTooLarge    = errors.New("amount is too large")
	ErrAmountNotPositive = errors.New("amount must be greater than 0")

	ErrEmptyCategory         = errors.New("category is required")
	ErrCategoryTooLong       = errors.New("category too long")
	ErrEmptyDescription      = errors.New("description is required")
	ErrDescriptionTooLong    = errors.New("description too long")
	ErrInvalidDate           = errors.New("invalid date")
	ErrMissingIdempotencyKey = errors.New("missing idempotency key")
	ErrIdempotencyKeyTooLong = errors.New("idempotency key is too long")
)

// Expense is one persisted ledger record. Records are immutable after
// creation; there is no update or delete path.
type Expense struct {
	ID          string
	OwnerID     string
	AmountPaise int64
	Currency    string
	Category    string
	// CategoryKey is always NormalizeCategory(Category); the two are written
	// together and never mutated independently.
	CategoryKey    string
	Description    string
	Date           time.Time // calendar date of the expense, not record time
	IdempotencyKey string
	CreatedAt      time.Time
}

// Validate checks the record-level invariants before it is handed to storage.
func (e Expense) Validate() error {
	if e.AmountPaise <= 0 {
		return ErrAmountNotPositive
	}
	if e.AmountPaise > MaxPaise {
		return ErrAmountTooLarge
	}
	cat := strings.TrimSpace(e.Category)
	if cat == "" {
		return ErrEmptyCategory
	}
	if len(cat) > MaxCategoryLen {
		return ErrCategoryTooLong
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if len(e.Description) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if err := ValidateIdempotencyKey(e.IdempotencyKey); err != nil {
		return err
	}
	return nil
}

// ValidateIdempotencyKey checks the client-supplied token: non-empty after
// trimming and bounded in length.
func ValidateIdempotencyKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrMissingIdempotencyKey
	}
	if len(key) > MaxIdempotencyKeyLen {
		return ErrIdempotencyKeyTooLong
	}
	return nil
}

// User is the owning account for expenses. Credential handling lives in the
// auth package; storage only sees the hash.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
