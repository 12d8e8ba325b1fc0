// Package export defines the outbound port for copying recorded expenses to
// an external sheet. Adapters live in subpackages.
package export

import (
	"context"

	"kharcha/internal/core"
)

// ExpenseWriter appends one expense to the external sheet and returns an
// adapter-specific row reference.
type ExpenseWriter interface {
	Append(ctx context.Context, e *core.Expense) (rowRef string, err error)
}
