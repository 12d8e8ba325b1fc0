package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"kharcha/internal/auth"
	"kharcha/internal/core"
	"kharcha/internal/services"
)

type createExpenseRequest struct {
	// Amount is kept raw so clients may send either "125.50" or 125.50
	// without the decoder rounding anything.
	Amount      json.RawMessage `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	RequestID   string          `json:"requestId"`
}

// amountString returns the submitted amount as text, unquoting JSON strings
// and passing numeric literals through verbatim.
func (r createExpenseRequest) amountString() string {
	raw := strings.TrimSpace(string(r.Amount))
	if raw == "" || raw == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(r.Amount, &s); err != nil {
			return raw
		}
		return s
	}
	return raw
}

// expenseJSON is the wire shape of one expense. The normalized category key
// and the idempotency key are internal and never serialized.
type expenseJSON struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	AmountPaise int64  `json:"amountPaise"`
	Currency    string `json:"currency"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
	CreatedAt   string `json:"createdAt"`
}

func toExpenseJSON(e *core.Expense) expenseJSON {
	return expenseJSON{
		ID:          e.ID,
		Amount:      core.FormatPaise(e.AmountPaise),
		AmountPaise: e.AmountPaise,
		Currency:    e.Currency,
		Category:    e.Category,
		Description: e.Description,
		Date:        e.Date.Format("2006-01-02"),
		CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFromContext(r.Context())

	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}

	// Header wins over the body field when both are present.
	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey == "" {
		idemKey = strings.TrimSpace(req.RequestID)
	}

	expense, replayed, err := s.expenses.Create(r.Context(), ownerID, idemKey, services.CreateInput{
		Amount:      req.amountString(),
		Category:    req.Category,
		Description: req.Description,
		Date:        req.Date,
	})
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, "validation failed", verr.Fields)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to create expense", "error", err, "owner_id", ownerID)
		writeError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	if replayed {
		writeJSON(w, http.StatusOK, map[string]any{
			"expense":          toExpenseJSON(expense),
			"idempotentReplay": true,
		})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"expense": toExpenseJSON(expense),
	})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFromContext(r.Context())
	q := r.URL.Query()

	list, err := s.expenses.List(r.Context(), ownerID, q.Get("category"), q.Get("sort"))
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list expenses", "error", err, "owner_id", ownerID)
		writeError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	out := make([]expenseJSON, 0, len(list))
	for i := range list {
		out = append(out, toExpenseJSON(&list[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"expenses": out,
		"count":    len(out),
	})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerIDFromContext(r.Context())

	cats, err := s.expenses.Categories(r.Context(), ownerID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list categories", "error", err, "owner_id", ownerID)
		writeError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}
	if cats == nil {
		cats = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": cats,
	})
}
