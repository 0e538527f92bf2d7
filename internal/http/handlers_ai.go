package http

import (
	"log/slog"
	"net/http"

	"grana/internal/ai"
)

type categorizeRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount,omitempty"`
}

// handleCategorize proposes a category for a transaction description. The
// suggestion is advisory and degrades to a fixed fallback when the model is
// unavailable or not configured.
func (s *Server) handleCategorize(w http.ResponseWriter, r *http.Request) {
	var req categorizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Description == "" {
		writeValidationErrors(w, validationErrors{"description": "description is required"})
		return
	}

	cats, err := s.categories.ListCategories(r.Context(), userID(r), "")
	if err != nil {
		slog.ErrorContext(r.Context(), "List categories for suggestion failed", "error", err)
		writeJSON(w, http.StatusOK, ai.Fallback())
		return
	}

	writeJSON(w, http.StatusOK, s.suggester.Suggest(r.Context(), req.Description, req.Amount, cats))
}
