package http

import (
	"errors"
	"log/slog"
	"net/http"

	"grana/internal/core"
	"grana/internal/storage"
)

type categoryRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Icon string `json:"icon,omitempty"`
}

type categoryResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Icon   string `json:"icon,omitempty"`
	System bool   `json:"system"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:     c.ID,
		Name:   c.Name,
		Type:   string(c.Type),
		Icon:   c.Icon,
		System: c.UserID == "",
	}
}

func (req categoryRequest) validate(user string) (core.Category, validationErrors) {
	errs := validationErrors{}

	if req.Name == "" {
		errs["name"] = "name is required"
	}
	typ := core.TransactionType(req.Type)
	if typ != core.Income && typ != core.Expense {
		errs["type"] = "type must be income or expense"
	}

	if len(errs) > 0 {
		return core.Category{}, errs
	}
	return core.Category{Name: req.Name, Type: typ, Icon: req.Icon, UserID: user}, nil
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	typ := core.TransactionType(r.URL.Query().Get("type"))
	if typ != "" && typ != core.Income && typ != core.Expense {
		writeValidationErrors(w, validationErrors{"type": "type must be income or expense"})
		return
	}

	cats, err := s.categories.ListCategories(r.Context(), userID(r), typ)
	if err != nil {
		slog.ErrorContext(r.Context(), "List categories failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list categories")
		return
	}

	out := make([]categoryResponse, len(cats))
	for i, c := range cats {
		out[i] = toCategoryResponse(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cat, errs := req.validate(userID(r))
	if errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	created, err := s.categories.InsertCategory(r.Context(), cat)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create category failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not save category")
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryResponse(created))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user := userID(r)
	cat, errs := req.validate(user)
	if errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	// System categories have an empty user id and never match here, so they
	// cannot be edited through the API.
	updated, err := s.categories.UpdateCategory(r.Context(), user, r.PathValue("id"), cat)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		slog.ErrorContext(r.Context(), "Update category failed", "id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "could not update category")
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(updated))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.categories.DeleteCategory(r.Context(), userID(r), r.PathValue("id")); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		slog.ErrorContext(r.Context(), "Delete category failed", "id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete category")
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
