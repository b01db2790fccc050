package http

import (
	"errors"
	"net/http"
	"strings"

	"billed/internal/log"
	"billed/internal/router"
	"billed/internal/session"
	"billed/internal/store"
)

// handleBills renders the bills table, latest expense first.
func (s *Server) handleBills(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	route, ok := s.router.Guard(w, r, router.PathBills)
	if !ok {
		return
	}
	user, _ := session.CurrentUser(s.sessions.Get(r))

	logger := log.FromContext(r.Context())
	views, err := s.billViews(r.Context(), user.Email)
	if err != nil {
		logger.ErrorContext(r.Context(), "Listing bills failed",
			log.FieldEmail, user.Email, log.FieldError, err.Error())
		_ = s.router.Render(w, route.View, router.ViewData{
			Title: route.Title, User: user,
			Error: "Impossible de charger vos notes de frais",
		})
		return
	}

	_ = s.router.Render(w, route.View, router.ViewData{
		Title: route.Title,
		User:  user,
		Bills: displayOrder(views),
	})
}

// handleBillFile serves an uploaded proof for the preview modal.
func (s *Server) handleBillFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := session.CurrentUser(s.sessions.Get(r)); !ok {
		http.Error(w, "authentification requise", http.StatusUnauthorized)
		return
	}
	if s.store == nil {
		http.NotFound(w, r)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/bills/files/")
	if name == "" || strings.Contains(name, "/") {
		http.NotFound(w, r)
		return
	}

	content, contentType, err := s.store.GetFile(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Reading proof failed",
			log.FieldFileName, name, log.FieldError, err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(content)
}
