package http

import (
	"net/http"
	"strings"

	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/router"
	"billed/internal/session"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		_ = s.router.Navigate(w, r, router.PathLogin, router.ViewData{})
	case http.MethodPost:
		s.handleLoginSubmit(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		logger.WarnContext(r.Context(), "Malformed login form", log.FieldError, err.Error())
		w.WriteHeader(http.StatusBadRequest)
		_ = s.router.Render(w, router.ViewLogin, router.ViewData{
			Title: "Billed", Error: "Formulaire invalide",
		})
		return
	}

	role := strings.TrimSpace(r.Form.Get("role"))
	email := strings.TrimSpace(r.Form.Get("email"))

	if email == "" {
		_ = s.router.Render(w, router.ViewLogin, router.ViewData{
			Title: "Billed", Error: "Veuillez renseigner votre email",
		})
		return
	}

	if role != core.RoleEmployee {
		// The HR dashboard lives in a separate back office.
		_ = s.router.Render(w, router.ViewLogin, router.ViewData{
			Title: "Billed", Error: "L'espace administration n'est pas disponible ici",
		})
		return
	}

	user := core.User{Type: role, Email: email}
	sess := s.sessions.Start(w)
	sess.SetItem(session.UserKey, user.Encode())

	logger.InfoContext(r.Context(), "User logged in", log.FieldEmail, email, "role", role)
	http.Redirect(w, r, router.PathBills, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if sess := s.sessions.Get(r); sess != nil {
		sess.RemoveItem(session.UserKey)
	}
	s.sessions.End(w, r)
	http.Redirect(w, r, router.PathLogin, http.StatusSeeOther)
}
