// Package router owns page navigation: the static route table, the role
// guard, and the wholesale re-render of the page for each navigation.
package router

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/session"
)

// ViewData is the bundle handed to a view template. Containers fill the
// slice relevant to their page and leave the rest zero.
type ViewData struct {
	Title string
	User  core.User
	Bills []core.BillView
	Error string
}

// Router resolves paths against the route table, enforces the role guard,
// and renders the matching view. One instance exists per process; every
// navigation re-renders the whole page so repeated navigations to the same
// path produce identical output.
type Router struct {
	templates *template.Template
	sessions  *session.Manager
	logger    *log.Logger
}

func New(templatesFS fs.FS, sessions *session.Manager, logger *log.Logger) (*Router, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentRouter)
	}
	t, err := template.New("").Funcs(template.FuncMap{
		"euros": core.FormatEuros,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Router{templates: t, sessions: sessions, logger: logger}, nil
}

// Guard resolves the route for path and checks the session role. It
// returns the route and true when rendering may proceed; otherwise it has
// already redirected to the login path. The guard runs before any view
// output is written so unauthorized content never flashes.
func (rt *Router) Guard(w http.ResponseWriter, r *http.Request, path string) (Route, bool) {
	route, ok := Table[path]
	if !ok {
		rt.logger.WarnContext(r.Context(), "Unknown path, redirecting to login", log.FieldPath, path)
		http.Redirect(w, r, PathLogin, http.StatusSeeOther)
		return Route{}, false
	}

	if len(route.Roles) == 0 {
		return route, true
	}

	user, ok := session.CurrentUser(rt.sessions.Get(r))
	if !ok || !route.Allowed(user.Type) {
		rt.logger.InfoContext(r.Context(), "Unauthorized navigation, redirecting to login",
			log.FieldPath, path, "role", user.Type)
		http.Redirect(w, r, PathLogin, http.StatusSeeOther)
		return Route{}, false
	}
	return route, true
}

// Navigate resolves path, runs the guard, and renders the matching view
// with the given data. Unknown paths and unauthorized roles redirect to
// login rather than erroring; only a template failure is returned.
func (rt *Router) Navigate(w http.ResponseWriter, r *http.Request, path string, data ViewData) error {
	route, ok := rt.Guard(w, r, path)
	if !ok {
		return nil
	}
	if data.Title == "" {
		data.Title = route.Title
	}
	return rt.Render(w, route.View, data)
}

// Render executes a view template. The page is built in memory first so a
// template failure never leaves half a page on the wire.
func (rt *Router) Render(w http.ResponseWriter, view string, data ViewData) error {
	var buf bytes.Buffer
	if err := rt.templates.ExecuteTemplate(&buf, view+".html", data); err != nil {
		rt.logger.Error("View render failed", "view", view, log.FieldError, err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := w.Write(buf.Bytes())
	return err
}

// Sessions exposes the session manager to the handlers constructed around
// this router.
func (rt *Router) Sessions() *session.Manager {
	return rt.sessions
}

// The process-wide default router. Only the bootstrap path should reach
// for this; everything else receives its navigation capability explicitly.
var defaultRouter *Router

// SetDefault installs the process-wide router instance.
func SetDefault(r *Router) { defaultRouter = r }

// Default returns the process-wide router instance, or nil before bootstrap.
func Default() *Router { return defaultRouter }
