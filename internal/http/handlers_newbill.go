package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"billed/internal/bills"
	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/router"
	"billed/internal/session"
)

func (s *Server) handleNewBill(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		route, ok := s.router.Guard(w, r, router.PathNewBill)
		if !ok {
			return
		}
		user, _ := session.CurrentUser(s.sessions.Get(r))
		_ = s.router.Render(w, route.View, router.ViewData{Title: route.Title, User: user})
	case http.MethodPost:
		s.handleSubmit(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleChangeFile receives the proof the page uploads as soon as it is
// selected. A rejected extension answers 422 with the message the page
// shows as a blocking alert.
func (s *Server) handleChangeFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sess := s.sessions.Get(r)
	user, ok := session.CurrentUser(sess)
	if !ok {
		http.Error(w, "authentification requise", http.StatusUnauthorized)
		return
	}

	logger := log.FromContext(r.Context())

	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		logger.WarnContext(r.Context(), "Malformed upload", log.FieldError, err.Error())
		http.Error(w, "fichier invalide", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "aucun fichier reçu", http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, s.maxUploadBytes))
	if err != nil {
		http.Error(w, "lecture du fichier impossible", http.StatusBadRequest)
		return
	}

	creator := bills.NewCreator(s.store, nil, logger.WithComponent(log.ComponentBills))
	ref, err := creator.HandleChangeFile(r.Context(), sess, header.Filename, content)
	if errors.Is(err, bills.ErrUnsupportedFileType) {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		http.Error(w, "enregistrement du justificatif impossible", http.StatusInternalServerError)
		return
	}

	s.invalidateViews(user.Email)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"fileUrl":  ref.FileURL,
		"fileName": ref.FileName,
		"key":      ref.BillKey,
	})
}

// handleSubmit finalizes the new bill from the form and the tracked
// upload. Success navigates to the bills list; a rejection re-renders the
// form with the error and no navigation.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(r)
	user, ok := session.CurrentUser(sess)
	if !ok {
		http.Redirect(w, r, router.PathLogin, http.StatusSeeOther)
		return
	}

	logger := log.FromContext(r.Context())

	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		logger.WarnContext(r.Context(), "Malformed submit form", log.FieldError, err.Error())
		w.WriteHeader(http.StatusBadRequest)
		_ = s.router.Render(w, router.ViewNewBill, router.ViewData{
			Title: "Envoyer une note de frais", User: user,
			Error: "Formulaire invalide",
		})
		return
	}

	creator := bills.NewCreator(s.store, func(path string) {
		http.Redirect(w, r, path, http.StatusSeeOther)
	}, logger.WithComponent(log.ComponentBills))

	// No-JS fallback: a proof attached directly to the submit is stored
	// first, exactly as if it had been selected on the page.
	if file, header, err := r.FormFile("file"); err == nil {
		if _, hasPending := bills.PendingUpload(sess); !hasPending {
			content, rerr := io.ReadAll(io.LimitReader(file, s.maxUploadBytes))
			if rerr == nil {
				if _, uerr := creator.HandleChangeFile(r.Context(), sess, header.Filename, content); errors.Is(uerr, bills.ErrUnsupportedFileType) {
					file.Close()
					w.WriteHeader(http.StatusUnprocessableEntity)
					_ = s.router.Render(w, router.ViewNewBill, router.ViewData{
						Title: "Envoyer une note de frais", User: user,
						Error: uerr.Error(),
					})
					return
				}
			}
		}
		file.Close()
	}

	form := bills.Form{
		Type:       r.FormValue("expense-type"),
		Name:       r.FormValue("expense-name"),
		Date:       r.FormValue("datepicker"),
		Amount:     r.FormValue("amount"),
		Pct:        r.FormValue("pct"),
		Commentary: r.FormValue("commentary"),
	}

	if err := creator.HandleSubmit(r.Context(), sess, form); err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = s.router.Render(w, router.ViewNewBill, router.ViewData{
			Title: "Envoyer une note de frais", User: user,
			Error: submitErrorMessage(err),
		})
		return
	}
	// Invalidate only after the store write so a concurrent list request
	// cannot re-cache the pre-submit view.
	s.invalidateViews(user.Email)
}

// submitErrorMessage translates submit failures into the page's language.
func submitErrorMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Le montant saisi est invalide"
	case errors.Is(err, core.ErrInvalidDate):
		return "La date saisie est invalide"
	case errors.Is(err, core.ErrEmptyName), errors.Is(err, core.ErrEmptyType):
		return "Veuillez remplir tous les champs obligatoires"
	default:
		return "L'envoi a échoué, veuillez réessayer"
	}
}
