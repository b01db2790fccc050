package bills

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/router"
	"billed/internal/session"
	"billed/internal/store"
)

// ErrUnsupportedFileType rejects proof files outside the accepted set.
// It is surfaced to the user as a blocking alert and never reaches a store.
var ErrUnsupportedFileType = errors.New("seuls les justificatifs jpg, jpeg ou png sont acceptés")

// PendingUploadKey is the session key tracking the uploaded proof between
// the file-change and submit steps of the create form.
const PendingUploadKey = "pending_bill"

// Form carries the raw field values of the create form.
type Form struct {
	Type       string
	Name       string
	Date       string
	Amount     string
	Pct        string
	Commentary string
}

// Creator drives the create-bill flow. Navigation is an injected
// capability so the flow never needs a handle on the page router.
type Creator struct {
	store      store.BillStore
	onNavigate func(path string)
	logger     *log.Logger
}

func NewCreator(st store.BillStore, onNavigate func(string), logger *log.Logger) *Creator {
	if onNavigate == nil {
		onNavigate = func(string) {}
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentBills)
	}
	return &Creator{store: st, onNavigate: onNavigate, logger: logger}
}

// ValidExtension reports whether the file name carries an accepted proof
// extension. The extension is lower-cased first, so "PHOTO.JPG" passes.
func ValidExtension(fileName string) bool {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), ".")) {
	case "jpg", "jpeg", "png":
		return true
	default:
		return false
	}
}

// HandleChangeFile validates the selected proof and, when valid, performs
// exactly one store write to save it, tracking the resulting reference in
// the session. Invalid extensions return ErrUnsupportedFileType with no
// store call and no tracked state.
func (c *Creator) HandleChangeFile(ctx context.Context, sess session.Store, fileName string, content []byte) (store.FileRef, error) {
	if !ValidExtension(fileName) {
		return store.FileRef{}, ErrUnsupportedFileType
	}
	if c.store == nil {
		return store.FileRef{}, nil
	}

	email := ""
	if u, ok := session.CurrentUser(sess); ok {
		email = u.Email
	}

	ref, err := c.store.CreateFile(ctx, fileName, content, email)
	if err != nil {
		c.logger.ErrorContext(ctx, "Proof upload failed",
			log.FieldFileName, fileName, log.FieldError, err.Error())
		return store.FileRef{}, err
	}

	if sess != nil {
		if raw, err := json.Marshal(ref); err == nil {
			sess.SetItem(PendingUploadKey, string(raw))
		}
	}

	c.logger.InfoContext(ctx, "Proof uploaded",
		log.FieldFileName, ref.FileName, log.FieldBillID, ref.BillKey)
	return ref, nil
}

// PendingUpload returns the tracked proof reference, if any.
func PendingUpload(sess session.Store) (store.FileRef, bool) {
	if sess == nil {
		return store.FileRef{}, false
	}
	raw, ok := sess.GetItem(PendingUploadKey)
	if !ok {
		return store.FileRef{}, false
	}
	var ref store.FileRef
	if err := json.Unmarshal([]byte(raw), &ref); err != nil {
		return store.FileRef{}, false
	}
	return ref, true
}

// HandleSubmit assembles the bill from the form, the tracked upload, and
// the session identity, then performs exactly one store write. Success
// navigates to the bills list; a store rejection is logged and the caller
// stays where it is so the user can resubmit.
func (c *Creator) HandleSubmit(ctx context.Context, sess session.Store, form Form) error {
	if c.store == nil {
		return nil
	}

	u, _ := session.CurrentUser(sess)

	pct := 20
	if p, err := strconv.Atoi(strings.TrimSpace(form.Pct)); err == nil && p > 0 {
		pct = p
	}

	cents, err := core.ParseDecimalToCents(form.Amount)
	if err != nil {
		return err
	}

	bill := core.Bill{
		Email:      u.Email,
		Name:       strings.TrimSpace(form.Name),
		Type:       strings.TrimSpace(form.Type),
		Date:       strings.TrimSpace(form.Date),
		Amount:     core.Money{Cents: cents},
		Pct:        pct,
		Commentary: strings.TrimSpace(form.Commentary),
		Status:     core.StatusPending,
	}
	if err := bill.Validate(); err != nil {
		return err
	}

	pending, hasUpload := PendingUpload(sess)
	bill.FileURL = pending.FileURL
	bill.FileName = pending.FileName

	if hasUpload && pending.BillKey != "" {
		_, err = c.store.Update(ctx, pending.BillKey, bill)
	} else {
		_, err = c.store.Create(ctx, bill)
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "Submitting bill failed",
			log.FieldBillName, bill.Name, log.FieldError, err.Error())
		return err
	}

	if sess != nil {
		sess.RemoveItem(PendingUploadKey)
	}
	c.logger.InfoContext(ctx, "Bill submitted",
		log.FieldBillName, bill.Name, log.FieldEmail, bill.Email)
	c.onNavigate(router.PathBills)
	return nil
}
