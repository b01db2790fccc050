package core

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRefused  = "refused"
)

type (
	// Bill is an expense report as persisted by a bill store. Date is kept as
	// the raw ISO string because stored data may carry malformed or absent
	// dates; consumers must not assume validity.
	Bill struct {
		ID         string
		Email      string
		Name       string
		Type       string
		Date       string
		Amount     Money
		Pct        int
		Commentary string
		FileURL    string
		FileName   string
		Status     string
	}

	// BillView is the display-ready projection of a Bill. Date holds the
	// formatted display string and RawDate the original ISO value, preserved
	// unformatted so the rendered order stays verifiable. When date
	// formatting failed for a record, Date falls back to the raw value and
	// RawDate is empty.
	BillView struct {
		Bill
		RawDate string
	}

	Money struct {
		Cents int64
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyName     = errors.New("empty expense name")
	ErrEmptyType     = errors.New("empty expense type")
	ErrEmptyEmail    = errors.New("empty email")
	ErrInvalidDate   = errors.New("invalid date")
)

// ParseDate parses an ISO-8601 calendar date string.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks the fields a bill must carry before it is written to a
// store. Status and file fields are stamped by the create flow and are not
// the submitter's responsibility.
func (b Bill) Validate() error {
	if strings.TrimSpace(b.Email) == "" {
		return ErrEmptyEmail
	}
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if len(b.Name) > 200 {
		return errors.New("expense name too long (max 200 characters)")
	}
	if strings.TrimSpace(b.Type) == "" {
		return ErrEmptyType
	}
	if _, err := ParseDate(b.Date); err != nil {
		return ErrInvalidDate
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if b.Pct < 0 || b.Pct > 100 {
		return errors.New("pct must be between 0 and 100")
	}
	return nil
}
