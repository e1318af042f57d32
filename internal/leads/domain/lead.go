// Package domain holds the lead entity and the rules every stored lead
// satisfies, independent of transport and storage.
package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxTextLength is the storage limit of name, email and company_name.
const MaxTextLength = 255

// Lead is the public shape of a stored lead. The search index column is
// owned by the database and intentionally absent.
type Lead struct {
	ID              uuid.UUID
	Name            string
	Email           string
	CompanyName     string
	Stage           Stage
	IsEngaged       bool
	LastContactedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Fields are the mutable attributes of a lead, written in full by both
// create and update.
type Fields struct {
	Name            string
	Email           string
	CompanyName     string
	Stage           Stage
	IsEngaged       bool
	LastContactedAt *time.Time
}

// Normalize trims text fields, lowercases the email and applies the
// default stage. Email uniqueness is enforced on the normalized value.
func (f Fields) Normalize() Fields {
	f.Name = strings.TrimSpace(f.Name)
	f.CompanyName = strings.TrimSpace(f.CompanyName)
	f.Email = NormalizeEmail(f.Email)
	if f.Stage == "" {
		f.Stage = DefaultStage
	}
	if f.LastContactedAt != nil {
		utc := f.LastContactedAt.UTC()
		f.LastContactedAt = &utc
	}
	return f
}

// Violation describes the first rule a set of fields breaks.
type Violation struct {
	Field   string
	Message string
}

// Validate checks normalized fields. Email syntax is checked at the
// transport boundary; here only emptiness, length and stage are enforced.
func (f Fields) Validate() *Violation {
	text := []struct {
		field string
		value string
	}{
		{"name", f.Name},
		{"email", f.Email},
		{"company_name", f.CompanyName},
	}
	for _, item := range text {
		if item.value == "" {
			return &Violation{Field: item.field, Message: item.field + " must not be empty"}
		}
		if utf8.RuneCountInString(item.value) > MaxTextLength {
			return &Violation{Field: item.field, Message: item.field + " must be at most 255 characters"}
		}
	}
	if !IsKnownStage(f.Stage) {
		return &Violation{Field: "stage", Message: "stage must be one of new, contacted, qualified, converted, lost"}
	}
	return nil
}

// NormalizeEmail is the canonical form used for storage and uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
