package models

import (
	"time"

	"github.com/google/uuid"
)

// UIEntryStatus is the status of one language entry of a UI string.
type UIEntryStatus string

const (
	UIStatusPending    UIEntryStatus = "pending"
	UIStatusTranslated UIEntryStatus = "translated"
	UIStatusApproved   UIEntryStatus = "approved"
	UIStatusPublished  UIEntryStatus = "published"
)

// IsValid returns true for a known status.
func (s UIEntryStatus) IsValid() bool {
	switch s {
	case UIStatusPending, UIStatusTranslated, UIStatusApproved, UIStatusPublished:
		return true
	}
	return false
}

// CountsTowardCompleteness reports whether the entry status counts when
// computing namespace completeness. Only approved and published entries do.
func (s UIEntryStatus) CountsTowardCompleteness() bool {
	return s == UIStatusApproved || s == UIStatusPublished
}

// UILanguageEntry is one language's rendering of a UI string.
type UILanguageEntry struct {
	Language     string        `json:"language"`
	Text         string        `json:"text"`
	Status       UIEntryStatus `json:"status"`
	Confidence   float64       `json:"confidence,omitempty"`
	Provider     string        `json:"provider,omitempty"`
	TranslatedAt *time.Time    `json:"translatedAt,omitempty"`
	Reviewer     string        `json:"reviewer,omitempty"`
	ReviewedAt   *time.Time    `json:"reviewedAt,omitempty"`
}

// UITranslation is a UI string keyed by (namespace, key). Keys are dotted
// paths like "booking.form.submit"; a namespace groups keys that ship
// together.
type UITranslation struct {
	ID             uuid.UUID           `json:"id"`
	Namespace      string              `json:"namespace"`
	Key            string              `json:"key"`
	SourceLanguage string              `json:"sourceLanguage"`
	SourceText     string              `json:"sourceText"`
	Translations   []UILanguageEntry   `json:"translations"`
	Contexts       []string            `json:"contexts,omitempty"`
	Priority       TranslationPriority `json:"priority"`
	Tags           []string            `json:"tags,omitempty"`
	IsActive       bool                `json:"isActive"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// EntryFor returns the entry for the given language, if present.
func (u *UITranslation) EntryFor(language string) (*UILanguageEntry, bool) {
	for i := range u.Translations {
		if u.Translations[i].Language == language {
			return &u.Translations[i], true
		}
	}
	return nil, false
}

// SetEntry upserts the entry for its language, keeping at most one entry per
// language within translations.
func (u *UITranslation) SetEntry(entry UILanguageEntry) {
	for i := range u.Translations {
		if u.Translations[i].Language == entry.Language {
			u.Translations[i] = entry
			return
		}
	}
	u.Translations = append(u.Translations, entry)
}

// RemoveEntry drops the entry for the given language. Returns true when an
// entry was removed.
func (u *UITranslation) RemoveEntry(language string) bool {
	for i := range u.Translations {
		if u.Translations[i].Language == language {
			u.Translations = append(u.Translations[:i], u.Translations[i+1:]...)
			return true
		}
	}
	return false
}

// NamespaceStats aggregates completeness for one namespace and language.
type NamespaceStats struct {
	Namespace    string `json:"namespace"`
	Language     string `json:"language"`
	TotalKeys    int    `json:"totalKeys"`
	Approved     int    `json:"approved"`
	Translated   int    `json:"translated"`
	Missing      int    `json:"missing"`
	Completeness int    `json:"completeness"`
}
