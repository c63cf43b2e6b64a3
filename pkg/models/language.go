package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TextDirection is the writing direction of a language.
type TextDirection string

const (
	DirectionLTR TextDirection = "ltr"
	DirectionRTL TextDirection = "rtl"
)

// IsValid returns true for a known direction.
func (d TextDirection) IsValid() bool {
	return d == DirectionLTR || d == DirectionRTL
}

var (
	languageCodePattern = regexp.MustCompile(`^[A-Z]{2,3}$`)
	localePattern       = regexp.MustCompile(`^[a-z]{2,3}-[a-z]{2}$`)
)

// ValidLanguageContexts is the fixed set of delivery contexts a language can
// be enabled for.
var ValidLanguageContexts = []string{"website", "booking", "email", "documents", "pos"}

// LanguageFormatting holds locale formatting rules.
type LanguageFormatting struct {
	DateFormat    string `json:"dateFormat,omitempty"`
	TimeFormat    string `json:"timeFormat,omitempty"`
	NumberFormat  string `json:"numberFormat,omitempty"`
	AddressFormat string `json:"addressFormat,omitempty"`
}

// ProviderPreference ranks a machine-translation provider for this language.
// API keys live in server configuration, never on the language document.
type ProviderPreference struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
	IsActive bool   `json:"isActive"`
}

// AutoTranslateSettings controls automatic translation for a language.
type AutoTranslateSettings struct {
	Enabled           bool    `json:"enabled"`
	Threshold         float64 `json:"threshold"`
	MinimumConfidence float64 `json:"minimumConfidence"`
	FallbackToSource  bool    `json:"fallbackToSource"`
}

// TranslationPreferences groups the per-language translation policy.
type TranslationPreferences struct {
	Providers      []ProviderPreference  `json:"providers,omitempty"`
	AutoTranslate  AutoTranslateSettings `json:"autoTranslate"`
	ReviewRequired bool                  `json:"reviewRequired"`
}

// ChannelMapping maps the language onto an OTA channel's own language code.
// At most one language is the default per channel.
type ChannelMapping struct {
	Channel             string              `json:"channel"`
	ChannelLanguageCode string              `json:"channelLanguageCode"`
	IsDefault           bool                `json:"isDefault"`
	Formatting          *LanguageFormatting `json:"formatting,omitempty"`
}

// LanguageContext enables a language for one delivery context.
type LanguageContext struct {
	Name      string            `json:"name"`
	Enabled   bool              `json:"enabled"`
	Priority  int               `json:"priority"`
	Overrides map[string]string `json:"overrides,omitempty"`
}

// LanguageUsage carries usage counters for a language.
type LanguageUsage struct {
	TranslationCount int64      `json:"translationCount"`
	LastUsed         *time.Time `json:"lastUsed,omitempty"`
}

// Language is a supported language of the property.
type Language struct {
	ID              uuid.UUID              `json:"id"`
	Code            string                 `json:"code"`
	Name            string                 `json:"name"`
	NativeName      string                 `json:"nativeName"`
	Locale          string                 `json:"locale"`
	Direction       TextDirection          `json:"direction"`
	Formatting      LanguageFormatting     `json:"formatting"`
	Translation     TranslationPreferences `json:"translation"`
	ChannelMappings []ChannelMapping       `json:"channelMappings,omitempty"`
	Contexts        []LanguageContext      `json:"contexts,omitempty"`
	IsActive        bool                   `json:"isActive"`
	IsDefault       bool                   `json:"isDefault"`
	Usage           LanguageUsage          `json:"usage"`
	// Completeness is the cached content-completeness percentage per
	// resource class, refreshed by the statistics service.
	Completeness map[string]float64 `json:"completeness,omitempty"`
	// Revision guards optimistic updates; every successful write bumps it.
	Revision  int64     `json:"revision"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NormalizeLanguageCode uppercases and trims a language code.
func NormalizeLanguageCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeLocale lowercases and trims a locale.
func NormalizeLocale(locale string) string {
	return strings.ToLower(strings.TrimSpace(locale))
}

// IsValidLanguageCode reports whether code is 2-3 uppercase letters.
func IsValidLanguageCode(code string) bool {
	return languageCodePattern.MatchString(code)
}

// IsValidLocale reports whether locale looks like "lang-country", lowercase.
func IsValidLocale(locale string) bool {
	return localePattern.MatchString(locale)
}

// IsValidContextName reports whether name is one of the fixed delivery contexts.
func IsValidContextName(name string) bool {
	for _, c := range ValidLanguageContexts {
		if c == name {
			return true
		}
	}
	return false
}

// Normalize applies code/locale normalization in place.
func (l *Language) Normalize() {
	l.Code = NormalizeLanguageCode(l.Code)
	l.Locale = NormalizeLocale(l.Locale)
	if l.Direction == "" {
		l.Direction = DirectionLTR
	}
}

// MappingFor returns the channel mapping for the given channel, if present.
func (l *Language) MappingFor(channel string) (*ChannelMapping, bool) {
	for i := range l.ChannelMappings {
		if l.ChannelMappings[i].Channel == channel {
			return &l.ChannelMappings[i], true
		}
	}
	return nil, false
}

// SetChannelMapping upserts a channel mapping, keeping one entry per channel.
func (l *Language) SetChannelMapping(mapping ChannelMapping) {
	for i := range l.ChannelMappings {
		if l.ChannelMappings[i].Channel == mapping.Channel {
			l.ChannelMappings[i] = mapping
			return
		}
	}
	l.ChannelMappings = append(l.ChannelMappings, mapping)
}

// ContextEnabled reports whether the language is enabled for a context.
func (l *Language) ContextEnabled(name string) bool {
	for _, c := range l.Contexts {
		if c.Name == name && c.Enabled {
			return true
		}
	}
	return false
}
