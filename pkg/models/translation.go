package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Workflow stage state machine
// ============================================================================

// TranslationStage is the workflow stage of a translation row.
type TranslationStage string

const (
	StageDraft       TranslationStage = "draft"
	StageTranslation TranslationStage = "translation"
	StageReview      TranslationStage = "review"
	StageApproved    TranslationStage = "approved"
	StagePublished   TranslationStage = "published"
)

// ValidStages lists all workflow stages in order.
var ValidStages = []TranslationStage{
	StageDraft,
	StageTranslation,
	StageReview,
	StageApproved,
	StagePublished,
}

// IsValid returns true for a known stage.
func (s TranslationStage) IsValid() bool {
	for _, valid := range ValidStages {
		if s == valid {
			return true
		}
	}
	return false
}

// IsTerminal returns true for stages with no outgoing transitions.
// Superseding a row is modeled through the isActive flag, not a stage.
func (s TranslationStage) IsTerminal() bool {
	return s == StagePublished
}

// CanTransitionTo reports whether the stage machine allows moving to target.
//
//	draft -> translation -> review -> approved -> published
//	                          |
//	                          +-- reject --> translation
func (s TranslationStage) CanTransitionTo(target TranslationStage) bool {
	switch s {
	case StageDraft:
		return target == StageTranslation
	case StageTranslation:
		return target == StageReview
	case StageReview:
		return target == StageApproved || target == StageTranslation
	case StageApproved:
		return target == StagePublished
	case StagePublished:
		return false
	default:
		return false
	}
}

// ============================================================================
// Review status
// ============================================================================

// ReviewStatus is the review verdict on a translation row.
type ReviewStatus string

const (
	ReviewPending     ReviewStatus = "pending"
	ReviewApproved    ReviewStatus = "approved"
	ReviewRejected    ReviewStatus = "rejected"
	ReviewNeedsReview ReviewStatus = "needs_review"
)

// IsValid returns true for a known review status.
func (r ReviewStatus) IsValid() bool {
	switch r {
	case ReviewPending, ReviewApproved, ReviewRejected, ReviewNeedsReview:
		return true
	}
	return false
}

// ============================================================================
// Method and priority
// ============================================================================

// TranslationMethod records how the translated text was produced.
type TranslationMethod string

const (
	MethodManual    TranslationMethod = "manual"
	MethodAutomatic TranslationMethod = "automatic"
	MethodHybrid    TranslationMethod = "hybrid"
)

// IsValid returns true for a known method.
func (m TranslationMethod) IsValid() bool {
	switch m {
	case MethodManual, MethodAutomatic, MethodHybrid:
		return true
	}
	return false
}

// TranslationPriority orders work in the review queue.
type TranslationPriority string

const (
	PriorityLow    TranslationPriority = "low"
	PriorityMedium TranslationPriority = "medium"
	PriorityHigh   TranslationPriority = "high"
	PriorityUrgent TranslationPriority = "urgent"
)

// Rank returns the sort weight of a priority; higher sorts first.
func (p TranslationPriority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// IsValid returns true for a known priority.
func (p TranslationPriority) IsValid() bool {
	return p.Rank() > 0
}

// ============================================================================
// Translation row
// ============================================================================

// MinApprovedQualityScore is the floor applied to the quality score when a
// row is approved.
const MinApprovedQualityScore = 80

// TranslationQuality holds confidence and review data for a row.
type TranslationQuality struct {
	Confidence   float64      `json:"confidence"`
	ReviewStatus ReviewStatus `json:"reviewStatus"`
	Reviewer     string       `json:"reviewer,omitempty"`
	ReviewedAt   *time.Time   `json:"reviewedAt,omitempty"`
	ReviewNotes  string       `json:"reviewNotes,omitempty"`
	QualityScore int          `json:"qualityScore"`
}

// TranslationWorkflow holds workflow metadata for a row.
type TranslationWorkflow struct {
	Stage    TranslationStage    `json:"stage"`
	Assignee string              `json:"assignee,omitempty"`
	DueDate  *time.Time          `json:"dueDate,omitempty"`
	Priority TranslationPriority `json:"priority"`
	Tags     []string            `json:"tags,omitempty"`
	Notes    string              `json:"notes,omitempty"`
}

// TranslationContext carries optional delivery hints for a row.
type TranslationContext struct {
	Channel    string   `json:"channel,omitempty"`
	Audience   string   `json:"audience,omitempty"`
	Tone       string   `json:"tone,omitempty"`
	MaxLength  int      `json:"maxLength,omitempty"`
	Formatting string   `json:"formatting,omitempty"`
	Variables  []string `json:"variables,omitempty"`
}

// TranslationUsage carries usage counters; the only fields writable on an
// inactive row.
type TranslationUsage struct {
	Impressions int64      `json:"impressions"`
	LastUsed    *time.Time `json:"lastUsed,omitempty"`
	Contexts    []string   `json:"contexts,omitempty"`
}

// Translation is one translated field version. Exactly one row per
// (resourceType, resourceId, fieldName, targetLanguage) is active at a time;
// versions form a linear chain through PreviousVersion.
type Translation struct {
	ID              uuid.UUID           `json:"id"`
	ResourceType    string              `json:"resourceType"`
	ResourceID      string              `json:"resourceId"`
	FieldName       string              `json:"fieldName"`
	SourceLanguage  string              `json:"sourceLanguage"`
	TargetLanguage  string              `json:"targetLanguage"`
	OriginalText    string              `json:"originalText"`
	TranslatedText  string              `json:"translatedText,omitempty"`
	Method          TranslationMethod   `json:"method"`
	Provider        string              `json:"provider,omitempty"`
	Quality         TranslationQuality  `json:"quality"`
	Workflow        TranslationWorkflow `json:"workflow"`
	Version         int                 `json:"version"`
	PreviousVersion *uuid.UUID          `json:"previousVersion,omitempty"`
	IsActive        bool                `json:"isActive"`
	Context         TranslationContext  `json:"context"`
	Usage           TranslationUsage    `json:"usage"`
	CreatedBy       string              `json:"createdBy,omitempty"`
	UpdatedBy       string              `json:"updatedBy,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// Key returns the identity of the row without the version component.
func (t *Translation) Key() TranslationKey {
	return TranslationKey{
		ResourceType:   t.ResourceType,
		ResourceID:     t.ResourceID,
		FieldName:      t.FieldName,
		TargetLanguage: t.TargetLanguage,
	}
}

// IsServed reports whether this row is the serving head of its key: active
// and approved. A superseded approved row can still serve while an unapproved
// successor is in flight; the read path resolves that case by version, not by
// this flag. Publish is optional; an approved row counts as published when
// the publish step is unused.
func (t *Translation) IsServed() bool {
	return t.IsActive &&
		(t.Workflow.Stage == StageApproved || t.Workflow.Stage == StagePublished)
}

// TranslationKey identifies a translated field independent of version.
type TranslationKey struct {
	ResourceType   string `json:"resourceType"`
	ResourceID     string `json:"resourceId"`
	FieldName      string `json:"fieldName"`
	TargetLanguage string `json:"targetLanguage"`
}

// String renders the key as a stable dedup token.
func (k TranslationKey) String() string {
	return k.ResourceType + "/" + k.ResourceID + "/" + k.FieldName + "/" + k.TargetLanguage
}

// LanguageStats aggregates translation counts per target language.
type LanguageStats struct {
	TargetLanguage string `json:"targetLanguage"`
	Total          int    `json:"total"`
	Approved       int    `json:"approved"`
	Pending        int    `json:"pending"`
	Rejected       int    `json:"rejected"`
	NeedsReview    int    `json:"needsReview"`
}

// Completeness returns approved/total as a rounded percentage.
func (s LanguageStats) Completeness() int {
	if s.Total == 0 {
		return 0
	}
	return int(float64(s.Approved)/float64(s.Total)*100 + 0.5)
}
