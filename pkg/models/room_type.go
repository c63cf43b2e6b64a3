package models

import (
	"time"

	"github.com/google/uuid"
)

// ResourceTranslationStatus is the per-language translation status embedded
// on an owning resource. It is derived from translation aggregates and
// cached so listing queries can filter without rejoining.
type ResourceTranslationStatus struct {
	Status       UIEntryStatus `json:"status"`
	Completeness int           `json:"completeness"`
	LastUpdated  time.Time     `json:"lastUpdated"`
}

// RoomTypeImage is one gallery image of a room type. Captions are
// addressed by index-derived field names (image_caption_0, image_caption_1, ...).
type RoomTypeImage struct {
	URL       string `json:"url"`
	Caption   string `json:"caption,omitempty"`
	SortOrder int    `json:"sortOrder"`
}

// Amenity is a coded amenity attached to a room type. Amenity translations
// are keyed by the amenity code, not the room type id.
type Amenity struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// RoomType is the room-type catalog entry, the registered translatable
// resource of the engine.
type RoomType struct {
	ID               uuid.UUID                            `json:"id"`
	Code             string                               `json:"code"`
	Name             string                               `json:"name"`
	Description      string                               `json:"description,omitempty"`
	ShortDescription string                               `json:"shortDescription,omitempty"`
	BaseLanguage     string                               `json:"baseLanguage"`
	AutoTranslate    bool                                 `json:"autoTranslate"`
	Priority         TranslationPriority                  `json:"translationPriority"`
	MaxOccupancy     int                                  `json:"maxOccupancy,omitempty"`
	Images           []RoomTypeImage                      `json:"images,omitempty"`
	Amenities        []Amenity                            `json:"amenities,omitempty"`
	TranslationState map[string]ResourceTranslationStatus `json:"translationStatus,omitempty"`
	IsActive         bool                                 `json:"isActive"`
	CreatedAt        time.Time                            `json:"createdAt"`
	UpdatedAt        time.Time                            `json:"updatedAt"`
}

// AmenityCodes collects the codes of all attached amenities.
func (r *RoomType) AmenityCodes() []string {
	codes := make([]string, 0, len(r.Amenities))
	for _, a := range r.Amenities {
		codes = append(codes, a.Code)
	}
	return codes
}

// Clone returns a shallow copy with its own slices and status map, safe for
// the localization overlay to mutate.
func (r *RoomType) Clone() *RoomType {
	clone := *r
	clone.Images = append([]RoomTypeImage(nil), r.Images...)
	clone.Amenities = append([]Amenity(nil), r.Amenities...)
	if r.TranslationState != nil {
		clone.TranslationState = make(map[string]ResourceTranslationStatus, len(r.TranslationState))
		for k, v := range r.TranslationState {
			clone.TranslationState[k] = v
		}
	}
	return &clone
}
