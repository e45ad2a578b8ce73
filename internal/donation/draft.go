package donation

import (
	"sort"
	"strings"
	"time"
)

// Draft is the client-side payload for creating or editing a donation.
// Validation happens here, before anything reaches the network.
type Draft struct {
	Title       string
	Description string
	Quantity    float64
	Unit        Unit
	FoodType    FoodType
	Location    string
	ExpiryDate  time.Time // zero value means no expiry
}

// ValidationErrors maps field names to a single user-facing message each.
// Field keys match the form field names so the UI can render each message
// under its input and clear it individually as that field is edited.
type ValidationErrors map[string]string

// Error implements error. Fields are reported in stable order.
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return strings.Join(parts, "; ")
}

// Validate checks the draft and returns field-keyed errors, or nil when the
// draft is submittable. Rules: title, description and location must be
// non-empty after trimming; quantity must be strictly positive; an expiry
// date, if set, must not be earlier than today.
func (d Draft) Validate() ValidationErrors {
	return d.ValidateAt(time.Now())
}

// ValidateAt is Validate with an explicit clock, for tests.
func (d Draft) ValidateAt(now time.Time) ValidationErrors {
	errs := ValidationErrors{}

	if strings.TrimSpace(d.Title) == "" {
		errs["title"] = "Title is required"
	}
	if strings.TrimSpace(d.Description) == "" {
		errs["description"] = "Description is required"
	}
	if strings.TrimSpace(d.Location) == "" {
		errs["location"] = "Location is required"
	}
	if d.Quantity <= 0 {
		errs["quantity"] = "Valid quantity is required"
	}
	if !d.ExpiryDate.IsZero() {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if d.ExpiryDate.Before(today) {
			errs["expiryDate"] = "Expiry date cannot be in the past"
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// DraftFrom seeds an edit form from an existing donation.
func DraftFrom(d Donation) Draft {
	return Draft{
		Title:       d.Title,
		Description: d.Description,
		Quantity:    d.Quantity,
		Unit:        d.Unit,
		FoodType:    d.FoodType,
		Location:    d.Location,
		ExpiryDate:  d.ExpiryDate,
	}
}
