package listing

import (
	"fmt"
	"strings"
)

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is returned when a listing fails validation. It is caught
// before any network call.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, fe := range v {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "invalid listing: " + strings.Join(msgs, "; ")
}

// Validate checks the invariants a listing must hold before it is persisted.
func Validate(l Listing) error {
	var errs ValidationErrors
	required := []struct {
		field, value string
	}{
		{"title", l.Title},
		{"street_address", l.StreetAddress},
		{"city", l.City},
		{"state", l.State},
		{"zip_code", l.PostalCode},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, FieldError{Field: r.field, Message: "is required"})
		}
	}

	if l.Rent <= 0 {
		errs = append(errs, FieldError{Field: "rent", Message: "must be a positive amount"})
	}
	if l.SqFt <= 0 {
		errs = append(errs, FieldError{Field: "sq_ft", Message: "must be positive"})
	}

	hasUniversity := false
	for _, u := range l.Universities {
		if strings.TrimSpace(u) != "" {
			hasUniversity = true
			break
		}
	}
	if !hasUniversity {
		errs = append(errs, FieldError{Field: "universities", Message: "at least one university is required"})
	}

	if l.LeaseStart.IsZero() {
		errs = append(errs, FieldError{Field: "lease_start", Message: "is required"})
	}
	if l.LeaseEnd.IsZero() {
		errs = append(errs, FieldError{Field: "lease_end", Message: "is required"})
	}
	if !l.LeaseStart.IsZero() && !l.LeaseEnd.IsZero() && l.LeaseEnd.Before(l.LeaseStart) {
		errs = append(errs, FieldError{Field: "lease_end", Message: "cannot be before lease start"})
	}

	if len(l.ImageURLs) > MaxImages {
		errs = append(errs, FieldError{Field: "image_urls", Message: fmt.Sprintf("at most %d images allowed", MaxImages)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SplitUniversities turns a comma separated list into trimmed, non-empty
// names. Edit forms submit universities this way.
func SplitUniversities(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
