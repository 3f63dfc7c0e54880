package listing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the format of date inputs.
const DateLayout = "2006-01-02"

// FieldKind is the input type of a criteria field.
type FieldKind int

const (
	KindText FieldKind = iota
	KindDate
	KindInt
	KindBool
)

func (k FieldKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindDate:
		return "date"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	}
	return "unknown"
}

// Field describes one user-settable criterion.
type Field struct {
	Key   string
	Kind  FieldKind
	Label string
}

// Criteria is the full set of discovery inputs.
type Criteria struct {
	Filters     Filters
	Preferences Preferences
}

// Fields lists every criterion in display order. Query parameters, CLI flags
// and form inputs are all derived from it.
var Fields = []Field{
	{Key: "university", Kind: KindText, Label: "University"},
	{Key: "city", Kind: KindText, Label: "City"},
	{Key: "state", Kind: KindText, Label: "State"},
	{Key: "zip_code", Kind: KindText, Label: "Zip code"},
	{Key: "move_in", Kind: KindDate, Label: "Latest move-in date"},
	{Key: "lease_end", Kind: KindDate, Label: "Earliest lease end"},
	{Key: "max_rent", Kind: KindInt, Label: "Max rent"},
	{Key: "min_sqft", Kind: KindInt, Label: "Min square feet"},
	{Key: "pets", Kind: KindBool, Label: "Pets allowed"},
	{Key: "parking", Kind: KindBool, Label: "Parking available"},
	{Key: "furnished", Kind: KindBool, Label: "Furnished"},
}

// ApplyField parses raw according to field's kind and stores it into c.
// An empty raw value resets the criterion.
func (c *Criteria) ApplyField(field Field, raw string) error {
	raw = strings.TrimSpace(raw)

	switch field.Kind {
	case KindText:
		c.setText(field.Key, raw)
		return nil

	case KindDate:
		var d time.Time
		if raw != "" {
			parsed, err := time.Parse(DateLayout, raw)
			if err != nil {
				return fmt.Errorf("%s: expected a date like 2025-08-15", field.Label)
			}
			d = parsed
		}
		c.setDate(field.Key, d)
		return nil

	case KindInt:
		n := 0
		if raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				return fmt.Errorf("%s: expected a non-negative whole number", field.Label)
			}
			n = parsed
		}
		c.setInt(field.Key, n)
		return nil

	case KindBool:
		b := false
		if raw != "" {
			parsed, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("%s: expected true or false", field.Label)
			}
			b = parsed
		}
		c.setBool(field.Key, b)
		return nil
	}

	return fmt.Errorf("unknown field kind %v for %q", field.Kind, field.Key)
}

// ApplyAll applies every field for which lookup returns a value.
func (c *Criteria) ApplyAll(lookup func(key string) (string, bool)) error {
	for _, f := range Fields {
		raw, ok := lookup(f.Key)
		if !ok {
			continue
		}
		if err := c.ApplyField(f, raw); err != nil {
			return err
		}
	}
	return nil
}

func (c *Criteria) setText(key, v string) {
	switch key {
	case "university":
		c.Filters.University = v
	case "city":
		c.Filters.City = v
	case "state":
		c.Filters.State = v
	case "zip_code":
		c.Filters.PostalCode = v
	}
}

func (c *Criteria) setDate(key string, v time.Time) {
	switch key {
	case "move_in":
		c.Filters.LatestMoveIn = v
	case "lease_end":
		c.Filters.EarliestLeaseEnd = v
	}
}

func (c *Criteria) setInt(key string, v int) {
	switch key {
	case "max_rent":
		c.Preferences.MaxRent = v
	case "min_sqft":
		c.Preferences.MinSqft = v
	}
}

func (c *Criteria) setBool(key string, v bool) {
	switch key {
	case "pets":
		c.Preferences.Pets = v
	case "parking":
		c.Preferences.Parking = v
	case "furnished":
		c.Preferences.Furnished = v
	}
}
