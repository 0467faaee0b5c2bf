package subscription

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Puranjay-del-Mishra/weatheragent/internal/localtime"
)

// Units selects the measurement system used in briefings.
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

const (
	// MaxCities caps the city list; excess entries are never appended.
	MaxCities = 10

	// MinLookaheadMinutes is how far in the future the preferred time
	// must be so the downstream scanner (assumed to run about once a
	// minute) observes the slot before it passes.
	MinLookaheadMinutes = 2

	// SeedCity is the single city a fresh draft starts with.
	SeedCity = "London"
)

// Draft is the in-progress subscription record. It is the sole source
// of truth for the form: validity, hints, and the preview are all
// derived from it.
type Draft struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Timezone      string    `json:"timezone"`
	PreferredTime string    `json:"preferred_time"`
	Units         Units     `json:"units"`
	Cities        []string  `json:"cities"`
	IsActive      bool      `json:"is_active"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewDraft creates a draft with defaults: the given timezone, the
// current wall-clock time in that zone, one seed city, metric units,
// active.
func NewDraft(tz string, now time.Time) Draft {
	return Draft{
		ID:            uuid.NewString(),
		Timezone:      tz,
		PreferredTime: localtime.CurrentInAt(now, tz),
		Units:         UnitsMetric,
		Cities:        []string{SeedCity},
		IsActive:      true,
		UpdatedAt:     now.UTC(),
	}
}

// SanitizeCities trims entries, drops blanks, removes case-insensitive
// duplicates keeping the first-seen casing, and caps the result at
// MaxCities in insertion order.
func SanitizeCities(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		city := strings.TrimSpace(raw)
		if city == "" {
			continue
		}
		key := strings.ToLower(city)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, city)
		if len(out) == MaxCities {
			break
		}
	}
	return out
}

// AddCity appends raw to the list through the sanitize-and-cap rule.
// A blank value is a no-op, as is an 11th distinct city.
func AddCity(cities []string, raw string) []string {
	return SanitizeCities(append(append([]string{}, cities...), raw))
}

// EditCity replaces the entry at index and re-sanitizes. Blank values
// and out-of-range indexes leave the list unchanged.
func EditCity(cities []string, index int, value string) []string {
	if index < 0 || index >= len(cities) || strings.TrimSpace(value) == "" {
		return cities
	}
	next := append([]string{}, cities...)
	next[index] = value
	return SanitizeCities(next)
}

// RemoveCity drops the entry at index. Out-of-range indexes leave the
// list unchanged.
func RemoveCity(cities []string, index int) []string {
	if index < 0 || index >= len(cities) {
		return cities
	}
	next := append([]string{}, cities[:index]...)
	next = append(next, cities[index+1:]...)
	return next
}

// Loose local@domain.tld shape; the upstream service owns final
// address validation.
var emailRe = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// ValidEmail reports whether the address matches the loose shape.
func ValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

var (
	ErrEmailInvalid  = errors.New("email address looks invalid")
	ErrTimezoneBlank = errors.New("timezone is required")
	ErrTimeInvalid   = errors.New("preferred time must be HH:MM")
	ErrNoCities      = errors.New("add at least one city")
	ErrTimeTooClose  = errors.New("preferred time must be at least 2 minutes from now")
)

// CheckAt returns the first rule the draft breaks, or nil when it is
// ready to submit.
func (d Draft) CheckAt(now time.Time) error {
	if !ValidEmail(d.Email) {
		return ErrEmailInvalid
	}
	if strings.TrimSpace(d.Timezone) == "" {
		return ErrTimezoneBlank
	}
	if _, err := localtime.ParseHHMM(d.PreferredTime); err != nil {
		return ErrTimeInvalid
	}
	if len(d.Cities) == 0 {
		return ErrNoCities
	}
	if !localtime.IsAtLeastAheadAt(now, d.Timezone, d.PreferredTime, MinLookaheadMinutes) {
		return ErrTimeTooClose
	}
	return nil
}

// ValidAt reports whether the draft passes every submission rule.
func (d Draft) ValidAt(now time.Time) bool {
	return d.CheckAt(now) == nil
}

// Persisted is the lenient on-disk shape of a draft. Pointer fields
// distinguish absent values from zero values so Restore can merge
// field-by-field.
type Persisted struct {
	ID            *string    `json:"id"`
	Email         *string    `json:"email"`
	Timezone      *string    `json:"timezone"`
	PreferredTime *string    `json:"preferred_time"`
	Units         *string    `json:"units"`
	Cities        []string   `json:"cities"`
	IsActive      *bool      `json:"is_active"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

// UnmarshalJSON decodes a persisted record leniently: a field of the
// wrong JSON type counts as absent, so Restore falls back to the
// default for that field instead of the whole record being rejected.
func (p *Persisted) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	p.ID = lenientString(fields["id"])
	p.Email = lenientString(fields["email"])
	p.Timezone = lenientString(fields["timezone"])
	p.PreferredTime = lenientString(fields["preferred_time"])
	p.Units = lenientString(fields["units"])
	p.Cities = lenientStrings(fields["cities"])
	p.IsActive = lenientBool(fields["is_active"])
	p.UpdatedAt = lenientTime(fields["updated_at"])
	return nil
}

func lenientString(raw json.RawMessage) *string {
	var v *string
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return nil
	}
	return v
}

func lenientStrings(raw json.RawMessage) []string {
	var v []string
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return nil
	}
	return v
}

func lenientBool(raw json.RawMessage) *bool {
	var v *bool
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return nil
	}
	return v
}

func lenientTime(raw json.RawMessage) *time.Time {
	var v *time.Time
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return nil
	}
	return v
}

// Restore merges a persisted draft onto defaults. Missing or invalid
// fields keep the default: units must be exactly "imperial" to stick,
// cities pass through the sanitize-and-cap rule, a malformed preferred
// time is replaced by the default.
func Restore(p Persisted, def Draft) Draft {
	d := def
	if p.ID != nil && *p.ID != "" {
		d.ID = *p.ID
	}
	if p.Email != nil {
		d.Email = *p.Email
	}
	if p.Timezone != nil && strings.TrimSpace(*p.Timezone) != "" {
		d.Timezone = *p.Timezone
	}
	if p.PreferredTime != nil {
		if _, err := localtime.ParseHHMM(*p.PreferredTime); err == nil {
			d.PreferredTime = *p.PreferredTime
		}
	}
	if p.Units != nil {
		if Units(*p.Units) == UnitsImperial {
			d.Units = UnitsImperial
		} else {
			d.Units = UnitsMetric
		}
	}
	if p.Cities != nil {
		if cities := SanitizeCities(p.Cities); len(cities) > 0 {
			d.Cities = cities
		}
	}
	if p.IsActive != nil {
		d.IsActive = *p.IsActive
	}
	if p.UpdatedAt != nil {
		d.UpdatedAt = *p.UpdatedAt
	}
	return d
}
