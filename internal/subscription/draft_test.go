package subscription

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestSanitizeCities(t *testing.T) {
	in := []string{"London", " london ", "", "Paris", "PARIS", "London"}
	want := []string{"London", "Paris"}
	if got := SanitizeCities(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestAddCity_CapAtTen(t *testing.T) {
	var cities []string
	for i := 1; i <= MaxCities; i++ {
		cities = AddCity(cities, fmt.Sprintf("City %d", i))
	}
	if len(cities) != MaxCities {
		t.Fatalf("expected %d cities, got %d", MaxCities, len(cities))
	}

	after := AddCity(cities, "City 11")
	if !reflect.DeepEqual(after, cities) {
		t.Fatalf("11th distinct city must not change the list: %v", after)
	}
}

func TestAddCity_BlankIsNoOp(t *testing.T) {
	cities := []string{"London"}
	if got := AddCity(cities, "   "); !reflect.DeepEqual(got, cities) {
		t.Fatalf("blank add should be a no-op, got %v", got)
	}
}

func TestEditCity(t *testing.T) {
	cities := []string{"London", "Paris"}

	if got := EditCity(cities, 1, "Berlin"); !reflect.DeepEqual(got, []string{"London", "Berlin"}) {
		t.Fatalf("edit failed: %v", got)
	}
	if got := EditCity(cities, 1, "  "); !reflect.DeepEqual(got, cities) {
		t.Fatalf("blank edit should be a no-op, got %v", got)
	}
	if got := EditCity(cities, 5, "Berlin"); !reflect.DeepEqual(got, cities) {
		t.Fatalf("out-of-range edit should be a no-op, got %v", got)
	}
	// Editing into a duplicate of an earlier entry collapses it.
	if got := EditCity(cities, 1, "london"); !reflect.DeepEqual(got, []string{"London"}) {
		t.Fatalf("duplicate edit should collapse, got %v", got)
	}
}

func TestRemoveCity(t *testing.T) {
	cities := []string{"London", "Paris", "Berlin"}
	if got := RemoveCity(cities, 1); !reflect.DeepEqual(got, []string{"London", "Berlin"}) {
		t.Fatalf("remove failed: %v", got)
	}
	if got := RemoveCity(cities, -1); !reflect.DeepEqual(got, cities) {
		t.Fatalf("out-of-range remove should be a no-op, got %v", got)
	}
}

func TestValidEmail(t *testing.T) {
	accept := []string{"a@b.com", "first.last@sub.example.org"}
	reject := []string{"a@b", "a b@c.com", "@b.com", "", "a@.com "}
	for _, e := range accept {
		if !ValidEmail(e) {
			t.Errorf("expected %q to be accepted", e)
		}
	}
	for _, e := range reject {
		if ValidEmail(e) {
			t.Errorf("expected %q to be rejected", e)
		}
	}
}

func TestCheckAt(t *testing.T) {
	now := time.Date(2025, time.May, 5, 12, 0, 0, 0, time.UTC)

	d := NewDraft("UTC", now)
	d.Email = "a@b.com"
	d.PreferredTime = "12:30"
	if err := d.CheckAt(now); err != nil {
		t.Fatalf("expected valid draft, got %v", err)
	}

	// A preferred time equal to now fails the lookahead rule.
	d.PreferredTime = "12:00"
	if err := d.CheckAt(now); err != ErrTimeTooClose {
		t.Fatalf("want ErrTimeTooClose, got %v", err)
	}

	d.PreferredTime = "25:00"
	if err := d.CheckAt(now); err != ErrTimeInvalid {
		t.Fatalf("want ErrTimeInvalid, got %v", err)
	}

	d.PreferredTime = "12:30"
	d.Cities = nil
	if err := d.CheckAt(now); err != ErrNoCities {
		t.Fatalf("want ErrNoCities, got %v", err)
	}

	d.Email = "a@b"
	if err := d.CheckAt(now); err != ErrEmailInvalid {
		t.Fatalf("want ErrEmailInvalid, got %v", err)
	}
}

func TestNewDraftDefaults(t *testing.T) {
	now := time.Date(2025, time.May, 5, 9, 15, 0, 0, time.UTC)
	d := NewDraft("UTC", now)

	if d.ID == "" {
		t.Fatal("expected a generated id")
	}
	if d.PreferredTime != "09:15" {
		t.Fatalf("want preferred time 09:15, got %s", d.PreferredTime)
	}
	if !reflect.DeepEqual(d.Cities, []string{SeedCity}) {
		t.Fatalf("want seed city, got %v", d.Cities)
	}
	if d.Units != UnitsMetric || !d.IsActive {
		t.Fatalf("want metric/active defaults, got %s/%v", d.Units, d.IsActive)
	}
}

func TestRestore(t *testing.T) {
	now := time.Date(2025, time.May, 5, 9, 15, 0, 0, time.UTC)
	def := NewDraft("Europe/London", now)

	email := "a@b.com"
	units := "imperial"
	badTime := "9:99"
	inactive := false

	got := Restore(Persisted{
		Email:         &email,
		Units:         &units,
		PreferredTime: &badTime,
		Cities:        []string{" Paris ", "paris", ""},
		IsActive:      &inactive,
	}, def)

	if got.Email != email {
		t.Fatalf("email not restored: %s", got.Email)
	}
	if got.Units != UnitsImperial {
		t.Fatalf("want imperial, got %s", got.Units)
	}
	if got.PreferredTime != def.PreferredTime {
		t.Fatalf("malformed time should fall back to default, got %s", got.PreferredTime)
	}
	if !reflect.DeepEqual(got.Cities, []string{"Paris"}) {
		t.Fatalf("cities not sanitized: %v", got.Cities)
	}
	if got.IsActive {
		t.Fatal("is_active not restored")
	}
	if got.Timezone != def.Timezone {
		t.Fatalf("missing timezone should keep default, got %s", got.Timezone)
	}
}

func TestPersistedDecode_WrongTypedFieldsFallBack(t *testing.T) {
	def := NewDraft("UTC", time.Date(2025, time.May, 5, 9, 15, 0, 0, time.UTC))

	// is_active and cities carry the wrong JSON type; only those
	// fields should fall back, the rest of the record must survive.
	raw := `{"email":"a@b.com","is_active":"yes","cities":"London","preferred_time":"10:30"}`
	var p Persisted
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("a wrong-typed field must not reject the record: %v", err)
	}

	got := Restore(p, def)
	if got.Email != "a@b.com" {
		t.Fatalf("email should restore, got %q", got.Email)
	}
	if got.PreferredTime != "10:30" {
		t.Fatalf("preferred time should restore, got %q", got.PreferredTime)
	}
	if !got.IsActive {
		t.Fatal("non-boolean is_active must keep the default (true)")
	}
	if !reflect.DeepEqual(got.Cities, def.Cities) {
		t.Fatalf("non-array cities must keep the default, got %v", got.Cities)
	}
}

func TestRestore_UnknownUnitsCoercedToMetric(t *testing.T) {
	def := NewDraft("UTC", time.Now())
	def.Units = UnitsImperial

	units := "kelvin"
	got := Restore(Persisted{Units: &units}, def)
	if got.Units != UnitsMetric {
		t.Fatalf("want metric coercion, got %s", got.Units)
	}
}

func TestRenderPreviewAt(t *testing.T) {
	now := time.Date(2025, time.May, 5, 9, 15, 0, 0, time.UTC)
	d := NewDraft("UTC", now)
	d.Cities = []string{"London", "Paris"}

	p, err := RenderPreviewAt(d, now)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(p.Subject, "Monday, 5 May 2025") {
		t.Fatalf("subject missing date: %s", p.Subject)
	}
	if !strings.Contains(p.Subject, "London, Paris") {
		t.Fatalf("subject missing cities: %s", p.Subject)
	}
	for _, city := range d.Cities {
		if !strings.Contains(p.Body, "=== "+city+" ===") {
			t.Fatalf("body missing block for %s:\n%s", city, p.Body)
		}
	}
	if !strings.Contains(p.Body, "°C") {
		t.Fatalf("metric draft should preview °C:\n%s", p.Body)
	}

	// Same inputs, same output.
	again, _ := RenderPreviewAt(d, now)
	if again != p {
		t.Fatal("preview is not deterministic")
	}
}
