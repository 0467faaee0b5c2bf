package subscription

import (
	"strings"
	"text/template"
	"time"
)

// Preview is the locally rendered stand-in for the briefing the
// downstream composer will send. It mirrors that format but is never
// sent anywhere.
type Preview struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

var bodyTmpl = template.Must(template.New("briefing").Parse(`Hello,

Here is your weather outlook for {{.Date}} ({{.Timezone}}).
{{range .Cities}}
=== {{.}} ===
Sky: --
Temperature: -- {{$.TempUnit}}
Wind: -- {{$.WindUnit}}
Chance of rain: --
{{end}}
You receive this briefing every day at {{.PreferredTime}}.
`))

// RenderPreviewAt renders the subject and plaintext body for the draft
// as of the given instant. The output is a deterministic function of
// the city list, timezone, units, preferred time, and the current date
// in the draft's zone.
func RenderPreviewAt(d Draft, now time.Time) (Preview, error) {
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		loc = time.UTC
	}
	date := now.In(loc).Format("Monday, 2 January 2006")

	tempUnit, windUnit := "°C", "m/s"
	if d.Units == UnitsImperial {
		tempUnit, windUnit = "°F", "mph"
	}

	data := struct {
		Date          string
		Timezone      string
		Cities        []string
		PreferredTime string
		TempUnit      string
		WindUnit      string
	}{
		Date:          date,
		Timezone:      d.Timezone,
		Cities:        d.Cities,
		PreferredTime: d.PreferredTime,
		TempUnit:      tempUnit,
		WindUnit:      windUnit,
	}

	var body strings.Builder
	if err := bodyTmpl.Execute(&body, data); err != nil {
		return Preview{}, err
	}

	subject := "Your weather briefing for " + date
	if len(d.Cities) > 0 {
		subject += ": " + strings.Join(d.Cities, ", ")
	}

	return Preview{Subject: subject, Body: body.String()}, nil
}
