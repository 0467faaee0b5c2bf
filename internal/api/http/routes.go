package httpapi

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/Puranjay-del-Mishra/weatheragent/internal/localtime"
	"github.com/Puranjay-del-Mishra/weatheragent/internal/store"
	"github.com/Puranjay-del-Mishra/weatheragent/internal/subscription"
	"github.com/Puranjay-del-Mishra/weatheragent/internal/upsert"
)

var validate = validator.New()

// ErrorHandler is the centralized error response: every fiber.Error
// becomes `{"error": <message>}` with its status code.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, drafts *store.MemoryStore, forwarder *upsert.Client, defaultTZ string) {
	v1 := app.Group("/api/v1")

	v1.Post("/drafts", func(c *fiber.Ctx) error {
		var req createDraftRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}

		tz := req.Timezone
		if tz == "" {
			tz = defaultTZ
		}

		d := subscription.NewDraft(tz, time.Now())
		drafts.Save(d)

		return c.Status(fiber.StatusCreated).JSON(viewOf(d))
	})

	v1.Get("/drafts/:id", func(c *fiber.Ctx) error {
		d, err := getDraft(c, drafts)
		if err != nil {
			return err
		}
		return c.JSON(viewOf(d))
	})

	v1.Patch("/drafts/:id", func(c *fiber.Ctx) error {
		d, err := getDraft(c, drafts)
		if err != nil {
			return err
		}

		var patch draftPatch
		if err := c.BodyParser(&patch); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(patch); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		patch.apply(&d)
		saveDraft(drafts, &d)

		return c.JSON(viewOf(d))
	})

	v1.Post("/drafts/:id/cities", func(c *fiber.Ctx) error {
		d, err := getDraft(c, drafts)
		if err != nil {
			return err
		}

		var req cityRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		// A blank city is a no-op, not an error.
		d.Cities = subscription.AddCity(d.Cities, req.City)
		saveDraft(drafts, &d)

		return c.JSON(viewOf(d))
	})

	v1.Put("/drafts/:id/cities/:index", func(c *fiber.Ctx) error {
		d, err := getDraft(c, drafts)
		if err != nil {
			return err
		}

		index, err := c.ParamsInt("index")
		if err != nil || index < 0 || index >= len(d.Cities) {
			return fiber.NewError(fiber.StatusBadRequest, "city index out of range")
		}

		var req cityRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		d.Cities = subscription.EditCity(d.Cities, index, req.City)
		saveDraft(drafts, &d)

		return c.JSON(viewOf(d))
	})

	v1.Delete("/drafts/:id/cities/:index", func(c *fiber.Ctx) error {
		d, err := getDraft(c, drafts)
		if err != nil {
			return err
		}

		index, err := c.ParamsInt("index")
		if err != nil || index < 0 || index >= len(d.Cities) {
			return fiber.NewError(fiber.StatusBadRequest, "city index out of range")
		}

		d.Cities = subscription.RemoveCity(d.Cities, index)
		saveDraft(drafts, &d)

		return c.JSON(viewOf(d))
	})

	v1.Get("/drafts/:id/preview", func(c *fiber.Ctx) error {
		d, err := getDraft(c, drafts)
		if err != nil {
			return err
		}

		p, err := subscription.RenderPreviewAt(d, time.Now())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(p)
	})

	v1.Post("/drafts/:id/submit", func(c *fiber.Ctx) error {
		d, err := getDraft(c, drafts)
		if err != nil {
			return err
		}

		// One submission in flight per draft; not a queue.
		if !drafts.BeginSubmit(d.ID) {
			return fiber.NewError(fiber.StatusConflict, "a submission for this draft is already in flight")
		}
		defer drafts.EndSubmit(d.ID)

		now := time.Now()
		testMode := c.QueryBool("test")

		if testMode {
			// Guarantee the lookahead rule holds so the very next
			// scan picks the record up.
			d.PreferredTime = localtime.AddMinutesAt(now, d.Timezone, subscription.MinLookaheadMinutes)
		} else if err := d.CheckAt(now); err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		}

		if m := forwarder.Missing(); m != "" {
			return fiber.NewError(fiber.StatusInternalServerError, "missing configuration: "+m)
		}

		payload, err := json.Marshal(payloadOf(d))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		res, err := forwarder.Forward(c.UserContext(), payload)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		// Commit the adjusted time so the draft reflects what was
		// sent. Re-fetch first: an edit that landed during the
		// upstream round-trip must not be clobbered.
		if testMode && res.StatusCode < 300 {
			if latest, err := drafts.Get(d.ID); err == nil {
				latest.PreferredTime = d.PreferredTime
				saveDraft(drafts, &latest)
			}
		}

		return relay(c, res)
	})

	// Raw proxy endpoint: presence checks only, then a verbatim relay.
	// Element types and enum membership are the upstream's problem.
	v1.Post("/subscriptions", func(c *fiber.Ctx) error {
		var req subscribeRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if m := forwarder.Missing(); m != "" {
			return fiber.NewError(fiber.StatusInternalServerError, "missing configuration: "+m)
		}

		res, err := forwarder.Forward(c.UserContext(), c.Body())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return relay(c, res)
	})
}

func getDraft(c *fiber.Ctx, drafts *store.MemoryStore) (subscription.Draft, error) {
	d, err := drafts.Get(c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return subscription.Draft{}, fiber.NewError(fiber.StatusNotFound, "no draft with that id")
		}
		return subscription.Draft{}, fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return d, nil
}

func saveDraft(drafts *store.MemoryStore, d *subscription.Draft) {
	d.UpdatedAt = time.Now().UTC()
	drafts.Save(*d)
}

// relay passes the upstream response through byte-for-byte.
func relay(c *fiber.Ctx, res *upsert.Result) error {
	ct := res.ContentType
	if ct == "" {
		ct = fiber.MIMETextPlainCharsetUTF8
	}
	c.Set(fiber.HeaderContentType, ct)
	return c.Status(res.StatusCode).Send(res.Body)
}

// createDraftRequest optionally carries the client's detected zone.
type createDraftRequest struct {
	Timezone string `json:"timezone"`
}

type cityRequest struct {
	City string `json:"city"`
}

// draftPatch is a partial update; nil fields are left untouched.
type draftPatch struct {
	Email         *string  `json:"email"`
	Timezone      *string  `json:"timezone"`
	PreferredTime *string  `json:"preferred_time"`
	Units         *string  `json:"units" validate:"omitempty,oneof=metric imperial"`
	Cities        []string `json:"cities"`
	IsActive      *bool    `json:"is_active"`
}

func (p draftPatch) apply(d *subscription.Draft) {
	if p.Email != nil {
		d.Email = *p.Email
	}
	if p.Timezone != nil {
		d.Timezone = *p.Timezone
	}
	if p.PreferredTime != nil {
		d.PreferredTime = *p.PreferredTime
	}
	if p.Units != nil {
		d.Units = subscription.Units(*p.Units)
	}
	if p.Cities != nil {
		d.Cities = subscription.SanitizeCities(p.Cities)
	}
	if p.IsActive != nil {
		d.IsActive = *p.IsActive
	}
}

// draftView is what every draft endpoint returns: the record plus its
// derived state, recomputed on each request.
type draftView struct {
	Draft        subscription.Draft `json:"draft"`
	Valid        bool               `json:"valid"`
	Hint         string             `json:"hint,omitempty"`
	MinutesUntil *int               `json:"minutes_until,omitempty"`
}

func viewOf(d subscription.Draft) draftView {
	now := time.Now()

	v := draftView{Draft: d}
	if err := d.CheckAt(now); err != nil {
		v.Hint = err.Error()
	} else {
		v.Valid = true
	}
	if m, ok := localtime.MinutesUntilAt(now, d.Timezone, d.PreferredTime); ok {
		v.MinutesUntil = &m
	}
	return v
}

// subscriberPayload is the normalized record sent upstream.
type subscriberPayload struct {
	Email         string             `json:"email"`
	Timezone      string             `json:"timezone"`
	PreferredTime string             `json:"preferred_time"`
	Units         subscription.Units `json:"units"`
	Cities        []string           `json:"cities"`
	IsActive      bool               `json:"is_active"`
}

func payloadOf(d subscription.Draft) subscriberPayload {
	return subscriberPayload{
		Email:         d.Email,
		Timezone:      d.Timezone,
		PreferredTime: d.PreferredTime,
		Units:         d.Units,
		Cities:        d.Cities,
		IsActive:      d.IsActive,
	}
}

// subscribeRequest checks field presence on the raw proxy endpoint.
// Cities is a pointer so an empty array still counts as present while
// a missing key fails.
type subscribeRequest struct {
	Email         string    `json:"email" validate:"required"`
	Timezone      string    `json:"timezone" validate:"required"`
	PreferredTime string    `json:"preferred_time" validate:"required"`
	Units         string    `json:"units" validate:"required"`
	Cities        *[]string `json:"cities" validate:"required"`
	IsActive      bool      `json:"is_active"`
}
