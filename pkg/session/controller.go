// Package session drives one participant through a plan: demographics,
// then one choice per trial, then a single write of the participant's
// record to the ledger.
package session

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/r3d91ll/urnlab/pkg/design"
	"github.com/r3d91ll/urnlab/pkg/errors"
	"github.com/r3d91ll/urnlab/pkg/ledger"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Outcome is the result of one choice.
type Outcome struct {
	Trial     string `json:"trial"`
	Condition string `json:"condition"`
	Choice    string `json:"choice"`
	BallColor string `json:"ball_color"`
	Last      bool   `json:"last"`
}

// Controller holds the state of one participant session.
//
// After Choose, the controller stays locked until Advance, so a second
// choice made while the drawn ball is still on screen is rejected.
type Controller struct {
	mu sync.Mutex

	id        string
	seed      uint64
	startedAt time.Time
	endedAt   time.Time

	plan   *design.Plan
	record *ledger.Record
	sink   ledger.Sink
	rng    *rand.Rand

	pos       int
	locked    bool
	persisted bool

	logger   *slog.Logger
	observer Observer
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver sets the receiver of session events.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// WithSeed records the seed the random source was built from, for export.
func WithSeed(seed uint64) Option {
	return func(c *Controller) { c.seed = seed }
}

// NewController starts a session for record over plan. Draws use r and the
// finished record is written to sink.
func NewController(plan *design.Plan, record *ledger.Record, sink ledger.Sink, r *rand.Rand, opts ...Option) *Controller {
	c := &Controller{
		id:        uuid.New().String(),
		startedAt: time.Now(),
		plan:      plan,
		record:    record,
		sink:      sink,
		rng:       r,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("session", c.id, "sequence", record.Sequence)

	c.logger.Info("session started",
		"participant", record.ID,
		"mode", plan.Mode,
		"assignment", plan.Index,
		"trials", len(plan.Trials))
	c.publish(EventSessionStarted, map[string]any{
		"mode":       plan.Mode.String(),
		"assignment": plan.Index,
		"trials":     len(plan.Trials),
	})
	return c
}

// ID returns the session identifier.
func (c *Controller) ID() string {
	return c.id
}

// Plan returns the plan the session runs.
func (c *Controller) Plan() *design.Plan {
	return c.plan
}

// Record returns the participant record being filled in.
func (c *Controller) Record() *ledger.Record {
	return c.record
}

// Finalized reports whether the record has been handed to the ledger.
func (c *Controller) Finalized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persisted
}

// SetDemographics stores the participant's answers. Every field is required
// and answers can only be given once.
func (c *Controller) SetDemographics(d ledger.Demographics) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.persisted {
		return errors.SessionErrorf(errors.ErrSessionFinalized, "session already finalized")
	}
	if c.record.Demographics != nil {
		return errors.SessionErrorf(errors.ErrDemographicsAlreadySet, "demographics already recorded")
	}
	if err := validate.Struct(d); err != nil {
		e := errors.ValidationErrorf(errors.ErrDemographicsIncomplete, "demographics incomplete")
		if verrs, ok := err.(validator.ValidationErrors); ok {
			missing := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				missing = append(missing, strings.ToLower(fe.Field()))
			}
			e.WithContext("missing", strings.Join(missing, ","))
		}
		return e.WithCause(err)
	}

	c.record.Demographics = &d
	c.logger.Info("demographics recorded")
	c.publish(EventDemographicsRecorded, nil)
	return nil
}

// Current returns the trial awaiting a choice, or false when none is left.
func (c *Controller) Current() (design.Trial, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.persisted || c.pos >= len(c.plan.Trials) {
		return design.Trial{}, false
	}
	return c.plan.Trials[c.pos], true
}

// Position returns the 1-based number of the current trial and the total.
func (c *Controller) Position() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos + 1, len(c.plan.Trials)
}

// Choose draws a ball from the named urn of the current trial and records
// the result. The controller is locked until Advance.
func (c *Controller) Choose(urnName string) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.persisted:
		return Outcome{}, errors.SessionErrorf(errors.ErrSessionFinalized, "session already finalized")
	case c.record.Demographics == nil:
		return Outcome{}, errors.ValidationErrorf(errors.ErrDemographicsIncomplete,
			"demographics must be recorded before the first trial")
	case c.locked:
		return Outcome{}, errors.SessionErrorf(errors.ErrTrialLocked, "previous draw is still showing")
	case c.pos >= len(c.plan.Trials):
		return Outcome{}, errors.SessionErrorf(errors.ErrNoTrial, "no trial awaiting a choice")
	}

	trial := c.plan.Trials[c.pos]
	u := trial.Condition.Urn(urnName)
	if u == nil {
		return Outcome{}, errors.SessionErrorf(errors.ErrUrnNotFound, "no urn %q in %s", urnName, trial.Name).
			WithContext("condition", trial.Condition.Name).
			WithContext("urns", trial.Condition.URNPositions())
	}

	color, err := u.Draw(c.rng)
	if err != nil {
		return Outcome{}, err
	}

	c.record.Trials = append(c.record.Trials, ledger.TrialResult{
		Condition:    trial.Condition.Name,
		URNPositions: trial.Condition.URNPositions(),
		Choice:       u.Name,
		BallColor:    color,
	})
	c.locked = true

	out := Outcome{
		Trial:     trial.Name,
		Condition: trial.Condition.Name,
		Choice:    u.Name,
		BallColor: color,
		Last:      c.pos == len(c.plan.Trials)-1,
	}
	c.logger.Info("trial completed",
		"trial", trial.Name,
		"condition", out.Condition,
		"choice", out.Choice,
		"ball", out.BallColor)
	c.publish(EventTrialCompleted, map[string]any{
		"trial":     out.Trial,
		"slot":      c.pos + 1,
		"condition": out.Condition,
		"choice":    out.Choice,
		"ballColor": out.BallColor,
	})
	return out, nil
}

// Advance releases the lock taken by Choose and moves to the next trial.
// After the last trial the record is marked completed and finalized; more
// is false from then on.
func (c *Controller) Advance() (more bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.persisted {
		return false, nil
	}
	if !c.locked {
		return false, errors.SessionErrorf(errors.ErrNoTrial, "no choice made for the current trial")
	}
	c.locked = false
	c.pos++
	if c.pos < len(c.plan.Trials) {
		return true, nil
	}

	c.record.Completed = true
	return false, c.finalizeLocked()
}

// Finalize writes the record to the ledger sink. Only the first call writes;
// later calls return nil. A participant who leaves early gets a partial row.
func (c *Controller) Finalize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finalizeLocked()
}

// Abort logs why the session ended early and finalizes the partial record.
func (c *Controller) Abort(reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.persisted {
		c.logger.Warn("session aborted", "reason", reason, "trials_done", len(c.record.Trials))
	}
	return c.finalizeLocked()
}

func (c *Controller) finalizeLocked() error {
	if c.persisted {
		return nil
	}
	// set before the write: a failed append is reported, never retried
	c.persisted = true
	c.endedAt = time.Now()

	err := c.sink.Append(c.record)
	if err != nil {
		c.logger.Error("ledger append failed", "error", err)
	} else {
		c.logger.Info("session finalized",
			"completed", c.record.Completed,
			"trials_done", len(c.record.Trials),
			"duration", c.endedAt.Sub(c.startedAt).Round(time.Millisecond))
	}
	c.publish(EventSessionFinalized, map[string]any{
		"completed": c.record.Completed,
		"trials":    len(c.record.Trials),
		"persisted": err == nil,
	})
	return err
}

func (c *Controller) publish(typ string, data map[string]any) {
	if c.observer == nil {
		return
	}
	c.observer.Publish(newEvent(typ, c.id, c.record.Sequence, data))
}
