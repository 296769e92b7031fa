package shell

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3d91ll/urnlab/pkg/config"
	"github.com/r3d91ll/urnlab/pkg/design"
	"github.com/r3d91ll/urnlab/pkg/ledger"
	"github.com/r3d91ll/urnlab/pkg/session"
	"github.com/r3d91ll/urnlab/pkg/urn"
)

// scriptedReader replays fixed lines, then reports the final error (io.EOF by default).
type scriptedReader struct {
	lines   []string
	end     error
	reads   int
	prompts []string
}

func (r *scriptedReader) Readline() (string, error) {
	if r.reads >= len(r.lines) {
		if r.end != nil {
			return "", r.end
		}
		return "", io.EOF
	}
	line := r.lines[r.reads]
	r.reads++
	return line, nil
}

func (r *scriptedReader) SetPrompt(p string) {
	r.prompts = append(r.prompts, p)
}

// fakePlayer records plays and how many lines had been read when each began.
type fakePlayer struct {
	reader   *scriptedReader
	messages []string
	readsAt  []int
	err      error
}

func (p *fakePlayer) Play(ctx context.Context, d time.Duration, message string) error {
	p.messages = append(p.messages, message)
	p.readsAt = append(p.readsAt, p.reader.reads)
	return p.err
}

type memorySink struct {
	records []*ledger.Record
}

func (m *memorySink) Append(rec *ledger.Record) error {
	m.records = append(m.records, rec)
	return nil
}

type harness struct {
	shell  *Shell
	ctrl   *session.Controller
	reader *scriptedReader
	player *fakePlayer
	sink   *memorySink
	out    *bytes.Buffer
}

func newHarness(t *testing.T, lines ...string) *harness {
	t.Helper()
	cfg := config.Default()
	r, _ := urn.NewSource(31)
	plan, err := design.Build(cfg, r, 0)
	require.NoError(t, err)

	h := &harness{
		reader: &scriptedReader{lines: lines},
		sink:   &memorySink{},
		out:    &bytes.Buffer{},
	}
	h.player = &fakePlayer{reader: h.reader}
	h.ctrl = session.NewController(plan, ledger.NewRecord(0, ""), h.sink, r)
	h.shell = New(h.ctrl, h.reader, h.player, testConfig(cfg, h.out))
	return h
}

func testConfig(cfg *config.Config, out io.Writer) Config {
	return Config{
		MinAge:          cfg.Experiment.MinAge,
		Genders:         cfg.Demographics.Genders,
		EducationLevels: cfg.Demographics.EducationLevels,
		Races:           cfg.Demographics.Races,
		Transition:      time.Second,
		Out:             out,
	}
}

var happyPath = []string{
	"y",           // consent
	"34",          // age
	"1",           // gender
	"doctorate",   // education, by name
	"5",           // race
	"a", "B", "A", // three trials
}

func TestRunCompleteSession(t *testing.T) {
	h := newHarness(t, happyPath...)
	require.NoError(t, h.shell.Run(context.Background()))

	require.Len(t, h.sink.records, 1)
	rec := h.sink.records[0]
	assert.True(t, rec.Completed)
	assert.Equal(t, &ledger.Demographics{Age: 34, Gender: "Female", Education: "Doctorate", Race: "White"}, rec.Demographics)
	require.Len(t, rec.Trials, 3)

	plan := h.ctrl.Plan()
	for i, pick := range []int{0, 1, 0} {
		assert.Equal(t, plan.Trials[i].Condition.Urns[pick].Name, rec.Trials[i].Choice)
	}

	out := h.out.String()
	assert.Contains(t, out, "Trial 1 of 3")
	assert.Contains(t, out, "Trial 3 of 3")
	assert.Contains(t, out, "Urn A")
	assert.Contains(t, out, "choose Urn B")
	assert.Contains(t, out, "Thank you!")
}

func TestTransitionBlocksInput(t *testing.T) {
	h := newHarness(t, happyPath...)
	require.NoError(t, h.shell.Run(context.Background()))

	// each animation starts right after the choice that triggered it
	assert.Equal(t, []int{6, 7, 8}, h.player.readsAt)
	for _, m := range h.player.messages {
		assert.Contains(t, m, "A marble drops from Urn")
	}
}

// typeAheadReader hands out keys typed during a transition before the
// scripted lines, unless they were flushed first.
type typeAheadReader struct {
	*scriptedReader
	pending  []string
	events   []string
	flushErr error
}

func (r *typeAheadReader) Readline() (string, error) {
	if len(r.pending) > 0 {
		line := r.pending[0]
		r.pending = r.pending[1:]
		r.events = append(r.events, "read "+line)
		return line, nil
	}
	line, err := r.scriptedReader.Readline()
	r.events = append(r.events, "read "+line)
	return line, err
}

func (r *typeAheadReader) Flush() error {
	r.events = append(r.events, "flush")
	r.pending = nil
	return r.flushErr
}

// impatientPlayer presses B while every transition plays.
type impatientPlayer struct {
	reader *typeAheadReader
}

func (p *impatientPlayer) Play(ctx context.Context, d time.Duration, message string) error {
	p.reader.events = append(p.reader.events, "play")
	p.reader.pending = append(p.reader.pending, "B")
	return nil
}

func TestKeysPressedDuringTransitionAreDropped(t *testing.T) {
	tests := []struct {
		name     string
		flushErr error
	}{
		{"flushed", nil},
		{"flush failed", stderrors.New("inappropriate ioctl for device")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			reader := &typeAheadReader{
				scriptedReader: &scriptedReader{lines: []string{"y", "34", "1", "2", "3", "a", "a", "a"}},
				flushErr:       tt.flushErr,
			}
			sh := New(h.ctrl, reader, &impatientPlayer{reader: reader}, testConfig(config.Default(), h.out))
			require.NoError(t, sh.Run(context.Background()))

			require.Len(t, h.sink.records, 1)
			rec := h.sink.records[0]
			require.Len(t, rec.Trials, 3)
			for i, trial := range h.ctrl.Plan().Trials {
				assert.Equal(t, trial.Condition.Urns[0].Name, rec.Trials[i].Choice, "trial %d", i+1)
			}

			// every transition is followed by a flush before the next read
			for i, e := range reader.events {
				if e == "play" {
					require.Greater(t, len(reader.events), i+1)
					assert.Equal(t, "flush", reader.events[i+1])
				}
			}
			assert.Equal(t, []string{"read a", "play", "flush", "read a", "play", "flush", "read a", "play", "flush"},
				reader.events[len(reader.events)-9:])
		})
	}
}

func TestConsentRepeatsUntilAgreed(t *testing.T) {
	h := newHarness(t, append([]string{"n", ""}, happyPath...)...)
	require.NoError(t, h.shell.Run(context.Background()))
	assert.Equal(t, 2, strings.Count(h.out.String(), msgTickBox))
	assert.Equal(t, "I agree to participate [y/N]: ", h.reader.prompts[0])
}

func TestDemographicsWarnings(t *testing.T) {
	h := newHarness(t,
		"y",
		"", "abc", "12", "40",
		"", "9", "2",
		"3",
		"",
		"1",
		"a", "a", "a",
	)
	require.NoError(t, h.shell.Run(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "Please fill in age information.")
	assert.Contains(t, out, msgAgeNumber)
	assert.Contains(t, out, msgAgeNotAllow)
	assert.Contains(t, out, "Please fill in gender information.")
	assert.Contains(t, out, msgPickOption)
	assert.Contains(t, out, "Please fill in race information.")

	d := h.sink.records[0].Demographics
	assert.Equal(t, 40, d.Age)
	assert.Equal(t, "Male", d.Gender)
}

func TestInvalidChoiceIsRepeated(t *testing.T) {
	lines := append([]string(nil), happyPath[:5]...)
	lines = append(lines, "c", "urn_999", "urn b", "a", "a")
	h := newHarness(t, lines...)
	require.NoError(t, h.shell.Run(context.Background()))

	assert.Equal(t, 2, strings.Count(h.out.String(), msgPickUrn))
	rec := h.sink.records[0]
	assert.Equal(t, h.ctrl.Plan().Trials[0].Condition.Urns[1].Name, rec.Trials[0].Choice)
}

func TestChoiceByUrnName(t *testing.T) {
	h := newHarness(t, happyPath[:5]...)
	trial := h.ctrl.Plan().Trials[0]
	h.reader.lines = append(h.reader.lines, trial.Condition.Urns[1].Name)

	assert.ErrorIs(t, h.shell.Run(context.Background()), ErrLeft)
	rec := h.sink.records[0]
	require.Len(t, rec.Trials, 1)
	assert.Equal(t, trial.Condition.Urns[1].Name, rec.Trials[0].Choice)
}

func TestEarlyExitWritesPartialRecord(t *testing.T) {
	h := newHarness(t, "y", "22", "1")
	err := h.shell.Run(context.Background())
	assert.ErrorIs(t, err, ErrLeft)

	require.Len(t, h.sink.records, 1)
	rec := h.sink.records[0]
	assert.False(t, rec.Completed)
	assert.Nil(t, rec.Demographics)
	assert.Equal(t, []string{"1", "1", "0"}, rec.Row())
}

func TestInterruptEndsSession(t *testing.T) {
	h := newHarness(t, happyPath[:6]...)
	h.reader.end = readline.ErrInterrupt
	assert.ErrorIs(t, h.shell.Run(context.Background()), ErrLeft)

	require.Len(t, h.sink.records, 1)
	assert.Len(t, h.sink.records[0].Trials, 1)
	assert.False(t, h.sink.records[0].Completed)
}

func TestCancelledContext(t *testing.T) {
	h := newHarness(t, happyPath...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, h.shell.Run(ctx), context.Canceled)
	assert.Len(t, h.sink.records, 1)
	assert.Zero(t, h.reader.reads)
}

func TestPickUrn(t *testing.T) {
	a, _ := urn.NewFixed("left", []string{"blue", "red"}, []int{1, 1}, "")
	b, _ := urn.NewFixed("right", []string{"blue", "red"}, []int{1, 1}, "")
	c := design.NewCondition("c", []*urn.Urn{a, b})

	tests := map[string]int{
		"a":         0,
		" B ":       1,
		"Urn A":     0,
		"choose B":  1,
		"right":     1,
		"LEFT":      0,
		"c":         -1,
		"":          -1,
		"somewhere": -1,
	}
	for in, want := range tests {
		assert.Equal(t, want, pickUrn(in, c), "input %q", in)
	}
}

func TestPickOption(t *testing.T) {
	opts := []string{"Female", "Male"}
	got, ok := pickOption("2", opts)
	assert.True(t, ok)
	assert.Equal(t, "Male", got)

	got, ok = pickOption("female", opts)
	assert.True(t, ok)
	assert.Equal(t, "Female", got)

	_, ok = pickOption("0", opts)
	assert.False(t, ok)
	_, ok = pickOption("other", opts)
	assert.False(t, ok)
}

func TestRenderTrialTwoPerRow(t *testing.T) {
	var urns []*urn.Urn
	for _, name := range []string{"u1", "u2", "u3"} {
		u, err := urn.NewFixed(name, []string{"blue", "red"}, []int{2, 3}, "")
		require.NoError(t, err)
		urns = append(urns, u)
	}
	trial := design.Trial{Name: "trial1", Condition: design.NewCondition("c", urns)}

	out := renderTrial(trial, 1, 2)
	assert.Contains(t, out, "Trial 1 of 2")
	for _, label := range []string{"Urn A", "Urn B", "Urn C"} {
		assert.Contains(t, out, "choose "+label)
	}

	// A and B share a line, C is on a later one
	lines := strings.Split(out, "\n")
	var abLine, cLine = -1, -1
	for i, l := range lines {
		if strings.Contains(l, "choose Urn A") && strings.Contains(l, "choose Urn B") {
			abLine = i
		}
		if strings.Contains(l, "choose Urn C") {
			cLine = i
		}
	}
	assert.GreaterOrEqual(t, abLine, 0)
	assert.Greater(t, cLine, abLine)
}
