// Package shell is the participant-facing terminal front end: consent,
// demographics, one screen per trial, and a closing page.
package shell

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/r3d91ll/urnlab/pkg/design"
	"github.com/r3d91ll/urnlab/pkg/errors"
	"github.com/r3d91ll/urnlab/pkg/ledger"
	"github.com/r3d91ll/urnlab/pkg/session"
)

// Messages shown to the participant.
const (
	msgTickBox     = "Please tick the check box."
	msgFillIn      = "Please fill in %s information."
	msgAgeNotAllow = "Sorry, you are not eligible for this experiment for the reason of age."
	msgAgeNumber   = "Please enter your age as a whole number."
	msgPickOption  = "Please choose one of the numbered options."
	msgPickUrn     = "Please choose one of the urns shown (for example A)."
)

// ErrLeft is returned by Run when the participant ends input before finishing.
var ErrLeft = stderrors.New("participant left the session")

// Player plays the transition after a draw. *spinner.Transition satisfies it.
type Player interface {
	Play(ctx context.Context, d time.Duration, message string) error
}

// Config holds shell configuration.
type Config struct {
	MinAge          int
	Genders         []string
	EducationLevels []string
	Races           []string

	// Transition is how long the drawn ball stays on screen before the next trial.
	Transition time.Duration

	// Out receives everything shown to the participant. Defaults to os.Stdout.
	Out io.Writer

	Logger *slog.Logger
}

// Shell walks one participant through a session.
type Shell struct {
	ctrl     *session.Controller
	reader   LineReader
	prompter Prompter
	player   Player
	cfg      Config
	out      io.Writer
	logger   *slog.Logger
}

// New creates a shell for ctrl reading input from reader.
func New(ctrl *session.Controller, reader LineReader, player Player, cfg Config) *Shell {
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Shell{
		ctrl:     ctrl,
		reader:   reader,
		prompter: NewLinePrompter(reader),
		player:   player,
		cfg:      cfg,
		out:      out,
		logger:   logger,
	}
}

// Run shows every page in turn. If the participant leaves early, or ctx is
// cancelled, the partial record is finalized before Run returns.
func (s *Shell) Run(ctx context.Context) (err error) {
	defer func() {
		if s.ctrl.Finalized() {
			return
		}
		reason := "incomplete"
		if err != nil {
			reason = err.Error()
		}
		if ferr := s.ctrl.Abort(reason); ferr != nil && err == nil {
			err = ferr
		}
	}()

	if err := s.consent(ctx); err != nil {
		return err
	}
	if err := s.demographics(ctx); err != nil {
		return err
	}
	if err := s.trials(ctx); err != nil {
		return err
	}

	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, styles.Title.Render("Thank you!"))
	fmt.Fprintln(s.out, "Your answers have been recorded. Please let the experimenter know you are done.")
	return nil
}

func (s *Shell) consent(ctx context.Context) error {
	fmt.Fprintln(s.out, styles.Title.Render("Welcome"))
	fmt.Fprintln(s.out, "In this study you will see several urns filled with colored marbles.")
	fmt.Fprintln(s.out, "On each screen, choose the urn you would like a marble drawn from.")
	fmt.Fprintln(s.out, "Your answers are recorded anonymously.")
	fmt.Fprintln(s.out)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := s.prompter.Confirm("I agree to participate")
		if err != nil {
			return s.inputErr(err)
		}
		if ok {
			return nil
		}
		fmt.Fprintln(s.out, warn(msgTickBox))
	}
}

func (s *Shell) demographics(ctx context.Context) error {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, styles.Title.Render("About you"))

	age, err := s.askAge(ctx)
	if err != nil {
		return err
	}
	gender, err := s.askOption(ctx, "gender", "Gender", s.cfg.Genders)
	if err != nil {
		return err
	}
	education, err := s.askOption(ctx, "education", "Highest level of education", s.cfg.EducationLevels)
	if err != nil {
		return err
	}
	race, err := s.askOption(ctx, "race", "Race", s.cfg.Races)
	if err != nil {
		return err
	}

	return s.ctrl.SetDemographics(ledger.Demographics{
		Age:       age,
		Gender:    gender,
		Education: education,
		Race:      race,
	})
}

func (s *Shell) askAge(ctx context.Context) (int, error) {
	for {
		line, err := s.read(ctx, "Age: ")
		if err != nil {
			return 0, err
		}
		if line == "" {
			fmt.Fprintln(s.out, warn(fmt.Sprintf(msgFillIn, "age")))
			continue
		}
		age, err := strconv.Atoi(line)
		if err != nil || age <= 0 {
			fmt.Fprintln(s.out, warn(msgAgeNumber))
			continue
		}
		if age < s.cfg.MinAge {
			s.logger.Info("participant below minimum age", "min_age", s.cfg.MinAge)
			fmt.Fprintln(s.out, warn(msgAgeNotAllow))
			continue
		}
		return age, nil
	}
}

func (s *Shell) askOption(ctx context.Context, field, title string, options []string) (string, error) {
	fmt.Fprint(s.out, renderOptions(title, options))
	for {
		line, err := s.read(ctx, title+": ")
		if err != nil {
			return "", err
		}
		if line == "" {
			fmt.Fprintln(s.out, warn(fmt.Sprintf(msgFillIn, field)))
			continue
		}
		if choice, ok := pickOption(line, options); ok {
			return choice, nil
		}
		fmt.Fprintln(s.out, warn(msgPickOption))
	}
}

// pickOption accepts a 1-based option number or the option text itself.
func pickOption(input string, options []string) (string, bool) {
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1], true
		}
		return "", false
	}
	for _, o := range options {
		if strings.EqualFold(o, input) {
			return o, true
		}
	}
	return "", false
}

func (s *Shell) trials(ctx context.Context) error {
	for {
		trial, ok := s.ctrl.Current()
		if !ok {
			return nil
		}
		n, total := s.ctrl.Position()
		fmt.Fprintln(s.out)
		fmt.Fprintln(s.out, renderTrial(trial, n, total))

		out, label, err := s.choose(ctx, trial)
		if err != nil {
			return err
		}

		msg := fmt.Sprintf("A marble drops from %s... it is %s.", label, styles.Ball.Render(out.BallColor))
		if err := s.player.Play(ctx, s.cfg.Transition, msg); err != nil {
			return err
		}
		s.dropTypeAhead()
		fmt.Fprintf(s.out, "You drew a %s marble from %s.\n", out.BallColor, label)

		if _, err := s.ctrl.Advance(); err != nil {
			return err
		}
	}
}

// choose reads input until it names an urn of trial, then records the choice.
func (s *Shell) choose(ctx context.Context, trial design.Trial) (session.Outcome, string, error) {
	letters := make([]string, len(trial.Condition.Urns))
	for i := range letters {
		letters[i] = design.Letter(i)
	}
	prompt := "Your choice (" + strings.Join(letters, "/") + "): "

	for {
		line, err := s.read(ctx, prompt)
		if err != nil {
			return session.Outcome{}, "", err
		}
		i := pickUrn(line, trial.Condition)
		if i < 0 {
			fmt.Fprintln(s.out, warn(msgPickUrn))
			continue
		}

		out, err := s.ctrl.Choose(trial.Condition.Urns[i].Name)
		if errors.IsCode(err, errors.ErrUrnNotFound) {
			fmt.Fprintln(s.out, warn(msgPickUrn))
			continue
		}
		if err != nil {
			return session.Outcome{}, "", err
		}
		return out, design.Label(i), nil
	}
}

// pickUrn maps "A", "urn a", or an urn name onto a position, or -1.
func pickUrn(input string, c *design.Condition) int {
	in := strings.ToUpper(strings.TrimSpace(input))
	in = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(in, "CHOOSE "), "URN "))
	if len(in) == 1 {
		i := int(in[0]) - 'A'
		if i >= 0 && i < len(c.Urns) {
			return i
		}
		return -1
	}
	for i, u := range c.Urns {
		if strings.EqualFold(u.Name, input) {
			return i
		}
	}
	return -1
}

// dropTypeAhead discards keys pressed while the transition played, so they
// cannot answer the next trial before it is shown.
func (s *Shell) dropTypeAhead() {
	f, ok := s.reader.(Flusher)
	if !ok {
		return
	}
	if err := f.Flush(); err != nil {
		s.logger.Warn("could not discard input typed during transition", "error", err)
	}
}

func (s *Shell) read(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.reader.SetPrompt(prompt)
	line, err := s.reader.Readline()
	if err != nil {
		return "", s.inputErr(err)
	}
	return strings.TrimSpace(line), nil
}

func (s *Shell) inputErr(err error) error {
	if err == io.EOF || err == readline.ErrInterrupt {
		return ErrLeft
	}
	return err
}
