package shell

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/r3d91ll/urnlab/pkg/design"
)

var (
	colorAccent  = lipgloss.Color("#20B9B4")
	colorBorder  = lipgloss.Color("#16858E")
	colorWarning = lipgloss.Color("#F4D03F")
	colorMuted   = lipgloss.Color("#2C4A54")
)

var styles = struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Warning lipgloss.Style
	Caption lipgloss.Style
	Hint    lipgloss.Style
	Card    lipgloss.Style
	Ball    lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	Muted:   lipgloss.NewStyle().Foreground(colorMuted),
	Warning: lipgloss.NewStyle().Foreground(colorWarning),
	Caption: lipgloss.NewStyle().Bold(true),
	Hint:    lipgloss.NewStyle().Foreground(colorAccent),
	Card: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(cardWidth),
	Ball: lipgloss.NewStyle().Bold(true),
}

const (
	cardWidth   = 40
	cardsPerRow = 2
)

// renderTrial lays the trial's urns out as captioned cards, two per row.
func renderTrial(trial design.Trial, n, total int) string {
	cards := make([]string, len(trial.Condition.Urns))
	for i, u := range trial.Condition.Urns {
		label := design.Label(i)
		body := strings.Join([]string{
			styles.Caption.Render(label),
			"",
			u.Instruction(label),
			"",
			styles.Hint.Render("choose " + label),
		}, "\n")
		cards[i] = styles.Card.Render(body)
	}

	var rows []string
	for start := 0; start < len(cards); start += cardsPerRow {
		end := min(start+cardsPerRow, len(cards))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[start:end]...))
	}

	header := styles.Title.Render(fmt.Sprintf("Trial %d of %d", n, total))
	intro := "Choose one urn. A marble will be drawn from the urn you choose."
	return lipgloss.JoinVertical(lipgloss.Left, append([]string{header, intro, ""}, rows...)...)
}

// renderOptions numbers the answers for a demographics question.
func renderOptions(title string, options []string) string {
	var sb strings.Builder
	sb.WriteString(styles.Caption.Render(title))
	sb.WriteString("\n")
	for i, o := range options {
		fmt.Fprintf(&sb, "  %d) %s\n", i+1, o)
	}
	return sb.String()
}

func warn(msg string) string {
	return styles.Warning.Render(msg)
}
