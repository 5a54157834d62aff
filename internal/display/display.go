// Package display renders recorded hands for the terminal, used by the
// replay command.
package display

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/feltworks/tourneyd/internal/history"
)

// Styles holds the lipgloss styles for hand rendering.
type Styles struct {
	Header    lipgloss.Style
	Street    lipgloss.Style
	Action    lipgloss.Style
	Auto      lipgloss.Style
	Winner    lipgloss.Style
	CardRed   lipgloss.Style
	CardBlack lipgloss.Style
	Pot       lipgloss.Style
	Separator lipgloss.Style
	Muted     lipgloss.Style
}

// DefaultStyles returns the standard palette.
func DefaultStyles() *Styles {
	return &Styles{
		Header: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#1E6F50")).
			Padding(0, 1).
			Bold(true),
		Street: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true),
		Action: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#74B9FF")),
		Auto: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Italic(true),
		Winner: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true),
		CardRed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true),
		CardBlack: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true),
		Pot: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true),
		Separator: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")),
	}
}

// Renderer prints hand records in a site-style text layout. Colors
// degrade to plain text when the terminal has no color support.
type Renderer struct {
	out    io.Writer
	styles *Styles
	plain  bool
}

// NewRenderer creates a renderer for the writer, probing the environment
// for color support.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{
		out:    out,
		styles: DefaultStyles(),
		plain:  termenv.EnvColorProfile() == termenv.Ascii,
	}
}

func (r *Renderer) render(s lipgloss.Style, text string) string {
	if r.plain {
		return text
	}
	return s.Render(text)
}

// RenderHand prints one complete hand.
func (r *Renderer) RenderHand(rec *history.HandRecord) {
	header := fmt.Sprintf("Hand %s", rec.HandID)
	fmt.Fprintln(r.out, r.render(r.styles.Header, header))
	blinds := fmt.Sprintf("Table %s • blinds %d/%d", rec.TableID, rec.SmallBlind, rec.BigBlind)
	if rec.Ante > 0 {
		blinds += fmt.Sprintf(" ante %d", rec.Ante)
	}
	fmt.Fprintln(r.out, r.render(r.styles.Muted, blinds))

	names := make(map[int]string, len(rec.Seats))
	for _, s := range rec.Seats {
		names[s.Seat] = s.Name
		line := fmt.Sprintf("Seat %d: %s (%d in chips)", s.Seat, s.Name, s.StartingStack)
		if s.Seat == rec.Button {
			line += " [button]"
		}
		fmt.Fprintln(r.out, line)
		if len(s.HoleCards) > 0 {
			fmt.Fprintf(r.out, "  dealt %s\n", r.cards(s.HoleCards))
		}
	}

	street := ""
	dealt := 0
	for _, a := range rec.Actions {
		if a.Street != street && isStreet(a.Street) {
			street = a.Street
			dealt = r.printStreet(rec, street, dealt)
		}
		r.printAction(a, names)
	}
	if len(rec.Board) > dealt {
		fmt.Fprintf(r.out, "%s %s\n",
			r.render(r.styles.Street, "*** RUNOUT ***"), r.cards(rec.Board[dealt:]))
	}

	r.printResult(rec, names)
	fmt.Fprintln(r.out, r.render(r.styles.Separator, strings.Repeat("─", 48)))
}

func (r *Renderer) printStreet(rec *history.HandRecord, street string, dealt int) int {
	label := "*** " + strings.ToUpper(street) + " ***"
	want := 0
	switch street {
	case "flop":
		want = 3
	case "turn":
		want = 4
	case "river":
		want = 5
	}
	if want > len(rec.Board) {
		want = len(rec.Board)
	}
	if want > dealt {
		fmt.Fprintf(r.out, "%s %s\n", r.render(r.styles.Street, label), r.cards(rec.Board[:want]))
		return want
	}
	fmt.Fprintln(r.out, r.render(r.styles.Street, label))
	return dealt
}

func (r *Renderer) printAction(a history.ActionRecord, names map[int]string) {
	name := names[a.Seat]
	if name == "" {
		name = fmt.Sprintf("seat %d", a.Seat)
	}

	var text string
	switch a.Kind {
	case "post_small_blind":
		text = fmt.Sprintf("%s: posts small blind %d", name, a.Amount)
	case "post_big_blind":
		text = fmt.Sprintf("%s: posts big blind %d", name, a.Amount)
	case "post_ante":
		text = fmt.Sprintf("%s: posts ante %d", name, a.Amount)
	case "fold":
		text = fmt.Sprintf("%s: folds", name)
	case "check":
		text = fmt.Sprintf("%s: checks", name)
	case "call":
		text = fmt.Sprintf("%s: calls %d", name, a.Amount)
	case "bet":
		text = fmt.Sprintf("%s: bets %d", name, a.Amount)
	case "raise":
		text = fmt.Sprintf("%s: raises %d", name, a.Amount)
	case "allin":
		text = fmt.Sprintf("%s: moves all-in for %d", name, a.Amount)
	case "uncalled_return":
		text = fmt.Sprintf("Uncalled bet (%d) returned to %s", a.Amount, name)
	default:
		text = fmt.Sprintf("%s: %s %d", name, a.Kind, a.Amount)
	}
	if a.Auto {
		text += " " + r.render(r.styles.Auto, "(timed out)")
		fmt.Fprintln(r.out, text)
		return
	}
	fmt.Fprintln(r.out, r.render(r.styles.Action, text))
}

func (r *Renderer) printResult(rec *history.HandRecord, names map[int]string) {
	if rec.Aborted {
		fmt.Fprintln(r.out, r.render(r.styles.Muted, "Hand aborted, stacks restored"))
		return
	}
	for _, pot := range rec.Pots {
		winners := make([]string, len(pot.Winners))
		for i, seat := range pot.Winners {
			winners[i] = names[seat]
		}
		fmt.Fprintf(r.out, "%s %s collected by %s\n",
			r.render(r.styles.Pot, fmt.Sprintf("Pot %d", pot.Amount)),
			r.render(r.styles.Muted, fmt.Sprintf("(seats %v)", pot.Eligible)),
			r.render(r.styles.Winner, strings.Join(winners, ", ")))
	}
	if rec.FoldWin {
		fmt.Fprintln(r.out, r.render(r.styles.Muted, "All other players folded"))
	}

	seats := make([]int, 0, len(rec.FinalStacks))
	for seat := range rec.FinalStacks {
		seats = append(seats, seat)
	}
	sort.Ints(seats)
	parts := make([]string, 0, len(seats))
	for _, seat := range seats {
		parts = append(parts, fmt.Sprintf("%s %d", names[seat], rec.FinalStacks[seat]))
	}
	fmt.Fprintf(r.out, "Stacks: %s\n", strings.Join(parts, " • "))
}

// cards renders a card list with suit coloring.
func (r *Renderer) cards(cards []string) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		style := r.styles.CardBlack
		if len(c) == 2 && (c[1] == 'h' || c[1] == 'd') {
			style = r.styles.CardRed
		}
		parts[i] = r.render(style, c)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func isStreet(s string) bool {
	switch s {
	case "preflop", "flop", "turn", "river":
		return true
	}
	return false
}
