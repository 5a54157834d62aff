package phh

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/feltworks/tourneyd/internal/history"
)

// Variant code for no-limit Texas hold'em.
const variantNT = "NT"

// Encode writes the hand in PHH TOML form.
func Encode(w io.Writer, hand *HandHistory) error {
	if hand == nil {
		return fmt.Errorf("phh: hand history is nil")
	}
	enc := toml.NewEncoder(w)
	enc.Indent = "\t"
	return enc.Encode(hand)
}

// EncodeSection writes one "[n]" section of a .phhs multi-hand file.
func EncodeSection(w io.Writer, section int, hand *HandHistory) error {
	if _, err := fmt.Fprintf(w, "[%d]\n", section); err != nil {
		return err
	}
	if err := Encode(w, hand); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// FromRecord converts a recorded hand into PHH form. PHH indexes players
// in position order, small blind first, so seat numbers are remapped; a
// record without hole cards gets "????" deals.
func FromRecord(rec *history.HandRecord) *HandHistory {
	n := len(rec.Seats)
	if n == 0 {
		return nil
	}

	buttonIdx := 0
	for i, s := range rec.Seats {
		if s.Seat == rec.Button {
			buttonIdx = i
		}
	}
	sbIdx := (buttonIdx + 1) % n
	if n == 2 {
		sbIdx = buttonIdx
	}
	posOf := make(map[int]int, n) // table seat -> position index
	order := make([]int, n)       // position index -> rec.Seats index
	for pos := 0; pos < n; pos++ {
		idx := (sbIdx + pos) % n
		order[pos] = idx
		posOf[rec.Seats[idx].Seat] = pos
	}

	hand := &HandHistory{
		Variant:           variantNT,
		Table:             rec.TableID,
		SeatCount:         n,
		Seats:             make([]int, n),
		Antes:             make([]int, n),
		BlindsOrStraddles: make([]int, n),
		MinBet:            rec.BigBlind,
		StartingStacks:    make([]int, n),
		FinishingStacks:   make([]int, n),
		Winnings:          make([]int, n),
		Players:           make([]string, n),
		HandID:            rec.HandID,
		Timestamp:         rec.StartedAt,
	}
	for pos, idx := range order {
		s := rec.Seats[idx]
		hand.Seats[pos] = s.Seat + 1
		hand.StartingStacks[pos] = s.StartingStack
		hand.FinishingStacks[pos] = s.StartingStack
		hand.Players[pos] = s.Name
		hand.Actions = append(hand.Actions, fmt.Sprintf("d dh p%d %s", pos+1, holeCards(s.HoleCards)))
	}

	folded := make(map[int]bool)
	streetPaid := make(map[int]int)
	street := "preflop"
	dealt := 0
	for _, a := range rec.Actions {
		switch a.Kind {
		case "post_ante":
			if pos, ok := posOf[a.Seat]; ok {
				hand.Antes[pos] = a.Amount
			}
			continue
		case "post_small_blind", "post_big_blind":
			if pos, ok := posOf[a.Seat]; ok {
				hand.BlindsOrStraddles[pos] = a.Amount
			}
			continue
		case "uncalled_return":
			continue
		}

		if a.Street != street {
			street = a.Street
			dealt = appendBoardDeals(hand, rec.Board, dealt, boardLen(street))
			streetPaid = make(map[int]int)
		}
		pos, ok := posOf[a.Seat]
		if !ok {
			continue
		}
		switch a.Kind {
		case "fold":
			folded[a.Seat] = true
			hand.Actions = append(hand.Actions, fmt.Sprintf("p%d f", pos+1))
		case "check", "call":
			streetPaid[a.Seat] += a.Amount
			hand.Actions = append(hand.Actions, fmt.Sprintf("p%d cc", pos+1))
		case "bet", "raise", "allin":
			streetPaid[a.Seat] += a.Amount
			hand.Actions = append(hand.Actions, fmt.Sprintf("p%d cbr %d", pos+1, streetPaid[a.Seat]))
		}
	}
	appendBoardDeals(hand, rec.Board, dealt, len(rec.Board))

	if !rec.FoldWin && !rec.Aborted {
		for pos, idx := range order {
			s := rec.Seats[idx]
			if folded[s.Seat] || len(s.HoleCards) < 2 {
				continue
			}
			hand.Actions = append(hand.Actions, fmt.Sprintf("p%d sm %s", pos+1, strings.Join(s.HoleCards, "")))
		}
	}

	for pos, idx := range order {
		seat := rec.Seats[idx].Seat
		if chips, ok := rec.FinalStacks[seat]; ok {
			hand.FinishingStacks[pos] = chips
		}
		hand.Winnings[pos] = rec.Payouts[seat]
	}

	if t := rec.StartedAt; !t.IsZero() {
		utc := t.UTC()
		hand.Time = utc.Format("15:04:05")
		hand.TimeZone = "UTC"
		hand.Day = utc.Day()
		hand.Month = int(utc.Month())
		hand.Year = utc.Year()
	}
	return hand
}

func holeCards(cards []string) string {
	if len(cards) < 2 {
		return "????"
	}
	return strings.Join(cards, "")
}

// boardLen is the community card count once the street is dealt.
func boardLen(street string) int {
	switch street {
	case "flop":
		return 3
	case "turn":
		return 4
	case "river", "showdown", "settled":
		return 5
	default:
		return 0
	}
}

// appendBoardDeals emits "d db" actions for board cards past dealt, up
// to want, and returns the new dealt count. Streets are dealt in their
// natural segments so a runout produces three separate deals.
func appendBoardDeals(hand *HandHistory, board []string, dealt, want int) int {
	if want > len(board) {
		want = len(board)
	}
	for dealt < want {
		next := 3
		if dealt >= 3 {
			next = dealt + 1
		}
		if next > want {
			next = want
		}
		hand.Actions = append(hand.Actions, "d db "+strings.Join(board[dealt:next], ""))
		dealt = next
	}
	return dealt
}
