package game

import (
	"time"

	"github.com/feltworks/tourneyd/poker"
)

// EventKind identifies a game event.
type EventKind string

const (
	EventHandStarted    EventKind = "hand_started"
	EventHoleCards      EventKind = "hole_cards"
	EventAction         EventKind = "action"
	EventCardsDealt     EventKind = "cards_dealt"
	EventUncalledReturn EventKind = "uncalled_return"
	EventHandSettled    EventKind = "hand_settled"
	EventPlayerSatOut   EventKind = "player_sat_out"
)

// SeatInfo describes a seat at hand start.
type SeatInfo struct {
	Seat     int    `json:"seat"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Chips    int    `json:"chips"`
}

// Event is a single game occurrence published by hands and tables.
// Fields beyond Kind/TableID/HandID/Seq/At/Phase are populated per kind:
// Seat/PlayerID/Action/Amount/Auto for actions and posts, Cards for
// dealt board cards and hole cards, Seats/Button/Level at hand start,
// Result at settlement. EventHoleCards carries private information and
// must only reach that player and the hand history.
type Event struct {
	Kind    EventKind
	TableID string
	HandID  string
	Seq     int
	At      time.Time
	Phase   Phase

	Seat     int
	PlayerID string
	Action   string
	Amount   int
	Auto     bool

	Cards  []poker.Card
	Seats  []SeatInfo
	Button int
	Level  *BlindLevel

	Result *Result
}

// EventSink consumes game events. Implementations must not block: they
// are invoked on the table goroutine.
type EventSink interface {
	Publish(Event)
}

// EventSinkFunc adapts a function to an EventSink.
type EventSinkFunc func(Event)

func (f EventSinkFunc) Publish(e Event) { f(e) }

// MultiSink fans events out to several sinks in order.
func MultiSink(sinks ...EventSink) EventSink {
	return EventSinkFunc(func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s.Publish(e)
			}
		}
	})
}
