// Package protocol defines the JSON wire messages exchanged between the
// tournament server and bot clients over WebSocket. Every frame is an
// envelope carrying a typed payload; the payload shapes here are the
// public contract shared by the server gateway and the SDK.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies an envelope payload.
type MessageType string

const (
	// Client → server
	TypeRegister       MessageType = "register"
	TypeActionResponse MessageType = "action_response"

	// Server → client
	TypeRegisterAck      MessageType = "register_ack"
	TypeHoleCards        MessageType = "hole_cards"
	TypeActionRequest    MessageType = "action_request"
	TypeStateUpdate      MessageType = "state_update"
	TypeHandResult       MessageType = "hand_result"
	TypeTournamentUpdate MessageType = "tournament_update"
	TypeError            MessageType = "error"
)

// Message is the wire envelope.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage wraps a payload in an envelope stamped with the current
// time.
func NewMessage(t MessageType, data any) (*Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", t, err)
	}
	return &Message{Type: t, Data: raw, Timestamp: time.Now()}, nil
}

// Parse decodes an envelope from a raw frame.
func Parse(frame []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(frame, &m); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}
	if m.Type == "" {
		return nil, fmt.Errorf("envelope missing type")
	}
	return &m, nil
}

// Decode unmarshals the envelope payload into v.
func (m *Message) Decode(v any) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", m.Type, err)
	}
	return nil
}

// Register is sent by a bot after connecting. Token is the entrant token
// issued at registration; reconnecting with the same identity reclaims
// the seat.
type Register struct {
	PlayerName string `json:"playerName"`
	PlayerID   string `json:"playerId,omitempty"`
	Token      string `json:"token,omitempty"`
}

// RegisterAck confirms a registration. TableID and Seat stay empty until
// the tournament starts and the player is seated.
type RegisterAck struct {
	PlayerID string `json:"playerId"`
	Token    string `json:"token,omitempty"`
	TableID  string `json:"tableId,omitempty"`
	Seat     int    `json:"seat"`
	Resumed  bool   `json:"resumed,omitempty"`
}

// HoleCards delivers a player's private cards at the deal. Sent only to
// the owning player's session.
type HoleCards struct {
	TableID string   `json:"tableId"`
	HandID  string   `json:"handId"`
	Seat    int      `json:"seat"`
	Cards   []string `json:"cards"`
}

// LegalAction is a permitted action kind with its amount bounds. For bet
// and raise the bounds are "raise to" street totals.
type LegalAction struct {
	Kind string `json:"kind"`
	Min  int    `json:"min,omitempty"`
	Max  int    `json:"max,omitempty"`
}

// BlindLevel is one step of the blind schedule.
type BlindLevel struct {
	SmallBlind int   `json:"smallBlind"`
	BigBlind   int   `json:"bigBlind"`
	Ante       int   `json:"ante,omitempty"`
	DurationMs int64 `json:"durationMs,omitempty"`
}

// SeatState is one seat in a public table snapshot.
type SeatState struct {
	Seat       int    `json:"seat"`
	PlayerID   string `json:"playerId,omitempty"`
	Name       string `json:"name,omitempty"`
	Chips      int    `json:"chips"`
	Bet        int    `json:"bet"`
	Folded     bool   `json:"folded,omitempty"`
	AllIn      bool   `json:"allIn,omitempty"`
	SittingOut bool   `json:"sittingOut,omitempty"`
	Empty      bool   `json:"empty,omitempty"`
}

// PotState is one pot with the seats still eligible to win it.
type PotState struct {
	Amount   int   `json:"amount"`
	Eligible []int `json:"eligible"`
}

// TableState is the public table snapshot embedded in action requests
// and broadcast to spectators. It never carries hole cards.
type TableState struct {
	TableID    string      `json:"tableId"`
	HandID     string      `json:"handId,omitempty"`
	Phase      string      `json:"phase"`
	Board      []string    `json:"board,omitempty"`
	Button     int         `json:"button"`
	ToAct      int         `json:"toAct"`
	CurrentBet int         `json:"currentBet"`
	MinRaise   int         `json:"minRaise"`
	Pots       []PotState  `json:"pots,omitempty"`
	Seats      []SeatState `json:"seats"`
	Level      BlindLevel  `json:"level"`
}

// ActionRequest asks the addressed bot for a decision before the
// deadline. Seq must be echoed in the response; a stale Seq is rejected.
type ActionRequest struct {
	TableID      string        `json:"tableId"`
	HandID       string        `json:"handId"`
	Seq          int           `json:"seq"`
	Seat         int           `json:"seat"`
	HoleCards    []string      `json:"holeCards"`
	LegalActions []LegalAction `json:"legalActions"`
	MinRaise     int           `json:"minRaise,omitempty"`
	MaxRaise     int           `json:"maxRaise,omitempty"`
	DeadlineMs   int64         `json:"deadlineMs"`
	TimeoutMs    int64         `json:"timeoutMs"`
	State        TableState    `json:"state"`
}

// ActionResponse is a bot's answer to an ActionRequest. Amount is the
// "raise to" street total for bet and raise, ignored otherwise.
type ActionResponse struct {
	TableID string `json:"tableId"`
	HandID  string `json:"handId"`
	Seq     int    `json:"seq"`
	Kind    string `json:"kind"`
	Amount  int    `json:"amount,omitempty"`
}

// PotResult is a settled pot with the winning seats.
type PotResult struct {
	Amount   int   `json:"amount"`
	Eligible []int `json:"eligible,omitempty"`
	Winners  []int `json:"winners"`
}

// HandResult reports a settled hand. Maps are keyed by seat; Revealed is
// only populated for hands that reached showdown.
type HandResult struct {
	TableID     string              `json:"tableId"`
	HandID      string              `json:"handId"`
	Board       []string            `json:"board,omitempty"`
	Pots        []PotResult         `json:"pots"`
	Payouts     map[int]int         `json:"payouts"`
	FinalStacks map[int]int         `json:"finalStacks"`
	Revealed    map[int][]string    `json:"revealed,omitempty"`
	FoldWin     bool                `json:"foldWin,omitempty"`
}

// Standing is one leaderboard row. Rank is 0 while the player is alive.
type Standing struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Chips    int    `json:"chips"`
	Rank     int    `json:"rank"`
	TableID  string `json:"tableId,omitempty"`
}

// TournamentUpdate is broadcast on level changes, eliminations, pauses
// and completion.
type TournamentUpdate struct {
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	LevelIndex int        `json:"levelIndex"`
	Level      BlindLevel `json:"level"`
	Remaining  int        `json:"remaining"`
	Entrants   int        `json:"entrants"`
	Paused     bool       `json:"paused,omitempty"`
	Standings  []Standing `json:"standings,omitempty"`
}

// Error codes sent to bots.
const (
	ErrCodeBadMessage    = "bad_message"
	ErrCodeAuthFailed    = "auth_failed"
	ErrCodeOutOfTurn     = "out_of_turn"
	ErrCodeBelowMinimum  = "below_minimum"
	ErrCodeOverStack     = "over_stack"
	ErrCodeIllegalKind   = "illegal_kind"
	ErrCodeRoundClosed   = "round_closed"
	ErrCodeTooManyErrors = "too_many_errors"
)

// Error reports a rejected message or action. Rejection codes mirror the
// rule validator so bots can correct and resubmit before the deadline.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
