// Package history records settled hands as JSONL and replays them for
// audit. One record per hand carries everything needed to recompute the
// outcome from the starting stacks and the action list.
package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// SeatRecord is one dealt-in seat at hand start. HoleCards is empty when
// the recorder is configured to omit private cards.
type SeatRecord struct {
	Seat          int      `json:"seat"`
	PlayerID      string   `json:"playerId"`
	Name          string   `json:"name,omitempty"`
	StartingStack int      `json:"startingStack"`
	HoleCards     []string `json:"holeCards,omitempty"`
}

// ActionRecord is one action in hand order, including blind and ante
// posts, voluntary actions, substituted defaults (Auto) and the uncalled
// bet refund. Amount is the chips moved by this action.
type ActionRecord struct {
	Seq      int       `json:"seq"`
	At       time.Time `json:"at"`
	Street   string    `json:"street"`
	Seat     int       `json:"seat"`
	PlayerID string    `json:"playerId,omitempty"`
	Kind     string    `json:"kind"`
	Amount   int       `json:"amount,omitempty"`
	Auto     bool      `json:"auto,omitempty"`
}

// PotRecord is one settled pot.
type PotRecord struct {
	Amount   int   `json:"amount"`
	Eligible []int `json:"eligible,omitempty"`
	Winners  []int `json:"winners"`
}

// HandRecord is a complete hand history entry. Maps are keyed by seat.
type HandRecord struct {
	HandID    string    `json:"handId"`
	TableID   string    `json:"tableId"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`

	Button     int `json:"button"`
	SmallBlind int `json:"smallBlind"`
	BigBlind   int `json:"bigBlind"`
	Ante       int `json:"ante,omitempty"`

	Seats   []SeatRecord   `json:"seats"`
	Actions []ActionRecord `json:"actions"`
	Board   []string       `json:"board,omitempty"`

	Pots        []PotRecord `json:"pots,omitempty"`
	Payouts     map[int]int `json:"payouts"`
	FinalStacks map[int]int `json:"finalStacks"`
	FoldWin     bool        `json:"foldWin,omitempty"`
	Aborted     bool        `json:"aborted,omitempty"`
}

// ReadFile loads every record from a JSONL history file.
func ReadFile(path string) ([]*HandRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadAll(f)
}

// ReadAll decodes JSONL records from a reader.
func ReadAll(r io.Reader) ([]*HandRecord, error) {
	var records []*HandRecord
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec HandRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, &rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
