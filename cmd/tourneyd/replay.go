package main

import (
	"fmt"
	"os"

	"github.com/feltworks/tourneyd/internal/display"
	"github.com/feltworks/tourneyd/internal/history"
	"github.com/feltworks/tourneyd/internal/phh"
)

// ReplayCmd audits a JSONL hand history file: every hand is replayed
// from its starting stacks and action list and checked against the
// recorded outcome.
type ReplayCmd struct {
	File  string `arg:"" type:"existingfile" help:"JSONL hand history file"`
	Hand  string `help:"Render only the hand with this ID"`
	PHH   bool   `name:"phh" help:"Export hands in PHH format instead of rendering"`
	Quiet bool   `short:"q" help:"Verify only, no rendering"`
}

func (c *ReplayCmd) Run() error {
	records, err := history.ReadFile(c.File)
	if err != nil {
		return err
	}
	if c.Hand != "" {
		filtered := records[:0]
		for _, rec := range records {
			if rec.HandID == c.Hand {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
		if len(records) == 0 {
			return fmt.Errorf("no hand %s in %s", c.Hand, c.File)
		}
	}
	if len(records) == 0 {
		return fmt.Errorf("no hands in %s", c.File)
	}

	failures := 0
	renderer := display.NewRenderer(os.Stdout)
	for i, rec := range records {
		if err := history.Verify(rec); err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "audit failed: %v\n", err)
		}
		switch {
		case c.Quiet:
		case c.PHH:
			hand := phh.FromRecord(rec)
			if hand == nil {
				continue
			}
			if err := phh.EncodeSection(os.Stdout, i+1, hand); err != nil {
				return err
			}
		default:
			renderer.RenderHand(rec)
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d hands failed the audit", failures, len(records))
	}
	if c.Quiet {
		fmt.Printf("%d hands verified\n", len(records))
	}
	return nil
}
