package server

import (
	"github.com/feltworks/tourneyd/internal/game"
	"github.com/feltworks/tourneyd/internal/tourney"
	"github.com/feltworks/tourneyd/poker"
	"github.com/feltworks/tourneyd/protocol"
)

// Conversions from engine types to their public wire shapes.

func wireCards(cards []poker.Card) []string {
	if len(cards) == 0 {
		return nil
	}
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}

func wireLegal(legal []game.LegalAction) []protocol.LegalAction {
	out := make([]protocol.LegalAction, len(legal))
	for i, la := range legal {
		out[i] = protocol.LegalAction{Kind: la.Kind.String(), Min: la.Min, Max: la.Max}
	}
	return out
}

func wireLevel(l game.BlindLevel) protocol.BlindLevel {
	return protocol.BlindLevel{
		SmallBlind: l.Small,
		BigBlind:   l.Big,
		Ante:       l.Ante,
		DurationMs: l.Duration.Milliseconds(),
	}
}

func wireTableState(st game.TableState) protocol.TableState {
	seats := make([]protocol.SeatState, len(st.Seats))
	for i, s := range st.Seats {
		seats[i] = protocol.SeatState{
			Seat: s.Seat, PlayerID: s.PlayerID, Name: s.Name,
			Chips: s.Chips, Bet: s.Bet,
			Folded: s.Folded, AllIn: s.AllIn, SittingOut: s.SittingOut, Empty: s.Empty,
		}
	}
	var pots []protocol.PotState
	for _, p := range st.Pots {
		pots = append(pots, protocol.PotState{Amount: p.Amount, Eligible: p.Eligible})
	}
	return protocol.TableState{
		TableID:    st.TableID,
		HandID:     st.HandID,
		Phase:      st.Phase,
		Board:      st.Board,
		Button:     st.Button,
		ToAct:      st.ToAct,
		CurrentBet: st.CurrentBet,
		MinRaise:   st.MinRaise,
		Pots:       pots,
		Seats:      seats,
		Level:      wireLevel(st.Level),
	}
}

func wireActionRequest(req game.ActionRequest) protocol.ActionRequest {
	minRaise, maxRaise := req.MinRaise, req.MaxRaise
	return protocol.ActionRequest{
		TableID:      req.TableID,
		HandID:       req.HandID,
		Seq:          req.Seq,
		Seat:         req.Seat,
		HoleCards:    wireCards(req.HoleCards),
		LegalActions: wireLegal(req.Legal),
		MinRaise:     minRaise,
		MaxRaise:     maxRaise,
		DeadlineMs:   req.Deadline.UnixMilli(),
		TimeoutMs:    req.Timeout.Milliseconds(),
		State:        wireTableState(req.State),
	}
}

func wireHandResult(res *game.Result) protocol.HandResult {
	pots := make([]protocol.PotResult, len(res.Pots))
	for i, p := range res.Pots {
		pots[i] = protocol.PotResult{Amount: p.Amount, Eligible: p.Eligible, Winners: p.Winners}
	}
	var revealed map[int][]string
	if len(res.Revealed) > 0 {
		revealed = make(map[int][]string, len(res.Revealed))
		for seat, hand := range res.Revealed {
			revealed[seat] = wireCards(hand.Cards())
		}
	}
	return protocol.HandResult{
		TableID:     res.TableID,
		HandID:      res.HandID,
		Board:       wireCards(res.Board),
		Pots:        pots,
		Payouts:     res.Payouts,
		FinalStacks: res.FinalStacks,
		Revealed:    revealed,
		FoldWin:     res.FoldWin,
	}
}

func wireTournamentUpdate(u tourney.Update) protocol.TournamentUpdate {
	standings := make([]protocol.Standing, len(u.Standings))
	for i, s := range u.Standings {
		standings[i] = protocol.Standing{
			PlayerID: s.PlayerID, Name: s.Name, Chips: s.Chips, Rank: s.Rank, TableID: s.TableID,
		}
	}
	return protocol.TournamentUpdate{
		Name:       u.Name,
		Status:     u.Status,
		LevelIndex: u.LevelIndex,
		Level:      wireLevel(u.Level),
		Remaining:  u.Remaining,
		Entrants:   u.Entrants,
		Paused:     u.Paused,
		Standings:  standings,
	}
}
