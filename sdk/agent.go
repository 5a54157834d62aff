// Package sdk is the bot client library: dial the server, register, and
// let an Agent make the decisions.
package sdk

import "github.com/feltworks/tourneyd/protocol"

// Agent decides what to do with each action request. ActOn runs on the
// client's read loop; the table clock keeps running while it thinks, so
// agents should answer well inside the request's timeout.
type Agent interface {
	ActOn(req protocol.ActionRequest) protocol.ActionResponse
}

// AgentFunc adapts a function to an Agent.
type AgentFunc func(req protocol.ActionRequest) protocol.ActionResponse

func (f AgentFunc) ActOn(req protocol.ActionRequest) protocol.ActionResponse { return f(req) }

// Optional observer interfaces. Agents implementing them receive the
// corresponding broadcasts.

// StateObserver receives public table snapshots.
type StateObserver interface {
	ObserveState(st protocol.TableState)
}

// CardsObserver receives the agent's hole cards at each deal.
type CardsObserver interface {
	ObserveHoleCards(hc protocol.HoleCards)
}

// ResultObserver receives settled hand results.
type ResultObserver interface {
	ObserveResult(res protocol.HandResult)
}

// TournamentObserver receives tournament status updates.
type TournamentObserver interface {
	ObserveTournament(u protocol.TournamentUpdate)
}

// Respond builds an action response echoing the request's routing
// fields.
func Respond(req protocol.ActionRequest, kind string, amount int) protocol.ActionResponse {
	return protocol.ActionResponse{
		TableID: req.TableID,
		HandID:  req.HandID,
		Seq:     req.Seq,
		Kind:    kind,
		Amount:  amount,
	}
}
