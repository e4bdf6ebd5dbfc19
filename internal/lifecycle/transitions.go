package lifecycle

import (
	"fmt"
	"strings"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/models"
)

// Action is the rider operation that drives a delivery transition
type Action string

const (
	ActionPickup        Action = "pickup"
	ActionConfirm       Action = "confirm"
	ActionReportFailure Action = "report_failure"
)

// Transition is one edge of the delivery state machine
type Transition struct {
	From   models.DeliveryStatus
	To     models.DeliveryStatus
	Action Action
}

// transitionTable is the authoritative delivery state machine.
// DELIVERED and FAILED have no outgoing edges.
var transitionTable = []Transition{
	{From: models.DeliveryPending, To: models.DeliveryDispatched, Action: ActionPickup},
	{From: models.DeliveryDispatched, To: models.DeliveryDelivered, Action: ActionConfirm},
	{From: models.DeliveryDispatched, To: models.DeliveryFailed, Action: ActionReportFailure},
}

type transitionKey struct {
	From models.DeliveryStatus
	To   models.DeliveryStatus
}

var transitionIndex = func() map[transitionKey]Action {
	m := make(map[transitionKey]Action, len(transitionTable))
	for _, t := range transitionTable {
		m[transitionKey{t.From, t.To}] = t.Action
	}
	return m
}()

// Transitions returns a copy of the state machine, used by the API docs
func Transitions() []Transition {
	out := make([]Transition, len(transitionTable))
	copy(out, transitionTable)
	return out
}

// ValidTransitionsFrom returns every status reachable in one step from status
func ValidTransitionsFrom(status models.DeliveryStatus) []models.DeliveryStatus {
	var next []models.DeliveryStatus
	for _, t := range transitionTable {
		if t.From == status {
			next = append(next, t.To)
		}
	}
	return next
}

// CanTransition returns nil when from -> to is an edge of the state machine,
// otherwise an InvalidTransition error describing the legal moves.
func CanTransition(from, to models.DeliveryStatus) error {
	if _, ok := transitionIndex[transitionKey{from, to}]; ok {
		return nil
	}
	return models.ErrInvalidTransition.WithDetails(fmt.Sprintf(
		"delivery cannot move from %s to %s. Valid transitions from %s: %s",
		from, to, from, describeValidFrom(from)))
}

func describeValidFrom(status models.DeliveryStatus) string {
	next := ValidTransitionsFrom(status)
	if len(next) == 0 {
		return "none (terminal state)"
	}
	names := make([]string, len(next))
	for i, s := range next {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
