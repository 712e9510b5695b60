package models

import "thrift-orders/internal/errs"

// Status is the single canonical lifecycle field of an order.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusDeclined   Status = "Declined"
)

// validNext encodes the only legal edges:
//
//	Pending ──┬──> InProgress ──> Shipped ──> Delivered
//	          └──> Declined
//
// Delivered and Declined are terminal.
var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusInProgress: true, StatusDeclined: true},
	StatusInProgress: {StatusShipped: true},
	StatusShipped:    {StatusDelivered: true},
	StatusDelivered:  {},
	StatusDeclined:   {},
}

// Valid reports whether s is one of the five defined states.
func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// Terminal reports whether no further transitions are legal from s.
func (s Status) Terminal() bool {
	return len(validNext[s]) == 0 && s.Valid()
}

// CanTransition reports whether the edge s -> to is legal.
func (s Status) CanTransition(to Status) bool {
	return validNext[s][to]
}

func (s Status) transition(to Status) (Status, error) {
	if !s.CanTransition(to) {
		return s, errs.NewTransitionError(string(s), string(to))
	}
	return to, nil
}

// Accept transitions Pending -> InProgress (vendor accepts the order).
func (s Status) Accept() (Status, error) {
	return s.transition(StatusInProgress)
}

// Decline transitions Pending -> Declined. The caller is responsible for
// persisting a non-empty decline reason alongside.
func (s Status) Decline() (Status, error) {
	return s.transition(StatusDeclined)
}

// Ship transitions InProgress -> Shipped. Used by both the rider-delivery
// and pickup-window flows.
func (s Status) Ship() (Status, error) {
	return s.transition(StatusShipped)
}

// Deliver transitions Shipped -> Delivered on confirmed delivery.
func (s Status) Deliver() (Status, error) {
	return s.transition(StatusDelivered)
}
