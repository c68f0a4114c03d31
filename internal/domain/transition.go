package domain

import "sort"

// Edge is one row of a transition table: from any of the listed states, the
// given actor may take the action and land in To.
type Edge[S ~string, A ~string] struct {
	From   []S
	Action A
	Actor  Actor
	To     S
}

type edgeKey[S ~string, A ~string] struct {
	from   S
	action A
	actor  Actor
}

// Machine is the single choke point for status changes of one entity type.
// It is immutable after construction and safe for concurrent use.
type Machine[S ~string, A ~string] struct {
	entity string
	next   map[edgeKey[S, A]]S
	out    map[S]bool
}

// NewMachine builds a transition table. Duplicate (from, action, actor)
// triples are a programming error and panic.
func NewMachine[S ~string, A ~string](entity string, edges ...Edge[S, A]) *Machine[S, A] {
	m := &Machine[S, A]{
		entity: entity,
		next:   make(map[edgeKey[S, A]]S),
		out:    make(map[S]bool),
	}
	for _, e := range edges {
		for _, from := range e.From {
			k := edgeKey[S, A]{from: from, action: e.Action, actor: e.Actor}
			if _, dup := m.next[k]; dup {
				panic("domain: duplicate " + entity + " transition " + string(from) + "/" + string(e.Action))
			}
			m.next[k] = e.To
			m.out[from] = true
		}
	}
	return m
}

// Entity returns the name the machine reports in errors.
func (m *Machine[S, A]) Entity() string {
	return m.entity
}

// Next returns the state reached by taking action from the current state.
// Unlisted combinations fail with an ETRANSITION error; they never no-op.
func (m *Machine[S, A]) Next(from S, action A, actor Actor) (S, error) {
	to, ok := m.next[edgeKey[S, A]{from: from, action: action, actor: actor}]
	if !ok {
		return from, InvalidTransition(m.entity+".transition", &TransitionError{
			Entity: m.entity,
			From:   string(from),
			Action: string(action),
			Actor:  actor,
		})
	}
	return to, nil
}

// Can reports whether the transition is allowed.
func (m *Machine[S, A]) Can(from S, action A, actor Actor) bool {
	_, ok := m.next[edgeKey[S, A]{from: from, action: action, actor: actor}]
	return ok
}

// Actions lists the actions the actor may take from a state, sorted.
// Callers use it to decide which controls to offer.
func (m *Machine[S, A]) Actions(from S, actor Actor) []A {
	var actions []A
	for k := range m.next {
		if k.from == from && k.actor == actor {
			actions = append(actions, k.action)
		}
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

// IsTerminal reports whether no actor can leave the state.
func (m *Machine[S, A]) IsTerminal(s S) bool {
	return !m.out[s]
}
