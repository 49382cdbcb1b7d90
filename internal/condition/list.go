package condition

import "fmt"

// List is an ordered condition list. Exactly the first condition has an
// empty connector; every later one has AND or OR. The zero value is an
// empty list. List is not safe for concurrent use.
type List struct {
	items []Condition
}

// NewList builds a list from conditions and normalises connectors.
func NewList(cs ...Condition) *List {
	l := &List{items: append([]Condition(nil), cs...)}
	l.Normalize()
	return l
}

// Len returns the number of conditions.
func (l *List) Len() int { return len(l.items) }

// Items returns a copy of the conditions in order.
func (l *List) Items() []Condition {
	out := make([]Condition, len(l.items))
	copy(out, l.items)
	return out
}

// Get returns the condition with the given ID.
func (l *List) Get(id string) (Condition, bool) {
	if i := l.index(id); i >= 0 {
		return l.items[i], true
	}
	return Condition{}, false
}

// HasRaw reports whether the list holds a raw condition.
func (l *List) HasRaw() bool {
	for _, c := range l.items {
		if c.Raw {
			return true
		}
	}
	return false
}

// Append adds c at the end. A later condition without a connector joins
// with AND.
func (l *List) Append(c Condition) {
	l.items = append(l.items, c)
	l.Normalize()
}

// Remove drops the condition with the given ID. Removing the first
// condition promotes the next one, which loses its connector.
func (l *List) Remove(id string) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	l.Normalize()
	return true
}

// Replace swaps the condition with the given ID for c, keeping the ID.
// When c has no connector the old one is kept.
func (l *List) Replace(id string, c Condition) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	c.ID = id
	if c.Connector == ConnectorNone {
		c.Connector = l.items[i].Connector
	}
	l.items[i] = c
	l.Normalize()
	return true
}

// SetConnector changes how the condition joins its predecessor. The first
// condition never has a connector.
func (l *List) SetConnector(id string, conn Connector) error {
	i := l.index(id)
	if i < 0 {
		return fmt.Errorf("condition %q not found", id)
	}
	if conn != ConnectorAnd && conn != ConnectorOr {
		return fmt.Errorf("%w: %q", ErrInvalidConnector, conn)
	}
	if i == 0 {
		return fmt.Errorf("%w: the first condition has no connector", ErrInvalidConnector)
	}
	l.items[i].Connector = conn
	return nil
}

// Set replaces the whole list.
func (l *List) Set(cs []Condition) {
	l.items = append(l.items[:0:0], cs...)
	l.Normalize()
}

// Clear removes every condition.
func (l *List) Clear() { l.items = nil }

// Normalize re-establishes the connector invariant.
func (l *List) Normalize() {
	for i := range l.items {
		switch {
		case i == 0:
			l.items[i].Connector = ConnectorNone
		case l.items[i].Connector == ConnectorNone:
			l.items[i].Connector = ConnectorAnd
		}
	}
}

// Validate checks the connector invariant without changing the list.
func (l *List) Validate() error {
	for i, c := range l.items {
		if i == 0 && c.Connector != ConnectorNone {
			return fmt.Errorf("%w: first condition has connector %q", ErrInvalidConnector, c.Connector)
		}
		if i > 0 && c.Connector != ConnectorAnd && c.Connector != ConnectorOr {
			return fmt.Errorf("%w: condition %d has connector %q", ErrInvalidConnector, i, c.Connector)
		}
	}
	return nil
}

func (l *List) index(id string) int {
	for i, c := range l.items {
		if c.ID == id {
			return i
		}
	}
	return -1
}
