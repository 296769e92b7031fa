// Package design turns configured urns into the conditions and trials a
// participant sees: which conditions they get, in what order, and with the
// urns laid out in which positions.
package design

import (
	"strings"

	"github.com/r3d91ll/urnlab/pkg/urn"
)

// Condition is a named group of urns shown together in one trial.
// Urns are kept in the order given; callers shuffle before construction.
type Condition struct {
	Name string     `json:"name"`
	Urns []*urn.Urn `json:"urns"`
}

// NewCondition creates a condition holding urns in the given order.
func NewCondition(name string, urns []*urn.Urn) *Condition {
	return &Condition{
		Name: name,
		Urns: append([]*urn.Urn(nil), urns...),
	}
}

// URNPositions returns the urn names in display order, space separated.
// This is what the ledger records as the layout the participant saw.
func (c *Condition) URNPositions() string {
	names := make([]string, len(c.Urns))
	for i, u := range c.Urns {
		names[i] = u.Name
	}
	return strings.Join(names, " ")
}

// Urn returns the urn with the given name, or nil.
func (c *Condition) Urn(name string) *urn.Urn {
	for _, u := range c.Urns {
		if u.Name == name {
			return u
		}
	}
	return nil
}

// Label returns the caption shown for the urn at position i: "Urn A", "Urn B", ...
func Label(i int) string {
	return "Urn " + Letter(i)
}

// Letter returns the single-letter key for position i (A..Z).
func Letter(i int) string {
	if i < 0 || i >= 26 {
		return "?"
	}
	return string(rune('A' + i))
}
