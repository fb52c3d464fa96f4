package ledger

import (
	"fmt"
	"slices"

	"github.com/cmcc2001/quexian/internal/formula"
)

// Store owns the ledgers of one session, keyed by table identity.
type Store struct {
	ledgers map[string]*Ledger
	order   []string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{ledgers: make(map[string]*Ledger)}
}

// For returns the ledger for def's table identity, creating it empty
// on first use. A table identity is bound to one column schema for the
// store's lifetime; reusing it with different columns panics.
func (s *Store) For(def formula.Definition) *Ledger {
	if l, ok := s.ledgers[def.TableID]; ok {
		if !slices.Equal(l.columns, def.Columns) {
			panic(fmt.Sprintf("ledger: table %s has columns %v, definition declares %v",
				def.TableID, l.columns, def.Columns))
		}
		return l
	}
	l := New(def.Columns)
	s.ledgers[def.TableID] = l
	s.order = append(s.order, def.TableID)
	return l
}

// Lookup returns the ledger for a table identity if it has been
// created.
func (s *Store) Lookup(tableID string) (*Ledger, bool) {
	l, ok := s.ledgers[tableID]
	return l, ok
}

// Tables returns the identities of every created ledger in creation
// order.
func (s *Store) Tables() []string {
	return slices.Clone(s.order)
}

// Reset drops every ledger.
func (s *Store) Reset() {
	s.ledgers = make(map[string]*Ledger)
	s.order = nil
}
