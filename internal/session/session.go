// Package session owns the state of one interactive user session: the
// result ledgers and the current input values of every formula the
// user has opened.
package session

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/cmcc2001/quexian/internal/engine"
	"github.com/cmcc2001/quexian/internal/formula"
	"github.com/cmcc2001/quexian/internal/ledger"
	"github.com/google/uuid"
)

// Session is isolated per user; sessions never share ledgers.
type Session struct {
	ID      string
	Started time.Time

	ledgers   *ledger.Store
	inputs    map[string]*engine.Collector
	evaluator *engine.Evaluator
	logger    *log.Logger
}

// New opens a session with empty ledgers.
func New(logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	store := ledger.NewStore()
	s := &Session{
		ID:        uuid.NewString(),
		Started:   time.Now(),
		ledgers:   store,
		inputs:    make(map[string]*engine.Collector),
		evaluator: engine.NewEvaluator(store, logger),
		logger:    logger,
	}
	logger.Debug("session opened", "id", s.ID)
	return s
}

// Inputs returns the collector holding the current inputs for def,
// creating it at the declared defaults on first use.
func (s *Session) Inputs(def formula.Definition) *engine.Collector {
	c, ok := s.inputs[def.TableID]
	if !ok {
		c = engine.NewCollector(def)
		s.inputs[def.TableID] = c
	}
	return c
}

// Ledger returns def's ledger, creating it empty on first use.
func (s *Session) Ledger(def formula.Definition) *ledger.Ledger {
	return s.ledgers.For(def)
}

// Lookup returns the ledger with the given table identity if this
// session has opened it.
func (s *Session) Lookup(tableID string) (*ledger.Ledger, bool) {
	return s.ledgers.Lookup(tableID)
}

// Tables lists the identities of the ledgers opened so far.
func (s *Session) Tables() []string {
	return s.ledgers.Tables()
}

// Calculate snapshots def's current inputs and evaluates them,
// appending the result to def's ledger on success.
func (s *Session) Calculate(def formula.Definition) (ledger.Row, error) {
	s.Ledger(def)
	return s.evaluator.Evaluate(def, s.Inputs(def).Snapshot())
}

// Close discards every ledger and input.
func (s *Session) Close() {
	s.ledgers.Reset()
	s.inputs = make(map[string]*engine.Collector)
	s.logger.Debug("session closed", "id", s.ID, "duration", time.Since(s.Started))
}
