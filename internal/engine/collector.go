package engine

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cmcc2001/quexian/internal/formula"
)

// ParseNumber parses user-entered text as a finite float64. Leading
// and trailing space is ignored; scientific notation is accepted.
// field names the input in the returned *MalformedInputError.
func ParseNumber(field, text string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, &MalformedInputError{Field: field, Text: text, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &MalformedInputError{Field: field, Text: text, Err: errNotFinite}
	}
	return v, nil
}

var errNotFinite = errors.New("value is not finite")

// Collector holds the current value of every input declared by one
// definition. Values start at their declared defaults.
type Collector struct {
	def    formula.Definition
	values formula.Values
}

// NewCollector creates a collector for def's inputs.
func NewCollector(def formula.Definition) *Collector {
	return &Collector{def: def, values: def.Defaults()}
}

// Definition returns the definition whose inputs are collected.
func (c *Collector) Definition() formula.Definition {
	return c.def
}

// Set parses text and stores it for key. Malformed text returns a
// *MalformedInputError and leaves the previous value in place.
func (c *Collector) Set(key, text string) error {
	spec, ok := c.def.Input(key)
	if !ok {
		return fmt.Errorf("%s has no input %q", c.def.TableID, key)
	}
	v, err := ParseNumber(spec.Label, text)
	if err != nil {
		return err
	}
	c.values[key] = v
	return nil
}

// SetValue stores v for key.
func (c *Collector) SetValue(key string, v float64) error {
	if _, ok := c.def.Input(key); !ok {
		return fmt.Errorf("%s has no input %q", c.def.TableID, key)
	}
	c.values[key] = v
	return nil
}

// Value returns the current value for key.
func (c *Collector) Value(key string) float64 {
	return c.values[key]
}

// Text returns the current value for key rendered with the input's
// display format.
func (c *Collector) Text(key string) string {
	spec, _ := c.def.Input(key)
	return spec.FormatValue(c.values[key])
}

// Reset restores every input to its default.
func (c *Collector) Reset() {
	c.values = c.def.Defaults()
}

// Snapshot returns a copy of the current values with every declared
// key present.
func (c *Collector) Snapshot() formula.Values {
	out := make(formula.Values, len(c.def.Inputs))
	for _, in := range c.def.Inputs {
		out[in.Key] = c.values[in.Key]
	}
	return out
}
