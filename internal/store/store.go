// Package store implements the name-keyed variable store. Every stored
// value and every name copy is counted against the allocation ledger, so
// a balanced ledger after Close is the proof that no operation leaked.
//
// The store is single-threaded by contract and must not be used after
// Close.
package store

import (
	"fmt"
	"sort"

	"github.com/roach88/stash/internal/alloc"
	"github.com/roach88/stash/internal/value"
)

// Access tags as they arrive over the boundary. Any tag other than
// AccessConst creates a mutable variable.
const (
	AccessConst = "const"
	AccessDynam = "dynam"
)

// Variable is one store entry. Const is fixed at creation; a const
// variable rejects Mod but is still released by Remove and Clear.
type Variable struct {
	Const bool
	Value value.Value
}

// Store maps owned name copies to variables. The table itself costs one
// ledger unit, drawn by New and returned by Close; each entry's name
// costs one more.
type Store struct {
	led  *alloc.Ledger
	vars map[string]Variable
}

// New draws the table unit and returns an empty store.
func New(led *alloc.Ledger) (*Store, error) {
	if err := led.Grab(1); err != nil {
		return nil, fmt.Errorf("store table: %w", err)
	}
	return &Store{led: led, vars: make(map[string]Variable)}, nil
}

// Make creates or overwrites the named variable from a scalar literal.
// The new value is constructed first; for a brand-new name the key copy
// is drawn next, and only when both exist is the prior value (if any)
// released and the entry inserted. A failed Make therefore leaves the
// store and the ledger exactly as they were. Make replaces const entries
// too; only Mod checks constness.
func (s *Store) Make(name, access, typeTag, literal string) error {
	v, err := parseLiteral(s.led, typeTag, literal)
	if err != nil {
		return fmt.Errorf("make %q: %w", name, err)
	}
	prior, exists := s.vars[name]
	if !exists {
		if err := s.led.Grab(1); err != nil {
			value.Release(s.led, v)
			return fmt.Errorf("make %q: name copy: %w", name, err)
		}
	} else {
		value.Release(s.led, prior.Value)
	}
	s.vars[name] = Variable{Const: access == AccessConst, Value: v}
	return nil
}

// Mod replaces the value of an existing mutable variable. The
// replacement is constructed before the old value is touched, so a Mod
// that fails for any reason leaves the old value live and readable.
func (s *Store) Mod(name, typeTag, literal string) error {
	cur, ok := s.vars[name]
	if !ok {
		return fmt.Errorf("mod %q: %w", name, ErrNotFound)
	}
	if cur.Const {
		return fmt.Errorf("mod %q: %w", name, ErrImmutable)
	}
	v, err := parseLiteral(s.led, typeTag, literal)
	if err != nil {
		return fmt.Errorf("mod %q: %w", name, err)
	}
	value.Release(s.led, cur.Value)
	cur.Value = v
	s.vars[name] = cur
	return nil
}

// Bind inserts an already-constructed value under name, transferring
// ownership. This is the only path by which arrays and objects enter the
// store. On failure Bind releases v, so ownership transfers on call
// regardless of outcome.
func (s *Store) Bind(name string, konst bool, v value.Value) error {
	prior, exists := s.vars[name]
	if !exists {
		if err := s.led.Grab(1); err != nil {
			value.Release(s.led, v)
			return fmt.Errorf("bind %q: name copy: %w", name, err)
		}
	} else {
		value.Release(s.led, prior.Value)
	}
	s.vars[name] = Variable{Const: konst, Value: v}
	return nil
}

// Remove releases the named variable's value and its name copy.
func (s *Store) Remove(name string) error {
	cur, ok := s.vars[name]
	if !ok {
		return fmt.Errorf("remove %q: %w", name, ErrNotFound)
	}
	value.Release(s.led, cur.Value)
	s.led.Put(1)
	delete(s.vars, name)
	return nil
}

// TypeOf reports the kind of the named variable.
func (s *Store) TypeOf(name string) (value.Kind, error) {
	cur, ok := s.vars[name]
	if !ok {
		return 0, fmt.Errorf("type of %q: %w", name, ErrNotFound)
	}
	return cur.Value.Kind(), nil
}

// Render writes the textual form of the named variable into dst and
// returns the byte count. When the rendering does not fit, it returns
// ErrShortBuffer and the contents of dst are unspecified.
func (s *Store) Render(name string, dst []byte) (int, error) {
	cur, ok := s.vars[name]
	if !ok {
		return 0, fmt.Errorf("render %q: %w", name, ErrNotFound)
	}
	text := value.AppendRender(nil, cur.Value)
	if len(text) > len(dst) {
		return 0, fmt.Errorf("render %q: need %d bytes, have %d: %w", name, len(text), len(dst), ErrShortBuffer)
	}
	return copy(dst, text), nil
}

// RenderString returns the textual form of the named variable without a
// caller buffer. Diagnostics and the REPL use it; the boundary goes
// through Render.
func (s *Store) RenderString(name string) (string, error) {
	cur, ok := s.vars[name]
	if !ok {
		return "", fmt.Errorf("render %q: %w", name, ErrNotFound)
	}
	return value.Render(cur.Value), nil
}

// Len reports the number of live variables.
func (s *Store) Len() int { return len(s.vars) }

// Names returns the live variable names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.vars))
	for name := range s.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear releases every entry, leaving an empty usable store.
func (s *Store) Clear() {
	for name, cur := range s.vars {
		value.Release(s.led, cur.Value)
		s.led.Put(1)
		delete(s.vars, name)
	}
}

// Close clears the store and returns the table unit. The store must not
// be used afterwards.
func (s *Store) Close() {
	if s.vars == nil {
		return
	}
	s.Clear()
	s.led.Put(1)
	s.vars = nil
}
