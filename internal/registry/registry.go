// Package registry implements the variable registry (§4.D component D): the
// mapping from variable name to a stable index, a history factory, and the
// actors that receive it.
//
// The per-variable "who gets this history" test is intentionally a narrow
// func(*actor.Person) bool rather than the full context-aware predicate
// algebra: simcontext needs the registry (it is part of the immutable
// context), and predicate needs simcontext (VariableRange and Pregnancy look
// up variable indices by name). Routing the registry's own selection test
// through the predicate package would close that loop; an out-of-context,
// actor-only test is all a dispatcher ever needs.
package registry

import (
	"errors"
	"fmt"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/feature"
	"github.com/rilwen/microsimulation-sub000/internal/history"
)

// ErrEmptyName is a domain error: a variable name must be non-empty.
var ErrEmptyName = errors.New("registry: variable name must not be empty")

// ErrDuplicateName is a domain error: a variable name was registered twice.
var ErrDuplicateName = errors.New("registry: variable already registered")

// ErrUnknownVariable is a domain error: a lookup by name found nothing.
var ErrUnknownVariable = errors.New("registry: unknown variable")

// ErrFrozen is a logic error: a registration was attempted after Freeze.
var ErrFrozen = errors.New("registry: registry is frozen")

// ErrOutOfRange is an out-of-range error for index lookups.
var ErrOutOfRange = errors.New("registry: variable index out of range")

// VarIndex is a stable, dense slot index into a Person's history vector.
type VarIndex int

// Select reports whether an actor is eligible to receive a given variable's
// history, independent of simulation context.
type Select func(p *actor.Person) bool

// AlwaysSelect accepts every actor.
func AlwaysSelect(*actor.Person) bool { return true }

// variable bundles everything the registry knows about one slot.
type variable struct {
	name     string
	factory  history.Factory
	selects  Select
	provides []feature.Feature
	requires []feature.Feature
}

// Registry maps variable names to stable indices and builds each actor's
// history vector on demand.
type Registry struct {
	byName []variable
	index  map[string]VarIndex
	frozen bool
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{index: make(map[string]VarIndex)}
}

// Register adds a variable with a custom eligibility test. Returns the
// variable's stable index.
func (r *Registry) Register(name string, factory history.Factory, sel Select, provides, requires []feature.Feature) (VarIndex, error) {
	if r.frozen {
		return 0, ErrFrozen
	}
	if name == "" {
		return 0, ErrEmptyName
	}
	if _, exists := r.index[name]; exists {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	if sel == nil {
		sel = AlwaysSelect
	}
	idx := VarIndex(len(r.byName))
	r.byName = append(r.byName, variable{name: name, factory: factory, selects: sel, provides: provides, requires: requires})
	r.index[name] = idx
	return idx, nil
}

// RegisterCommon adds a variable every actor receives.
func (r *Registry) RegisterCommon(name string, factory history.Factory, provides, requires []feature.Feature) (VarIndex, error) {
	return r.Register(name, factory, AlwaysSelect, provides, requires)
}

// Freeze prevents further registration, matching the contract that the
// variable set is fixed before the simulation loop begins.
func (r *Registry) Freeze() { r.frozen = true }

// NbrVariables returns the number of registered variables.
func (r *Registry) NbrVariables() int { return len(r.byName) }

// VariableName returns the name of the idx'th variable.
func (r *Registry) VariableName(idx VarIndex) (string, error) {
	if idx < 0 || int(idx) >= len(r.byName) {
		return "", fmt.Errorf("%w: %d", ErrOutOfRange, idx)
	}
	return r.byName[idx].name, nil
}

// HasVariable reports whether name is registered.
func (r *Registry) HasVariable(name string) bool {
	_, ok := r.index[name]
	return ok
}

// VariableIndex returns the stable index of a registered variable.
func (r *Registry) VariableIndex(name string) (VarIndex, error) {
	idx, ok := r.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownVariable, name)
	}
	return idx, nil
}

// ProvidesRequires returns the declared provided/required feature tags of the
// idx'th variable's owning operator wiring, for scheduler bookkeeping that
// treats variable generation itself as a feature producer.
func (r *Registry) ProvidesRequires(idx VarIndex) (provides, requires []feature.Feature, err error) {
	if idx < 0 || int(idx) >= len(r.byName) {
		return nil, nil, fmt.Errorf("%w: %d", ErrOutOfRange, idx)
	}
	v := r.byName[idx]
	return v.provides, v.requires, nil
}

// MakeHistories builds the full history vector for p: every registered
// variable whose Select accepts p gets a fresh History from its Factory; all
// others get a nil slot.
func (r *Registry) MakeHistories(p *actor.Person) []history.History {
	hv := make([]history.History, len(r.byName))
	for i, v := range r.byName {
		if v.selects(p) {
			hv[i] = v.factory()
		}
	}
	return hv
}

// InstallHistories builds and installs the history vector for p in place.
func (r *Registry) InstallHistories(p *actor.Person) {
	for i, v := range r.byName {
		if v.selects(p) {
			p.SetHistory(i, v.factory())
		}
	}
}
