// Package stage defines the predicate+action unit a pipeline layers
// onto its source: an unconditional stage, a stage guarded by a key
// path and/or compiled pattern, and a deferred end-of-stream stage.
//
// Actions are realized as a mutable pointer into the current record,
// following the reference architecture's own inout idiom rather than a
// tagged return enum, for semantic parity with the pull protocol this
// mirrors (see DESIGN.md).
package stage

import (
	"github.com/cloudlens/cloudlens/pkg/pattern"
	"github.com/cloudlens/cloudlens/pkg/value"
)

// Action mutates the record it is given. Setting *rec to Null
// suppresses the record; setting *rec to an expansion-wrapped value
// (see pkg/stream.Emit) replaces it with multiple successors.
type Action func(rec *value.Value)

// Kind distinguishes the three stage variants.
type Kind int

const (
	KindPlain Kind = iota
	KindGuarded
	KindAtEnd
)

// Stage is an immutable, registered predicate+action. Construct one
// with NewPlain, NewGuarded, or NewAtEnd.
type Stage struct {
	kind    Kind
	key     value.Path
	pattern *pattern.Compiled
	action  Action
}

// NewPlain builds an unconditional stage: the action runs on every
// record.
func NewPlain(action Action) Stage {
	return Stage{kind: KindPlain, action: action}
}

// NewGuarded builds a stage that fires only when key exists in the
// record and, if compiled is non-nil, the string at key matches it.
// compiled may be nil to mean "key guard only, no pattern filtering".
func NewGuarded(key value.Path, compiled *pattern.Compiled, action Action) Stage {
	return Stage{kind: KindGuarded, key: key, pattern: compiled, action: action}
}

// NewAtEnd builds a deferred stage that fires exactly once, after the
// underlying source is exhausted.
func NewAtEnd(action Action) Stage {
	return Stage{kind: KindAtEnd, action: action}
}

// Kind reports which variant this stage is.
func (s Stage) Kind() Kind { return s.kind }

// Key returns the guard path for a Guarded stage. It is meaningless
// for Plain and AtEnd stages.
func (s Stage) Key() value.Path { return s.key }

// Pattern returns the compiled pattern for a Guarded stage, or nil if
// the stage has no pattern filter.
func (s Stage) Pattern() *pattern.Compiled { return s.pattern }

// Action returns the stage's action.
func (s Stage) Action() Action { return s.action }

// Apply evaluates the stage's guard against rec and, if it passes,
// applies any declared captures and runs the action. It reports
// whether the action ran, so callers can distinguish "bypassed" from
// "ran and kept the record unchanged".
//
// Apply never inspects the action's effect (suppression, expansion);
// that interpretation belongs to the layer driving the pull protocol,
// which alone knows how to requeue expanded children or skip a
// suppressed record.
func Apply(s Stage, rec *value.Value) (ran bool, err error) {
	switch s.kind {
	case KindPlain:
		if s.action != nil {
			s.action(rec)
		}
		return true, nil
	case KindGuarded:
		if !s.key.Exists(*rec) {
			return false, nil
		}
		if s.pattern != nil {
			text, ok := fieldText(*rec, s.key)
			if !ok {
				return false, nil
			}
			if s.pattern.Kind() == pattern.KindRegex {
				matched, err := pattern.ApplyCaptures(s.pattern, text, rec)
				if err != nil {
					return false, err
				}
				if !matched {
					return false, nil
				}
			} else if !s.pattern.Matches(text) {
				return false, nil
			}
		}
		if s.action != nil {
			s.action(rec)
		}
		return true, nil
	case KindAtEnd:
		if s.action != nil {
			s.action(rec)
		}
		return true, nil
	default:
		return false, nil
	}
}

// fieldText extracts the string a pattern is matched against: the
// value at key, rendered as its raw string payload if it is a String,
// or its canonical textual form otherwise.
func fieldText(rec value.Value, key value.Path) (string, bool) {
	v, ok := key.Get(rec)
	if !ok {
		return "", false
	}
	if s, isString := v.AsString(); isString {
		return s, true
	}
	return v.String(), true
}
