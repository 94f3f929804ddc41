package value

import "fmt"

// Step is one element of a Path: either a field name or an array index.
type Step struct {
	field   string
	index   int
	isIndex bool
}

// Field constructs a field-name step.
func Field(name string) Step { return Step{field: name} }

// Index constructs an array-index step.
func Index(i int) Step { return Step{index: i, isIndex: true} }

func (s Step) String() string {
	if s.isIndex {
		return fmt.Sprintf("[%d]", s.index)
	}
	return s.field
}

// Path is an ordered, non-empty sequence of Steps, or the distinguished
// EndOfStream sentinel, which is unequal to any real path.
type Path struct {
	steps       []Step
	endOfStream bool
}

// EndOfStream is the sentinel path used only to register deferred
// (end-of-stream) stages. It is never equal to a real path and can
// never be looked up in a Value.
var EndOfStream = Path{endOfStream: true}

// MessageKey is the well-known implicit key used when a pattern is
// given without an explicit key.
var MessageKey = NewPath(Field("message"))

// NewPath builds a path from one or more steps. NewPath panics if given
// zero steps: a Path is defined to be non-empty.
func NewPath(steps ...Step) Path {
	if len(steps) == 0 {
		panic("value: NewPath requires at least one step")
	}
	cp := make([]Step, len(steps))
	copy(cp, steps)
	return Path{steps: cp}
}

// FieldPath is a convenience constructor for a path made entirely of
// field-name steps, e.g. FieldPath("http", "status").
func FieldPath(names ...string) Path {
	steps := make([]Step, len(names))
	for i, n := range names {
		steps[i] = Field(n)
	}
	return NewPath(steps...)
}

// IsEndOfStream reports whether p is the END_OF_STREAM sentinel.
func (p Path) IsEndOfStream() bool { return p.endOfStream }

// Steps returns the path's steps in order. It returns nil for
// EndOfStream.
func (p Path) Steps() []Step { return p.steps }

func (p Path) String() string {
	if p.endOfStream {
		return "<end-of-stream>"
	}
	out := ""
	for i, s := range p.steps {
		if i > 0 && !s.isIndex {
			out += "."
		}
		out += s.String()
	}
	return out
}

// Exists reports whether the path resolves inside v: every prefix
// resolves and the final step is present.
func (p Path) Exists(v Value) bool {
	_, ok := p.Get(v)
	return ok
}

// Get resolves the path inside v, returning the value at the final step
// and whether it was present.
func (p Path) Get(v Value) (Value, bool) {
	if p.endOfStream || len(p.steps) == 0 {
		return Value{}, false
	}
	cur := v
	for _, step := range p.steps {
		next, ok := stepInto(cur, step)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

func stepInto(v Value, step Step) (Value, bool) {
	if step.isIndex {
		arr, ok := v.AsArray()
		if !ok || step.index < 0 || step.index >= len(arr) {
			return Value{}, false
		}
		return arr[step.index], true
	}
	return v.Field(step.field)
}

// Set writes newVal at the path inside v, creating intermediate objects
// for missing field steps (and growing arrays with Null padding for
// missing index steps) along the way. Set returns an error if an
// intermediate step resolves to a value that is neither an Object
// (for a field step) nor an Array (for an index step) and cannot be
// replaced in place because it already holds an incompatible non-null
// value.
func (p Path) Set(v *Value, newVal Value) error {
	if p.endOfStream || len(p.steps) == 0 {
		return fmt.Errorf("value: cannot Set at end-of-stream or empty path")
	}
	return setAt(v, p.steps, newVal)
}

func setAt(v *Value, steps []Step, newVal Value) error {
	step := steps[0]
	if len(steps) == 1 {
		return setLeaf(v, step, newVal)
	}

	child, err := ensureChild(v, step, steps[1])
	if err != nil {
		return err
	}
	if err := setAt(child, steps[1:], newVal); err != nil {
		return err
	}
	return writeChild(v, step, *child)
}

// ensureChild returns a pointer to a working copy of the child
// addressed by step, materializing an empty container of the kind the
// *next* step requires if the child is absent or Null.
func ensureChild(v *Value, step, nextStep Step) (*Value, error) {
	existing, ok := stepInto(*v, step)
	if ok && !existing.IsNull() {
		return &existing, nil
	}
	if nextStep.isIndex {
		empty := NewArray()
		return &empty, nil
	}
	empty := NewObject()
	return &empty, nil
}

func writeChild(v *Value, step Step, child Value) error {
	if step.isIndex {
		return setArrayIndex(v, step.index, child)
	}
	if v.kind == Null {
		*v = NewObject()
	}
	return v.SetField(step.field, child)
}

func setLeaf(v *Value, step Step, newVal Value) error {
	if step.isIndex {
		return setArrayIndex(v, step.index, newVal)
	}
	if v.kind == Null {
		*v = NewObject()
	}
	return v.SetField(step.field, newVal)
}

func setArrayIndex(v *Value, index int, newVal Value) error {
	if index < 0 {
		return fmt.Errorf("value: negative array index %d", index)
	}
	if v.kind == Null {
		*v = NewArray()
	}
	if v.kind != Array {
		return fmt.Errorf("value: cannot index into kind %s", v.kind)
	}
	for len(v.arr) <= index {
		v.arr = append(v.arr, NewNull())
	}
	v.arr[index] = newVal
	return nil
}

// Remove deletes the field addressed by the final step. It reports
// whether the field was present. The path's prefix must resolve to an
// Object; Remove is a no-op reporting false for any other shape
// (removal only applies to object fields, not array elements).
func (p Path) Remove(v *Value) bool {
	if p.endOfStream || len(p.steps) == 0 {
		return false
	}
	if len(p.steps) == 1 {
		step := p.steps[0]
		if step.isIndex {
			return false
		}
		return v.RemoveField(step.field)
	}
	parentPath := NewPath(p.steps[:len(p.steps)-1]...)
	parent, ok := parentPath.Get(*v)
	if !ok {
		return false
	}
	last := p.steps[len(p.steps)-1]
	if last.isIndex {
		return false
	}
	removed := parent.RemoveField(last.field)
	if removed {
		_ = parentPath.Set(v, parent)
	}
	return removed
}
