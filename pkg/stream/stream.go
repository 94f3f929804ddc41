// Package stream implements CloudLens's pull-based pipeline: a Stream
// holds a mutable reference to its current source, and registering a
// stage replaces that source with a layered source closing over the
// prior one. Nothing pulls a value until Run is called.
//
// The layering and draining loops are modeled on the retry loop shape
// the reference architecture uses to drive an external command to
// completion one attempt at a time (successive pulls, a private
// termination condition, no concurrency); file-backed source lifecycle
// (open at construction, lazy line-by-line read, close-on-exhaustion)
// is grounded on the reference architecture's own open/defer-close
// database handle. See DESIGN.md.
package stream

import (
	"bufio"
	"fmt"
	"os"

	"github.com/cloudlens/cloudlens/pkg/pattern"
	"github.com/cloudlens/cloudlens/pkg/stage"
	"github.com/cloudlens/cloudlens/pkg/value"
)

// PullFunc is a single-pass stateful pull function: each call returns
// the next value and true, or a meaningless value and false once the
// source is permanently exhausted.
type PullFunc func() (value.Value, bool)

// Stream holds a mutable reference to its current source.
type Stream struct {
	source PullFunc
}

// New builds a stream over an in-memory ordered sequence of values.
func New(values ...value.Value) *Stream {
	cp := make([]value.Value, len(values))
	copy(cp, values)
	i := 0
	return &Stream{source: func() (value.Value, bool) {
		if i >= len(cp) {
			return value.Value{}, false
		}
		v := cp[i]
		i++
		return v, true
	}}
}

// NewFromMessages builds a stream from an ordered sequence of strings;
// each string m becomes the record {"message": m}.
func NewFromMessages(messages ...string) *Stream {
	values := make([]value.Value, len(messages))
	for i, m := range messages {
		rec := value.NewObject()
		_ = rec.SetField("message", value.NewString(m))
		values[i] = rec
	}
	return New(values...)
}

// NewFromFunc builds a stream over an arbitrary user pull function.
func NewFromFunc(fn PullFunc) *Stream {
	return &Stream{source: fn}
}

// NewFromTextFile builds a stream over a line-oriented text file: each
// line, trimmed of its trailing line ending, becomes {"message": line}.
// The file is opened immediately (construction-time errors are
// fail-fast) but read lazily, one line per pull, and closed once the
// scanner reaches EOF.
func NewFromTextFile(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &SourceOpenError{Path: path, Cause: err}
	}

	scanner := bufio.NewScanner(f)
	closed := false

	return &Stream{source: func() (value.Value, bool) {
		if closed {
			return value.Value{}, false
		}
		if scanner.Scan() {
			rec := value.NewObject()
			_ = rec.SetField("message", value.NewString(scanner.Text()))
			return rec, true
		}
		closed = true
		f.Close()
		return value.Value{}, false
	}}, nil
}

// NewFromJSONFile builds a stream over a JSON-encoded file: if the
// root is an array, its elements become the stream; otherwise the
// stream holds the single root value. The whole file is read and
// parsed at construction time, so a malformed file fails fast instead
// of partway through a run.
func NewFromJSONFile(path string) (*Stream, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &SourceOpenError{Path: path, Cause: err}
	}

	root, err := value.FromJSON(data)
	if err != nil {
		return nil, &SourceOpenError{Path: path, Cause: err}
	}

	var values []value.Value
	if root.Kind() == value.Array {
		values, _ = root.AsArray()
	} else {
		values = []value.Value{root}
	}
	return New(values...), nil
}

// Next pulls the next value directly from the current source. Run is
// the normal way to drive a Stream; Next is exposed for callers that
// drain a stream by hand, such as cmd/cloudlens and tests.
func (s *Stream) Next() (value.Value, bool) {
	return s.source()
}

// Process appends an unconditional stage: action runs on every record
// that reaches this layer.
func (s *Stream) Process(action stage.Action) *Stream {
	return s.layer(stage.NewPlain(action))
}

// ProcessOptions configures a guarded or deferred stage registered via
// ProcessOn.
type ProcessOptions struct {
	// Key is the guard path. Leave HasKey false to mean "no explicit
	// key"; if Pattern is non-empty the key then defaults to
	// value.MessageKey, matching the engine's implicit-key rule.
	Key    value.Path
	HasKey bool

	// AtEnd registers a deferred stage instead of a per-record one;
	// Key, HasKey, Pattern, and CaseInsensitive are ignored. Setting Key
	// to value.EndOfStream with HasKey true has the same effect.
	AtEnd bool

	Pattern         string
	CaseInsensitive bool

	// Action is optional: nil means "apply captures only", leaving
	// pattern-matched records augmented in place with no further
	// mutation.
	Action stage.Action
}

// ProcessOn appends a guarded or deferred stage per opts. It returns an
// error only if opts.Pattern fails to compile, or if neither a key nor
// a pattern was supplied for a non-deferred stage.
func (s *Stream) ProcessOn(opts ProcessOptions) (*Stream, error) {
	if opts.AtEnd || (opts.HasKey && opts.Key.IsEndOfStream()) {
		return s.layerAtEnd(stage.NewAtEnd(opts.Action)), nil
	}

	var compiled *pattern.Compiled
	if opts.Pattern != "" {
		c, err := pattern.Compile(opts.Pattern, opts.CaseInsensitive)
		if err != nil {
			return nil, err
		}
		compiled = c
	}

	key := opts.Key
	if !opts.HasKey {
		if opts.Pattern == "" {
			return nil, fmt.Errorf("stream: ProcessOn requires a key, a pattern, or AtEnd")
		}
		key = value.MessageKey
	}

	return s.layer(stage.NewGuarded(key, compiled, opts.Action)), nil
}

// ProcessKey appends a stage guarded only by key, with no pattern.
func (s *Stream) ProcessKey(key value.Path, action stage.Action) *Stream {
	st, _ := s.ProcessOn(ProcessOptions{Key: key, HasKey: true, Action: action})
	return st
}

// ProcessPattern appends a stage guarded by patternSrc at the implicit
// message key.
func (s *Stream) ProcessPattern(patternSrc string, action stage.Action) (*Stream, error) {
	return s.ProcessOn(ProcessOptions{Pattern: patternSrc, Action: action})
}

// ProcessAtEnd appends a deferred stage that fires exactly once after
// the source this Stream currently wraps is exhausted.
func (s *Stream) ProcessAtEnd(action stage.Action) *Stream {
	st, _ := s.ProcessOn(ProcessOptions{AtEnd: true, Action: action})
	return st
}

// layer installs a new source that drives st over the current source.
// For each upstream record: if the guard passes, captures are applied
// and the action runs; a record the action nulls out is suppressed; a
// record carrying the expansion marker is replaced by its children,
// which are served one at a time ahead of the next upstream pull and
// do not re-enter st.
func (s *Stream) layer(st stage.Stage) *Stream {
	upstream := s.source
	var pending []value.Value

	next := func() (value.Value, bool) {
		for {
			if len(pending) > 0 {
				v := pending[0]
				pending = pending[1:]
				return v, true
			}

			v, ok := upstream()
			if !ok {
				return value.Value{}, false
			}

			if _, err := stage.Apply(st, &v); err != nil {
				// A structural mutation failure (e.g. an action
				// writing through an incompatible path) drops the
				// record rather than propagating, since pulls have no
				// error channel; per-record capture failures are
				// already silent inside stage.Apply.
				continue
			}

			if v.IsNull() {
				continue
			}

			if children, expanded := takeExpansion(v); expanded {
				pending = append(pending, children...)
				continue
			}

			return v, true
		}
	}

	return &Stream{source: next}
}

// layerAtEnd installs the deferred-stage source described in the
// engine's end-of-stream contract: records pass through verbatim until
// upstream is exhausted, then st's action runs once against a scratch
// record seeded as null, and whatever it leaves behind (possibly
// expanded into many, possibly nothing) becomes the tail of the
// stream.
func (s *Stream) layerAtEnd(st stage.Stage) *Stream {
	upstream := s.source
	drained := false
	var pending []value.Value

	next := func() (value.Value, bool) {
		for {
			if !drained {
				if v, ok := upstream(); ok {
					return v, true
				}
				drained = true

				scratch := value.NewNull()
				stage.Apply(st, &scratch)

				if !scratch.IsNull() {
					if children, expanded := takeExpansion(scratch); expanded {
						pending = append(pending, children...)
					} else {
						pending = append(pending, scratch)
					}
				}
				continue
			}

			if len(pending) > 0 {
				v := pending[0]
				pending = pending[1:]
				return v, true
			}
			return value.Value{}, false
		}
	}

	return &Stream{source: next}
}

// Run drains the current source. With withHistory, the drained values
// are buffered and installed as the new source, so any stage
// registered afterward layers on top of that replay rather than the
// original source; without it, the source is replaced with one that is
// already exhausted. Run is the only operation that performs work —
// registering stages is pure bookkeeping.
func (s *Stream) Run(withHistory bool) *Stream {
	var buf []value.Value
	for {
		v, ok := s.source()
		if !ok {
			break
		}
		if withHistory {
			buf = append(buf, v)
		}
	}

	if !withHistory {
		s.source = func() (value.Value, bool) { return value.Value{}, false }
		return s
	}

	i := 0
	s.source = func() (value.Value, bool) {
		if i >= len(buf) {
			return value.Value{}, false
		}
		v := buf[i]
		i++
		return v, true
	}
	return s
}

// expansionKey is the reserved field identifying an expansion wrapper.
// It is two Private Use Area code points, chosen to be vanishingly
// unlikely to appear in real user data.
const expansionKey = "\uE000\uE001"

// Emit produces a value that, when assigned to the current record
// inside a stage action, replaces that record with the members of
// values, in order, as independent successor records.
func Emit(values ...value.Value) value.Value {
	wrapper := value.NewObject()
	_ = wrapper.SetField(expansionKey, value.NewArray(values...))
	return wrapper
}

func takeExpansion(v value.Value) ([]value.Value, bool) {
	if v.Kind() != value.Object {
		return nil, false
	}
	marker, ok := v.Field(expansionKey)
	if !ok {
		return nil, false
	}
	children, _ := marker.AsArray()
	return children, true
}
