package stream

import "fmt"

// SourceOpenError reports that a file-backed source could not be
// opened or parsed. Like pattern compilation errors, this is a
// construction-time failure: cmd/cloudlens treats it as fatal rather
// than as a recoverable per-record condition.
type SourceOpenError struct {
	Path  string
	Cause error
}

func (e *SourceOpenError) Error() string {
	return fmt.Sprintf("stream: cannot open source %q: %v", e.Path, e.Cause)
}

func (e *SourceOpenError) Unwrap() error { return e.Cause }
