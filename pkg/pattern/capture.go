package pattern

import (
	"strconv"
	"time"

	"github.com/cloudlens/cloudlens/pkg/value"
)

// ApplyCaptures matches s against the pattern and, on a match, writes
// each declared capture into rec under a same-named top-level field.
// It reports whether the pattern matched at all; rec is left untouched
// when it did not.
//
// A declared group that did not participate in the match (e.g. the
// losing side of an alternation) removes any existing field of that
// name instead of writing one.
//
// For Number and Date captures, the raw text is parsed first and the
// field is written only if parsing succeeds; on a parse failure the
// field is left exactly as it was before the match, so a failed
// conversion never leaves the field half-written.
func ApplyCaptures(c *Compiled, s string, rec *value.Value) (bool, error) {
	match, ok := c.findCaptures(s)
	if !ok {
		return false, nil
	}

	for i, capture := range c.captures {
		path := value.FieldPath(capture.Name)

		if !match.present[i] {
			path.Remove(rec)
			continue
		}

		text := match.text[i]
		switch capture.Type {
		case TypeString:
			if err := path.Set(rec, value.NewString(text)); err != nil {
				return true, err
			}
		case TypeNumber:
			n, err := strconv.ParseFloat(text, 64)
			if err != nil {
				continue // parse failed: leave the prior value untouched
			}
			if err := path.Set(rec, value.NewNumber(n)); err != nil {
				return true, err
			}
		case TypeDate:
			layout, err := translateDateFormat(capture.Format)
			if err != nil {
				return true, err
			}
			t, err := time.Parse(layout, text)
			if err != nil {
				continue // parse failed: leave the prior value untouched
			}
			seconds := float64(t.UnixNano()) / 1e9
			if err := path.Set(rec, value.NewNumber(seconds)); err != nil {
				return true, err
			}
		}
	}

	return true, nil
}
