package pattern

import (
	"fmt"
	"strings"
)

// translateDateFormat rewrites an ICU/SimpleDateFormat-style pattern
// (e.g. "yyyy-MM-dd' 'HH:mm:ss.SSS") into a Go reference-time layout
// string (e.g. "2006-01-02 15:04:05.000"). Single-quoted spans are
// taken as literal text, and '' is a literal single quote.
//
// No date-pattern library in the retrieved example pack has an actual
// call site for this kind of translation (see DESIGN.md), so it is
// hand-rolled against the handful of tokens named-capture date formats
// actually need.
func translateDateFormat(format string) (string, error) {
	var out strings.Builder
	runes := []rune(format)
	i := 0
	for i < len(runes) {
		c := runes[i]
		switch {
		case c == '\'':
			i++
			if i < len(runes) && runes[i] == '\'' {
				out.WriteByte('\'')
				i++
				continue
			}
			start := i
			for i < len(runes) && runes[i] != '\'' {
				i++
			}
			if i >= len(runes) {
				return "", fmt.Errorf("pattern: unterminated quoted literal in date format %q", format)
			}
			out.WriteString(string(runes[start:i]))
			i++ // skip closing quote
		case isDateToken(c):
			j := i
			for j < len(runes) && runes[j] == c {
				j++
			}
			token, err := goDateToken(c, j-i)
			if err != nil {
				return "", fmt.Errorf("pattern: %w in date format %q", err, format)
			}
			out.WriteString(token)
			i = j
		default:
			out.WriteRune(c)
			i++
		}
	}
	return out.String(), nil
}

func isDateToken(c rune) bool {
	switch c {
	case 'y', 'M', 'd', 'H', 'h', 'm', 's', 'S':
		return true
	default:
		return false
	}
}

func goDateToken(c rune, count int) (string, error) {
	switch c {
	case 'y':
		if count >= 4 {
			return "2006", nil
		}
		return "06", nil
	case 'M':
		if count >= 2 {
			return "01", nil
		}
		return "1", nil
	case 'd':
		if count >= 2 {
			return "02", nil
		}
		return "2", nil
	case 'H':
		return "15", nil
	case 'h':
		if count >= 2 {
			return "03", nil
		}
		return "3", nil
	case 'm':
		if count >= 2 {
			return "04", nil
		}
		return "4", nil
	case 's':
		if count >= 2 {
			return "05", nil
		}
		return "5", nil
	case 'S':
		return strings.Repeat("0", count), nil
	default:
		return "", fmt.Errorf("unsupported date format token %q", string(c))
	}
}
