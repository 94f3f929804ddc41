// Package pattern implements CloudLens's pattern sub-language: plain
// substring patterns, and regexes carrying named, typed capture-group
// declarations that automatically augment a record on match.
//
// The regex-with-named-capture extraction technique is adapted from
// the reference architecture's rate-limit field extraction
// (pkg/discovery/parser.go, pkg/discovery/enhanced_parser.go: compile
// a handful of regexes, pull named fields out of command output,
// convert numeric captures) and its case-insensitive pattern
// compilation (pkg/conditions/conditions.go: `"(?i)" + pattern`). See
// DESIGN.md for the full grounding.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// CaptureType is the declared type of a named capture.
type CaptureType int

const (
	TypeString CaptureType = iota
	TypeNumber
	TypeDate
)

func (t CaptureType) String() string {
	switch t {
	case TypeString:
		return "String"
	case TypeNumber:
		return "Number"
	case TypeDate:
		return "Date"
	default:
		return "Unknown"
	}
}

// Capture is a single declared capture descriptor.
type Capture struct {
	Name   string
	Type   CaptureType
	Format string // only meaningful, and required, when Type == TypeDate
}

// Kind identifies which of the three pattern shapes a Compiled pattern is.
type Kind int

const (
	KindEmpty Kind = iota
	KindSimple
	KindRegex
)

// Compiled is the result of compiling a user pattern.
type Compiled struct {
	kind     Kind
	source   string
	simple   string
	regex    *regexp.Regexp
	captures []Capture
}

// Kind reports which shape this compiled pattern is.
func (c *Compiled) Kind() Kind { return c.kind }

// Captures returns the declared capture descriptors in source order.
// It is empty for Empty and Simple patterns.
func (c *Compiled) Captures() []Capture { return c.captures }

// metaChars are the characters whose presence forces regex compilation
// rather than substring matching.
const metaChars = `*?+[](){}^$|\./`

// Compile compiles a user pattern string. An empty pattern yields
// KindEmpty. caseInsensitive prepends the reference architecture's own
// `(?i)` convention to regex patterns before compilation.
func Compile(src string, caseInsensitive bool) (*Compiled, error) {
	if src == "" {
		return &Compiled{kind: KindEmpty, source: src}, nil
	}

	if !strings.ContainsAny(src, metaChars) {
		return &Compiled{kind: KindSimple, source: src, simple: src}, nil
	}

	rewritten, captures, err := rewriteDeclarations(src)
	if err != nil {
		return nil, err
	}

	compiledSrc := rewritten
	if caseInsensitive {
		compiledSrc = "(?i)" + compiledSrc
	}

	re, err := regexp.Compile(compiledSrc)
	if err != nil {
		return nil, &InvalidPatternError{Pattern: src, Cause: err}
	}

	if re.NumSubexp() != len(captures) {
		return nil, &UnnamedGroupsError{Pattern: src, Declared: len(captures), Found: re.NumSubexp()}
	}

	return &Compiled{kind: KindRegex, source: src, regex: re, captures: captures}, nil
}

// Matches reports whether s satisfies the pattern: always true for
// Empty, substring containment for Simple, and a first-match regex
// search for Regex.
func (c *Compiled) Matches(s string) bool {
	switch c.kind {
	case KindEmpty:
		return true
	case KindSimple:
		return strings.Contains(s, c.simple)
	case KindRegex:
		return c.regex.MatchString(s)
	default:
		return false
	}
}

// captureMatch is the outcome of matching a Regex pattern against a
// string: for each declared capture, whether the corresponding group
// participated in the match and, if so, its substring.
type captureMatch struct {
	present []bool
	text    []string
}

// findCaptures runs the first match only and reports each declared
// capture's participation and text. It returns ok=false if the pattern
// did not match or is not a Regex pattern.
func (c *Compiled) findCaptures(s string) (captureMatch, bool) {
	if c.kind != KindRegex {
		return captureMatch{}, false
	}
	idx := c.regex.FindStringSubmatchIndex(s)
	if idx == nil {
		return captureMatch{}, false
	}
	n := len(c.captures)
	present := make([]bool, n)
	text := make([]string, n)
	for i := 0; i < n; i++ {
		start, end := idx[2*(i+1)], idx[2*(i+1)+1]
		if start == -1 {
			continue
		}
		present[i] = true
		text[i] = s[start:end]
	}
	return captureMatch{present: present, text: text}, true
}

// rewriteDeclarations scans src for "(?<NAME[:TYPE[[FORMAT]]]>BODY)"
// declarations, rewrites each to an anonymous group "(BODY)", and
// returns the rewritten pattern plus the declared captures in source
// order. It recurses into each declaration's body so nested
// declarations are also collected, in the order their headers appear.
func rewriteDeclarations(src string) (string, []Capture, error) {
	var out strings.Builder
	var captures []Capture

	runes := []rune(src)
	i := 0
	for i < len(runes) {
		if runes[i] == '\\' && i+1 < len(runes) {
			out.WriteRune(runes[i])
			out.WriteRune(runes[i+1])
			i += 2
			continue
		}

		if startsDeclaration(runes, i) {
			headerStart := i + 3 // past "(?<"
			headerEnd := indexUnescaped(runes, headerStart, '>')
			if headerEnd == -1 {
				return "", nil, &InvalidDeclarationError{
					Pattern: src,
					Reason:  "unterminated capture declaration (no closing '>')",
				}
			}
			header := string(runes[headerStart:headerEnd])
			capture, err := parseHeader(src, header)
			if err != nil {
				return "", nil, err
			}

			bodyStart := headerEnd + 1
			bodyEnd, err := matchingParen(runes, bodyStart, src)
			if err != nil {
				return "", nil, err
			}
			body := string(runes[bodyStart:bodyEnd])

			rewrittenBody, nested, err := rewriteDeclarations(body)
			if err != nil {
				return "", nil, err
			}

			captures = append(captures, capture)
			captures = append(captures, nested...)

			out.WriteByte('(')
			out.WriteString(rewrittenBody)
			out.WriteByte(')')

			i = bodyEnd + 1
			continue
		}

		out.WriteRune(runes[i])
		i++
	}

	return out.String(), captures, nil
}

func startsDeclaration(runes []rune, i int) bool {
	return i+2 < len(runes) && runes[i] == '(' && runes[i+1] == '?' && runes[i+2] == '<'
}

func indexUnescaped(runes []rune, from int, target rune) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == '\\' {
			i++
			continue
		}
		if runes[i] == target {
			return i
		}
	}
	return -1
}

// matchingParen returns the index of the ')' that closes the '(' found
// at the declaration's start, given that bodyStart already points just
// past the declaration header's '>'. Depth starts at 1 to account for
// that opening '('.
func matchingParen(runes []rune, bodyStart int, src string) (int, error) {
	depth := 1
	i := bodyStart
	for i < len(runes) {
		switch runes[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
		i++
	}
	return -1, &InvalidDeclarationError{Pattern: src, Reason: "unterminated capture group (no matching ')')"}
}

var nameRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)

// parseHeader parses "NAME", "NAME:TYPE", or "NAME:TYPE[FORMAT]" into a
// Capture descriptor.
func parseHeader(src, header string) (Capture, error) {
	name := header
	typeStr := ""
	if idx := strings.IndexByte(header, ':'); idx != -1 {
		name = header[:idx]
		typeStr = header[idx+1:]
	}

	if !nameRE.MatchString(name) {
		return Capture{}, &InvalidDeclarationError{
			Pattern:     src,
			Declaration: header,
			Reason:      fmt.Sprintf("capture name %q must match [A-Za-z][A-Za-z0-9]*", name),
		}
	}

	capture := Capture{Name: name, Type: TypeString}
	if typeStr == "" {
		return capture, nil
	}

	format := ""
	typeName := typeStr
	if bracket := strings.IndexByte(typeStr, '['); bracket != -1 {
		if !strings.HasSuffix(typeStr, "]") {
			return Capture{}, &InvalidDeclarationError{
				Pattern:     src,
				Declaration: header,
				Reason:      "unterminated format specifier (missing ']')",
			}
		}
		typeName = typeStr[:bracket]
		format = typeStr[bracket+1 : len(typeStr)-1]
	}

	switch typeName {
	case "String":
		capture.Type = TypeString
	case "Number":
		capture.Type = TypeNumber
	case "Date":
		capture.Type = TypeDate
		if format == "" {
			return Capture{}, &InvalidDeclarationError{
				Pattern:     src,
				Declaration: header,
				Reason:      "Date captures require a format, e.g. Date[yyyy-MM-dd]",
			}
		}
		if _, err := translateDateFormat(format); err != nil {
			return Capture{}, &InvalidDeclarationError{
				Pattern:     src,
				Declaration: header,
				Reason:      err.Error(),
			}
		}
		capture.Format = format
	default:
		return Capture{}, &InvalidDeclarationError{
			Pattern:     src,
			Declaration: header,
			Reason:      fmt.Sprintf("unknown capture type %q (want String, Number, or Date)", typeName),
		}
	}

	return capture, nil
}
