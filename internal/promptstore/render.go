package promptstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

/*
Render substitutes {{identifier}} tokens in template with values from rc.

Scanning rules:
  - An identifier is one or more ASCII letters, digits or underscores.
  - Tokens are found in a single left-to-right pass and never overlap.
    When a "{{" does not open a valid token, scanning resumes one byte
    later, so "{{{{x}}}}" yields "{{" + x + "}}".
  - Substituted text is written to the output and never re-scanned.

Substitution rules:
  - A string value is written verbatim.
  - Any other value is written as its JSON encoding (nil becomes null).
  - An identifier missing from rc leaves the token untouched.

Render is pure and safe for concurrent use.
*/
func Render(template string, rc RenderContext) string {
	var out strings.Builder
	out.Grow(len(template))

	copied := 0
	pos := 0
	for pos < len(template) {
		rel := strings.Index(template[pos:], openDelim)
		if rel < 0 {
			break
		}
		start := pos + rel

		nameStart := start + len(openDelim)
		nameEnd := nameStart
		for nameEnd < len(template) && isIdentByte(template[nameEnd]) {
			nameEnd++
		}

		if nameEnd == nameStart || !strings.HasPrefix(template[nameEnd:], closeDelim) {
			pos = start + 1
			continue
		}

		tokenEnd := nameEnd + len(closeDelim)
		if value, ok := rc[template[nameStart:nameEnd]]; ok {
			out.WriteString(template[copied:start])
			out.WriteString(stringify(value))
			copied = tokenEnd
		}
		pos = tokenEnd
	}

	out.WriteString(template[copied:])
	return out.String()
}

func isIdentByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return fmt.Sprint(value)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
