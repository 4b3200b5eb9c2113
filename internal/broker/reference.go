package broker

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Reference is a parsed object reference.
type Reference struct {
	Identity  string
	Transport string
	// Options holds any other "-flag value" pairs, keyed without the dash.
	Options map[string]string
}

// ParseReference parses a reference such as "DeviceManager -w ws".
// The identity may be double-quoted when it contains spaces.
func ParseReference(s string) (Reference, error) {
	tokens, err := tokenize(s)
	if err != nil {
		return Reference{}, err
	}
	if len(tokens) == 0 {
		return Reference{}, fmt.Errorf("%w: empty reference", ErrMalformedReference)
	}

	ref := Reference{
		Identity: tokens[0],
		Options:  make(map[string]string),
	}
	if ref.Identity == "" || strings.HasPrefix(ref.Identity, "-") {
		return Reference{}, fmt.Errorf("%w: missing identity", ErrMalformedReference)
	}

	rest := tokens[1:]
	for i := 0; i < len(rest); i += 2 {
		flag := rest[i]
		if !strings.HasPrefix(flag, "-") || len(flag) < 2 {
			return Reference{}, fmt.Errorf("%w: expected flag, got %q", ErrMalformedReference, flag)
		}
		if i+1 >= len(rest) {
			return Reference{}, fmt.Errorf("%w: flag %s has no value", ErrMalformedReference, flag)
		}
		key, value := flag[1:], rest[i+1]

		if key == "w" {
			if ref.Transport != "" {
				return Reference{}, fmt.Errorf("%w: transport given twice", ErrMalformedReference)
			}
			ref.Transport = value
			continue
		}
		if _, dup := ref.Options[key]; dup {
			return Reference{}, fmt.Errorf("%w: flag -%s given twice", ErrMalformedReference, key)
		}
		ref.Options[key] = value
	}

	if ref.Transport == "" {
		return Reference{}, fmt.Errorf("%w: no transport (-w)", ErrMalformedReference)
	}

	return ref, nil
}

// String renders the reference in canonical form.
// Options are written in key order after the transport.
func (r Reference) String() string {
	var sb strings.Builder

	sb.WriteString(quoteToken(r.Identity))
	sb.WriteString(" -w ")
	sb.WriteString(quoteToken(r.Transport))

	keys := make([]string, 0, len(r.Options))
	for k := range r.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " -%s %s", k, quoteToken(r.Options[k]))
	}

	return sb.String()
}

// quoteToken wraps s in double quotes when tokenize would otherwise split
// or alter it.
func quoteToken(s string) string {
	if s != "" && strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '"' || r == '\\'
	}) < 0 {
		return s
	}

	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('"')
	return sb.String()
}

// tokenize splits on whitespace, honoring double quotes. A backslash
// takes the next rune literally.
func tokenize(s string) ([]string, error) {
	var (
		tokens  []string
		current strings.Builder
		inQuote bool
		started bool
		escaped bool
	)

	for _, r := range s {
		switch {
		case escaped:
			current.WriteRune(r)
			started = true
			escaped = false
		case r == '\\':
			escaped = true
			started = true
		case r == '"':
			if inQuote {
				tokens = append(tokens, current.String())
				current.Reset()
				started = false
			}
			inQuote = !inQuote
		case unicode.IsSpace(r) && !inQuote:
			if started {
				tokens = append(tokens, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}

	if escaped {
		return nil, fmt.Errorf("%w: trailing backslash", ErrMalformedReference)
	}
	if inQuote {
		return nil, fmt.Errorf("%w: unterminated quote", ErrMalformedReference)
	}
	if started {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}
