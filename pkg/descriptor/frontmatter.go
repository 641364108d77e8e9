package descriptor

import (
	"fmt"
	"strings"
)

const fence = "---"

// Value is a frontmatter value: a scalar or a list of scalars.
type Value struct {
	Scalar string
	List   []string
	IsList bool
}

// Frontmatter is the parsed leading key/value block of a descriptor.
type Frontmatter map[string]Value

// String returns the scalar value of key, or "" if it is absent or a list.
func (f Frontmatter) String(key string) string {
	v, ok := f[key]
	if !ok || v.IsList {
		return ""
	}
	return v.Scalar
}

// List returns the list value of key. A non-empty scalar is returned as a
// one-element list.
func (f Frontmatter) List(key string) []string {
	v, ok := f[key]
	switch {
	case !ok:
		return nil
	case v.IsList:
		return v.List
	case v.Scalar != "":
		return []string{v.Scalar}
	default:
		return nil
	}
}

// ParseFrontmatter extracts and parses the block between a leading "---"
// line and the next "---" line. It reports found=false, with no error, when
// the content does not start with a fence.
//
// The block supports a restricted mapping:
//
//	name: pdf-tools                # scalar
//	description: "quoted scalar"   # surrounding quotes are stripped
//	triggers:                      # list of indented items
//	  - fill a form
//	  - 'merge pdfs'
//	tags: [pdf, documents]         # inline array
//
// Lines starting with "#" are comments. Indented lines that are not list
// items (nested mappings) are ignored. A top-level line without a colon is
// an error.
func ParseFrontmatter(content string) (fm Frontmatter, body string, found bool, err error) {
	text := strings.TrimLeft(content, "\ufeff \t\r\n")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != fence {
		return nil, content, false, nil
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == fence {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, content, true, fmt.Errorf("unterminated frontmatter: no closing %q", fence)
	}

	fm, err = parseBlock(lines[1:end])
	if err != nil {
		return nil, content, true, err
	}
	return fm, strings.Join(lines[end+1:], "\n"), true, nil
}

func parseBlock(lines []string) (Frontmatter, error) {
	fm := Frontmatter{}
	current := ""

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		indented := line[0] == ' ' || line[0] == '\t'

		if item, ok := listItem(trimmed); ok {
			if current == "" {
				return nil, fmt.Errorf("line %d: list item without a key", i+2)
			}
			v := fm[current]
			if !v.IsList {
				if v.Scalar != "" {
					// Scalar already set: the item does not belong to this key.
					continue
				}
				v = Value{IsList: true}
			}
			if item != "" {
				v.List = append(v.List, item)
			}
			fm[current] = v
			continue
		}
		if indented {
			continue
		}

		key, raw, ok := strings.Cut(trimmed, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("line %d: expected \"key: value\", got %q", i+2, trimmed)
		}
		current = key
		fm[key] = parseValue(strings.TrimSpace(raw))
	}
	return fm, nil
}

func listItem(trimmed string) (string, bool) {
	if trimmed == "-" {
		return "", true
	}
	if strings.HasPrefix(trimmed, "- ") {
		return unquote(strings.TrimSpace(trimmed[2:])), true
	}
	return "", false
}

func parseValue(raw string) Value {
	if raw == "" {
		return Value{}
	}
	if strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]") {
		v := Value{IsList: true}
		for _, part := range strings.Split(raw[1:len(raw)-1], ",") {
			if s := unquote(strings.TrimSpace(part)); s != "" {
				v.List = append(v.List, s)
			}
		}
		return v
	}
	return Value{Scalar: unquote(raw)}
}

func unquote(s string) string {
	if len(s) >= 2 {
		if q := s[0]; (q == '"' || q == '\'') && s[len(s)-1] == q {
			return s[1 : len(s)-1]
		}
	}
	return s
}
