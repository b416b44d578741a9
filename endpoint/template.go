package endpoint

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	limaerrors "github.com/kbukum/lima/errors"
)

// DefaultBrackets matches curly-brace placeholders such as {petId}.
const DefaultBrackets = `\{(.+?)\}`

// Template finds and substitutes placeholders in a raw path. The expression
// must have exactly one capture group naming the placeholder.
type Template struct {
	re *regexp.Regexp
}

// DefaultTemplate uses DefaultBrackets.
var DefaultTemplate = MustTemplate(DefaultBrackets)

// NewTemplate compiles a placeholder expression.
func NewTemplate(expr string) (*Template, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("endpoint: invalid placeholder expression: %w", err)
	}
	if re.NumSubexp() != 1 {
		return nil, fmt.Errorf("endpoint: placeholder expression %q must have exactly one capture group, has %d", expr, re.NumSubexp())
	}
	return &Template{re: re}, nil
}

// MustTemplate is like NewTemplate but panics on error.
func MustTemplate(expr string) *Template {
	t, err := NewTemplate(expr)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the placeholder expression.
func (t *Template) String() string { return t.re.String() }

// Placeholders returns the placeholder names in raw, in order of appearance.
func (t *Template) Placeholders(raw string) []string {
	matches := t.re.FindAllStringSubmatch(raw, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// Resolve substitutes every placeholder with its path-escaped value. A
// placeholder without a value is a binding error.
func (t *Template) Resolve(raw string, values map[string]string) (string, error) {
	var missing []string
	resolved := t.re.ReplaceAllStringFunc(raw, func(match string) string {
		name := t.re.FindStringSubmatch(match)[1]
		v, ok := values[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return url.PathEscape(v)
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", limaerrors.Binding("path parameters need to be defined: <%s>", strings.Join(missing, ","))
	}
	return resolved, nil
}
