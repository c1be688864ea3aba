package path

import (
	"fmt"
	"strings"
)

// Parse parses a path string:
//
//	^users.42.name=alice$
//
// A leading '^' marks the path rooted, a trailing '$' terminal, and '=value'
// after the last label sets the leaf value. Labels are separated by '.', and
// a backslash escapes any of the characters . ^ $ = \ inside labels and
// values. The empty string is the empty path.
func Parse(s string) (*Path, error) {
	p := &Path{}
	rest := s
	if strings.HasPrefix(rest, "^") {
		p.rooted = true
		rest = rest[1:]
	}
	if strings.HasSuffix(rest, "$") && !escapedAt(rest, len(rest)-1) {
		p.terminal = true
		rest = rest[:len(rest)-1]
	}
	if rest == "" {
		return p, nil
	}

	var (
		cur     strings.Builder
		inValue bool
	)
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		switch {
		case c == '\\':
			if i+1 >= len(rest) {
				return nil, syntaxErrorf(s, "trailing backslash")
			}
			i++
			cur.WriteByte(rest[i])
		case c == '.' && !inValue:
			if cur.Len() == 0 {
				return nil, syntaxErrorf(s, "empty label at offset %d", i)
			}
			p.labels = append(p.labels, cur.String())
			cur.Reset()
		case c == '=' && !inValue:
			if cur.Len() == 0 {
				return nil, syntaxErrorf(s, "value without label at offset %d", i)
			}
			p.labels = append(p.labels, cur.String())
			cur.Reset()
			inValue = true
		case c == '^' || c == '$' || (inValue && (c == '.' || c == '=')):
			return nil, syntaxErrorf(s, "unexpected %q at offset %d", c, i)
		default:
			cur.WriteByte(c)
		}
	}

	if inValue {
		p.value = cur.String()
		p.hasValue = true
		return p, nil
	}
	if cur.Len() == 0 {
		return nil, syntaxErrorf(s, "empty label at end")
	}
	p.labels = append(p.labels, cur.String())
	return p, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) *Path {
	p, err := Parse(s)
	if err != nil {
		panic("path: Parse(`" + s + "`): " + err.Error())
	}
	return p
}

func syntaxErrorf(s, format string, args ...any) error {
	return fmt.Errorf("%w: %q: %s", ErrSyntax, s, fmt.Sprintf(format, args...))
}

// escapedAt reports whether the byte at i is preceded by an odd number of backslashes.
func escapedAt(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}
