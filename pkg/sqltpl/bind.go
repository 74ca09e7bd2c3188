package sqltpl

import (
	"database/sql"
	"fmt"
	"strings"
)

// BindStyle selects the placeholder syntax a Statement is bound for. It
// must match what the target driver expects.
type BindStyle int

const (
	// BindNamed keeps ":name" placeholders and produces sql.Named
	// arguments. SQLite supports this natively.
	BindNamed BindStyle = iota
	// BindQuestion rewrites placeholders to "?" with positional arguments
	// (MySQL, SQLite).
	BindQuestion
	// BindDollar rewrites placeholders to "$1".."$n" (PostgreSQL).
	BindDollar
	// BindAt rewrites placeholders to "@p1".."@pn" (SQL Server).
	BindAt
)

// String returns the configuration name of the bind style.
func (s BindStyle) String() string {
	switch s {
	case BindNamed:
		return "named"
	case BindQuestion:
		return "question"
	case BindDollar:
		return "dollar"
	case BindAt:
		return "at"
	default:
		return fmt.Sprintf("BindStyle(%d)", int(s))
	}
}

// ParseBindStyle maps a configuration string onto a BindStyle.
func ParseBindStyle(s string) (BindStyle, error) {
	switch strings.ToLower(s) {
	case "named", "":
		return BindNamed, nil
	case "question", "?":
		return BindQuestion, nil
	case "dollar", "$":
		return BindDollar, nil
	case "at", "@":
		return BindAt, nil
	default:
		return 0, fmt.Errorf("unknown bind style %q", s)
	}
}

// Statement is the result of rendering a SQL template: the SQL text with
// ":name" placeholders and the final parameter map, including any
// parameters generated by bind calls and list expansion.
type Statement struct {
	Query  string
	Params map[string]any
}

// Bind converts the statement into a driver-ready query string and argument
// list for the given placeholder style. Placeholders inside string literals,
// quoted identifiers, comments, and "::" casts are left untouched. A
// placeholder without a matching parameter is an error; a repeated
// placeholder reuses its argument.
func (s Statement) Bind(style BindStyle) (string, []any, error) {
	var out strings.Builder
	out.Grow(len(s.Query))

	var args []any
	// name -> positional index (1-based) for the numbering styles, and a
	// dedup set for the named style.
	indexes := make(map[string]int)

	emit := func(name string) error {
		value, ok := s.Params[name]
		if !ok {
			return fmt.Errorf("missing bind parameter %q", name)
		}
		switch style {
		case BindNamed:
			out.WriteByte(':')
			out.WriteString(name)
			if _, seen := indexes[name]; !seen {
				indexes[name] = len(args) + 1
				args = append(args, sql.Named(name, value))
			}
		case BindQuestion:
			out.WriteByte('?')
			args = append(args, value)
		case BindDollar, BindAt:
			idx, seen := indexes[name]
			if !seen {
				args = append(args, value)
				idx = len(args)
				indexes[name] = idx
			}
			if style == BindDollar {
				fmt.Fprintf(&out, "$%d", idx)
			} else {
				fmt.Fprintf(&out, "@p%d", idx)
			}
		}
		return nil
	}

	q := s.Query
	for i := 0; i < len(q); {
		c := q[i]
		switch c {
		case '\'', '"':
			// Copy the quoted region verbatim; a doubled quote is an escape.
			quote := c
			out.WriteByte(c)
			i++
			for i < len(q) {
				out.WriteByte(q[i])
				if q[i] == quote {
					if i+1 < len(q) && q[i+1] == quote {
						out.WriteByte(q[i+1])
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
		case '-':
			if i+1 < len(q) && q[i+1] == '-' {
				end := strings.IndexByte(q[i:], '\n')
				if end < 0 {
					end = len(q) - i
				}
				out.WriteString(q[i : i+end])
				i += end
			} else {
				out.WriteByte(c)
				i++
			}
		case '/':
			if i+1 < len(q) && q[i+1] == '*' {
				end := strings.Index(q[i+2:], "*/")
				stop := len(q)
				if end >= 0 {
					stop = i + 2 + end + 2
				}
				out.WriteString(q[i:stop])
				i = stop
			} else {
				out.WriteByte(c)
				i++
			}
		case ':':
			if i+1 < len(q) && q[i+1] == ':' {
				// Postgres-style cast, not a placeholder.
				out.WriteString("::")
				i += 2
				continue
			}
			start := i + 1
			j := start
			for j < len(q) && isNameByte(q[j], j > start) {
				j++
			}
			if j == start {
				out.WriteByte(c)
				i++
				continue
			}
			if err := emit(q[start:j]); err != nil {
				return "", nil, err
			}
			i = j
		default:
			out.WriteByte(c)
			i++
		}
	}

	return out.String(), args, nil
}

func isNameByte(c byte, notFirst bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		return true
	case c >= '0' && c <= '9':
		return notFirst
	default:
		return false
	}
}
