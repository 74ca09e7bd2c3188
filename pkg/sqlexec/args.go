package sqlexec

import (
	"database/sql"
	"database/sql/driver"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// normalizeArgs converts bind argument types that database/sql drivers do
// not accept natively into portable representations. sql.Named wrappers are
// unwrapped, normalized, and re-wrapped.
func normalizeArgs(args []any) []any {
	out := make([]any, len(args))
	for i, arg := range args {
		if named, ok := arg.(sql.NamedArg); ok {
			named.Value = normalizeArg(named.Value)
			out[i] = named
			continue
		}
		out[i] = normalizeArg(arg)
	}
	return out
}

func normalizeArg(v any) any {
	switch v := v.(type) {
	case decimal.Decimal:
		// Exact numerics travel as text so the database, not a float64
		// round-trip, controls precision.
		return v.String()
	case *decimal.Decimal:
		if v == nil {
			return nil
		}
		return v.String()
	case uuid.UUID:
		return v.String()
	case *uuid.UUID:
		if v == nil {
			return nil
		}
		return v.String()
	case driver.Valuer:
		return v
	default:
		return v
	}
}
