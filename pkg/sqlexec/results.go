package sqlexec

import (
	"database/sql"
	"errors"
)

// Row is a single result row keyed by column name. BLOB and TEXT columns
// returned as []byte by the driver are converted to string so rows can be
// compared and used as map keys.
type Row map[string]any

// Results wraps *sql.Rows with accessors that map rows into common Go
// shapes. Every accessor fully drains and closes the underlying rows, so a
// Results value is good for exactly one accessor call.
type Results struct {
	rows *sql.Rows
}

// Columns returns the column names of the result set.
func (r *Results) Columns() ([]string, error) {
	return r.rows.Columns()
}

// Close releases the underlying rows. Accessors close the rows themselves;
// Close only needs to be called when no accessor is used.
func (r *Results) Close() error {
	return r.rows.Close()
}

// Each calls fn for every row in order, stopping at the first error. The
// rows are closed before Each returns.
func (r *Results) Each(fn func(Row) error) error {
	defer func() {
		_ = r.rows.Close()
	}()

	cols, err := r.rows.Columns()
	if err != nil {
		return err
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for r.rows.Next() {
		if err := r.rows.Scan(ptrs...); err != nil {
			return err
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = normalizeColumn(values[i])
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return r.rows.Err()
}

// Dicts returns every row as a Row map.
func (r *Results) Dicts() ([]Row, error) {
	var out []Row
	err := r.Each(func(row Row) error {
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// errStopIteration signals early termination of Each from accessors that
// only need a prefix of the result set.
var errStopIteration = errors.New("stop iteration")

// Dict returns the first row. It returns sql.ErrNoRows if the result set
// is empty.
func (r *Results) Dict() (Row, error) {
	var first Row
	err := r.Each(func(row Row) error {
		first = row
		return errStopIteration
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return nil, err
	}
	if first == nil {
		return nil, sql.ErrNoRows
	}
	return first, nil
}

// Scalars returns the first column of every row.
func (r *Results) Scalars() ([]any, error) {
	var out []any
	err := r.eachOrdered(func(values []any) error {
		out = append(out, values[0])
		return nil
	}, 1)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Scalar returns the first column of the first row. It returns
// sql.ErrNoRows if the result set is empty.
func (r *Results) Scalar() (any, error) {
	var value any
	found := false
	err := r.eachOrdered(func(values []any) error {
		value = values[0]
		found = true
		return errStopIteration
	}, 1)
	if err != nil && !errors.Is(err, errStopIteration) {
		return nil, err
	}
	if !found {
		return nil, sql.ErrNoRows
	}
	return value, nil
}

// ScalarSet returns the distinct values of the first column.
func (r *Results) ScalarSet() (map[any]struct{}, error) {
	out := make(map[any]struct{})
	err := r.eachOrdered(func(values []any) error {
		out[values[0]] = struct{}{}
		return nil
	}, 1)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PkMap returns a map from the first column of each row to the full row.
// When two rows share a key, the later row wins.
func (r *Results) PkMap() (map[any]Row, error) {
	out := make(map[any]Row)
	cols, err := r.rows.Columns()
	if err != nil {
		_ = r.rows.Close()
		return nil, err
	}
	if len(cols) < 1 {
		_ = r.rows.Close()
		return nil, errors.New("pk map requires at least one column")
	}
	err = r.eachOrdered(func(values []any) error {
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out[values[0]] = row
		return nil
	}, 1)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// KvMap returns a map from the first column of each row to the second.
func (r *Results) KvMap() (map[any]any, error) {
	out := make(map[any]any)
	err := r.eachOrdered(func(values []any) error {
		out[values[0]] = values[1]
		return nil
	}, 2)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// eachOrdered iterates rows passing the normalized column values in column
// order, enforcing a minimum column count.
func (r *Results) eachOrdered(fn func([]any) error, minCols int) error {
	defer func() {
		_ = r.rows.Close()
	}()

	cols, err := r.rows.Columns()
	if err != nil {
		return err
	}
	if len(cols) < minCols {
		return errors.New("result set has too few columns")
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for r.rows.Next() {
		if err := r.rows.Scan(ptrs...); err != nil {
			return err
		}
		normalized := make([]any, len(cols))
		for i := range values {
			normalized[i] = normalizeColumn(values[i])
		}
		if err := fn(normalized); err != nil {
			return err
		}
	}
	return r.rows.Err()
}

func normalizeColumn(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
