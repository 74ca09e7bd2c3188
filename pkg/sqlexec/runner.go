package sqlexec

import (
	"context"
	"database/sql"
	"io"
	"log/slog"

	"github.com/CTAG07/gsql/pkg/sqltpl"
)

// Queryer is the subset of database operations the Runner needs. It is
// satisfied by *sql.DB, *sql.Tx, and *sql.Conn, so templated statements can
// run inside or outside a transaction with the same code.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Runner ties a Queryer to a sqltpl.Renderer and a bind style. It renders
// SQL templates, binds their parameters for the target driver, executes
// them, and wraps query results for row mapping.
type Runner struct {
	q      Queryer
	r      *sqltpl.Renderer
	style  sqltpl.BindStyle
	logger *slog.Logger
}

// NewRunner returns a Runner executing against q using the given renderer
// and placeholder style.
func NewRunner(q Queryer, r *sqltpl.Renderer, style sqltpl.BindStyle) *Runner {
	return &Runner{
		q:      q,
		r:      r,
		style:  style,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the Runner. By default, all logs are discarded.
func (rn *Runner) SetLogger(logger *slog.Logger) {
	if logger != nil {
		rn.logger = logger
	}
}

// WithQueryer returns a copy of the Runner bound to a different Queryer,
// typically a *sql.Tx, keeping the renderer, style, and logger.
func (rn *Runner) WithQueryer(q Queryer) *Runner {
	clone := *rn
	clone.q = q
	return &clone
}

// Query renders the inline template with params, executes it, and returns
// the wrapped result rows.
func (rn *Runner) Query(ctx context.Context, text string, params map[string]any) (*Results, error) {
	stmt, err := rn.r.Render(text, params)
	if err != nil {
		return nil, err
	}
	return rn.query(ctx, stmt)
}

// QueryNamed renders the statement template with the given name from the
// renderer's template directory, executes it, and returns the wrapped
// result rows.
func (rn *Runner) QueryNamed(ctx context.Context, name string, params map[string]any) (*Results, error) {
	stmt, err := rn.r.RenderNamed(name, params)
	if err != nil {
		return nil, err
	}
	return rn.query(ctx, stmt)
}

// Exec renders the inline template with params and executes it as a
// statement, returning the driver's result.
func (rn *Runner) Exec(ctx context.Context, text string, params map[string]any) (sql.Result, error) {
	stmt, err := rn.r.Render(text, params)
	if err != nil {
		return nil, err
	}
	return rn.exec(ctx, stmt)
}

// ExecNamed renders the statement template with the given name and executes
// it as a statement.
func (rn *Runner) ExecNamed(ctx context.Context, name string, params map[string]any) (sql.Result, error) {
	stmt, err := rn.r.RenderNamed(name, params)
	if err != nil {
		return nil, err
	}
	return rn.exec(ctx, stmt)
}

func (rn *Runner) query(ctx context.Context, stmt sqltpl.Statement) (*Results, error) {
	query, args, err := rn.bind(stmt)
	if err != nil {
		return nil, err
	}
	rows, err := rn.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &Results{rows: rows}, nil
}

func (rn *Runner) exec(ctx context.Context, stmt sqltpl.Statement) (sql.Result, error) {
	query, args, err := rn.bind(stmt)
	if err != nil {
		return nil, err
	}
	return rn.q.ExecContext(ctx, query, args...)
}

func (rn *Runner) bind(stmt sqltpl.Statement) (string, []any, error) {
	query, args, err := stmt.Bind(rn.style)
	if err != nil {
		return "", nil, err
	}
	args = normalizeArgs(args)
	rn.logger.Debug("executing sql",
		slog.String("query", query),
		slog.Int("args", len(args)),
	)
	return query, args, nil
}
