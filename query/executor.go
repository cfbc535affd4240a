package query

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/rowdb/errors"
	"github.com/teranos/rowdb/logger"
	"github.com/teranos/rowdb/row"
)

// Conn is the engine boundary. *sql.DB, *sql.Tx and *sql.Conn satisfy it.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Result reports the outcome of a write.
type Result struct {
	RowsAffected int64
	// LastInsertID is the rowid of the last row inserted by the last
	// statement, 0 when nothing was inserted.
	LastInsertID int64
}

// Executor runs statements on Conn. Engine errors are returned wrapped, never
// retried.
type Executor struct {
	Conn   Conn
	Logger *zap.SugaredLogger
}

// Exec runs stmts in order, stopping at the first failure. Rows affected are
// summed across statements.
func (e Executor) Exec(ctx context.Context, stmts ...Statement) (Result, error) {
	log := logger.FromContext(ctx, logger.OrNop(e.Logger))
	var res Result
	for _, st := range stmts {
		start := time.Now()
		r, err := e.Conn.ExecContext(ctx, st.SQL, st.Args...)
		if err != nil {
			log.Debugw("Statement failed", logger.FieldSQL, st.SQL, logger.FieldError, err)
			return res, errors.Wrap(err, "failed to execute statement")
		}
		n, err := r.RowsAffected()
		if err != nil {
			return res, errors.Wrap(err, "failed to read rows affected")
		}
		res.RowsAffected += n
		if st.Inserts && n > 0 {
			if id, err := r.LastInsertId(); err == nil {
				res.LastInsertID = id
			}
		}
		log.Debugw("Executed",
			logger.FieldSQL, st.SQL,
			logger.FieldCount, n,
			logger.FieldDurationMS, time.Since(start).Milliseconds())
	}
	return res, nil
}

// Beginner starts transactions. *sql.DB and *sql.Conn satisfy it; *sql.Tx
// does not, since it already is one.
type Beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// ExecAtomic runs stmts like Exec. When there is more than one statement and
// Conn is a Beginner they run in one transaction, so a failure leaves nothing
// applied. applied is the number of leading statements whose effects remain.
func (e Executor) ExecAtomic(ctx context.Context, stmts ...Statement) (res Result, applied int, err error) {
	b, ok := e.Conn.(Beginner)
	if !ok || len(stmts) < 2 {
		return e.execCounted(ctx, stmts)
	}
	tx, err := b.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, 0, errors.Wrap(err, "failed to begin transaction")
	}
	res, _, err = Executor{Conn: tx, Logger: e.Logger}.execCounted(ctx, stmts)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.CombineErrors(err, errors.Wrap(rbErr, "failed to roll back"))
		}
		return Result{}, 0, err
	}
	if err := tx.Commit(); err != nil {
		return Result{}, 0, errors.Wrap(err, "failed to commit")
	}
	return res, len(stmts), nil
}

// execCounted is Exec reporting how many statements ran successfully.
func (e Executor) execCounted(ctx context.Context, stmts []Statement) (Result, int, error) {
	var res Result
	for i, st := range stmts {
		r, err := e.Exec(ctx, st)
		if err != nil {
			return res, i, err
		}
		res.RowsAffected += r.RowsAffected
		if st.Inserts && r.RowsAffected > 0 {
			res.LastInsertID = r.LastInsertID
		}
	}
	return res, len(stmts), nil
}

// Query runs st and returns the column names and every row as driver values.
func (e Executor) Query(ctx context.Context, st Statement) ([]string, []row.Values, error) {
	log := logger.FromContext(ctx, logger.OrNop(e.Logger))
	start := time.Now()
	rows, err := e.Conn.QueryContext(ctx, st.SQL, st.Args...)
	if err != nil {
		log.Debugw("Query failed", logger.FieldSQL, st.SQL, logger.FieldError, err)
		return nil, nil, errors.Wrap(err, "failed to query")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to read columns")
	}
	var out []row.Values
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, errors.Wrap(err, "failed to scan row")
		}
		r := make(row.Values, len(cols))
		for i, c := range cols {
			r[c] = vals[i]
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "failed to iterate rows")
	}
	log.Debugw("Queried",
		logger.FieldSQL, st.SQL,
		logger.FieldCount, len(out),
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return cols, out, nil
}

// QueryInt runs st and returns the single integer it selects.
func (e Executor) QueryInt(ctx context.Context, st Statement) (int64, error) {
	_, rows, err := e.Query(ctx, st)
	if err != nil {
		return 0, err
	}
	if len(rows) != 1 || len(rows[0]) != 1 {
		return 0, errors.Newf("expected one value, got %d rows", len(rows))
	}
	for _, v := range rows[0] {
		if n, ok := v.(int64); ok {
			return n, nil
		}
		return 0, errors.Newf("expected an integer, got %T", v)
	}
	return 0, nil
}
