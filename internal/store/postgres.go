package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PostgresStore talks to the remote tables directly over SQL.
type PostgresStore struct {
	db   *sqlx.DB
	psql squirrel.StatementBuilderType
}

// NewPostgresStore constructs the SQL-backed store.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db, psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

// Select loads every row of table matching all filters, ordered by id.
func (s *PostgresStore) Select(ctx context.Context, table string, dest interface{}, filters ...Filter) error {
	if err := checkTable(table); err != nil {
		return newError("select", table, err)
	}
	builder := s.psql.Select(projection(table)...).From(table)
	for _, f := range filters {
		if !identifierPattern.MatchString(f.Column) {
			return newError("select", table, fmt.Errorf("invalid filter column %q", f.Column))
		}
		builder = builder.Where(squirrel.Eq{f.Column: f.Value})
	}
	query, args, err := builder.OrderBy("id").ToSql()
	if err != nil {
		return newError("select", table, err)
	}
	if err := s.db.SelectContext(ctx, dest, query, args...); err != nil {
		return pgError("select", table, err)
	}
	return nil
}

// Insert writes one row and scans the stored representation into dest.
func (s *PostgresStore) Insert(ctx context.Context, table string, row Row, dest interface{}) error {
	if err := checkTable(table); err != nil {
		return newError("insert", table, err)
	}
	query, args, err := s.psql.Insert(table).
		SetMap(row).
		Suffix("RETURNING " + strings.Join(projection(table), ", ")).
		ToSql()
	if err != nil {
		return newError("insert", table, err)
	}
	if err := s.db.SelectContext(ctx, dest, query, args...); err != nil {
		return pgError("insert", table, err)
	}
	return nil
}

// Update overwrites the given columns of the row with the id.
func (s *PostgresStore) Update(ctx context.Context, table string, row Row, id int64) error {
	if err := checkTable(table); err != nil {
		return newError("update", table, err)
	}
	values := make(map[string]interface{}, len(row))
	for column, value := range row {
		if column == "id" {
			continue
		}
		values[column] = value
	}
	query, args, err := s.psql.Update(table).SetMap(values).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return newError("update", table, err)
	}
	return s.execAffecting(ctx, "update", table, id, query, args)
}

// Delete removes the row with the id.
func (s *PostgresStore) Delete(ctx context.Context, table string, id int64) error {
	if err := checkTable(table); err != nil {
		return newError("delete", table, err)
	}
	query, args, err := s.psql.Delete(table).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return newError("delete", table, err)
	}
	return s.execAffecting(ctx, "delete", table, id, query, args)
}

// Call invokes a set-returning SQL function with named arguments.
func (s *PostgresStore) Call(ctx context.Context, procedure string, params map[string]interface{}, dest interface{}) error {
	if !identifierPattern.MatchString(procedure) {
		return newError("rpc", procedure, fmt.Errorf("invalid procedure name %q", procedure))
	}
	names := make([]string, 0, len(params))
	for name := range params {
		if !identifierPattern.MatchString(name) {
			return newError("rpc", procedure, fmt.Errorf("invalid parameter name %q", name))
		}
		names = append(names, name)
	}
	sort.Strings(names)

	named := make([]string, len(names))
	args := make([]interface{}, len(names))
	for i, name := range names {
		named[i] = fmt.Sprintf("%s => $%d", name, i+1)
		args[i] = params[name]
	}
	query := fmt.Sprintf("SELECT * FROM %s(%s)", procedure, strings.Join(named, ", "))

	// Function rows may carry columns the destination does not map.
	if err := s.db.Unsafe().SelectContext(ctx, dest, query, args...); err != nil {
		return pgError("rpc", procedure, err)
	}
	return nil
}

func (s *PostgresStore) execAffecting(ctx context.Context, op, table string, id int64, query string, args []interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return pgError(op, table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return pgError(op, table, err)
	}
	if affected == 0 {
		return notFound(op, table, id)
	}
	return nil
}

// projection returns the select list; time columns are read as text so they scan into strings.
func projection(table string) []string {
	cols := columns[table]
	out := make([]string, len(cols))
	for i, col := range cols {
		if col == "start_time" {
			col = "start_time::text AS start_time"
		}
		out[i] = col
	}
	return out
}

// pgError keeps the server's own message text, without the driver prefix.
func pgError(op, table string, err error) *Error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &Error{Op: op, Table: table, Message: pqErr.Message, Err: err}
	}
	return newError(op, table, err)
}
