package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	apperrors "github.com/kbukum/pvpauth/errors"
)

// Postgres SQLSTATE codes inspected by this package.
const (
	pgUniqueViolation    = "23505"
	pgTooManyConnections = "53300"
	pgCannotConnectNow   = "57P03"
	pgConnectionClass    = "08"
)

// UniqueViolation describes which unique constraint an insert or update hit.
// Columns holds every column of the constraint in declaration order.
type UniqueViolation struct {
	Table      string
	Columns    []string
	Constraint string
}

// Column returns the first constrained column, or "".
func (v *UniqueViolation) Column() string {
	if len(v.Columns) == 0 {
		return ""
	}
	return v.Columns[0]
}

// On reports whether the violation is on table.column.
func (v *UniqueViolation) On(table, column string) bool {
	if v.Table != table {
		return false
	}
	for _, c := range v.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// AsUniqueViolation extracts the violated constraint from a driver error.
// Postgres errors are read from SQLSTATE 23505 and the Key (...) detail;
// sqlite errors from the "UNIQUE constraint failed: t.c" message.
func AsUniqueViolation(err error) (*UniqueViolation, bool) {
	if err == nil {
		return nil, false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return nil, false
		}
		v := &UniqueViolation{
			Table:      pgErr.TableName,
			Constraint: pgErr.ConstraintName,
			Columns:    parsePgDetailColumns(pgErr.Detail),
		}
		if pgErr.ColumnName != "" && len(v.Columns) == 0 {
			v.Columns = []string{pgErr.ColumnName}
		}
		return v, true
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		if liteErr.ExtendedCode != sqlite3.ErrConstraintUnique && liteErr.ExtendedCode != sqlite3.ErrConstraintPrimaryKey {
			return nil, false
		}
		return parseSQLiteUnique(liteErr.Error()), true
	}
	return nil, false
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	_, ok := AsUniqueViolation(err)
	return ok
}

// parsePgDetailColumns reads "Key (a, b)=(1, 2) already exists.".
func parsePgDetailColumns(detail string) []string {
	start := strings.Index(detail, "Key (")
	if start < 0 {
		return nil
	}
	rest := detail[start+len("Key ("):]
	end := strings.Index(rest, ")=")
	if end < 0 {
		return nil
	}
	var cols []string
	for _, c := range strings.Split(rest[:end], ",") {
		if c = strings.Trim(strings.TrimSpace(c), `"`); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}

// parseSQLiteUnique reads "UNIQUE constraint failed: t.a, t.b".
func parseSQLiteUnique(msg string) *UniqueViolation {
	v := &UniqueViolation{}
	i := strings.Index(msg, "constraint failed:")
	if i < 0 {
		return v
	}
	for _, part := range strings.Split(msg[i+len("constraint failed:"):], ",") {
		table, column, ok := strings.Cut(strings.TrimSpace(part), ".")
		if !ok {
			continue
		}
		if v.Table == "" {
			v.Table = table
		}
		v.Columns = append(v.Columns, column)
	}
	if v.Table != "" {
		v.Constraint = v.Table + "_" + strings.Join(v.Columns, "_") + "_key"
	}
	return v
}

// IsConnectionError checks if a database error is a connection error
// that might be resolved by retrying.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, pgConnectionClass) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"network is unreachable",
		"connection closed",
		"connection lost",
		"driver: bad connection",
		"invalid connection",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// IsUnavailable reports whether the database could not serve the request at
// all: connection failures, an exhausted server or a pool wait that ran
// past the request deadline.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if IsConnectionError(err) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgTooManyConnections || pgErr.Code == pgCannotConnectNow
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	return strings.Contains(strings.ToLower(err.Error()), "too many connections")
}

// IsNotFoundError checks if the error is a GORM record-not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// FromDatabase converts a database error to an AppError.
// An error that already is an AppError is returned unchanged.
func FromDatabase(err error, resource string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	switch {
	case IsNotFoundError(err):
		return apperrors.NotFound(resource, "")
	case IsUniqueViolation(err):
		return apperrors.AlreadyExists(resource).WithCause(err)
	case IsUnavailable(err):
		return apperrors.ServiceUnavailable("database").WithCause(err)
	default:
		return apperrors.DatabaseError(err)
	}
}
