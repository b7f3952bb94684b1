package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation. When
// constraintName is provided the violation must reference that constraint.
// Postgres errors are matched by SQLSTATE, anything else by message text so
// the sqlite test driver is covered as well.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && matchesConstraint(pgErr.ConstraintName, constraintName)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation && matchesConstraint(pqErr.Constraint, constraintName)
	}

	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName) || containsSQLiteColumn(msg, constraintName)
}

// containsSQLiteColumn matches "<table>_<column>_key" against sqlite's
// "UNIQUE constraint failed: <table>.<column>" wording.
func containsSQLiteColumn(msg, constraintName string) bool {
	base := strings.TrimSuffix(constraintName, "_key")
	for i := strings.Index(base, "_"); i > 0; {
		if strings.Contains(msg, base[:i]+"."+base[i+1:]) {
			return true
		}
		next := strings.Index(base[i+1:], "_")
		if next < 0 {
			break
		}
		i += next + 1
	}
	return false
}

func matchesConstraint(actual, want string) bool {
	return want == "" || actual == want
}
