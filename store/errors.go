package store

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrPermissionDenied marks a persistence failure caused by missing
// database privileges rather than a transient fault. Callers treat it
// as an expected condition and fall back to in-memory defaults.
var ErrPermissionDenied = errors.New("store: permission denied")

// MySQL error codes for denied access: 1044 = db access denied,
// 1142 = command denied to user.
const (
	mysqlErrDBAccessDenied = 1044
	mysqlErrCommandDenied  = 1142
)

// MapError translates driver-level authorization failures into
// ErrPermissionDenied and passes everything else through unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		if me.Number == mysqlErrDBAccessDenied || me.Number == mysqlErrCommandDenied {
			return ErrPermissionDenied
		}
	}
	return err
}

// IsPermissionDenied reports whether err belongs to the
// authorization-denied class.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}
