package handler

import (
	"errors"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// DriverError is the driver-reported failure of one statement.
type DriverError struct {
	Code    string // MySQL error number or PostgreSQL SQLSTATE
	SubCode string // MySQL SQLSTATE or PostgreSQL severity
	Message string
}

func (e *DriverError) Error() string {
	switch {
	case e.Code != "" && e.SubCode != "":
		return e.Code + " (" + e.SubCode + "): " + e.Message
	case e.Code != "":
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// NewDriverError extracts the driver error details from err. Errors that
// did not come from a known driver keep only their message.
func NewDriverError(err error) *DriverError {
	if err == nil {
		return nil
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		de := &DriverError{Code: strconv.Itoa(int(myErr.Number)), Message: myErr.Message}
		if myErr.SQLState != [5]byte{} {
			de.SubCode = string(myErr.SQLState[:])
		}
		return de
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &DriverError{Code: pgErr.Code, SubCode: pgErr.Severity, Message: pgErr.Message}
	}

	return &DriverError{Message: err.Error()}
}
