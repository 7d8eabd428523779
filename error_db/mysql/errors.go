package mysql

import (
	"errors"
	"fmt"

	errno "github.com/bombsimon/mysql-error-numbers"
	"github.com/go-sql-driver/mysql"
)

// MySQLError mysql database error number
type MySQLError errno.ErrorNumber

func (e MySQLError) Error() string {
	return errno.ErrorNumber(e).String()
}

// Number the server error number.
func (e MySQLError) Number() errno.ErrorNumber {
	return errno.ErrorNumber(e)
}

// Translate a driver error anywhere in the chain into a [MySQLError] wrapping the original message,
// other errors are returned as is.
func Translate(err error) error {
	var ex *mysql.MySQLError
	if errors.As(err, &ex) {
		return fmt.Errorf("%w: %s", MySQLError(ex.Number), ex.Message)
	}
	return err
}

// IsMySQLError check the error chain carries error number dbErr
func IsMySQLError(err error, dbErr errno.ErrorNumber) bool {
	var ex *mysql.MySQLError
	if errors.As(err, &ex) {
		return errno.ErrorNumber(ex.Number) == dbErr
	}
	var n MySQLError
	if errors.As(err, &n) {
		return n.Number() == dbErr
	}
	return false
}
