// Package repository defines the raw-SQL data access layer.  Sentinel
// errors below let the service layer tell apart the failure cases that
// map to specific API responses.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/rehanisg222/deploymentcrm/internal/access"
)

var (
	ErrLeadNotFound     = errors.New("lead not found")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrActivityNotFound = errors.New("activity not found")
	ErrBrokerNotFound   = errors.New("broker not found")
	ErrProjectNotFound  = errors.New("project not found")

	// ErrUserNotFound also matches access.ErrUnknownUser so that the
	// principal resolver fails closed on deleted accounts.
	ErrUserNotFound = fmt.Errorf("user not found: %w", access.ErrUnknownUser)

	// ErrEmailExists is returned when a unique email constraint rejects
	// an insert or update.
	ErrEmailExists = errors.New("email already exists")

	// ErrMissingReference is returned when a foreign key points at a row
	// that does not exist, such as an unknown broker or project.
	ErrMissingReference = errors.New("referenced row does not exist")

	// ErrRefreshInvalid covers unknown, revoked and expired refresh tokens.
	ErrRefreshInvalid = errors.New("refresh token invalid")
)

const (
	mysqlDuplicateEntry = 1062 // ER_DUP_ENTRY
	mysqlNoReferenced   = 1452 // ER_NO_REFERENCED_ROW_2
)

// isDuplicate reports whether err is a unique key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

func isMissingReference(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlNoReferenced
}

// writeError maps constraint failures on insert or update.
func writeError(err error) error {
	switch {
	case isDuplicate(err):
		return ErrEmailExists
	case isMissingReference(err):
		return ErrMissingReference
	}
	return err
}
