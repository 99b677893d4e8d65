package errors

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrNilUser             = errors.New("user is nil")
	ErrNilTransaction      = errors.New("transaction is nil")
	ErrInvalidStatus       = errors.New("invalid transaction status")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidUserID       = errors.New("invalid user id")
	ErrEvidenceRequired    = errors.New("image is required")
	ErrExternalValidation  = errors.New("invalid IFSC code")
	ErrBalanceLocked       = errors.New("wallet is locked by another operation")
	ErrInvalidCredentials  = fmt.Errorf("invalid credentials")
	ErrInvalidInput        = fmt.Errorf("invalid input")
	ErrInternal            = fmt.Errorf("internal error")
)
