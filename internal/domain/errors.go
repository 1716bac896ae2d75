package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique field collision.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidCredentials is returned when handle/secret do not match.
	// Unknown handles map to the same error to avoid handle enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates the presented token failed validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrForbidden indicates the caller is authenticated but not permitted.
	ErrForbidden = errors.New("forbidden")
	// ErrAlreadyPaid indicates a payment attempt against a PAID bill.
	ErrAlreadyPaid = errors.New("bill already paid")
	// ErrNoOpenBill indicates a negative delta arrived with no open bill to
	// subtract from; that is a caller error, not an implicit create.
	ErrNoOpenBill = errors.New("no open bill")
	// ErrUpstream indicates a downstream collaborator call failed.
	ErrUpstream = errors.New("upstream failure")
)
