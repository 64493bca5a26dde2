package profile

import "errors"

var (
	ErrProfileNotFound     = errors.New("profile not found")
	ErrDuplicateCustomerID = errors.New("billing customer id already assigned to another profile")
	ErrInvalidUserID       = errors.New("invalid user id")
	ErrQueryFailed         = errors.New("profile query failed")
)
