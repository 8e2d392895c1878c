package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrOrderAlreadyPaid    = errors.New("order already paid")
	ErrForbidden           = errors.New("insufficient permissions")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrDuplicateSettlement = errors.New("gateway transaction already settled")
)
