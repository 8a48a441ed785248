package domain

import "errors"

var (
	ErrEmptyText   = errors.New("chat event with empty text")
	ErrMissingKind = errors.New("event kind is required")
	ErrMissingTS   = errors.New("event timestamp is required")
)
