package repository

import (
	"context"
	"errors"

	"github.com/sandeepkv93/project-tracker-backend/internal/observability"
)

var (
	// ErrNotFound covers both absent records and records owned by someone else.
	ErrNotFound           = errors.New("record not found")
	ErrMissingScope       = errors.New("owner scope is required")
	ErrUnknownFilterField = errors.New("unknown filter field")
	ErrInvalidListQuery   = errors.New("invalid list query")
	ErrDuplicateEmail     = errors.New("email already registered")
)

func recordOperation(ctx context.Context, repo, op string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrMissingScope), errors.Is(err, ErrInvalidListQuery), errors.Is(err, ErrUnknownFilterField):
		outcome = "rejected"
	default:
		outcome = "error"
	}
	observability.RecordRepositoryOperation(ctx, repo, op, outcome)
}
