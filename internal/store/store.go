package store

import (
	"context"
	"errors"

	"aptitude-service/internal/models"
)

var (
	ErrTestNotFound = errors.New("test not found")
	ErrInvalidTest  = errors.New("test must have an id")
)

// TestStore persists tests and their per-user responses. Implementations are
// safe for concurrent use and never share memory with callers.
type TestStore interface {
	Save(ctx context.Context, test *models.Test) error
	Get(ctx context.Context, id string) (*models.Test, error)
	// Update shallow-merges the set fields of u. Unknown ids return
	// ErrTestNotFound and create nothing.
	Update(ctx context.Context, id string, u models.TestUpdate) (*models.Test, error)
	// AppendResponse atomically adds r to the responses of userID.
	AppendResponse(ctx context.Context, testID, userID string, r models.Response) error
	Backend() string
}
