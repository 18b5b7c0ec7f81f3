package store

import (
	"context"
	"errors"

	"github.com/kiranshivaraju/keyserver/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
// Every method issues at most one mutating statement.
type Store interface {
	Ping(ctx context.Context) error

	GetKey(ctx context.Context, key string) (*models.ActivationKey, error)
	CreateKey(ctx context.Context, k *models.ActivationKey) error
	ListKeys(ctx context.Context) ([]*models.ActivationKey, error)

	// BindMachine sets the machine id of an unbound key. It reports false
	// when the key is missing or already bound, leaving the row untouched.
	BindMachine(ctx context.Context, key, machineID string) (bool, error)

	// UserKeys returns every key owned by email, or only the one named by
	// key when it is non-empty and owned by email.
	UserKeys(ctx context.Context, email, key string) ([]string, error)

	// DeleteKeys removes the listed keys that email still owns and returns
	// the ones that went.
	DeleteKeys(ctx context.Context, email string, keys []string) ([]string, error)
}
