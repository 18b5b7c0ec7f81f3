package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/keyserver/pkg/models"
)

const keyColumns = `activation_key, user_email, machine_id, date_created, expires_at`

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) GetKey(ctx context.Context, key string) (*models.ActivationKey, error) {
	var k models.ActivationKey
	err := s.pool.QueryRow(ctx,
		`SELECT `+keyColumns+` FROM keys WHERE activation_key = $1`, key,
	).Scan(&k.Key, &k.UserEmail, &k.MachineID, &k.DateCreated, &k.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get key: %w", err)
	}
	inUTC(&k)
	return &k, nil
}

func (s *PostgresStore) CreateKey(ctx context.Context, k *models.ActivationKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO keys (`+keyColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		k.Key, k.UserEmail, k.MachineID, k.DateCreated, k.ExpiresAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListKeys(ctx context.Context) ([]*models.ActivationKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+keyColumns+` FROM keys ORDER BY date_created, activation_key`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	keys := []*models.ActivationKey{}
	for rows.Next() {
		var k models.ActivationKey
		if err := rows.Scan(&k.Key, &k.UserEmail, &k.MachineID, &k.DateCreated, &k.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		inUTC(&k)
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) BindMachine(ctx context.Context, key, machineID string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE keys SET machine_id = NULLIF($2, '')
		 WHERE activation_key = $1 AND (machine_id IS NULL OR machine_id = '')`, key, machineID)
	if err != nil {
		return false, fmt.Errorf("bind machine: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) UserKeys(ctx context.Context, email, key string) ([]string, error) {
	query := `SELECT activation_key FROM keys WHERE user_email = $1 ORDER BY activation_key`
	args := []any{email}
	if key != "" {
		query = `SELECT activation_key FROM keys WHERE user_email = $1 AND activation_key = $2`
		args = append(args, key)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("user keys: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("user keys: %w", err)
	}
	return keys, nil
}

func (s *PostgresStore) DeleteKeys(ctx context.Context, email string, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return []string{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`DELETE FROM keys WHERE user_email = $1 AND activation_key = ANY($2) RETURNING activation_key`,
		email, keys)
	if err != nil {
		return nil, fmt.Errorf("delete keys: %w", err)
	}
	removed, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("delete keys: %w", err)
	}
	return removed, nil
}

// inUTC normalizes scanned timestamps. pgx returns timestamptz in time.Local.
func inUTC(k *models.ActivationKey) {
	k.DateCreated = k.DateCreated.UTC()
	k.ExpiresAt = k.ExpiresAt.UTC()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
