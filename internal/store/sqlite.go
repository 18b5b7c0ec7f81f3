package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/kiranshivaraju/keyserver/pkg/models"
	"gorm.io/gorm"
)

// SQLiteStore implements the Store interface on an embedded SQLite
// database through gorm. It suits single-node and local deployments.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore creates a new SQLiteStore. The db must have been opened
// with OpenSQLite so the schema exists and errors are translated.
func NewSQLiteStore(db *gorm.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLiteStore) GetKey(ctx context.Context, key string) (*models.ActivationKey, error) {
	var k models.ActivationKey
	err := s.db.WithContext(ctx).Where("activation_key = ?", key).First(&k).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get key: %w", err)
	}
	inUTC(&k)
	return &k, nil
}

func (s *SQLiteStore) CreateKey(ctx context.Context, k *models.ActivationKey) error {
	if err := s.db.WithContext(ctx).Create(k).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create key: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListKeys(ctx context.Context) ([]*models.ActivationKey, error) {
	keys := []*models.ActivationKey{}
	err := s.db.WithContext(ctx).Order("date_created").Order("activation_key").Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	for _, k := range keys {
		inUTC(k)
	}
	return keys, nil
}

func (s *SQLiteStore) BindMachine(ctx context.Context, key, machineID string) (bool, error) {
	var value any
	if machineID != "" {
		value = machineID
	}
	res := s.db.WithContext(ctx).Model(&models.ActivationKey{}).
		Where("activation_key = ? AND (machine_id IS NULL OR machine_id = '')", key).
		Update("machine_id", value)
	if res.Error != nil {
		return false, fmt.Errorf("bind machine: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *SQLiteStore) UserKeys(ctx context.Context, email, key string) ([]string, error) {
	keys := []string{}
	q := s.db.WithContext(ctx).Model(&models.ActivationKey{}).Where("user_email = ?", email)
	if key != "" {
		q = q.Where("activation_key = ?", key)
	}
	if err := q.Order("activation_key").Pluck("activation_key", &keys).Error; err != nil {
		return nil, fmt.Errorf("user keys: %w", err)
	}
	return keys, nil
}

func (s *SQLiteStore) DeleteKeys(ctx context.Context, email string, keys []string) ([]string, error) {
	removed := []string{}
	if len(keys) == 0 {
		return removed, nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.ActivationKey{}).
			Where("user_email = ? AND activation_key IN ?", email, keys).
			Pluck("activation_key", &removed).Error
		if err != nil || len(removed) == 0 {
			return err
		}
		return tx.Where("activation_key IN ?", removed).Delete(&models.ActivationKey{}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("delete keys: %w", err)
	}
	return removed, nil
}
