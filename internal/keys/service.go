package keys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/keyserver/internal/cache"
	"github.com/kiranshivaraju/keyserver/internal/metrics"
	"github.com/kiranshivaraju/keyserver/internal/store"
	"github.com/kiranshivaraju/keyserver/pkg/models"
)

// AddParams holds the inputs of an Add call.
type AddParams struct {
	Key       string
	UserEmail string
	Admin     string
	Expires   string
}

// RemoveParams holds the inputs of a Remove call. An empty SpecifyKey
// removes every key the user owns.
type RemoveParams struct {
	UserEmail  string
	Admin      string
	SpecifyKey string
}

// Service issues, verifies, lists and revokes activation keys.
type Service struct {
	store  store.Store
	cache  cache.Cache
	admin  *AdminGate
	buyURL string
	now    func() time.Time
}

// NewService creates a new Service. A nil cache disables caching.
func NewService(st store.Store, ca cache.Cache, admin *AdminGate, buyURL string) *Service {
	if ca == nil {
		ca = cache.NopCache{}
	}
	return &Service{
		store:  st,
		cache:  ca,
		admin:  admin,
		buyURL: buyURL,
		now:    time.Now,
	}
}

// Add creates a key for a user. The key starts unbound.
func (s *Service) Add(ctx context.Context, p AddParams) (*models.ActivationKey, error) {
	if p.Key == "" || p.UserEmail == "" || p.Admin == "" {
		return nil, newError(ErrBadRequest, "Missing activation_key, user_email, or admin")
	}
	if err := s.admin.Check(p.Admin); err != nil {
		return nil, err
	}

	_, err := s.store.GetKey(ctx, p.Key)
	if err == nil {
		return nil, newError(ErrConflict, "Activation key already exists. No change to database")
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("looking up key: %w", err)
	}

	created := s.now().UTC().Truncate(time.Microsecond)
	expires := DefaultExpiry(created)
	if p.Expires != "" {
		expires, err = ParseExpiry(p.Expires)
		if err != nil {
			return nil, newError(ErrBadRequest, "Invalid expiry date format. Use ISO 8601 format.")
		}
	}

	k := &models.ActivationKey{
		Key:         p.Key,
		UserEmail:   p.UserEmail,
		DateCreated: created,
		ExpiresAt:   expires,
	}
	if err := s.store.CreateKey(ctx, k); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, newError(ErrConflict, "Activation key already exists. No change to database")
		}
		return nil, fmt.Errorf("creating key: %w", err)
	}

	slog.Info("activation key added", "key", k.Key, "user_email", k.UserEmail, "expires_at", k.ExpiresAt)
	return k, nil
}

// Verify checks a key and binds it to machineID on first use. Once bound,
// the key only verifies for that machine. An empty machineID leaves an
// unbound key unbound.
func (s *Service) Verify(ctx context.Context, key, machineID string) (*models.Verification, error) {
	if key == "" {
		return nil, newError(ErrBadRequest, "Missing activation key")
	}

	if k, ok := s.cachedKey(ctx, key); ok {
		return s.checkBound(k, machineID)
	}

	k, err := s.store.GetKey(ctx, key)
	if err != nil {
		return nil, s.lookupError(err)
	}
	if k.Bound() {
		s.remember(ctx, k)
		return s.checkBound(k, machineID)
	}
	if machineID == "" {
		metrics.VerifyResults.WithLabelValues(metrics.VerifyVerified).Inc()
		return verification(k, machineID), nil
	}

	bound, err := s.store.BindMachine(ctx, key, machineID)
	if err != nil {
		return nil, fmt.Errorf("binding key: %w", err)
	}
	if !bound {
		// Lost a race with another verifier or a removal; the row decides.
		k, err = s.store.GetKey(ctx, key)
		if err != nil {
			return nil, s.lookupError(err)
		}
		if !k.Bound() {
			return nil, fmt.Errorf("binding key %s: row left unbound", key)
		}
		s.remember(ctx, k)
		return s.checkBound(k, machineID)
	}

	k.MachineID = &machineID
	s.remember(ctx, k)
	metrics.VerifyResults.WithLabelValues(metrics.VerifyBound).Inc()
	slog.Info("activation key bound", "key", key, "machine_id", machineID)
	return verification(k, machineID), nil
}

// Remove deletes a user's keys, or one of them, and returns how many rows went.
func (s *Service) Remove(ctx context.Context, p RemoveParams) (int, error) {
	if p.UserEmail == "" || p.Admin == "" {
		return 0, newError(ErrBadRequest, "Missing user_email or admin")
	}
	if err := s.admin.Check(p.Admin); err != nil {
		return 0, err
	}

	targets, err := s.store.UserKeys(ctx, p.UserEmail, p.SpecifyKey)
	if err != nil {
		return 0, fmt.Errorf("looking up user keys: %w", err)
	}
	if len(targets) == 0 {
		return 0, newError(ErrNotFound, "No activation key found for user %s", p.UserEmail)
	}

	// Revoked before the delete, so no cached record outlives its row.
	if err := s.cache.Revoke(ctx, targets...); err != nil {
		return 0, fmt.Errorf("revoking cached keys: %w", err)
	}

	removed, err := s.store.DeleteKeys(ctx, p.UserEmail, targets)
	if err != nil {
		return 0, fmt.Errorf("removing keys: %w", err)
	}
	if len(removed) == 0 {
		return 0, newError(ErrNotFound, "No activation key found for user %s", p.UserEmail)
	}

	slog.Info("activation keys removed", "user_email", p.UserEmail, "count", len(removed))
	return len(removed), nil
}

// List returns every key in the table.
func (s *Service) List(ctx context.Context, admin string) ([]*models.ActivationKey, error) {
	if err := s.admin.Check(admin); err != nil {
		return nil, err
	}
	keys, err := s.store.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	return keys, nil
}

// BuyLink returns where keys can be purchased.
func (s *Service) BuyLink() (string, error) {
	if s.buyURL == "" {
		return "", newError(ErrNotConfigured, "Buy link can't be found")
	}
	return s.buyURL, nil
}

func (s *Service) checkBound(k *models.ActivationKey, machineID string) (*models.Verification, error) {
	if k.BoundMachine() != machineID {
		metrics.VerifyResults.WithLabelValues(metrics.VerifyForbidden).Inc()
		return nil, newError(ErrForbidden, "Activation key is already in use on another machine")
	}
	metrics.VerifyResults.WithLabelValues(metrics.VerifyVerified).Inc()
	return verification(k, machineID), nil
}

func (s *Service) lookupError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		metrics.VerifyResults.WithLabelValues(metrics.VerifyNotFound).Inc()
		return newError(ErrNotFound, "Activation key not found")
	}
	return fmt.Errorf("looking up key: %w", err)
}

// cachedKey returns a bound record from the cache. Cache failures only
// cost a store round trip.
func (s *Service) cachedKey(ctx context.Context, key string) (*models.ActivationKey, bool) {
	k, ok, err := s.cache.GetKey(ctx, key)
	if err != nil {
		slog.Warn("cache read failed", "error", err, "key", key)
		return nil, false
	}
	if !ok || !k.Bound() {
		return nil, false
	}
	return k, true
}

func (s *Service) remember(ctx context.Context, k *models.ActivationKey) {
	if !k.Bound() {
		return
	}
	if err := s.cache.SetKey(ctx, k); err != nil {
		slog.Warn("cache write failed", "error", err, "key", k.Key)
	}
}

func verification(k *models.ActivationKey, machineID string) *models.Verification {
	if machineID == "" {
		machineID = k.BoundMachine()
	}
	return &models.Verification{
		Key:         k.Key,
		MachineID:   machineID,
		UserEmail:   k.UserEmail,
		DateCreated: k.DateCreated,
		ExpiresAt:   k.ExpiresAt,
	}
}
