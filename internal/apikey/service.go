// Package apikey owns API key issuance (free trial and payment-gated paid
// plans), usage metering against plan limits, and expiry/revocation.
package apikey

import (
	"errors"
	"fmt"
	"log"
	"time"

	"ecosakshi/backend/internal/config"
	"ecosakshi/backend/internal/models"
	"ecosakshi/backend/internal/notify"
	"ecosakshi/backend/internal/storage"
)

var (
	// ErrDuplicateActiveTrial means the NGO already has an active free-trial key.
	ErrDuplicateActiveTrial = errors.New("apikey: an active free trial key already exists")
	// ErrPaymentVerificationFailed means the gateway signature did not verify;
	// no key is issued.
	ErrPaymentVerificationFailed = errors.New("apikey: payment verification failed")
	// ErrRateLimitExceeded means a usage counter is at its plan ceiling.
	ErrRateLimitExceeded = errors.New("apikey: rate limit exceeded")
	// ErrKeyExpiredOrRevoked means the key is terminal and rejected on all calls.
	ErrKeyExpiredOrRevoked = errors.New("apikey: key expired or revoked")
	// ErrUnauthorized means the acting user does not own the key.
	ErrUnauthorized = errors.New("apikey: not allowed")
	// ErrInvalidInput means a required field is missing or outside its enumeration.
	ErrInvalidInput = errors.New("apikey: invalid input")
)

// Gateway is the payment collaborator: phase one creates an order, phase two
// verifies the signed callback.
type Gateway interface {
	CreateOrder(amountPaise int64, currency, receipt string, notes map[string]interface{}) (orderID string, err error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// Service handles the business logic for API keys.
type Service struct {
	Storage  storage.Storage
	Gateway  Gateway
	Notifier notify.Notifier

	// Now is the clock; tests pin it.
	Now func() time.Time
}

// NewService creates a new API key service.
func NewService(s storage.Storage, g Gateway, n notify.Notifier) *Service {
	return &Service{Storage: s, Gateway: g, Notifier: n, Now: time.Now}
}

// IssueTrialKey creates the NGO's free 7-day key. At most one free-trial key
// may be active per account; an active-looking key whose validity already
// lapsed is expired on the spot rather than blocking the new trial.
func (s *Service) IssueTrialKey(userID, name string) (*models.APIKey, string, error) {
	if name == "" {
		return nil, "", fmt.Errorf("%w: key name is required", ErrInvalidInput)
	}

	now := s.Now()
	existing, err := s.Storage.FindActiveTrialKey(userID)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		if now.Before(existing.ExpiresAt) {
			return nil, "", ErrDuplicateActiveTrial
		}
		if err := s.Storage.UpdateAPIKeyStatus(existing.ID, models.KeyExpired); err != nil {
			return nil, "", err
		}
	}

	key, plaintext, err := s.issue(userID, name, models.PlanFree, now)
	if err != nil {
		return nil, "", err
	}

	if s.Notifier != nil {
		// The notification mail is the only transmission of the secret.
		s.Notifier.TrialKeyIssued(key, plaintext)
	}
	return key, plaintext, nil
}

// CreateOrder is phase one of a paid purchase: price the plan, open an order
// with the gateway, persist the pending order. No key exists yet.
func (s *Service) CreateOrder(userID, name string, plan models.KeyPlan) (*models.PaymentOrder, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: key name is required", ErrInvalidInput)
	}
	if !plan.Paid() {
		return nil, fmt.Errorf("%w: plan %q is not purchasable", ErrInvalidInput, plan)
	}

	tier := config.Plans[plan]
	gatewayOrderID, err := s.Gateway.CreateOrder(tier.PricePaise, "INR", userID, map[string]interface{}{
		"plan":     string(plan),
		"key_name": name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment order: %w", err)
	}

	order := &models.PaymentOrder{
		UserID:         userID,
		KeyName:        name,
		Plan:           plan,
		AmountPaise:    tier.PricePaise,
		Currency:       "INR",
		GatewayOrderID: gatewayOrderID,
		Status:         models.OrderCreated,
	}
	if err := s.Storage.CreatePaymentOrder(order); err != nil {
		return nil, err
	}
	return order, nil
}

// VerifyAndIssue is phase two: the gateway callback is verified against the
// order, and only then is the key issued. A key is never created for a paid
// plan without a verified payment. The paid-flip and the key insert land in
// one storage transaction, so a paid order with no key cannot exist and a
// replayed callback cannot issue a second key.
func (s *Service) VerifyAndIssue(gatewayOrderID, paymentID, signature string) (*models.APIKey, string, error) {
	order, err := s.Storage.GetOrderByGatewayID(gatewayOrderID)
	if err != nil {
		return nil, "", err
	}

	if !s.Gateway.VerifySignature(order.GatewayOrderID, paymentID, signature) {
		if err := s.Storage.MarkOrderFailed(order.ID); err != nil {
			log.Printf("ERROR: Failed to mark order %s failed: %v", order.ID, err)
		}
		return nil, "", ErrPaymentVerificationFailed
	}

	key, plaintext, err := newKey(order.UserID, order.KeyName, order.Plan, s.Now())
	if err != nil {
		return nil, "", err
	}
	if err := s.Storage.MarkPaidAndCreateKey(order.ID, paymentID, key); err != nil {
		return nil, "", err
	}

	if s.Notifier != nil {
		s.Notifier.KeyPurchased(key)
	}
	return key, plaintext, nil
}

// newKey builds a key with limits copied from the plan table. Persisting it
// is the caller's concern, so paid issuance can couple the insert to the
// order's paid-flip.
func newKey(userID, name string, plan models.KeyPlan, now time.Time) (*models.APIKey, string, error) {
	plaintext, hash, prefix, err := NewSecret()
	if err != nil {
		return nil, "", err
	}

	tier := config.Plans[plan]
	key := &models.APIKey{
		UserID:            userID,
		Name:              name,
		KeyHash:           hash,
		KeyPrefix:         prefix,
		Plan:              plan,
		Status:            models.KeyActive,
		RequestsPerMinute: tier.RequestsPerMinute,
		RequestsPerDay:    tier.RequestsPerDay,
		RequestsPerMonth:  tier.RequestsPerMonth,
		DayResetAt:        now,
		MonthResetAt:      now,
		ExpiresAt:         now.Add(tier.Duration),
	}
	return key, plaintext, nil
}

// issue builds and persists a trial key.
func (s *Service) issue(userID, name string, plan models.KeyPlan, now time.Time) (*models.APIKey, string, error) {
	key, plaintext, err := newKey(userID, name, plan, now)
	if err != nil {
		return nil, "", err
	}
	if err := s.Storage.CreateAPIKey(key); err != nil {
		return nil, "", err
	}
	return key, plaintext, nil
}

// Authenticate resolves a presented secret to its key and rejects terminal or
// lapsed keys. A lapsed key is moved to expired here, lazily, on its next use.
func (s *Service) Authenticate(plaintext string) (*models.APIKey, error) {
	key, err := s.Storage.GetAPIKeyByHash(HashSecret(plaintext))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrKeyExpiredOrRevoked
		}
		return nil, err
	}

	if key.Status.Terminal() {
		return nil, ErrKeyExpiredOrRevoked
	}
	if !s.Now().Before(key.ExpiresAt) {
		if err := s.Storage.UpdateAPIKeyStatus(key.ID, models.KeyExpired); err != nil {
			log.Printf("ERROR: Failed to expire key %s: %v", key.ID, err)
		}
		return nil, ErrKeyExpiredOrRevoked
	}
	return key, nil
}

// RecordUsage meters one authenticated request: the Redis minute window
// first, then the durable day/month counters. The check-and-increment is
// atomic per key, so concurrent requests cannot slip past a ceiling.
func (s *Service) RecordUsage(key *models.APIKey) (*models.APIKey, error) {
	now := s.Now()

	ok, err := s.Storage.AllowMinute(key.ID, key.RequestsPerMinute, now)
	if err != nil {
		// Redis trouble is an infrastructure fault, not a limit violation;
		// the durable counters below still bound usage.
		log.Printf("ERROR: Minute window check failed for key %s: %v", key.ID, err)
	} else if !ok {
		return nil, fmt.Errorf("%w: per-minute cap reached", ErrRateLimitExceeded)
	}

	updated, err := s.Storage.ConsumeQuota(key.ID, now)
	if err != nil {
		if errors.Is(err, storage.ErrQuotaExceeded) {
			return nil, ErrRateLimitExceeded
		}
		return nil, err
	}
	return updated, nil
}

// RevokeKey terminates a key at its owner's request. Revoking a key that is
// already terminal is a no-op success.
func (s *Service) RevokeKey(keyID, ownerID string) error {
	key, err := s.Storage.GetAPIKeyByID(keyID)
	if err != nil {
		return err
	}
	if key.UserID != ownerID {
		return fmt.Errorf("%w: key belongs to another account", ErrUnauthorized)
	}
	if key.Status.Terminal() {
		return nil
	}
	return s.Storage.UpdateAPIKeyStatus(keyID, models.KeyRevoked)
}

// ListKeys returns the owner's keys. Stored records only ever carry the
// masked prefix; there is no plaintext to leak here.
func (s *Service) ListKeys(userID string) ([]models.APIKey, error) {
	return s.Storage.ListAPIKeys(userID)
}

// ExpireDue sweeps lapsed active keys; used by the operator CLI.
func (s *Service) ExpireDue() (int64, error) {
	return s.Storage.ExpireKeys(s.Now())
}
