package storage

import (
	"errors"
	"fmt"
	"log"
	"time"

	"ecosakshi/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateAPIKey persists a freshly issued key.
func (s *Service) CreateAPIKey(key *models.APIKey) error {
	if err := s.DB.Create(key).Error; err != nil {
		log.Printf("ERROR: Failed to create API key for user %s: %v", key.UserID, err)
		return err
	}
	return nil
}

// GetAPIKeyByID loads a key by its internal ID.
func (s *Service) GetAPIKeyByID(id string) (*models.APIKey, error) {
	return s.findAPIKey("id = ?", id)
}

// GetAPIKeyByHash loads a key by the SHA-256 digest of its secret. This is
// the authentication path of the external data API.
func (s *Service) GetAPIKeyByHash(hash string) (*models.APIKey, error) {
	return s.findAPIKey("key_hash = ?", hash)
}

func (s *Service) findAPIKey(query string, arg interface{}) (*models.APIKey, error) {
	var key models.APIKey
	err := s.DB.Where(query, arg).First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// FindActiveTrialKey returns the owner's active free-plan key, or nil if
// there is none.
func (s *Service) FindActiveTrialKey(userID string) (*models.APIKey, error) {
	var key models.APIKey
	err := s.DB.
		Where("user_id = ? AND plan = ? AND status = ?", userID, models.PlanFree, models.KeyActive).
		First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// ListAPIKeys returns all keys owned by the user, newest first.
func (s *Service) ListAPIKeys(userID string) ([]models.APIKey, error) {
	var keys []models.APIKey
	err := s.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&keys).Error
	if err != nil {
		log.Printf("ERROR: Failed to list API keys for user %s: %v", userID, err)
		return nil, err
	}
	return keys, nil
}

// UpdateAPIKeyStatus moves a key to expired or revoked.
func (s *Service) UpdateAPIKeyStatus(id string, status models.KeyStatus) error {
	res := s.DB.Model(&models.APIKey{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeQuota performs the check-and-increment for one request, atomically
// per key: the row is locked for the duration of the transaction, lazy
// day/month boundary resets are applied, then the counters are checked
// against the plan ceilings and incremented. When a ceiling is hit the
// transaction rolls back and ErrQuotaExceeded is returned with the counters
// untouched, so two concurrent calls at the last slot can never both pass.
func (s *Service) ConsumeQuota(keyID string, now time.Time) (*models.APIKey, error) {
	var key models.APIKey
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", keyID).
			First(&key).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := advanceCounters(&key, now); err != nil {
			return err
		}
		return tx.Save(&key).Error
	})
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// advanceCounters applies the lazy UTC day/month boundary resets to the key's
// counters, checks the plan ceilings, then counts the request. The ceiling
// check runs after the resets, so the first request of a new window always
// passes. On ErrQuotaExceeded the caller must discard the key (the resets may
// already have mutated it); ConsumeQuota does so by rolling back.
func advanceCounters(key *models.APIKey, now time.Time) error {
	if day := dayStart(now); day.After(key.DayResetAt) {
		key.RequestsToday = 0
		key.DayResetAt = day
	}
	if month := monthStart(now); month.After(key.MonthResetAt) {
		key.RequestsThisMonth = 0
		key.MonthResetAt = month
	}

	if key.RequestsToday >= int64(key.RequestsPerDay) ||
		key.RequestsThisMonth >= int64(key.RequestsPerMonth) {
		return ErrQuotaExceeded
	}

	key.TotalRequests++
	key.RequestsToday++
	key.RequestsThisMonth++
	return nil
}

// AllowMinute enforces the nominal per-minute cap with a Redis counter keyed
// on the current minute bucket. Fails open when Redis is not configured.
func (s *Service) AllowMinute(keyID string, limit int, now time.Time) (bool, error) {
	if s.Redis == nil || limit <= 0 {
		return true, nil
	}

	bucket := fmt.Sprintf("rl:min:%s:%d", keyID, now.Unix()/60)
	count, err := s.Redis.Incr(s.Ctx, bucket).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		// First request in this window sets the TTL.
		s.Redis.Expire(s.Ctx, bucket, 2*time.Minute)
	}
	return count <= int64(limit), nil
}

// ExpireKeys sweeps active keys whose validity has lapsed. The engines also
// expire lazily on use; the sweep keeps the trial-uniqueness query truthful
// for keys their owners never touch again.
func (s *Service) ExpireKeys(now time.Time) (int64, error) {
	res := s.DB.Model(&models.APIKey{}).
		Where("status = ? AND expires_at <= ?", models.KeyActive, now).
		Update("status", models.KeyExpired)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func monthStart(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
