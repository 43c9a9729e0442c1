package config

import (
	"time"

	"ecosakshi/backend/internal/models"
)

const (
	// Key validity
	TrialKeyDuration = 7 * 24 * time.Hour
	PaidKeyDuration  = 30 * 24 * time.Hour

	// Secret format
	KeySecretPrefix  = "esk_"
	KeyDisplayDigits = 8 // hex chars of the secret shown in the masked form
)

// Plan fixes the price and rate limits of a tier. Prices are INR paise.
type Plan struct {
	PricePaise        int64
	Duration          time.Duration
	RequestsPerMinute int
	RequestsPerDay    int
	RequestsPerMonth  int
}

// Plans is the tier table. Rate limits are copied onto each key at issuance,
// so editing this table never changes keys already in the wild.
var Plans = map[models.KeyPlan]Plan{
	models.PlanFree:       {PricePaise: 0, Duration: TrialKeyDuration, RequestsPerMinute: 60, RequestsPerDay: 50, RequestsPerMonth: 500},
	models.PlanBasic:      {PricePaise: 99900, Duration: PaidKeyDuration, RequestsPerMinute: 120, RequestsPerDay: 1000, RequestsPerMonth: 10000},
	models.PlanPremium:    {PricePaise: 299900, Duration: PaidKeyDuration, RequestsPerMinute: 300, RequestsPerDay: 5000, RequestsPerMonth: 50000},
	models.PlanEnterprise: {PricePaise: 999900, Duration: PaidKeyDuration, RequestsPerMinute: 600, RequestsPerDay: 20000, RequestsPerMonth: 200000},
}
