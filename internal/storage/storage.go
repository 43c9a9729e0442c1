package storage

import (
	"context"
	"errors"
	"time"

	"ecosakshi/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	// ErrNotFound means the referenced entity does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict means a conditional write lost to a concurrent writer
	// (stale report version, or an order already consumed).
	ErrConflict = errors.New("storage: conflict")
	// ErrQuotaExceeded means the conditional counter increment was rejected
	// because a usage counter is at its plan ceiling.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
)

// ReportFilter narrows ListReports. Zero values mean "any".
type ReportFilter struct {
	Status   models.ReportStatus
	Category models.ReportCategory
	City     string
	UserID   string

	// PublicOnly restricts to publicly visible reports. When ViewerID is
	// also set, the viewer's own reports are included regardless.
	PublicOnly bool
	ViewerID   string

	Limit  int
	Offset int
}

type Storage interface {
	// Reports
	CreateReport(report *models.Report, initial models.StatusChange) error
	GetReportByID(id string) (*models.Report, error)
	GetReportByComplaintID(complaintID string) (*models.Report, error)
	ListReports(filter ReportFilter) ([]models.Report, error)
	ApplyTransition(report *models.Report, change models.StatusChange) error
	UpdateSeverity(id string, severity models.Severity) error
	DeleteReport(id string) error
	IncrementViewCount(id string) error

	// API keys
	CreateAPIKey(key *models.APIKey) error
	GetAPIKeyByID(id string) (*models.APIKey, error)
	GetAPIKeyByHash(hash string) (*models.APIKey, error)
	FindActiveTrialKey(userID string) (*models.APIKey, error)
	ListAPIKeys(userID string) ([]models.APIKey, error)
	UpdateAPIKeyStatus(id string, status models.KeyStatus) error
	ConsumeQuota(keyID string, now time.Time) (*models.APIKey, error)
	AllowMinute(keyID string, limit int, now time.Time) (bool, error)
	ExpireKeys(now time.Time) (int64, error)

	// Payment orders
	CreatePaymentOrder(order *models.PaymentOrder) error
	GetOrderByGatewayID(gatewayOrderID string) (*models.PaymentOrder, error)
	MarkPaidAndCreateKey(orderID, paymentID string, key *models.APIKey) error
	MarkOrderFailed(id string) error

	// Users
	SaveUser(user *models.User) error
	GetUserByID(id string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByTelegramChatID(chatID int64) (*models.User, error)
	LinkTelegram(userID string, chatID int64) error

	// Notifications
	PublishEvent(ev models.Event) error
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}
