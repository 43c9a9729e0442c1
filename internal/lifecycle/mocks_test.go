package lifecycle_test

import (
	"time"

	"ecosakshi/backend/internal/models"
	"ecosakshi/backend/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateReport(report *models.Report, initial models.StatusChange) error {
	args := m.Called(report, initial)
	return args.Error(0)
}

func (m *MockStorage) GetReportByID(id string) (*models.Report, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockStorage) GetReportByComplaintID(complaintID string) (*models.Report, error) {
	args := m.Called(complaintID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockStorage) ListReports(filter storage.ReportFilter) ([]models.Report, error) {
	args := m.Called(filter)
	return args.Get(0).([]models.Report), args.Error(1)
}

func (m *MockStorage) ApplyTransition(report *models.Report, change models.StatusChange) error {
	args := m.Called(report, change)
	return args.Error(0)
}

func (m *MockStorage) UpdateSeverity(id string, severity models.Severity) error {
	args := m.Called(id, severity)
	return args.Error(0)
}

func (m *MockStorage) DeleteReport(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockStorage) IncrementViewCount(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockStorage) CreateAPIKey(key *models.APIKey) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockStorage) GetAPIKeyByID(id string) (*models.APIKey, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.APIKey), args.Error(1)
}

func (m *MockStorage) GetAPIKeyByHash(hash string) (*models.APIKey, error) {
	args := m.Called(hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.APIKey), args.Error(1)
}

func (m *MockStorage) FindActiveTrialKey(userID string) (*models.APIKey, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.APIKey), args.Error(1)
}

func (m *MockStorage) ListAPIKeys(userID string) ([]models.APIKey, error) {
	args := m.Called(userID)
	return args.Get(0).([]models.APIKey), args.Error(1)
}

func (m *MockStorage) UpdateAPIKeyStatus(id string, status models.KeyStatus) error {
	args := m.Called(id, status)
	return args.Error(0)
}

func (m *MockStorage) ConsumeQuota(keyID string, now time.Time) (*models.APIKey, error) {
	args := m.Called(keyID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.APIKey), args.Error(1)
}

func (m *MockStorage) AllowMinute(keyID string, limit int, now time.Time) (bool, error) {
	args := m.Called(keyID, limit, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) ExpireKeys(now time.Time) (int64, error) {
	args := m.Called(now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) CreatePaymentOrder(order *models.PaymentOrder) error {
	args := m.Called(order)
	return args.Error(0)
}

func (m *MockStorage) GetOrderByGatewayID(gatewayOrderID string) (*models.PaymentOrder, error) {
	args := m.Called(gatewayOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentOrder), args.Error(1)
}

func (m *MockStorage) MarkPaidAndCreateKey(orderID, paymentID string, key *models.APIKey) error {
	args := m.Called(orderID, paymentID, key)
	return args.Error(0)
}

func (m *MockStorage) MarkOrderFailed(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockStorage) SaveUser(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockStorage) GetUserByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) GetUserByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) GetUserByTelegramChatID(chatID int64) (*models.User, error) {
	args := m.Called(chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) LinkTelegram(userID string, chatID int64) error {
	args := m.Called(userID, chatID)
	return args.Error(0)
}

func (m *MockStorage) PublishEvent(ev models.Event) error {
	args := m.Called(ev)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) StatusChanged(report *models.Report, old models.ReportStatus, notes string) {
	m.Called(report, old, notes)
}

func (m *MockNotifier) TrialKeyIssued(key *models.APIKey, plaintext string) {
	m.Called(key, plaintext)
}

func (m *MockNotifier) KeyPurchased(key *models.APIKey) {
	m.Called(key)
}
