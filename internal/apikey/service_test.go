package apikey_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"ecosakshi/backend/internal/apikey"
	"ecosakshi/backend/internal/models"
	"ecosakshi/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func newService(storageMock *MockStorage, gatewayMock *MockGateway, notifierMock *MockNotifier) *apikey.Service {
	svc := apikey.NewService(storageMock, gatewayMock, notifierMock)
	svc.Now = func() time.Time { return testNow }
	return svc
}

func activeKey(plan models.KeyPlan) *models.APIKey {
	return &models.APIKey{
		ID:                "key-1",
		UserID:            "ngo-1",
		Name:              "Air quality dashboard",
		Plan:              plan,
		Status:            models.KeyActive,
		RequestsPerMinute: 60,
		RequestsPerDay:    50,
		RequestsPerMonth:  500,
		ExpiresAt:         testNow.Add(72 * time.Hour),
	}
}

func TestIssueTrialKey_Success(t *testing.T) {
	storageMock := new(MockStorage)
	notifierMock := new(MockNotifier)
	svc := newService(storageMock, new(MockGateway), notifierMock)

	storageMock.On("FindActiveTrialKey", "ngo-1").Return(nil, nil)
	storageMock.On("CreateAPIKey", mock.MatchedBy(func(k *models.APIKey) bool {
		return k.Plan == models.PlanFree &&
			k.Status == models.KeyActive &&
			k.RequestsPerMinute == 60 && k.RequestsPerDay == 50 && k.RequestsPerMonth == 500 &&
			k.ExpiresAt.Equal(testNow.Add(7*24*time.Hour)) &&
			k.DayResetAt.Equal(testNow) && k.MonthResetAt.Equal(testNow)
	})).Return(nil).Once()
	notifierMock.On("TrialKeyIssued", mock.Anything, mock.Anything).Once()

	key, plaintext, err := svc.IssueTrialKey("ngo-1", "Air quality dashboard")

	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(plaintext, "esk_"))
	assert.Len(t, plaintext, 4+48)
	assert.Equal(t, apikey.HashSecret(plaintext), key.KeyHash)
	assert.NotContains(t, key.KeyPrefix, plaintext[12:], "stored prefix must not reveal the secret")
	storageMock.AssertExpectations(t)
	notifierMock.AssertExpectations(t)
}

func TestIssueTrialKey_DuplicateActiveTrial(t *testing.T) {
	storageMock := new(MockStorage)
	svc := newService(storageMock, new(MockGateway), new(MockNotifier))

	existing := activeKey(models.PlanFree)
	storageMock.On("FindActiveTrialKey", "ngo-1").Return(existing, nil)

	_, _, err := svc.IssueTrialKey("ngo-1", "Second dashboard")

	assert.ErrorIs(t, err, apikey.ErrDuplicateActiveTrial)
	storageMock.AssertNotCalled(t, "CreateAPIKey", mock.Anything)
}

// An active-status trial whose validity already lapsed gets expired in place
// and does not block a fresh trial.
func TestIssueTrialKey_StaleTrialIsSweptAside(t *testing.T) {
	storageMock := new(MockStorage)
	notifierMock := new(MockNotifier)
	svc := newService(storageMock, new(MockGateway), notifierMock)

	stale := activeKey(models.PlanFree)
	stale.ExpiresAt = testNow.Add(-time.Hour)
	storageMock.On("FindActiveTrialKey", "ngo-1").Return(stale, nil)
	storageMock.On("UpdateAPIKeyStatus", "key-1", models.KeyExpired).Return(nil).Once()
	storageMock.On("CreateAPIKey", mock.Anything).Return(nil).Once()
	notifierMock.On("TrialKeyIssued", mock.Anything, mock.Anything).Once()

	_, _, err := svc.IssueTrialKey("ngo-1", "Fresh trial")

	assert.NoError(t, err)
	storageMock.AssertExpectations(t)
}

func TestIssueTrialKey_NameRequired(t *testing.T) {
	svc := newService(new(MockStorage), new(MockGateway), new(MockNotifier))

	_, _, err := svc.IssueTrialKey("ngo-1", "")

	assert.ErrorIs(t, err, apikey.ErrInvalidInput)
}

func TestCreateOrder_PricedFromPlanTable(t *testing.T) {
	storageMock := new(MockStorage)
	gatewayMock := new(MockGateway)
	svc := newService(storageMock, gatewayMock, new(MockNotifier))

	gatewayMock.On("CreateOrder", int64(299900), "INR", "ngo-1", mock.Anything).Return("order_rzp123", nil).Once()
	storageMock.On("CreatePaymentOrder", mock.MatchedBy(func(o *models.PaymentOrder) bool {
		return o.GatewayOrderID == "order_rzp123" &&
			o.Plan == models.PlanPremium &&
			o.AmountPaise == 299900 &&
			o.Status == models.OrderCreated
	})).Return(nil).Once()

	order, err := svc.CreateOrder("ngo-1", "Premium dashboard", models.PlanPremium)

	assert.NoError(t, err)
	assert.Equal(t, "order_rzp123", order.GatewayOrderID)
	gatewayMock.AssertExpectations(t)
	storageMock.AssertExpectations(t)
}

func TestCreateOrder_FreePlanNotPurchasable(t *testing.T) {
	gatewayMock := new(MockGateway)
	svc := newService(new(MockStorage), gatewayMock, new(MockNotifier))

	_, err := svc.CreateOrder("ngo-1", "dashboard", models.PlanFree)

	assert.ErrorIs(t, err, apikey.ErrInvalidInput)
	gatewayMock.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func pendingOrder() *models.PaymentOrder {
	return &models.PaymentOrder{
		ID:             "ord-1",
		UserID:         "ngo-1",
		KeyName:        "Premium dashboard",
		Plan:           models.PlanPremium,
		AmountPaise:    299900,
		Currency:       "INR",
		GatewayOrderID: "order_rzp123",
		Status:         models.OrderCreated,
	}
}

func TestVerifyAndIssue_Success(t *testing.T) {
	storageMock := new(MockStorage)
	gatewayMock := new(MockGateway)
	notifierMock := new(MockNotifier)
	svc := newService(storageMock, gatewayMock, notifierMock)

	storageMock.On("GetOrderByGatewayID", "order_rzp123").Return(pendingOrder(), nil)
	gatewayMock.On("VerifySignature", "order_rzp123", "pay_abc", "sig").Return(true)
	storageMock.On("MarkPaidAndCreateKey", "ord-1", "pay_abc", mock.MatchedBy(func(k *models.APIKey) bool {
		return k.Plan == models.PlanPremium &&
			k.RequestsPerMinute == 300 &&
			k.ExpiresAt.Equal(testNow.Add(30*24*time.Hour))
	})).Return(nil).Once()
	notifierMock.On("KeyPurchased", mock.Anything).Once()

	key, plaintext, err := svc.VerifyAndIssue("order_rzp123", "pay_abc", "sig")

	assert.NoError(t, err)
	assert.NotEmpty(t, plaintext)
	assert.Equal(t, models.PlanPremium, key.Plan)
	storageMock.AssertExpectations(t)
}

// A tampered signature marks the order failed and never issues a key.
func TestVerifyAndIssue_BadSignature(t *testing.T) {
	storageMock := new(MockStorage)
	gatewayMock := new(MockGateway)
	svc := newService(storageMock, gatewayMock, new(MockNotifier))

	storageMock.On("GetOrderByGatewayID", "order_rzp123").Return(pendingOrder(), nil)
	gatewayMock.On("VerifySignature", "order_rzp123", "pay_abc", "forged").Return(false)
	storageMock.On("MarkOrderFailed", "ord-1").Return(nil).Once()

	_, _, err := svc.VerifyAndIssue("order_rzp123", "pay_abc", "forged")

	assert.ErrorIs(t, err, apikey.ErrPaymentVerificationFailed)
	storageMock.AssertNotCalled(t, "MarkPaidAndCreateKey", mock.Anything, mock.Anything, mock.Anything)
	storageMock.AssertExpectations(t)
}

// Replaying a verified callback cannot mint a second key: the conditional
// paid-flip inside the combined write fails, taking the key insert with it.
func TestVerifyAndIssue_ReplayedCallback(t *testing.T) {
	storageMock := new(MockStorage)
	gatewayMock := new(MockGateway)
	notifierMock := new(MockNotifier)
	svc := newService(storageMock, gatewayMock, notifierMock)

	paid := pendingOrder()
	paid.Status = models.OrderPaid
	storageMock.On("GetOrderByGatewayID", "order_rzp123").Return(paid, nil)
	gatewayMock.On("VerifySignature", "order_rzp123", "pay_abc", "sig").Return(true)
	storageMock.On("MarkPaidAndCreateKey", "ord-1", "pay_abc", mock.Anything).Return(storage.ErrConflict)

	_, _, err := svc.VerifyAndIssue("order_rzp123", "pay_abc", "sig")

	assert.ErrorIs(t, err, storage.ErrConflict)
	notifierMock.AssertNotCalled(t, "KeyPurchased", mock.Anything)
}

// Paid issuance is one persistence write: when it fails on an infra fault,
// no key exists, the owner is not notified, and the order is not stranded in
// paid (the flip rolled back with the insert), so the callback can be retried.
func TestVerifyAndIssue_PersistenceFaultIsRetryable(t *testing.T) {
	storageMock := new(MockStorage)
	gatewayMock := new(MockGateway)
	notifierMock := new(MockNotifier)
	svc := newService(storageMock, gatewayMock, notifierMock)

	gatewayMock.On("VerifySignature", "order_rzp123", "pay_abc", "sig").Return(true)
	storageMock.On("GetOrderByGatewayID", "order_rzp123").Return(pendingOrder(), nil)
	storageMock.On("MarkPaidAndCreateKey", "ord-1", "pay_abc", mock.Anything).
		Return(errors.New("pq: connection reset")).Once()

	_, _, err := svc.VerifyAndIssue("order_rzp123", "pay_abc", "sig")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrConflict)
	notifierMock.AssertNotCalled(t, "KeyPurchased", mock.Anything)

	// The same callback retried succeeds: the order is still in created.
	storageMock.On("MarkPaidAndCreateKey", "ord-1", "pay_abc", mock.Anything).Return(nil).Once()
	notifierMock.On("KeyPurchased", mock.Anything).Once()

	key, plaintext, err := svc.VerifyAndIssue("order_rzp123", "pay_abc", "sig")

	assert.NoError(t, err)
	assert.NotEmpty(t, plaintext)
	assert.Equal(t, models.PlanPremium, key.Plan)
	storageMock.AssertExpectations(t)
	notifierMock.AssertExpectations(t)
}

func TestAuthenticate_UnknownSecret(t *testing.T) {
	storageMock := new(MockStorage)
	svc := newService(storageMock, new(MockGateway), new(MockNotifier))

	storageMock.On("GetAPIKeyByHash", mock.Anything).Return(nil, storage.ErrNotFound)

	_, err := svc.Authenticate("esk_deadbeef")

	assert.ErrorIs(t, err, apikey.ErrKeyExpiredOrRevoked)
}

func TestAuthenticate_TerminalKeyRejected(t *testing.T) {
	for _, status := range []models.KeyStatus{models.KeyRevoked, models.KeyExpired} {
		t.Run(string(status), func(t *testing.T) {
			storageMock := new(MockStorage)
			svc := newService(storageMock, new(MockGateway), new(MockNotifier))

			key := activeKey(models.PlanBasic)
			key.Status = status
			storageMock.On("GetAPIKeyByHash", mock.Anything).Return(key, nil)

			_, err := svc.Authenticate("esk_secret")

			assert.ErrorIs(t, err, apikey.ErrKeyExpiredOrRevoked)
		})
	}
}

// A lapsed key is flipped to expired on its next use.
func TestAuthenticate_LazyExpiry(t *testing.T) {
	storageMock := new(MockStorage)
	svc := newService(storageMock, new(MockGateway), new(MockNotifier))

	key := activeKey(models.PlanBasic)
	key.ExpiresAt = testNow.Add(-time.Minute)
	storageMock.On("GetAPIKeyByHash", mock.Anything).Return(key, nil)
	storageMock.On("UpdateAPIKeyStatus", "key-1", models.KeyExpired).Return(nil).Once()

	_, err := svc.Authenticate("esk_secret")

	assert.ErrorIs(t, err, apikey.ErrKeyExpiredOrRevoked)
	storageMock.AssertExpectations(t)
}

func TestRecordUsage_Success(t *testing.T) {
	storageMock := new(MockStorage)
	svc := newService(storageMock, new(MockGateway), new(MockNotifier))

	key := activeKey(models.PlanBasic)
	metered := activeKey(models.PlanBasic)
	metered.RequestsToday = 12
	storageMock.On("AllowMinute", "key-1", key.RequestsPerMinute, testNow).Return(true, nil)
	storageMock.On("ConsumeQuota", "key-1", testNow).Return(metered, nil)

	updated, err := svc.RecordUsage(key)

	assert.NoError(t, err)
	assert.Equal(t, int64(12), updated.RequestsToday)
}

func TestRecordUsage_MinuteCapReached(t *testing.T) {
	storageMock := new(MockStorage)
	svc := newService(storageMock, new(MockGateway), new(MockNotifier))

	key := activeKey(models.PlanBasic)
	storageMock.On("AllowMinute", "key-1", key.RequestsPerMinute, testNow).Return(false, nil)

	_, err := svc.RecordUsage(key)

	assert.ErrorIs(t, err, apikey.ErrRateLimitExceeded)
	storageMock.AssertNotCalled(t, "ConsumeQuota", mock.Anything, mock.Anything)
}

func TestRecordUsage_QuotaExceeded(t *testing.T) {
	storageMock := new(MockStorage)
	svc := newService(storageMock, new(MockGateway), new(MockNotifier))

	key := activeKey(models.PlanBasic)
	storageMock.On("AllowMinute", "key-1", key.RequestsPerMinute, testNow).Return(true, nil)
	storageMock.On("ConsumeQuota", "key-1", testNow).Return(nil, storage.ErrQuotaExceeded)

	_, err := svc.RecordUsage(key)

	assert.ErrorIs(t, err, apikey.ErrRateLimitExceeded)
}

// Redis trouble must not take the data API down; the durable counters still
// bound usage.
func TestRecordUsage_MinuteWindowFailsOpen(t *testing.T) {
	storageMock := new(MockStorage)
	svc := newService(storageMock, new(MockGateway), new(MockNotifier))

	key := activeKey(models.PlanBasic)
	storageMock.On("AllowMinute", "key-1", key.RequestsPerMinute, testNow).Return(false, errors.New("redis: connection refused"))
	storageMock.On("ConsumeQuota", "key-1", testNow).Return(activeKey(models.PlanBasic), nil)

	_, err := svc.RecordUsage(key)

	assert.NoError(t, err)
	storageMock.AssertExpectations(t)
}

func TestRevokeKey_OwnershipEnforced(t *testing.T) {
	storageMock := new(MockStorage)
	svc := newService(storageMock, new(MockGateway), new(MockNotifier))

	storageMock.On("GetAPIKeyByID", "key-1").Return(activeKey(models.PlanBasic), nil)

	err := svc.RevokeKey("key-1", "other-ngo")

	assert.ErrorIs(t, err, apikey.ErrUnauthorized)
	storageMock.AssertNotCalled(t, "UpdateAPIKeyStatus", mock.Anything, mock.Anything)
}

func TestRevokeKey_IdempotentOnTerminal(t *testing.T) {
	storageMock := new(MockStorage)
	svc := newService(storageMock, new(MockGateway), new(MockNotifier))

	key := activeKey(models.PlanBasic)
	key.Status = models.KeyRevoked
	storageMock.On("GetAPIKeyByID", "key-1").Return(key, nil)

	err := svc.RevokeKey("key-1", "ngo-1")

	assert.NoError(t, err)
	storageMock.AssertNotCalled(t, "UpdateAPIKeyStatus", mock.Anything, mock.Anything)
}

func TestRevokeKey_Active(t *testing.T) {
	storageMock := new(MockStorage)
	svc := newService(storageMock, new(MockGateway), new(MockNotifier))

	storageMock.On("GetAPIKeyByID", "key-1").Return(activeKey(models.PlanBasic), nil)
	storageMock.On("UpdateAPIKeyStatus", "key-1", models.KeyRevoked).Return(nil).Once()

	assert.NoError(t, svc.RevokeKey("key-1", "ngo-1"))
	storageMock.AssertExpectations(t)
}
