package storage

import (
	"encoding/json"
	"errors"
	"log"

	"ecosakshi/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// NotifyChannel is the Redis pub/sub channel notification events go through,
// so every server instance can deliver to its own websocket clients.
const NotifyChannel = "notify:events"

// SaveUser upserts a user row.
func (s *Service) SaveUser(user *models.User) error {
	return s.DB.Save(user).Error
}

// GetUserByID loads a user by ID.
func (s *Service) GetUserByID(id string) (*models.User, error) {
	return s.findUser("id = ?", id)
}

// GetUserByEmail loads a user by email.
func (s *Service) GetUserByEmail(email string) (*models.User, error) {
	return s.findUser("email = ?", email)
}

// GetUserByTelegramChatID loads the user whose Telegram chat is linked.
func (s *Service) GetUserByTelegramChatID(chatID int64) (*models.User, error) {
	return s.findUser("telegram_chat_id = ?", chatID)
}

func (s *Service) findUser(query string, arg interface{}) (*models.User, error) {
	var user models.User
	err := s.DB.Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// LinkTelegram attaches a Telegram chat to the user's account.
func (s *Service) LinkTelegram(userID string, chatID int64) error {
	res := s.DB.Model(&models.User{}).Where("id = ?", userID).Update("telegram_chat_id", chatID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreatePaymentOrder persists a phase-one purchase order.
func (s *Service) CreatePaymentOrder(order *models.PaymentOrder) error {
	if err := s.DB.Create(order).Error; err != nil {
		log.Printf("ERROR: Failed to create payment order for user %s: %v", order.UserID, err)
		return err
	}
	return nil
}

// GetOrderByGatewayID loads an order by the gateway's order reference.
func (s *Service) GetOrderByGatewayID(gatewayOrderID string) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	err := s.DB.Where("gateway_order_id = ?", gatewayOrderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkPaidAndCreateKey moves an order from created to paid and persists the
// issued key in the same transaction, so a paid order with no key can never
// be observed. The conditional update makes it the double-issue guard: a
// replayed verification callback finds no created row and gets ErrConflict.
func (s *Service) MarkPaidAndCreateKey(orderID, paymentID string, key *models.APIKey) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PaymentOrder{}).
			Where("id = ? AND status = ?", orderID, models.OrderCreated).
			Updates(map[string]interface{}{
				"status":     models.OrderPaid,
				"payment_id": paymentID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		if err := tx.Create(key).Error; err != nil {
			log.Printf("ERROR: Failed to create API key for paid order %s: %v", orderID, err)
			return err
		}
		return nil
	})
}

// MarkOrderFailed records a failed verification.
func (s *Service) MarkOrderFailed(id string) error {
	return s.DB.Model(&models.PaymentOrder{}).
		Where("id = ? AND status = ?", id, models.OrderCreated).
		Update("status", models.OrderFailed).Error
}

// PublishEvent publishes a notification event to Redis Pub/Sub.
func (s *Service) PublishEvent(ev models.Event) error {
	if s.Redis == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, NotifyChannel, payload).Err()
}

// SubscribeEvents subscribes to the notification channel. Only the concrete
// service exposes this; the websocket hub holds a *Service for it.
func (s *Service) SubscribeEvents() *redis.PubSub {
	return s.Redis.Subscribe(s.Ctx, NotifyChannel)
}
