package handler

import (
	"net/http"

	"ecosakshi/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// IssueTrialKey creates the NGO's free 7-day key. The response is the only
// place the plaintext secret ever appears besides the issuance email.
func (h *Handler) IssueTrialKey(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key, plaintext, err := h.Keys.IssueTrialKey(GetActor(c).ID, req.Name)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"key": key, "full_key": plaintext})
}

// ListKeys returns the caller's keys with masked prefixes.
func (h *Handler) ListKeys(c *gin.Context) {
	keys, err := h.Keys.ListKeys(GetActor(c).ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list keys"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// RevokeKey terminates one of the caller's keys.
func (h *Handler) RevokeKey(c *gin.Context) {
	if err := h.Keys.RevokeKey(c.Param("id"), GetActor(c).ID); err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": true})
}

// CreateOrder is phase one of a paid purchase: price the plan and open a
// gateway order. The client completes checkout against the returned order id.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
		Plan string `json:"plan" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.Keys.CreateOrder(GetActor(c).ID, req.Name, models.KeyPlan(req.Plan))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"order_id":     order.GatewayOrderID,
		"amount_paise": order.AmountPaise,
		"currency":     order.Currency,
		"plan":         order.Plan,
	})
}

// VerifyOrder is phase two: the checkout callback payload is verified and,
// only on success, the key is issued.
func (h *Handler) VerifyOrder(c *gin.Context) {
	var req struct {
		OrderID   string `json:"razorpay_order_id" binding:"required"`
		PaymentID string `json:"razorpay_payment_id" binding:"required"`
		Signature string `json:"razorpay_signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key, plaintext, err := h.Keys.VerifyAndIssue(req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"key": key, "full_key": plaintext})
}
