package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resumegenius/internal/database"
	"resumegenius/internal/ledger"
	"resumegenius/internal/payment"
)

// PaymentGateway 抽象支付网关，便于测试替换真实的 Razorpay 客户端。
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*payment.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
}

// 订阅有效期。到期后由运营流程清理，不在请求路径上判断。
const subscriptionPeriod = 30 * 24 * time.Hour

// SubscriptionHandler 负责下单、支付确认与订阅查询。
// 支付结果只认服务端签名校验，客户端自报的状态一律不信。
type SubscriptionHandler struct {
	db      *gorm.DB
	quota   *ledger.Ledger
	gateway PaymentGateway
	logger  *slog.Logger
}

// NewSubscriptionHandler 构造订阅处理器。
func NewSubscriptionHandler(db *gorm.DB, gateway PaymentGateway, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		db:      db,
		quota:   ledger.New(db),
		gateway: gateway,
		logger:  logger,
	}
}

type createOrderRequest struct {
	PlanName string `json:"plan_name" binding:"required"`
}

type createOrderResponse struct {
	SubscriptionID uint   `json:"subscription_id"`
	OrderID        string `json:"order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	KeyID          string `json:"key_id"`
}

// CreateOrder 创建网关订单并落一条 pending 订阅。
// 已有生效订阅时拒绝重复购买。
func (h *SubscriptionHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := loggerFrom(c, h.logger).With(
		slog.Uint64("user_id", uint64(userID)),
		slog.String("plan", req.PlanName),
	)

	plan, ok := payment.PlanByName(req.PlanName)
	if !ok {
		BadRequest(c, "unknown plan")
		return
	}

	if _, err := h.quota.ActiveSubscription(ctx, userID); err == nil {
		Conflict(c, "subscription already active")
		return
	} else if !errors.Is(err, ledger.ErrNoActiveSubscription) {
		logger.Error("query active subscription failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	receipt := fmt.Sprintf("sub_%d_%d", userID, time.Now().Unix())
	order, err := h.gateway.CreateOrder(ctx, plan.AmountPaise(), "INR", receipt, map[string]string{
		"plan": plan.Name,
	})
	if err != nil {
		logger.Error("create gateway order failed", slog.Any("error", err))
		Internal(c, "payment gateway unavailable")
		return
	}

	now := time.Now()
	sub := database.Subscription{
		UserID:           userID,
		PlanName:         plan.Name,
		Status:           database.SubscriptionStatusPending,
		ResumesRemaining: 0,
		StartDate:        now,
		EndDate:          now.Add(subscriptionPeriod),
		RazorpayOrderID:  order.ID,
	}
	if err := h.db.WithContext(ctx).Create(&sub).Error; err != nil {
		logger.Error("create pending subscription failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("subscription order created",
		slog.Uint64("subscription_id", uint64(sub.ID)),
		slog.String("order_id", order.ID),
	)
	c.JSON(http.StatusCreated, createOrderResponse{
		SubscriptionID: sub.ID,
		OrderID:        order.ID,
		Amount:         order.Amount,
		Currency:       order.Currency,
		KeyID:          h.gateway.KeyID(),
	})
}

type verifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}

// VerifyPayment 校验支付回调签名并激活订阅。
// 签名不合法时不做任何状态变更，直接拒绝。
func (h *SubscriptionHandler) VerifyPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := loggerFrom(c, h.logger).With(
		slog.Uint64("user_id", uint64(userID)),
		slog.String("order_id", req.OrderID),
	)

	var sub database.Subscription
	if err := h.db.WithContext(ctx).
		Where("razorpay_order_id = ? AND user_id = ?", req.OrderID, userID).
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "order not found")
			return
		}
		logger.Error("query subscription failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !h.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		logger.Warn("payment signature verification failed")
		BadRequest(c, "payment verification failed")
		return
	}

	plan, ok := payment.PlanByName(sub.PlanName)
	if !ok {
		logger.Error("subscription references unknown plan", slog.String("plan", sub.PlanName))
		Internal(c, "internal error")
		return
	}

	if err := h.quota.Activate(ctx, sub.ID, plan.ResumesPerDay, req.PaymentID, req.Signature); err != nil {
		if errors.Is(err, ledger.ErrNotPending) {
			Conflict(c, "subscription already processed")
			return
		}
		logger.Error("activate subscription failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("subscription activated",
		slog.Uint64("subscription_id", uint64(sub.ID)),
		slog.Int("resumes_remaining", plan.ResumesPerDay),
	)
	c.JSON(http.StatusOK, gin.H{
		"status":            database.SubscriptionStatusActive,
		"plan_name":         plan.Name,
		"resumes_remaining": plan.ResumesPerDay,
	})
}

type subscriptionResponse struct {
	ID               uint      `json:"id"`
	PlanName         string    `json:"plan_name"`
	Status           string    `json:"status"`
	ResumesRemaining int       `json:"resumes_remaining"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
}

// GetSubscription 返回用户最近一条订阅记录。
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	sub, err := h.quota.LatestSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "no subscription")
			return
		}
		loggerFrom(c, h.logger).Error("query subscription failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, subscriptionResponse{
		ID:               sub.ID,
		PlanName:         sub.PlanName,
		Status:           sub.Status,
		ResumesRemaining: sub.ResumesRemaining,
		StartDate:        sub.StartDate,
		EndDate:          sub.EndDate,
	})
}

// ListPlans 返回套餐目录，供前端展示定价页。
func (h *SubscriptionHandler) ListPlans(c *gin.Context) {
	type planItem struct {
		Name          string `json:"name"`
		PriceINR      int    `json:"price_inr"`
		ResumesPerDay int    `json:"resumes_per_day"`
	}

	items := make([]planItem, 0, 3)
	for _, p := range payment.Plans() {
		items = append(items, planItem{
			Name:          p.Name,
			PriceINR:      p.PriceINR,
			ResumesPerDay: p.ResumesPerDay,
		})
	}
	c.JSON(http.StatusOK, items)
}
