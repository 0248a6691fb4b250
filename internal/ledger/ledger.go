package ledger

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"resumegenius/internal/database"
)

// 配额台账。预占与退款都走单条带条件的 UPDATE，
// 以 RowsAffected 作为成功信号，避免「先查后减」在并发下双花配额。
// 不变式：同一用户至多一条 active 订阅（由创建流程保证）；resumes_remaining 不会为负。

var (
	// ErrNoActiveSubscription 表示用户没有生效中的订阅。
	ErrNoActiveSubscription = errors.New("no active subscription")
	// ErrQuotaExhausted 表示剩余配额已用尽。
	ErrQuotaExhausted = errors.New("resume quota exhausted")
	// ErrNotPending 表示订阅不处于 pending 状态，无法激活。
	ErrNotPending = errors.New("subscription is not pending")
)

// Ledger 封装订阅台账的读写。
type Ledger struct {
	db *gorm.DB
}

// New 构造台账。
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// ActiveSubscription 返回用户当前生效的订阅。
func (l *Ledger) ActiveSubscription(ctx context.Context, userID uint) (*database.Subscription, error) {
	var sub database.Subscription
	err := l.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, database.SubscriptionStatusActive).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveSubscription
		}
		return nil, fmt.Errorf("query active subscription: %w", err)
	}
	return &sub, nil
}

// LatestSubscription 返回用户最近一条订阅记录（任意状态）。
func (l *Ledger) LatestSubscription(ctx context.Context, userID uint) (*database.Subscription, error) {
	var sub database.Subscription
	err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Reserve 原子地预占一次生成配额：
//
//	UPDATE subscriptions SET resumes_remaining = resumes_remaining - 1
//	WHERE user_id = ? AND status = 'active' AND resumes_remaining > 0
//
// RowsAffected == 1 即预占成功；并发请求中只有持有剩余配额的那些会成功。
// 返回预占后的订阅行。
func (l *Ledger) Reserve(ctx context.Context, userID uint) (*database.Subscription, error) {
	res := l.db.WithContext(ctx).
		Model(&database.Subscription{}).
		Where("user_id = ? AND status = ? AND resumes_remaining > 0", userID, database.SubscriptionStatusActive).
		UpdateColumn("resumes_remaining", gorm.Expr("resumes_remaining - 1"))
	if res.Error != nil {
		return nil, fmt.Errorf("reserve quota: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		// 区分「无订阅」与「配额耗尽」，只为给出准确的错误。
		if _, err := l.ActiveSubscription(ctx, userID); err != nil {
			return nil, err
		}
		return nil, ErrQuotaExhausted
	}

	sub, err := l.ActiveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Refund 归还一次预占的配额。生成任务终态失败时调用，
// 保证「失败的生成不消耗配额」。仅对仍然 active 的订阅生效。
func (l *Ledger) Refund(ctx context.Context, subscriptionID uint) error {
	res := l.db.WithContext(ctx).
		Model(&database.Subscription{}).
		Where("id = ? AND status = ?", subscriptionID, database.SubscriptionStatusActive).
		UpdateColumn("resumes_remaining", gorm.Expr("resumes_remaining + 1"))
	if res.Error != nil {
		return fmt.Errorf("refund quota: %w", res.Error)
	}
	return nil
}

// Activate 将 pending 订阅转为 active 并写入计划配额与支付凭证。
// 仅允许 pending -> active 的转移；重复回调或伪造的订阅 ID 不会产生任何变更。
func (l *Ledger) Activate(ctx context.Context, subscriptionID uint, quota int, paymentID, signature string) error {
	res := l.db.WithContext(ctx).
		Model(&database.Subscription{}).
		Where("id = ? AND status = ?", subscriptionID, database.SubscriptionStatusPending).
		Updates(map[string]any{
			"status":              database.SubscriptionStatusActive,
			"resumes_remaining":   quota,
			"razorpay_payment_id": paymentID,
			"razorpay_signature":  signature,
		})
	if res.Error != nil {
		return fmt.Errorf("activate subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotPending
	}
	return nil
}

// MarkFailed 将 pending 订阅标记为 failed（支付未完成或被拒）。
func (l *Ledger) MarkFailed(ctx context.Context, subscriptionID uint) error {
	res := l.db.WithContext(ctx).
		Model(&database.Subscription{}).
		Where("id = ? AND status = ?", subscriptionID, database.SubscriptionStatusPending).
		Update("status", database.SubscriptionStatusFailed)
	if res.Error != nil {
		return fmt.Errorf("mark subscription failed: %w", res.Error)
	}
	return nil
}
