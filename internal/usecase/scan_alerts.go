package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/k-negishi/calendar-alert-notifier/internal/domain"
)

// DueEventStore アラート時間に入ったイベントを通知済みにするポート
type DueEventStore interface {
	FireDue(now time.Time) ([]domain.Event, error)
}

// Notifier アラートを表示するポート
type Notifier interface {
	SendAlerts(ctx context.Context, alerts []string) error
}

// AlertScanner アラートスキャンのユースケース
type AlertScanner struct {
	store    DueEventStore
	notifier Notifier
	logger   *zap.Logger
}

// NewAlertScanner ユースケースを生成。notifier は nil でもよい
func NewAlertScanner(store DueEventStore, notifier Notifier, logger *zap.Logger) *AlertScanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertScanner{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Scan 未通知でアラート時間に入ったイベントを通知済みにし、アラートメッセージを返す
func (uc *AlertScanner) Scan(ctx context.Context, now time.Time) ([]string, error) {
	fired, err := uc.store.FireDue(now)
	if err != nil {
		uc.logger.Error("アラートスキャン結果の保存に失敗しました", zap.Error(err))
		return nil, err
	}

	alerts := make([]string, 0, len(fired))
	for _, event := range fired {
		alerts = append(alerts, BuildAlertText(event))
	}

	uc.logger.Debug("アラートスキャンが完了しました",
		zap.String("now", domain.FormatTimestamp(now)),
		zap.Int("fired", len(alerts)))

	if len(alerts) == 0 || uc.notifier == nil {
		return alerts, nil
	}

	// 表示の失敗はスキャンの失敗として扱わない
	if err := uc.notifier.SendAlerts(ctx, alerts); err != nil {
		uc.logger.Warn("アラートの表示に失敗しました", zap.Error(err))
	}

	return alerts, nil
}

// BuildAlertText 発火したイベントのアラート文言
func BuildAlertText(event domain.Event) string {
	return fmt.Sprintf("🔔 アラート: %s (%s)", event.Description, event.Key())
}
