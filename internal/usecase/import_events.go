package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/k-negishi/calendar-alert-notifier/internal/domain"
)

// CalendarRepository カレンダーからイベントを取得するポート
type CalendarRepository interface {
	GetEvents(ctx context.Context, targetDate time.Time) ([]domain.CalendarEvent, error)
}

// EventWriter イベントを登録するポート
type EventWriter interface {
	Contains(at time.Time, description string) bool
	Add(at time.Time, description string, alertLeadMinutes int) (string, error)
}

// ImportResult 取り込み結果
type ImportResult struct {
	Added   []string
	Skipped int
}

// ImportEventsUseCase Google Calendarの予定を取り込むユースケース
type ImportEventsUseCase struct {
	calendarRepo CalendarRepository
	store        EventWriter
	logger       *zap.Logger
}

// NewImportEventsUseCase ユースケースを生成
func NewImportEventsUseCase(calendarRepo CalendarRepository, store EventWriter, logger *zap.Logger) *ImportEventsUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportEventsUseCase{
		calendarRepo: calendarRepo,
		store:        store,
		logger:       logger,
	}
}

// Execute 指定日の予定を取得し、未登録の時刻指定イベントを追加する
func (uc *ImportEventsUseCase) Execute(ctx context.Context, targetDate time.Time, alertLeadMinutes int) (ImportResult, error) {
	var result ImportResult

	events, err := uc.calendarRepo.GetEvents(ctx, targetDate)
	if err != nil {
		uc.logger.Error("予定の取得に失敗しました", zap.Error(err))
		return result, err
	}

	for _, event := range events {
		// 終日イベントには分単位の時刻がない
		if event.IsAllDay || uc.store.Contains(event.StartTime, event.Title) {
			result.Skipped++
			continue
		}

		msg, err := uc.store.Add(event.StartTime, event.Title, alertLeadMinutes)
		if err != nil {
			return result, fmt.Errorf("予定 %q の追加に失敗しました: %w", event.Title, err)
		}
		result.Added = append(result.Added, msg)
	}

	uc.logger.Info("予定を取り込みました",
		zap.Int("added", len(result.Added)),
		zap.Int("skipped", result.Skipped))

	return result, nil
}
