package gateway

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/k-negishi/calendar-alert-notifier/internal/domain"
)

// maxEventsPerDay 1日に取得する予定の上限
const maxEventsPerDay = 50

// EventsProvider Google Calendar APIからイベント一覧を取得するインターフェース
type EventsProvider interface {
	ListEvents(ctx context.Context, calendarID, timeMin, timeMax string) ([]*calendar.Event, error)
}

// serviceEventsProvider calendar.Service を使った EventsProvider の実装
type serviceEventsProvider struct {
	service *calendar.Service
}

// ListEvents 指定期間の予定を開始時刻順に取得
func (p *serviceEventsProvider) ListEvents(ctx context.Context, calendarID, timeMin, timeMax string) ([]*calendar.Event, error) {
	events, err := p.service.Events.List(calendarID).
		TimeMin(timeMin).
		TimeMax(timeMax).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(maxEventsPerDay).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return events.Items, nil
}

// GoogleCalendarRepository Google Calendar APIを使用したCalendarRepositoryの実装
type GoogleCalendarRepository struct {
	provider   EventsProvider
	calendarID string
	timezone   *time.Location
	logger     *zap.Logger
}

// NewGoogleCalendarRepository Google Calendarリポジトリを作成
func NewGoogleCalendarRepository(ctx context.Context, credentialsJSON []byte, calendarID string, logger *zap.Logger) (*GoogleCalendarRepository, error) {
	// サービスアカウント認証でCalendar APIクライアントを作成
	creds, err := google.CredentialsFromJSON(
		ctx,
		credentialsJSON,
		calendar.CalendarReadonlyScope,
	)
	if err != nil {
		return nil, fmt.Errorf("google認証情報の読み込みに失敗しました: %v", err)
	}

	service, err := calendar.NewService(
		ctx,
		option.WithCredentials(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("google Calendar APIサービスの作成に失敗しました: %v", err)
	}

	repo := NewGoogleCalendarRepositoryWithProvider(&serviceEventsProvider{service: service}, calendarID, time.Local)
	if logger != nil {
		repo.logger = logger
	}
	return repo, nil
}

// NewGoogleCalendarRepositoryWithService 既存の calendar.Service からリポジトリを作成
func NewGoogleCalendarRepositoryWithService(service *calendar.Service, calendarID string, timezone *time.Location) *GoogleCalendarRepository {
	return NewGoogleCalendarRepositoryWithProvider(&serviceEventsProvider{service: service}, calendarID, timezone)
}

// NewGoogleCalendarRepositoryWithProvider EventsProvider を指定してリポジトリを作成
func NewGoogleCalendarRepositoryWithProvider(provider EventsProvider, calendarID string, timezone *time.Location) *GoogleCalendarRepository {
	return &GoogleCalendarRepository{
		provider:   provider,
		calendarID: calendarID,
		timezone:   timezone,
		logger:     zap.NewNop(),
	}
}

// GetEvents 指定された日の予定を取得
func (r *GoogleCalendarRepository) GetEvents(ctx context.Context, targetDate time.Time) ([]domain.CalendarEvent, error) {
	// 開始時刻: 指定日の00:00:00 - inclusive
	start := time.Date(
		targetDate.Year(), targetDate.Month(), targetDate.Day(),
		0, 0, 0, 0, r.timezone,
	)

	// 終了時刻: 翌日の00:00:00 - exclusive
	end := start.AddDate(0, 0, 1)

	items, err := r.provider.ListEvents(ctx, r.calendarID, start.Format(time.RFC3339), end.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("カレンダーイベントの取得に失敗しました: %w", err)
	}

	r.logger.Debug("カレンダーイベントを取得しました",
		zap.String("date", start.Format(domain.DateLayout)),
		zap.Int("count", len(items)))

	// イベントを変換
	events := make([]domain.CalendarEvent, 0, len(items))
	for _, item := range items {
		event, err := r.convertToEvent(item)
		if err != nil {
			r.logger.Warn("イベントの変換をスキップしました", zap.String("id", item.Id), zap.Error(err))
			continue
		}
		events = append(events, event)
	}

	return events, nil
}

// convertToEvent Google Calendar APIのイベントを取り込み用の構造体に変換
func (r *GoogleCalendarRepository) convertToEvent(event *calendar.Event) (domain.CalendarEvent, error) {
	calendarEvent := domain.CalendarEvent{
		ID:    event.Id,
		Title: event.Summary,
	}

	// タイトルが空の場合は「（無題）」に設定
	if calendarEvent.Title == "" {
		calendarEvent.Title = "（無題）"
	}

	if event.Start == nil {
		return domain.CalendarEvent{}, fmt.Errorf("開始時刻が設定されていません")
	}

	// 開始時刻の処理
	if event.Start.DateTime != "" {
		// 時刻指定ありのイベント
		startTime, err := time.Parse(time.RFC3339, event.Start.DateTime)
		if err != nil {
			return domain.CalendarEvent{}, fmt.Errorf("開始時刻の解析に失敗しました: %v", err)
		}
		calendarEvent.StartTime = startTime.In(r.timezone)
	} else if event.Start.Date != "" {
		// 終日イベント
		startTime, err := time.ParseInLocation(domain.DateLayout, event.Start.Date, r.timezone)
		if err != nil {
			return domain.CalendarEvent{}, fmt.Errorf("開始日の解析に失敗しました: %v", err)
		}
		calendarEvent.StartTime = startTime
		calendarEvent.IsAllDay = true
	} else {
		return domain.CalendarEvent{}, fmt.Errorf("開始時刻が設定されていません")
	}

	return calendarEvent, nil
}
