package main

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/k-negishi/calendar-alert-notifier/internal/config"
	"github.com/k-negishi/calendar-alert-notifier/internal/gateway"
	"github.com/k-negishi/calendar-alert-notifier/internal/logging"
	"github.com/k-negishi/calendar-alert-notifier/internal/store"
	"github.com/k-negishi/calendar-alert-notifier/internal/usecase"
)

// LambdaEvent Lambda実行時のイベント構造体
type LambdaEvent struct {
	// EventBridge Schedulerからの実行なので特に使用しない
}

// LambdaResponse Lambda実行結果のレスポンス
type LambdaResponse struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Imported   int      `json:"imported"`
	Alerts     []string `json:"alerts"`
}

// handler Lambda関数のメインハンドラー
func handler(ctx context.Context, _ LambdaEvent) (LambdaResponse, error) {
	// 設定を読み込み
	cfg, err := config.Load(ctx)
	if err != nil {
		return LambdaResponse{
			StatusCode: 500,
			Message:    "設定読み込みエラー",
		}, err
	}

	logger, err := logging.New(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		return LambdaResponse{
			StatusCode: 500,
			Message:    "ロガー初期化エラー",
		}, err
	}
	defer logging.Sync(logger)

	var calendarRepo usecase.CalendarRepository
	if cfg.HasGoogleCredentials() {
		repo, err := gateway.NewGoogleCalendarRepository(ctx, []byte(cfg.GoogleCredentials), cfg.CalendarID, logger)
		if err != nil {
			return LambdaResponse{
				StatusCode: 500,
				Message:    "Google Calendar初期化エラー",
			}, err
		}
		calendarRepo = repo
	}

	eventStore := store.Open(gateway.NewJSONFileRepository(cfg.EventsFile), logger)
	return run(ctx, cfg, eventStore, calendarRepo, time.Now(), logger)
}

// run 今日の予定の取り込みとアラートスキャンを1回ずつ実行
// calendarRepo が nil の場合は取り込みを行わない
func run(ctx context.Context, cfg *config.Config, eventStore *store.Store, calendarRepo usecase.CalendarRepository, now time.Time, logger *zap.Logger) (LambdaResponse, error) {
	response := LambdaResponse{StatusCode: 200}

	if calendarRepo != nil {
		result, err := usecase.NewImportEventsUseCase(calendarRepo, eventStore, logger).Execute(ctx, now, cfg.DefaultAlertLeadMinutes)
		if err != nil {
			return LambdaResponse{
				StatusCode: 500,
				Message:    "予定取り込みエラー",
			}, err
		}
		response.Imported = len(result.Added)
	}

	alerts, err := usecase.NewAlertScanner(eventStore, nil, logger).Scan(ctx, now)
	if err != nil {
		return LambdaResponse{
			StatusCode: 500,
			Message:    "アラートスキャンエラー",
		}, err
	}
	response.Alerts = alerts

	if len(alerts) == 0 {
		response.Message = "アラートなし"
		return response, nil
	}

	for _, alert := range alerts {
		logger.Warn("アラート", zap.String("message", alert))
	}
	response.Message = "アラートを検出しました"
	return response, nil
}

func main() {
	lambda.Start(handler)
}
