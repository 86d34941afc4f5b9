package main

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/k-negishi/calendar-alert-notifier/internal/gateway"
	"github.com/k-negishi/calendar-alert-notifier/internal/usecase"
)

// alertScanner watch が定期的に呼び出すスキャン処理
type alertScanner interface {
	Scan(ctx context.Context, now time.Time) ([]string, error)
}

func newWatchCmd(a *app) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "一定間隔でアラートを確認し続ける",
		Long: `起動直後と、その後は一定間隔ごとにアラートを確認します。
前回のスキャンが終わっていない場合、その回はスキップします。
SIGINT / SIGTERM で停止します。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("interval") {
				interval = a.cfg.ScanInterval
			}
			scanner := usecase.NewAlertScanner(a.store, gateway.NewConsoleNotifier(cmd.OutOrStdout(), a.logger), a.logger)
			return runWatch(cmd.Context(), scanner, interval, a.now, a.logger)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "スキャン間隔（省略時は設定の既定値）")

	return cmd
}

// runWatch ctx がキャンセルされるか保存に失敗するまでスキャンを繰り返す
func runWatch(ctx context.Context, scanner alertScanner, interval time.Duration, now func() time.Time, logger *zap.Logger) error {
	if interval <= 0 {
		return fmt.Errorf("スキャン間隔は正の値である必要があります: %s", interval)
	}

	errCh := make(chan error, 1)
	scan := func() {
		if _, err := scanner.Scan(ctx, now()); err != nil {
			select {
			case errCh <- err:
			default:
			}
		}
	}

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.PrintfLogger(zap.NewStdLog(logger))),
	))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", interval), scan); err != nil {
		return fmt.Errorf("スケジュールの登録に失敗しました: %w", err)
	}

	// 起動直後に一度確認
	scan()
	select {
	case err := <-errCh:
		return err
	default:
	}

	c.Start()
	logger.Info("アラートの監視を開始しました", zap.Duration("interval", interval))

	var err error
	select {
	case <-ctx.Done():
		logger.Info("停止シグナルを受信しました")
	case err = <-errCh:
		logger.Error("アラートスキャンに失敗したため監視を停止します", zap.Error(err))
	}

	<-c.Stop().Done()
	logger.Info("アラートの監視を停止しました")
	return err
}
