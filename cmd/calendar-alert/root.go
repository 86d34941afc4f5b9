package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/k-negishi/calendar-alert-notifier/internal/config"
	"github.com/k-negishi/calendar-alert-notifier/internal/gateway"
	"github.com/k-negishi/calendar-alert-notifier/internal/logging"
	"github.com/k-negishi/calendar-alert-notifier/internal/store"
	"github.com/k-negishi/calendar-alert-notifier/internal/usecase"
)

// app サブコマンドが共有する依存関係
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
	now    func() time.Time

	// calendar が nil の場合は設定の認証情報から生成する
	calendar usecase.CalendarRepository
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&app{now: time.Now})
}

// newRootCmdWith 依存関係を指定してコマンドツリーを組み立てる
func newRootCmdWith(a *app) *cobra.Command {
	var eventsFile string

	rootCmd := &cobra.Command{
		Use:   "calendar-alert",
		Short: "予定を登録し、開始前にアラートを表示します",
		Long: `予定（日時・内容・何分前に知らせるか）をファイルに保存し、
アラート時間に入った予定を一度だけ通知します。

  add      予定を追加
  list     予定を一覧表示
  remove   予定を削除
  scan     アラートを一度だけ確認
  watch    一定間隔でアラートを確認し続ける
  import   Google Calendarから予定を取り込む`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context(), eventsFile)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			logging.Sync(a.logger)
		},
	}

	rootCmd.PersistentFlags().StringVar(&eventsFile, "file", "", "イベントファイルのパス（EVENTS_FILE より優先）")

	rootCmd.AddCommand(newAddCmd(a))
	rootCmd.AddCommand(newListCmd(a))
	rootCmd.AddCommand(newRemoveCmd(a))
	rootCmd.AddCommand(newScanCmd(a))
	rootCmd.AddCommand(newWatchCmd(a))
	rootCmd.AddCommand(newImportCmd(a))

	return rootCmd
}

// setup 設定・ロガー・ストアを初期化。既に用意されているものはそのまま使う
func (a *app) setup(ctx context.Context, eventsFile string) error {
	if a.cfg == nil {
		cfg, err := config.Load(ctx)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if eventsFile != "" {
		a.cfg.EventsFile = eventsFile
	}

	if a.logger == nil {
		logger, err := logging.New(a.cfg.LogMode, a.cfg.LogLevel)
		if err != nil {
			return err
		}
		a.logger = logger
	}

	if a.store == nil {
		a.store = store.Open(gateway.NewJSONFileRepository(a.cfg.EventsFile), a.logger)
	}
	return nil
}
