package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/k-negishi/calendar-alert-notifier/internal/gateway"
	"github.com/k-negishi/calendar-alert-notifier/internal/usecase"
)

func newScanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "アラートを一度だけ確認する",
		Long:  `現在時刻でアラート時間に入った未通知の予定を表示し、通知済みにします。`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scanner := usecase.NewAlertScanner(a.store, gateway.NewConsoleNotifier(cmd.OutOrStdout(), a.logger), a.logger)

			alerts, err := scanner.Scan(cmd.Context(), a.now())
			if err != nil {
				return err
			}
			if len(alerts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "アラートはありません")
			}
			return nil
		},
	}
}
