package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/k-negishi/calendar-alert-notifier/internal/domain"
	"github.com/k-negishi/calendar-alert-notifier/internal/gateway"
	"github.com/k-negishi/calendar-alert-notifier/internal/usecase"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		date string
		lead int
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Google Calendarから予定を取り込む",
		Long: `指定日（省略時は今日）の時刻指定の予定をGoogle Calendarから取り込みます。
終日の予定と、同じ日時・内容で登録済みの予定は取り込みません。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day := a.now()
			if date != "" {
				parsed, err := domain.ParseDate(strings.TrimSpace(date))
				if err != nil {
					return err
				}
				day = parsed
			}
			if !cmd.Flags().Changed("lead") {
				lead = a.cfg.DefaultAlertLeadMinutes
			}

			calendarRepo := a.calendar
			if calendarRepo == nil {
				if !a.cfg.HasGoogleCredentials() {
					return fmt.Errorf("GOOGLE_CREDENTIALS環境変数が設定されていません")
				}
				repo, err := gateway.NewGoogleCalendarRepository(cmd.Context(), []byte(a.cfg.GoogleCredentials), a.cfg.CalendarID, a.logger)
				if err != nil {
					return err
				}
				calendarRepo = repo
			}

			result, err := usecase.NewImportEventsUseCase(calendarRepo, a.store, a.logger).Execute(cmd.Context(), day, lead)
			if err != nil {
				return err
			}

			for _, msg := range result.Added {
				fmt.Fprintln(cmd.OutOrStdout(), msg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d件を取り込みました（%d件スキップ）\n", len(result.Added), result.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "取り込む日付 (YYYY-MM-DD)")
	cmd.Flags().IntVar(&lead, "lead", 0, "取り込んだ予定のアラート時間（分）")

	return cmd
}
