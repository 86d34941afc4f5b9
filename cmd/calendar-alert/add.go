package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/k-negishi/calendar-alert-notifier/internal/domain"
)

func newAddCmd(a *app) *cobra.Command {
	var (
		at   string
		lead int
	)

	cmd := &cobra.Command{
		Use:   "add <内容>",
		Short: "予定を追加する",
		Long: `指定した日時に予定を追加します。内容は複数の単語をそのまま連結します。

例:
  calendar-alert add --at "2025-01-01 10:00" --lead 10 定例ミーティング`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timestamp, err := domain.ParseTimestamp(strings.TrimSpace(at))
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("lead") {
				lead = a.cfg.DefaultAlertLeadMinutes
			}

			msg, err := a.store.Add(timestamp, strings.Join(args, " "), lead)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", `予定の日時 ("YYYY-MM-DD HH:MM")`)
	cmd.Flags().IntVar(&lead, "lead", 0, "何分前にアラートを出すか（省略時は設定の既定値）")
	_ = cmd.MarkFlagRequired("at")

	return cmd
}
