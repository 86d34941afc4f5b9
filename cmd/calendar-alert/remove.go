package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/k-negishi/calendar-alert-notifier/internal/domain"
)

func newRemoveCmd(a *app) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "remove <内容>",
		Short: "予定を削除する",
		Long:  `指定した日時で内容が完全に一致する予定をすべて削除します。`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timestamp, err := domain.ParseTimestamp(strings.TrimSpace(at))
			if err != nil {
				return err
			}

			description := strings.Join(args, " ")
			removed, err := a.store.Remove(timestamp, description)
			if err != nil {
				return err
			}

			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "一致する予定はありません: %s - %s\n", domain.FormatTimestamp(timestamp), description)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "イベントを削除しました: %s - %s\n", domain.FormatTimestamp(timestamp), description)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", `予定の日時 ("YYYY-MM-DD HH:MM")`)
	_ = cmd.MarkFlagRequired("at")

	return cmd
}
