package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/k-negishi/calendar-alert-notifier/internal/domain"
)

// listedEvent JSON出力用の1行
type listedEvent struct {
	Timestamp        string `json:"timestamp"`
	Description      string `json:"description"`
	AlertLeadMinutes int    `json:"alertLeadMinutes"`
	Notified         bool   `json:"notified"`
}

func newListCmd(a *app) *cobra.Command {
	var (
		date     string
		jsonMode bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "予定を一覧表示する",
		Long:  `登録済みの予定を時刻順に表示します。--date で特定の日だけに絞り込めます。`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var slots []domain.Slot
			if date != "" {
				day, err := domain.ParseDate(strings.TrimSpace(date))
				if err != nil {
					return err
				}
				slots = a.store.ListByDate(day)
			} else {
				slots = a.store.List()
			}

			if jsonMode {
				return writeJSON(cmd.OutOrStdout(), slots)
			}
			return writeTable(cmd.OutOrStdout(), slots)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "表示する日付 (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "JSON形式で出力")

	return cmd
}

// writeTable 日時・内容・アラート時間の表を出力
func writeTable(w io.Writer, slots []domain.Slot) error {
	if len(slots) == 0 {
		_, err := fmt.Fprintln(w, "予定はありません")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "日時\t内容\tアラート\t通知")
	for _, slot := range slots {
		for _, event := range slot.Events {
			notified := "-"
			if event.Notified {
				notified = "済"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d分前\t%s\n", event.Key(), event.Description, event.AlertLeadMinutes, notified)
		}
	}
	return tw.Flush()
}

// writeJSON 予定をJSON配列で出力
func writeJSON(w io.Writer, slots []domain.Slot) error {
	events := make([]listedEvent, 0)
	for _, slot := range slots {
		for _, event := range slot.Events {
			events = append(events, listedEvent{
				Timestamp:        event.Key(),
				Description:      event.Description,
				AlertLeadMinutes: event.AlertLeadMinutes,
				Notified:         event.Notified,
			})
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(events)
}
