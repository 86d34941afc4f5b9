package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// TimestampLayout 永続化ファイルのキーおよび入力で使う日時フォーマット
	TimestampLayout = "2006-01-02 15:04"
	// DateLayout 日付フィルタで使うフォーマット
	DateLayout = "2006-01-02"
)

var (
	// ErrInvalidTimestamp 日時文字列が TimestampLayout に一致しない
	ErrInvalidTimestamp = errors.New("日時の形式が不正です")
	// ErrInvalidEvent イベントの内容が不正
	ErrInvalidEvent = errors.New("イベントの内容が不正です")
)

// Event カレンダーイベントのドメインエンティティ
type Event struct {
	Timestamp        time.Time
	Description      string
	AlertLeadMinutes int
	Notified         bool
}

// Slot 同じ時刻（分単位）に登録されたイベントの集合
type Slot struct {
	At     time.Time
	Events []Event
}

// Snapshot 永続化されるマッピング（"YYYY-MM-DD HH:MM" → イベント一覧）
type Snapshot map[string][]Event

// Validate イベントの内容を検証
func (e Event) Validate() error {
	if strings.TrimSpace(e.Description) == "" {
		return fmt.Errorf("%w: 説明が空です", ErrInvalidEvent)
	}
	if e.AlertLeadMinutes < 0 {
		return fmt.Errorf("%w: アラート時間は0以上で指定してください (%d)", ErrInvalidEvent, e.AlertLeadMinutes)
	}
	return nil
}

// MinutesRemaining now（分単位に切り捨て）からイベント時刻までの残り分数
func (e Event) MinutesRemaining(now time.Time) int {
	return int(e.Timestamp.Sub(TruncateToMinute(now)) / time.Minute)
}

// InAlertWindow now が [Timestamp - AlertLeadMinutes, Timestamp] に入っているか
func (e Event) InAlertWindow(now time.Time) bool {
	remaining := e.MinutesRemaining(now)
	return remaining >= 0 && remaining <= e.AlertLeadMinutes
}

// Key 永続化用のキー文字列
func (e Event) Key() string {
	return FormatTimestamp(e.Timestamp)
}

// ParseTimestamp "YYYY-MM-DD HH:MM" 形式の文字列をローカル時刻として解析
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (例: %s)", ErrInvalidTimestamp, s, time.Now().Format(TimestampLayout))
	}
	return t, nil
}

// ParseDate "YYYY-MM-DD" 形式の文字列をローカル日付として解析
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (例: %s)", ErrInvalidTimestamp, s, time.Now().Format(DateLayout))
	}
	return t, nil
}

// FormatTimestamp 時刻をキー文字列に変換
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// TruncateToMinute 秒以下を切り捨てる
func TruncateToMinute(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}

// SameDate 年月日が一致するか
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
