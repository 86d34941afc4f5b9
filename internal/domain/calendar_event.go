package domain

import "time"

// CalendarEvent 外部カレンダーから取り込む予定
type CalendarEvent struct {
	ID        string
	Title     string
	StartTime time.Time
	IsAllDay  bool
}
