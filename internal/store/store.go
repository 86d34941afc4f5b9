// Package store はイベントの保持とフラットファイルへの永続化を担当する。
//
// イベントは分単位に切り捨てた時刻をキーとするスロットにまとめ、時刻の昇順で保持する。
// 変更のたびに Repository へ全件を書き戻す。
package store

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/k-negishi/calendar-alert-notifier/internal/domain"
)

// Repository 永続化先のポート
type Repository interface {
	Load() (domain.Snapshot, error)
	Save(snapshot domain.Snapshot) error
}

// Store イベントストア
type Store struct {
	mu     sync.Mutex
	repo   Repository
	logger *zap.Logger

	// At の昇順。空のスロットは持たない
	slots []*domain.Slot
	// 日時として解析できなかったキー。保存時にそのまま書き戻す
	unparsed domain.Snapshot
}

// New 空のストアを作成
func New(repo Repository, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		repo:     repo,
		logger:   logger,
		unparsed: domain.Snapshot{},
	}
}

// Open ストアを作成し、永続化済みの状態を読み込む
func Open(repo Repository, logger *zap.Logger) *Store {
	s := New(repo, logger)
	s.Load()
	return s
}

// Load 永続化済みの状態を読み込む。
// ファイルが存在しない場合や解析に失敗した場合は空のストアとして扱い、エラーは返さない。
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots = nil
	s.unparsed = domain.Snapshot{}

	snapshot, err := s.repo.Load()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("イベントファイルが存在しないため空の状態で開始します")
		} else {
			s.logger.Warn("イベントファイルを読み込めなかったため空の状態で開始します", zap.Error(err))
		}
		return
	}

	for key, events := range snapshot {
		if len(events) == 0 {
			continue
		}
		at, err := domain.ParseTimestamp(key)
		if err != nil {
			s.logger.Warn("日時を解析できないエントリをスキップしました", zap.String("key", key), zap.Int("events", len(events)))
			s.unparsed[key] = cloneEvents(events)
			continue
		}
		slot := s.slotFor(at)
		for _, event := range events {
			event.Timestamp = at
			slot.Events = append(slot.Events, event)
		}
	}

	s.logger.Debug("イベントを読み込みました", zap.Int("slots", len(s.slots)))
}

// Add イベントを追加して永続化し、確認メッセージを返す。
// 同じ時刻・説明のイベントが既にあっても別のイベントとして追加する。
func (s *Store) Add(at time.Time, description string, alertLeadMinutes int) (string, error) {
	at = localMinute(at)
	event := domain.Event{
		Timestamp:        at,
		Description:      description,
		AlertLeadMinutes: alertLeadMinutes,
		Notified:         false,
	}
	if err := event.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.checkpoint()
	slot := s.slotFor(at)
	slot.Events = append(slot.Events, event)

	if err := s.save(); err != nil {
		s.slots = prev
		return "", err
	}

	s.logger.Info("イベントを追加しました",
		zap.String("timestamp", event.Key()),
		zap.String("description", description),
		zap.Int("alert_lead_minutes", alertLeadMinutes))

	return fmt.Sprintf("イベントを追加しました: %s - %s", event.Key(), description), nil
}

// List 全イベントを時刻の昇順で返す
func (s *Store) List() []domain.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.Slot, 0, len(s.slots))
	for _, slot := range s.slots {
		result = append(result, cloneSlot(slot))
	}
	return result
}

// ListByDate 指定日のイベントだけを返す
func (s *Store) ListByDate(date time.Time) []domain.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.Slot
	for _, slot := range s.slots {
		if domain.SameDate(slot.At, date) {
			result = append(result, cloneSlot(slot))
		}
	}
	return result
}

// Contains 同じ時刻・説明のイベントが存在するか
func (s *Store) Contains(at time.Time, description string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, found := s.search(localMinute(at))
	if !found {
		return false
	}
	for _, event := range s.slots[i].Events {
		if event.Description == description {
			return true
		}
	}
	return false
}

// Remove 指定時刻で説明が一致するイベントをすべて削除する。
// 何か削除した場合は永続化して true を返す。
func (s *Store) Remove(at time.Time, description string) (bool, error) {
	at = localMinute(at)

	s.mu.Lock()
	defer s.mu.Unlock()

	i, found := s.search(at)
	if !found {
		return false, nil
	}

	slot := s.slots[i]
	remaining := make([]domain.Event, 0, len(slot.Events))
	for _, event := range slot.Events {
		if event.Description != description {
			remaining = append(remaining, event)
		}
	}
	removed := len(slot.Events) - len(remaining)
	if removed == 0 {
		return false, nil
	}

	prev := s.checkpoint()
	if len(remaining) == 0 {
		s.slots = append(s.slots[:i], s.slots[i+1:]...)
	} else {
		slot.Events = remaining
	}

	if err := s.save(); err != nil {
		s.slots = prev
		return false, err
	}

	s.logger.Info("イベントを削除しました",
		zap.String("timestamp", domain.FormatTimestamp(at)),
		zap.String("description", description),
		zap.Int("removed", removed))

	return true, nil
}

// FireDue アラート時間に入った未通知イベントを通知済みにして返す。
// 通知対象がなくても必ず永続化する。保存に失敗した場合は通知済みにしない。
func (s *Store) FireDue(now time.Time) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.checkpoint()
	var fired []domain.Event
	for _, slot := range s.slots {
		for i := range slot.Events {
			event := &slot.Events[i]
			if event.Notified || !event.InAlertWindow(now) {
				continue
			}
			event.Notified = true
			fired = append(fired, *event)
		}
	}

	if err := s.save(); err != nil {
		s.slots = prev
		return nil, err
	}
	return fired, nil
}

// Snapshot 永続化形式に変換した現在の状態
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) snapshot() domain.Snapshot {
	snapshot := make(domain.Snapshot, len(s.slots)+len(s.unparsed))
	for key, events := range s.unparsed {
		snapshot[key] = cloneEvents(events)
	}
	for _, slot := range s.slots {
		snapshot[domain.FormatTimestamp(slot.At)] = cloneEvents(slot.Events)
	}
	return snapshot
}

func (s *Store) save() error {
	if err := s.repo.Save(s.snapshot()); err != nil {
		return fmt.Errorf("イベントの保存に失敗しました: %w", err)
	}
	return nil
}

// search at のスロット位置を二分探索で返す。見つからない場合は挿入位置を返す
func (s *Store) search(at time.Time) (int, bool) {
	i := sort.Search(len(s.slots), func(i int) bool {
		return !s.slots[i].At.Before(at)
	})
	return i, i < len(s.slots) && s.slots[i].At.Equal(at)
}

// slotFor at のスロットを返す。存在しない場合は作成して挿入する
func (s *Store) slotFor(at time.Time) *domain.Slot {
	i, found := s.search(at)
	if found {
		return s.slots[i]
	}
	slot := &domain.Slot{At: at}
	s.slots = append(s.slots, nil)
	copy(s.slots[i+1:], s.slots[i:])
	s.slots[i] = slot
	return slot
}

// checkpoint 保存失敗時に戻すためのスロットの複製
func (s *Store) checkpoint() []*domain.Slot {
	slots := make([]*domain.Slot, len(s.slots))
	for i, slot := range s.slots {
		cloned := cloneSlot(slot)
		slots[i] = &cloned
	}
	return slots
}

// localMinute キーと同じローカル時刻の分単位に揃える
func localMinute(t time.Time) time.Time {
	return domain.TruncateToMinute(t.In(time.Local))
}

func cloneSlot(slot *domain.Slot) domain.Slot {
	return domain.Slot{At: slot.At, Events: cloneEvents(slot.Events)}
}

func cloneEvents(events []domain.Event) []domain.Event {
	cloned := make([]domain.Event, len(events))
	copy(cloned, events)
	return cloned
}
