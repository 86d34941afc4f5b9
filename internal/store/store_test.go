package store

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/k-negishi/calendar-alert-notifier/internal/domain"
)

// memoryRepository はテスト用のインメモリ Repository
type memoryRepository struct {
	snapshot domain.Snapshot
	loadErr  error
	saves    int
}

func (r *memoryRepository) Load() (domain.Snapshot, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.snapshot, nil
}

func (r *memoryRepository) Save(snapshot domain.Snapshot) error {
	r.snapshot = snapshot
	r.saves++
	return nil
}

// MockRepository は Repository のテスト用モック
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Load() (domain.Snapshot, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Snapshot), args.Error(1)
}

func (m *MockRepository) Save(snapshot domain.Snapshot) error {
	args := m.Called(snapshot)
	return args.Error(0)
}

func at(s string) time.Time {
	ts, err := domain.ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return ts
}

func countMatching(slots []domain.Slot, ts time.Time, description string) int {
	n := 0
	for _, slot := range slots {
		if !slot.At.Equal(ts) {
			continue
		}
		for _, event := range slot.Events {
			if event.Description == description {
				n++
			}
		}
	}
	return n
}

// --- Load テスト ---

func TestLoad_MissingFile(t *testing.T) {
	repo := &memoryRepository{loadErr: fmt.Errorf("open: %w", os.ErrNotExist)}
	s := Open(repo, zap.NewNop())

	assert.Empty(t, s.List())
}

func TestLoad_CorruptFileLogsWarning(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	repo := &memoryRepository{loadErr: errors.New("invalid character")}

	s := Open(repo, zap.New(core))

	assert.Empty(t, s.List())
	assert.Equal(t, 1, logs.FilterMessage("イベントファイルを読み込めなかったため空の状態で開始します").Len())
}

func TestLoad_SortsSlotsAndFillsTimestamp(t *testing.T) {
	repo := &memoryRepository{snapshot: domain.Snapshot{
		"2025-01-02 09:00": {{Description: "B", AlertLeadMinutes: 5}},
		"2025-01-01 10:00": {{Description: "A", AlertLeadMinutes: 10, Notified: true}},
	}}

	s := Open(repo, zap.NewNop())
	slots := s.List()

	require.Len(t, slots, 2)
	assert.Equal(t, at("2025-01-01 10:00"), slots[0].At)
	assert.Equal(t, at("2025-01-01 10:00"), slots[0].Events[0].Timestamp)
	assert.True(t, slots[0].Events[0].Notified)
	assert.Equal(t, "B", slots[1].Events[0].Description)
}

func TestLoad_KeyWithSurroundingSpacesIsNotMerged(t *testing.T) {
	repo := &memoryRepository{snapshot: domain.Snapshot{
		" 2025-01-01 10:00": {{Description: "Padded"}},
		"2025-01-01 10:00":  {{Description: "Meeting"}},
	}}
	s := Open(repo, zap.NewNop())

	slots := s.List()
	require.Len(t, slots, 1)
	require.Len(t, slots[0].Events, 1)
	assert.Equal(t, "Meeting", slots[0].Events[0].Description)

	snapshot := s.Snapshot()
	assert.Equal(t, []domain.Event{{Description: "Padded"}}, snapshot[" 2025-01-01 10:00"])
	assert.Len(t, snapshot["2025-01-01 10:00"], 1)
}

func TestLoad_KeepsUnparsedKeys(t *testing.T) {
	repo := &memoryRepository{snapshot: domain.Snapshot{
		"not-a-date":       {{Description: "broken", AlertLeadMinutes: 5}},
		"2025-01-01 10:00": {{Description: "A"}},
	}}

	s := Open(repo, zap.NewNop())
	assert.Len(t, s.List(), 1)

	_, err := s.Add(at("2025-01-01 11:00"), "C", 0)
	require.NoError(t, err)

	assert.Contains(t, repo.snapshot, "not-a-date")
	assert.Equal(t, "broken", repo.snapshot["not-a-date"][0].Description)
}

// --- Add テスト ---

func TestAdd(t *testing.T) {
	repo := &memoryRepository{}
	s := Open(repo, zap.NewNop())
	ts := at("2025-01-01 10:00")

	before := countMatching(s.List(), ts, "Meeting")
	msg, err := s.Add(ts, "Meeting", 10)
	require.NoError(t, err)

	assert.Equal(t, "イベントを追加しました: 2025-01-01 10:00 - Meeting", msg)
	slots := s.List()
	assert.Equal(t, before+1, countMatching(slots, ts, "Meeting"))
	assert.False(t, slots[0].Events[0].Notified)
	assert.Equal(t, 1, repo.saves)
	assert.Len(t, repo.snapshot["2025-01-01 10:00"], 1)
}

func TestAdd_TruncatesToMinute(t *testing.T) {
	s := Open(&memoryRepository{}, zap.NewNop())

	_, err := s.Add(time.Date(2025, 1, 1, 10, 0, 42, 0, time.Local), "Meeting", 0)
	require.NoError(t, err)

	slots := s.List()
	require.Len(t, slots, 1)
	assert.Equal(t, at("2025-01-01 10:00"), slots[0].At)
}

func TestAdd_NoDeduplication(t *testing.T) {
	s := Open(&memoryRepository{}, zap.NewNop())
	ts := at("2025-01-01 10:00")

	_, err := s.Add(ts, "Meeting", 10)
	require.NoError(t, err)
	_, err = s.Add(ts, "Meeting", 10)
	require.NoError(t, err)

	assert.Equal(t, 2, countMatching(s.List(), ts, "Meeting"))
}

func TestAdd_KeepsInsertionOrderWithinSlot(t *testing.T) {
	s := Open(&memoryRepository{}, zap.NewNop())
	ts := at("2025-01-01 10:00")

	for _, d := range []string{"first", "second", "third"} {
		_, err := s.Add(ts, d, 0)
		require.NoError(t, err)
	}

	events := s.List()[0].Events
	assert.Equal(t, "first", events[0].Description)
	assert.Equal(t, "second", events[1].Description)
	assert.Equal(t, "third", events[2].Description)
}

func TestAdd_InvalidEvent(t *testing.T) {
	repo := &memoryRepository{}
	s := Open(repo, zap.NewNop())

	_, err := s.Add(at("2025-01-01 10:00"), "", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	_, err = s.Add(at("2025-01-01 10:00"), "Meeting", -5)
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	assert.Empty(t, s.List())
	assert.Equal(t, 0, repo.saves)
}

func TestAdd_SaveErrorPropagates(t *testing.T) {
	mockRepo := new(MockRepository)
	mockRepo.On("Load").Return(domain.Snapshot{}, nil)
	mockRepo.On("Save", mock.Anything).Return(errors.New("disk full"))

	s := Open(mockRepo, zap.NewNop())
	_, err := s.Add(at("2025-01-01 10:00"), "Meeting", 10)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "イベントの保存に失敗しました")
	assert.Contains(t, err.Error(), "disk full")
	mockRepo.AssertExpectations(t)
}

func TestAdd_SaveErrorKeepsStateUnchanged(t *testing.T) {
	mockRepo := new(MockRepository)
	mockRepo.On("Load").Return(domain.Snapshot{
		"2025-01-01 10:00": {{Description: "Meeting", AlertLeadMinutes: 10}},
	}, nil)
	mockRepo.On("Save", mock.Anything).Return(errors.New("disk full"))

	s := Open(mockRepo, zap.NewNop())
	before := s.List()

	_, err := s.Add(at("2025-01-01 10:00"), "Lunch", 0)
	require.Error(t, err)
	_, err = s.Add(at("2025-01-01 12:00"), "Lunch", 0)
	require.Error(t, err)

	assert.Equal(t, before, s.List())
	assert.False(t, s.Contains(at("2025-01-01 12:00"), "Lunch"))
}

func TestAdd_OtherTimeZoneSurvivesReload(t *testing.T) {
	zone := time.FixedZone("UTC+14", 14*60*60)
	repo := &memoryRepository{}
	s := Open(repo, zap.NewNop())

	ts := time.Date(2025, 1, 1, 10, 0, 30, 0, zone)
	_, err := s.Add(ts, "Meeting", 10)
	require.NoError(t, err)

	reloaded := Open(repo, zap.NewNop())
	require.Len(t, reloaded.List(), 1)
	assert.Equal(t, s.List(), reloaded.List())
	assert.True(t, reloaded.List()[0].At.Equal(ts.Truncate(time.Minute)))
	assert.True(t, reloaded.Contains(ts, "Meeting"))

	fired, err := reloaded.FireDue(ts.Add(-10 * time.Minute))
	require.NoError(t, err)
	assert.Len(t, fired, 1)
}

// --- List テスト ---

func TestListByDate(t *testing.T) {
	s := Open(&memoryRepository{}, zap.NewNop())
	for _, ts := range []string{"2025-01-01 00:00", "2025-01-01 23:59", "2025-01-02 00:00", "2024-12-31 23:59"} {
		_, err := s.Add(at(ts), "event", 0)
		require.NoError(t, err)
	}

	slots := s.ListByDate(time.Date(2025, 1, 1, 15, 30, 0, 0, time.Local))

	require.Len(t, slots, 2)
	assert.Equal(t, at("2025-01-01 00:00"), slots[0].At)
	assert.Equal(t, at("2025-01-01 23:59"), slots[1].At)
	assert.Empty(t, s.ListByDate(at("2025-02-01 00:00")))
}

func TestList_ReturnsCopies(t *testing.T) {
	s := Open(&memoryRepository{}, zap.NewNop())
	_, err := s.Add(at("2025-01-01 10:00"), "Meeting", 10)
	require.NoError(t, err)

	slots := s.List()
	slots[0].Events[0].Description = "changed"

	assert.Equal(t, "Meeting", s.List()[0].Events[0].Description)
}

// --- Remove テスト ---

func TestRemove_AllMatchingAndKeepsOthers(t *testing.T) {
	repo := &memoryRepository{}
	s := Open(repo, zap.NewNop())
	ts := at("2025-01-01 10:00")
	for _, d := range []string{"Meeting", "Lunch", "Meeting"} {
		_, err := s.Add(ts, d, 0)
		require.NoError(t, err)
	}

	removed, err := s.Remove(ts, "Meeting")
	require.NoError(t, err)

	assert.True(t, removed)
	assert.Equal(t, 0, countMatching(s.List(), ts, "Meeting"))
	assert.Equal(t, 1, countMatching(s.List(), ts, "Lunch"))
	assert.Len(t, repo.snapshot["2025-01-01 10:00"], 1)
}

func TestRemove_SaveErrorKeepsEvents(t *testing.T) {
	mockRepo := new(MockRepository)
	mockRepo.On("Load").Return(domain.Snapshot{
		"2025-01-01 10:00": {{Description: "Meeting"}},
		"2025-01-01 11:00": {{Description: "Meeting"}, {Description: "Lunch"}},
	}, nil)
	mockRepo.On("Save", mock.Anything).Return(errors.New("disk full"))

	s := Open(mockRepo, zap.NewNop())
	before := s.List()

	removed, err := s.Remove(at("2025-01-01 10:00"), "Meeting")
	require.Error(t, err)
	assert.False(t, removed)
	removed, err = s.Remove(at("2025-01-01 11:00"), "Meeting")
	require.Error(t, err)
	assert.False(t, removed)

	assert.Equal(t, before, s.List())
}

func TestRemove_LastEventDeletesSlot(t *testing.T) {
	repo := &memoryRepository{}
	s := Open(repo, zap.NewNop())
	ts := at("2025-01-01 10:00")
	_, err := s.Add(ts, "Meeting", 0)
	require.NoError(t, err)

	removed, err := s.Remove(ts, "Meeting")
	require.NoError(t, err)

	assert.True(t, removed)
	assert.Empty(t, s.List())
	assert.NotContains(t, repo.snapshot, "2025-01-01 10:00")
}

func TestRemove_NothingMatches(t *testing.T) {
	repo := &memoryRepository{}
	s := Open(repo, zap.NewNop())
	_, err := s.Add(at("2025-01-01 10:00"), "Meeting", 0)
	require.NoError(t, err)
	saves := repo.saves

	removed, err := s.Remove(at("2025-01-01 10:00"), "meeting")
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = s.Remove(at("2025-01-01 11:00"), "Meeting")
	require.NoError(t, err)
	assert.False(t, removed)

	assert.Equal(t, saves, repo.saves)
	assert.Len(t, s.List(), 1)
}

func TestContains(t *testing.T) {
	s := Open(&memoryRepository{}, zap.NewNop())
	_, err := s.Add(at("2025-01-01 10:00"), "Meeting", 0)
	require.NoError(t, err)

	assert.True(t, s.Contains(at("2025-01-01 10:00"), "Meeting"))
	assert.False(t, s.Contains(at("2025-01-01 10:00"), "Lunch"))
	assert.False(t, s.Contains(at("2025-01-01 10:01"), "Meeting"))
}

// --- FireDue テスト ---

func TestFireDue_BoundaryAndIdempotence(t *testing.T) {
	repo := &memoryRepository{}
	s := Open(repo, zap.NewNop())
	_, err := s.Add(at("2025-01-01 10:00"), "Meeting", 10)
	require.NoError(t, err)

	fired, err := s.FireDue(at("2025-01-01 09:49"))
	require.NoError(t, err)
	assert.Empty(t, fired)

	fired, err = s.FireDue(at("2025-01-01 09:50"))
	require.NoError(t, err)
	require.Len(t, fired, 1)
	assert.Equal(t, "Meeting", fired[0].Description)
	assert.True(t, fired[0].Notified)
	assert.True(t, repo.snapshot["2025-01-01 10:00"][0].Notified)

	fired, err = s.FireDue(at("2025-01-01 09:50"))
	require.NoError(t, err)
	assert.Empty(t, fired)
}

func TestFireDue_PersistsEvenWhenNothingFires(t *testing.T) {
	repo := &memoryRepository{}
	s := Open(repo, zap.NewNop())

	_, err := s.FireDue(at("2025-01-01 09:00"))
	require.NoError(t, err)

	assert.Equal(t, 1, repo.saves)
}

func TestFireDue_SaveErrorPropagates(t *testing.T) {
	mockRepo := new(MockRepository)
	mockRepo.On("Load").Return(domain.Snapshot{
		"2025-01-01 10:00": {{Description: "Meeting", AlertLeadMinutes: 10}},
	}, nil)
	mockRepo.On("Save", mock.Anything).Return(errors.New("read-only file system"))

	s := Open(mockRepo, zap.NewNop())
	fired, err := s.FireDue(at("2025-01-01 10:00"))

	assert.Error(t, err)
	assert.Empty(t, fired)
	// 保存できなかった通知済みフラグはメモリにも残さない
	assert.False(t, s.List()[0].Events[0].Notified)
	mockRepo.AssertExpectations(t)
}
