package gateway

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/k-negishi/calendar-alert-notifier/internal/domain"
)

// JSONFileRepository イベントを1つのJSONファイルに保存するRepositoryの実装
type JSONFileRepository struct {
	path string
}

// eventRecord ファイルに保存する1イベント分の構造体
type eventRecord struct {
	Description      string `json:"description"`
	AlertLeadMinutes int    `json:"alertLeadMinutes"`
	Notified         bool   `json:"notified"`
}

// NewJSONFileRepository JSONファイルリポジトリを作成
func NewJSONFileRepository(path string) *JSONFileRepository {
	return &JSONFileRepository{path: path}
}

// Path 保存先のパス
func (r *JSONFileRepository) Path() string {
	return r.path
}

// Load ファイルからイベントを読み込む
func (r *JSONFileRepository) Load() (domain.Snapshot, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("イベントファイルの読み込みに失敗しました: %w", err)
	}

	var records map[string][]eventRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("イベントファイルのJSON解析に失敗しました: %w", err)
	}

	snapshot := make(domain.Snapshot, len(records))
	for key, list := range records {
		events := make([]domain.Event, 0, len(list))
		for _, record := range list {
			events = append(events, domain.Event{
				Description:      record.Description,
				AlertLeadMinutes: record.AlertLeadMinutes,
				Notified:         record.Notified,
			})
		}
		snapshot[key] = events
	}
	return snapshot, nil
}

// Save ファイル全体を書き換えて保存
func (r *JSONFileRepository) Save(snapshot domain.Snapshot) error {
	records := make(map[string][]eventRecord, len(snapshot))
	for key, events := range snapshot {
		list := make([]eventRecord, 0, len(events))
		for _, event := range events {
			list = append(list, eventRecord{
				Description:      event.Description,
				AlertLeadMinutes: event.AlertLeadMinutes,
				Notified:         event.Notified,
			})
		}
		records[key] = list
	}

	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("イベントのJSON変換に失敗しました: %w", err)
	}

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("保存先ディレクトリの作成に失敗しました: %w", err)
		}
	}

	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("イベントファイルの書き込みに失敗しました: %w", err)
	}
	return nil
}
