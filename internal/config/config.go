package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultEventsFile       = "calendar_data.json"
	defaultScanInterval     = 30 * time.Second
	defaultAlertLeadMinutes = 10
	defaultLogMode          = "development"
	defaultLogLevel         = "info"
	defaultCalendarID       = "primary"
)

// SSMParameterGetter Parameter Storeからパラメータを取得するインターフェース
type SSMParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Config アプリケーション設定構造体
type Config struct {
	// イベントストア設定
	EventsFile              string
	ScanInterval            time.Duration
	DefaultAlertLeadMinutes int

	// ログ設定
	LogMode  string
	LogLevel string

	// Google Calendar設定（取り込み時のみ使用）
	GoogleCredentials string
	CalendarID        string

	// AWS関連（本番環境でのみ使用）
	ssmClient SSMParameterGetter
}

// fileConfig 設定ファイル（YAML）の構造
type fileConfig struct {
	EventsFile              string `yaml:"events_file"`
	ScanInterval            string `yaml:"scan_interval"`
	DefaultAlertLeadMinutes *int   `yaml:"default_alert_lead_minutes"`
	LogMode                 string `yaml:"log_mode"`
	LogLevel                string `yaml:"log_level"`
	CalendarID              string `yaml:"calendar_id"`
}

// Default 既定値のみの設定
func Default() *Config {
	return &Config{
		EventsFile:              defaultEventsFile,
		ScanInterval:            defaultScanInterval,
		DefaultAlertLeadMinutes: defaultAlertLeadMinutes,
		LogMode:                 defaultLogMode,
		LogLevel:                defaultLogLevel,
		CalendarID:              defaultCalendarID,
	}
}

// Load 既定値 → 設定ファイル → 環境変数の順に設定を読み込み
// AWS Lambda環境では機密情報をParameter Storeから取得する
func Load(ctx context.Context) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(configPath()); err != nil {
		return nil, err
	}

	// .envファイルは存在する場合のみ読み込む
	_ = godotenv.Load()

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		awsConfig, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("AWS設定の読み込みに失敗しました: %w", err)
		}
		cfg.ssmClient = ssm.NewFromConfig(awsConfig)

		if err := cfg.loadFromParameterStore(ctx); err != nil {
			return nil, fmt.Errorf("Parameter Storeからの設定読み込みに失敗しました: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configPath 設定ファイルのパス
func configPath() string {
	if path := getEnvOrDefault("CALENDAR_ALERT_CONFIG", ""); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "calendar-alert", "config.yaml")
}

// loadFile YAML設定ファイルを読み込む。ファイルがなければ何もしない
func (c *Config) loadFile(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("設定ファイル %s の読み込みに失敗しました: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("設定ファイル %s の解析に失敗しました: %w", path, err)
	}

	if fc.EventsFile != "" {
		c.EventsFile = fc.EventsFile
	}
	if fc.ScanInterval != "" {
		interval, err := time.ParseDuration(fc.ScanInterval)
		if err != nil {
			return fmt.Errorf("scan_interval が不正です: %w", err)
		}
		c.ScanInterval = interval
	}
	if fc.DefaultAlertLeadMinutes != nil {
		c.DefaultAlertLeadMinutes = *fc.DefaultAlertLeadMinutes
	}
	if fc.LogMode != "" {
		c.LogMode = fc.LogMode
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.CalendarID != "" {
		c.CalendarID = fc.CalendarID
	}
	return nil
}

// loadEnv 環境変数で設定を上書き
func (c *Config) loadEnv() error {
	c.EventsFile = getEnvOrDefault("EVENTS_FILE", c.EventsFile)
	c.LogMode = getEnvOrDefault("LOG_MODE", c.LogMode)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.GoogleCredentials = getEnvOrDefault("GOOGLE_CREDENTIALS", c.GoogleCredentials)
	c.CalendarID = getEnvOrDefault("CALENDAR_ID", c.CalendarID)

	if v := getEnvOrDefault("SCAN_INTERVAL", ""); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SCAN_INTERVAL環境変数が不正です: %w", err)
		}
		c.ScanInterval = interval
	}

	if v := getEnvOrDefault("DEFAULT_ALERT_LEAD_MINUTES", ""); v != "" {
		lead, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DEFAULT_ALERT_LEAD_MINUTES環境変数が不正です: %w", err)
		}
		c.DefaultAlertLeadMinutes = lead
	}
	return nil
}

// loadFromParameterStore Parameter Storeから機密情報を読み込み
func (c *Config) loadFromParameterStore(ctx context.Context) error {
	googleCredsParam := getEnvOrDefault("SSM_GOOGLE_CREDS_PARAM", "/calendar-alert-notifier/google-creds")
	googleCreds, err := c.getParameter(ctx, googleCredsParam, true)
	if err != nil {
		return fmt.Errorf("Google認証情報の取得に失敗しました: %w", err)
	}
	c.GoogleCredentials = googleCreds

	calendarIDParam := getEnvOrDefault("SSM_CALENDAR_ID_PARAM", "/calendar-alert-notifier/calendar-id")
	calendarID, err := c.getParameter(ctx, calendarIDParam, false)
	if err != nil {
		return fmt.Errorf("カレンダーIDの取得に失敗しました: %w", err)
	}
	c.CalendarID = calendarID

	return nil
}

// getParameter Parameter Storeから指定されたパラメータを取得
func (c *Config) getParameter(ctx context.Context, paramName string, withDecryption bool) (string, error) {
	input := &ssm.GetParameterInput{
		Name:           aws.String(paramName),
		WithDecryption: aws.Bool(withDecryption),
	}

	result, err := c.ssmClient.GetParameter(ctx, input)
	if err != nil {
		return "", fmt.Errorf("パラメータ %s の取得に失敗しました: %w", paramName, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil || *result.Parameter.Value == "" {
		return "", fmt.Errorf("パラメータ %s は空の値です", paramName)
	}

	return *result.Parameter.Value, nil
}

// Validate 設定値の整合性を確認
func (c *Config) Validate() error {
	if strings.TrimSpace(c.EventsFile) == "" {
		return fmt.Errorf("イベントファイルのパスが設定されていません")
	}
	if c.ScanInterval <= 0 {
		return fmt.Errorf("スキャン間隔は正の値である必要があります: %s", c.ScanInterval)
	}
	if c.DefaultAlertLeadMinutes < 0 {
		return fmt.Errorf("アラート時間は0以上である必要があります: %d", c.DefaultAlertLeadMinutes)
	}
	return nil
}

// HasGoogleCredentials Google Calendarの取り込みが可能か
func (c *Config) HasGoogleCredentials() bool {
	return c.GoogleCredentials != ""
}

// getEnvOrDefault 環境変数を取得し、存在しない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
