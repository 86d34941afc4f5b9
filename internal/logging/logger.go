// Package logging は zap ロガーの生成を担当する。
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// ModeProduction JSON形式で出力する
	ModeProduction = "production"
	// ModeDevelopment 人が読みやすいコンソール形式で出力する
	ModeDevelopment = "development"
)

// New ロガーを生成
// mode: "development" または "production"
// level: "debug", "info", "warn", "error"
func New(mode, level string) (*zap.Logger, error) {
	config := newConfig(mode, level)

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("ロガーの初期化に失敗しました: %w", err)
	}
	return logger, nil
}

// newConfig モードとレベルから zap.Config を組み立てる
func newConfig(mode, level string) zap.Config {
	var config zap.Config

	if strings.EqualFold(mode, ModeProduction) {
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	} else {
		config = zap.NewDevelopmentConfig()
	}

	// 解析できないレベルはモードの既定値のまま
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(strings.ToLower(level))); err == nil && level != "" {
		config.Level = zap.NewAtomicLevelAt(zapLevel)
	}

	return config
}

// Sync バッファに残ったログを書き出す
func Sync(logger *zap.Logger) {
	if logger != nil {
		_ = logger.Sync()
	}
}
