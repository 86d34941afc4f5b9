package gateway

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/k-negishi/calendar-alert-notifier/internal/domain"
)

// ConsoleNotifier アラートをプロセス内で表示するNotifierの実装
type ConsoleNotifier struct {
	out    io.Writer
	logger *zap.Logger
	clock  func() time.Time
}

// NewConsoleNotifier コンソール通知クライアントを作成
func NewConsoleNotifier(out io.Writer, logger *zap.Logger) *ConsoleNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleNotifier{
		out:    out,
		logger: logger,
		clock:  time.Now,
	}
}

// SendAlerts アラートメッセージを表示
func (n *ConsoleNotifier) SendAlerts(_ context.Context, alerts []string) error {
	if len(alerts) == 0 {
		return nil
	}

	for _, alert := range alerts {
		n.logger.Warn("アラート", zap.String("message", alert))
	}

	if _, err := io.WriteString(n.out, n.buildAlertMessage(alerts)); err != nil {
		return fmt.Errorf("アラートの出力に失敗しました: %v", err)
	}
	return nil
}

// buildAlertMessage 表示用のメッセージを構築
func (n *ConsoleNotifier) buildAlertMessage(alerts []string) string {
	var messageBuilder strings.Builder

	messageBuilder.WriteString(fmt.Sprintf("[%s] アラート (%d件)\n", n.clock().Format(domain.TimestampLayout), len(alerts)))
	for _, alert := range alerts {
		messageBuilder.WriteString(alert)
		messageBuilder.WriteString("\n")
	}
	return messageBuilder.String()
}
