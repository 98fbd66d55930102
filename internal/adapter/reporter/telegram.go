package reporter

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/semmidev/dbwarden/internal/domain"
)

// Notifier sends a plain text message somewhere a human will read it.
type Notifier interface {
	SendNotification(message string) error
}

// Telegram posts a summary of every finished cycle.
type Telegram struct {
	notifier Notifier
}

func NewTelegram(n Notifier) *Telegram {
	return &Telegram{notifier: n}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) CycleStarted(context.Context) error { return nil }

func (t *Telegram) CycleFinished(_ context.Context, result *domain.CycleResult) error {
	if err := t.notifier.SendNotification(FormatSummary(result)); err != nil {
		return &domain.ReportingError{Sink: t.Name(), Err: err}
	}
	return nil
}

// FormatSummary renders a cycle result as a short chat message.
func FormatSummary(result *domain.CycleResult) string {
	var b strings.Builder

	switch {
	case result.FullySuccessful():
		b.WriteString("✅ ")
	case result.Skipped():
		b.WriteString("⚪ ")
	default:
		b.WriteString("❌ ")
	}
	b.WriteString(result.Summary())
	fmt.Fprintf(&b, "\n🕐 Took %s", result.Duration.Round(time.Second))

	for _, a := range result.Artifacts {
		fmt.Fprintf(&b, "\n📦 %s: %s", a.TargetName, humanize.IBytes(uint64(a.Size)))
		if a.Encrypted {
			b.WriteString(" 🔒")
		}
	}
	for _, e := range result.Errors {
		fmt.Fprintf(&b, "\n⚠️ %s (%s): %s", e.Name, e.Kind, truncate(e.Message, 200))
	}
	if deleted := result.Retention.Deleted + result.RemoteRetention.Deleted; deleted > 0 {
		fmt.Fprintf(&b, "\n🧹 Removed %d old backup(s)", deleted)
	}

	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
