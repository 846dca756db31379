// Package reporter turns run reports into operator notifications.
package reporter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-job-acquisition/internal/engine"

	"github.com/rs/zerolog"
)

// Notifier delivers a formatted summary, e.g. the Telegram bot.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// LogNotifier writes summaries to the log when no chat is configured.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) Notify(_ context.Context, text string) error {
	n.Log.Info().Msg(unescape(text))
	return nil
}

var markdown = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(",
	")", "\\)", "~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#",
	"+", "\\+", "-", "\\-", "=", "\\=", "|", "\\|", "{", "\\{",
	"}", "\\}", ".", "\\.", "!", "\\!",
)

func escape(s string) string {
	return markdown.Replace(s)
}

func unescape(s string) string {
	return strings.ReplaceAll(s, "\\", "")
}

// maxListed keeps the message well under Telegram's size limit.
const maxListed = 10

// Summary renders one run as a MarkdownV2 message.
func Summary(r *engine.Report, runErr error) string {
	var b strings.Builder
	status := "✅"
	if runErr != nil {
		status = "⚠️"
	}
	fmt.Fprintf(&b, "%s *%s run* `%s`\n", status, escape(string(r.Platform)), escape(shortID(r.RunID)))
	fmt.Fprintf(&b, "📦 Records: %d\n", len(r.Records))
	fmt.Fprintf(&b, "📄 Pages: %d\n", r.Pages)
	fmt.Fprintf(&b, "🔁 Duplicates: %d\n", r.Duplicates)
	fmt.Fprintf(&b, "🆕 Titles learned: %d\n", len(r.Learned))
	if r.Reason != "" {
		fmt.Fprintf(&b, "🏁 Stopped: %s\n", escape(r.Reason))
	}
	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "⏱ %s\n", escape(r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()))
	}
	if runErr != nil {
		fmt.Fprintf(&b, "❌ %s\n", escape(runErr.Error()))
	}

	for i, rec := range r.Records {
		if i == maxListed {
			fmt.Fprintf(&b, "…and %d more\n", len(r.Records)-maxListed)
			break
		}
		if strings.HasPrefix(rec.ListingURL, "http") {
			u := strings.NewReplacer(")", "\\)", "\\", "\\\\").Replace(rec.ListingURL)
			fmt.Fprintf(&b, "• [%s](%s) at %s\n", escape(rec.Title), u, escape(rec.Company))
			continue
		}
		fmt.Fprintf(&b, "• %s at %s\n", escape(rec.Title), escape(rec.Company))
	}
	if len(r.Learned) > 0 {
		learned := make([]string, len(r.Learned))
		for i, t := range r.Learned {
			learned[i] = escape(t)
		}
		fmt.Fprintf(&b, "\nNew titles \\(disabled\\): %s\n", strings.Join(learned, ", "))
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
