// Package notify posts departure messages to an ntfy-style push
// endpoint, one topic per user. Delivery is fire-and-forget: failures
// are logged here and never surfaced to the monitor.
package notify

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type Pusher struct {
	// Base endpoint; the user name is appended as the topic. An
	// empty URL disables push entirely.
	URL string

	client *http.Client
	logger *slog.Logger
}

func NewPusher(url string, logger *slog.Logger) *Pusher {
	return &Pusher{
		URL:    url,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

func (p *Pusher) Push(ctx context.Context, message string, users []string) {
	if p.URL == "" || len(users) == 0 {
		return
	}

	for _, user := range users {
		url := strings.TrimRight(p.URL, "/") + "/" + user

		req, err := http.NewRequestWithContext(ctx, "POST", url, strings.NewReader(message))
		if err != nil {
			p.logger.Error("creating push request", "user", user, "error", err)
			continue
		}
		req.Header.Set("Content-Type", "text/plain")

		resp, err := p.client.Do(req)
		if err != nil {
			p.logger.Warn("push failed", "user", user, "error", err)
			continue
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			p.logger.Warn("push returned non-200", "user", user, "status", resp.StatusCode)
			continue
		}

		p.logger.Info("pushed notification", "user", user)
	}
}
