package reporter

import (
	"context"
	"net/http"

	"github.com/semmidev/dbwarden/internal/domain"
)

// Webhook calls a URL with GET after every fully successful cycle.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{url: url, client: newClient()}
}

func (w *Webhook) Name() string { return "success_url" }

func (w *Webhook) CycleStarted(context.Context) error { return nil }

func (w *Webhook) CycleFinished(ctx context.Context, result *domain.CycleResult) error {
	if !result.FullySuccessful() {
		return nil
	}
	if err := send(ctx, w.client, http.MethodGet, w.url, ""); err != nil {
		return &domain.ReportingError{Sink: w.Name(), URL: w.url, Err: err}
	}
	return nil
}
