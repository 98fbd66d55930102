package reporter

import (
	"context"
	"net/http"

	"github.com/semmidev/dbwarden/internal/domain"
)

// Healthchecks pings a healthchecks.io style check: /start when a cycle
// begins, then the check URL itself on success or /fail otherwise, with the
// cycle summary as body.
type Healthchecks struct {
	checkURL string
	client   *http.Client
}

// NewHealthchecks expects base to end with a slash.
func NewHealthchecks(base, uuid string) *Healthchecks {
	return &Healthchecks{checkURL: base + uuid, client: newClient()}
}

func (h *Healthchecks) Name() string { return "healthchecks" }

func (h *Healthchecks) CycleStarted(ctx context.Context) error {
	url := h.checkURL + "/start"
	if err := send(ctx, h.client, http.MethodGet, url, ""); err != nil {
		return &domain.ReportingError{Sink: h.Name(), URL: url, Err: err}
	}
	return nil
}

func (h *Healthchecks) CycleFinished(ctx context.Context, result *domain.CycleResult) error {
	url := h.checkURL
	if !result.FullySuccessful() {
		url += "/fail"
	}
	if err := send(ctx, h.client, http.MethodPut, url, result.Summary()); err != nil {
		return &domain.ReportingError{Sink: h.Name(), URL: url, Err: err}
	}
	return nil
}
