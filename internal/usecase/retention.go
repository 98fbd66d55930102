package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/juju/clock"

	"github.com/semmidev/dbwarden/internal/domain"
)

const day = 24 * time.Hour

// ArtifactStore is anything artifacts can be listed in and deleted from.
type ArtifactStore interface {
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

type Retention struct {
	clock  clock.Clock
	loc    *time.Location
	logger Logger
}

func NewRetention(clk clock.Clock, loc *time.Location, logger Logger) *Retention {
	if loc == nil {
		loc = time.Local
	}
	return &Retention{clock: clk, loc: loc, logger: logger}
}

type datedArtifact struct {
	name string
	ts   time.Time
}

// PlanRetention picks the artifacts to delete. Artifacts are grouped by
// container name and ranked newest first; one is deleted only when it is at
// least deleteDays old and its rank exceeds keepMin. Names that do not look
// like artifacts are left alone and not counted.
func PlanRetention(names []string, now time.Time, loc *time.Location, deleteDays, keepMin int) ([]string, int) {
	groups := make(map[string][]datedArtifact)
	total := 0
	for _, name := range names {
		container, ts, ok := domain.ParseArtifactName(name, loc)
		if !ok {
			continue
		}
		groups[container] = append(groups[container], datedArtifact{name: name, ts: ts})
		total++
	}

	var victims []string
	for _, group := range groups {
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].ts.Equal(group[j].ts) {
				return group[i].name > group[j].name
			}
			return group[i].ts.After(group[j].ts)
		})
		for i, a := range group {
			rank := i + 1
			if rank <= keepMin {
				continue
			}
			if ageDays(now, a.ts) >= deleteDays {
				victims = append(victims, a.name)
			}
		}
	}
	sort.Strings(victims)

	return victims, total
}

// ageDays is the number of whole days between ts and now. Timestamps in
// the future are negative and never old enough.
func ageDays(now, ts time.Time) int {
	d := now.Sub(ts)
	if d < 0 {
		return -1
	}
	return int(d / day)
}

// Cleanup applies the retention policy to store. A failed deletion is
// logged and counted, the rest of the plan still runs.
func (r *Retention) Cleanup(ctx context.Context, store ArtifactStore, deleteDays, keepMin int) (domain.RetentionStats, error) {
	names, err := store.List(ctx)
	if err != nil {
		return domain.RetentionStats{}, fmt.Errorf("list artifacts: %w", err)
	}

	victims, total := PlanRetention(names, r.clock.Now().In(r.loc), r.loc, deleteDays, keepMin)
	stats := domain.RetentionStats{Total: total}

	for _, name := range victims {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := store.Delete(ctx, name); err != nil {
			r.logger.Errorf("Failed to delete old backup %s: %v", name, err)
			stats.Failed++
			continue
		}
		r.logger.Debugf("Deleted old backup %s", name)
		stats.Deleted++
	}

	return stats, nil
}
