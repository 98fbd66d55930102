package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/dbwarden/internal/domain"
)

func TestRecorder(t *testing.T) {
	Convey("Given a metrics recorder", t, func() {
		r := New()
		ctx := context.Background()
		start := time.Date(2024, 5, 1, 2, 0, 0, 0, time.UTC)

		Convey("When a cycle partly fails", func() {
			So(r.CycleFinished(ctx, &domain.CycleResult{
				StartedAt: start,
				Total:     3,
				Succeeded: 1,
				Duration:  42 * time.Second,
				Errors: []domain.TargetError{
					{Name: "db2", Kind: domain.KindEngine},
					{Name: "db3", Kind: domain.KindDump},
				},
				Retention:       domain.RetentionStats{Deleted: 2},
				RemoteRetention: domain.RetentionStats{Deleted: 1},
			}), ShouldBeNil)

			Convey("It counts it as a failure per target kind", func() {
				So(testutil.ToFloat64(r.cycles.WithLabelValues("failure")), ShouldEqual, 1)
				So(testutil.ToFloat64(r.targets.WithLabelValues("success")), ShouldEqual, 1)
				So(testutil.ToFloat64(r.targets.WithLabelValues("engine")), ShouldEqual, 1)
				So(testutil.ToFloat64(r.targets.WithLabelValues("dump")), ShouldEqual, 1)
				So(testutil.ToFloat64(r.deleted.WithLabelValues("local")), ShouldEqual, 2)
				So(testutil.ToFloat64(r.deleted.WithLabelValues("remote")), ShouldEqual, 1)
				So(testutil.ToFloat64(r.lastSuccess), ShouldEqual, 0)
			})
		})

		Convey("When a cycle fully succeeds", func() {
			So(r.CycleFinished(ctx, &domain.CycleResult{StartedAt: start, Total: 1, Succeeded: 1, Duration: time.Minute}), ShouldBeNil)

			So(testutil.ToFloat64(r.cycles.WithLabelValues("success")), ShouldEqual, 1)
			So(testutil.ToFloat64(r.lastSuccess), ShouldEqual, float64(start.Add(time.Minute).Unix()))
		})

		Convey("When a cycle finds nothing", func() {
			So(r.CycleFinished(ctx, &domain.CycleResult{StartedAt: start}), ShouldBeNil)

			So(testutil.ToFloat64(r.cycles.WithLabelValues("skipped")), ShouldEqual, 1)
		})

		Convey("The handler exposes the namespace", func() {
			So(r.CycleFinished(ctx, &domain.CycleResult{StartedAt: start}), ShouldBeNil)

			rec := httptest.NewRecorder()
			r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
			body, _ := io.ReadAll(rec.Body)

			So(rec.Code, ShouldEqual, 200)
			So(string(body), ShouldContainSubstring, "dbwarden_cycles_total")
			So(string(body), ShouldContainSubstring, "dbwarden_cycle_duration_seconds")
		})
	})
}
