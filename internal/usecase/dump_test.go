package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/dbwarden/internal/adapter/database"
	"github.com/semmidev/dbwarden/internal/domain"
	"github.com/semmidev/dbwarden/internal/infrastructure/logger"
)

func TestDumper(t *testing.T) {
	Convey("Given a Dumper writing into a temp directory", t, func() {
		dir := t.TempDir()
		exec := newFakeExecutor()
		now := time.Date(2024, 5, 1, 2, 30, 0, 0, time.Local)
		log := logger.Nop()
		dumper := NewDumper(database.ForEngines(exec, log), dir, testclock.NewClock(now), log)
		ctx := context.Background()

		target := domain.BackupTarget{
			ContainerID: "abc",
			Name:        "db1",
			Host:        domain.TargetAlias,
			Username:    "root",
			Password:    "hunter2",
			Token:       "influx-token",
		}

		Convey("When dumping MySQL", func() {
			target.Engine = domain.EngineMySQL
			target.Port = 3306
			path, err := dumper.Dump(ctx, target, target.Host)

			Convey("It should dump every user schema into one file", func() {
				So(err, ShouldBeNil)
				So(path, ShouldEqual, filepath.Join(dir, "db1_20240501T023000.sql"))
				_, err := os.Stat(path)
				So(err, ShouldBeNil)

				So(exec.names(), ShouldResemble, []string{"mysql", "mysqldump"})
				dump := exec.commands[1]
				So(dump.Args, ShouldContain, "--host=database-backup-target")
				So(dump.Args, ShouldContain, "--port=3306")
				So(dump.Args, ShouldContain, "--user=root")
				So(dump.Args, ShouldContain, "app")
				So(dump.Args, ShouldContain, "shop")
				So(dump.Args, ShouldNotContain, "mysql")
				So(dump.Args, ShouldNotContain, "information_schema")
				So(dump.Args, ShouldNotContain, "performance_schema")
				So(dump.Env, ShouldResemble, []string{"MYSQL_PWD=hunter2"})
				So(strings.Join(dump.Args, " "), ShouldNotContainSubstring, "hunter2")
			})
		})

		Convey("When a MySQL server has no user schemas", func() {
			target.Engine = domain.EngineMariaDB
			exec.schemas = "mysql\ninformation_schema\nperformance_schema\n"
			path, err := dumper.Dump(ctx, target, target.Host)

			Convey("It should write an empty dump without calling mysqldump", func() {
				So(err, ShouldBeNil)
				info, err := os.Stat(path)
				So(err, ShouldBeNil)
				So(info.Size(), ShouldEqual, int64(0))
				So(exec.names(), ShouldResemble, []string{"mysql"})
			})
		})

		Convey("When dumping Postgres", func() {
			target.Engine = domain.EnginePostgres
			target.Port = 5432
			path, err := dumper.Dump(ctx, target, target.Host)

			So(err, ShouldBeNil)
			So(filepath.Base(path), ShouldEqual, "db1_20240501T023000.sql")
			cmd := exec.commands[0]
			So(cmd.Name, ShouldEqual, "pg_dumpall")
			So(cmd.Args, ShouldContain, "--port=5432")
			So(cmd.Env, ShouldResemble, []string{"PGPASSWORD=hunter2"})
		})

		Convey("When dumping InfluxDB", func() {
			target.Engine = domain.EngineInfluxDB
			target.Port = 8086
			path, err := dumper.Dump(ctx, target, target.Host)

			Convey("It should produce a directory", func() {
				So(err, ShouldBeNil)
				So(path, ShouldEqual, filepath.Join(dir, "db1_20240501T023000"))
				info, err := os.Stat(path)
				So(err, ShouldBeNil)
				So(info.IsDir(), ShouldBeTrue)

				cmd := exec.commands[0]
				So(cmd.Args, ShouldResemble, []string{"backup", path, "--host", "http://database-backup-target:8086"})
				So(cmd.Env, ShouldResemble, []string{"INFLUX_TOKEN=influx-token"})
			})
		})

		Convey("When the dump tool exits non-zero", func() {
			target.Engine = domain.EnginePostgres
			exec.fail["pg_dumpall"] = domain.ExecResult{ExitCode: 1, Stderr: []byte("\npg_dumpall: error: connection refused\n")}
			path, err := dumper.Dump(ctx, target, target.Host)

			Convey("It should return a DumpError and remove the partial file", func() {
				So(path, ShouldEqual, "")
				var dumpErr *domain.DumpError
				So(errors.As(err, &dumpErr), ShouldBeTrue)
				So(dumpErr.Code, ShouldEqual, 1)
				So(dumpErr.Stderr, ShouldEqual, "pg_dumpall: error: connection refused")
				So(domain.Classify(err), ShouldEqual, domain.KindDump)

				entries, err := os.ReadDir(dir)
				So(err, ShouldBeNil)
				So(entries, ShouldBeEmpty)
			})
		})

		Convey("When influx backup dies halfway", func() {
			target.Engine = domain.EngineInfluxDB
			target.Port = 8086
			exec.fail["influx"] = domain.ExecResult{ExitCode: 2, Stderr: []byte("boom")}
			path, err := dumper.Dump(ctx, target, target.Host)

			Convey("It should remove the half written directory", func() {
				So(path, ShouldEqual, "")
				var dumpErr *domain.DumpError
				So(errors.As(err, &dumpErr), ShouldBeTrue)
				So(dumpErr.Code, ShouldEqual, 2)
				So(dumpErr.Stderr, ShouldEqual, "boom")

				entries, err := os.ReadDir(dir)
				So(err, ShouldBeNil)
				So(entries, ShouldBeEmpty)
			})
		})

		Convey("When the engine is unknown", func() {
			target.Engine = domain.EngineUnknown
			_, err := dumper.Dump(ctx, target, target.Host)

			So(errors.Is(err, domain.ErrEngineUnknown), ShouldBeTrue)
			So(exec.commands, ShouldBeEmpty)
		})
	})
}
