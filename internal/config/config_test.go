package config

import (
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/dbwarden/internal/domain"
)

func TestLoad(t *testing.T) {
	Convey("Given the environment based configuration", t, func() {
		Convey("When nothing is set", func() {
			cfg, err := Load()

			Convey("It should fall back to the built-in defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Debug, ShouldBeFalse)
				So(cfg.DumpDir, ShouldEqual, "/dumps")
				So(cfg.Schedule, ShouldEqual, "")
				So(cfg.HelperNetworkName, ShouldEqual, "docker-database-backup")
				So(cfg.HCPingURL, ShouldEqual, "https://hc-ping.com/")
				So(cfg.KeepMin, ShouldEqual, 7)
				So(cfg.DeleteDays, ShouldEqual, 30)
				So(cfg.ContainerFilter, ShouldBeEmpty)
				So(cfg.UploadTargets, ShouldBeEmpty)
				So(cfg.GlobalLabels[domain.LabelUsername], ShouldEqual, "root")
				So(cfg.GlobalLabels[domain.LabelType], ShouldEqual, "auto")
				So(cfg.GlobalLabels[domain.LabelPort], ShouldEqual, "auto")
				So(cfg.GlobalLabels[domain.LabelCompress], ShouldEqual, "true")
			})
		})

		Convey("When every option is overridden", func() {
			setEnv("DEBUG", "TRUE")
			setEnv("DUMP_UID", "1000")
			setEnv("DUMP_GID", "1001")
			setEnv("DUMP_DIR", "/var/backups/")
			setEnv("SCHEDULE", "0 3 * * *")
			setEnv("STARTUP", "true")
			setEnv("HC_UUID", "5b2c6b3e-6a4f-4d5e-9c59-3b3a0b3f0a11")
			setEnv("HC_PING_URL", "https://hc.example.com/ping")
			setEnv("CONTAINER_FILTER", "db1, db2,,")
			setEnv("KEEP_MIN", "20")
			setEnv("DELETE_DAYS", "14")
			setEnv("GLOBAL_USERNAME", "backup")
			setEnv("GLOBAL_ENCRYPTION_PASSPHRASE", "s3cret")

			cfg, err := Load()

			Convey("It should parse each value", func() {
				So(err, ShouldBeNil)
				So(cfg.Debug, ShouldBeTrue)
				So(cfg.DumpUID, ShouldEqual, 1000)
				So(cfg.DumpGID, ShouldEqual, 1001)
				So(cfg.DumpDir, ShouldEqual, "/var/backups")
				So(cfg.Schedule, ShouldEqual, "0 3 * * *")
				So(cfg.Startup, ShouldBeTrue)
				So(cfg.HCPingURL, ShouldEqual, "https://hc.example.com/ping/")
				So(cfg.ContainerFilter, ShouldResemble, []string{"db1", "db2"})
				So(cfg.KeepMin, ShouldEqual, 20)
				So(cfg.DeleteDays, ShouldEqual, 14)
				So(cfg.GlobalLabels[domain.LabelUsername], ShouldEqual, "backup")
				So(cfg.GlobalLabels[domain.LabelEncryptionPassphrase], ShouldEqual, "s3cret")
				So(cfg.Warnings, ShouldBeEmpty)
			})
		})

		Convey("When a boolean is not true or false", func() {
			setEnv("DEBUG", "yes")
			_, err := Load()

			Convey("It should fail with a config error", func() {
				So(err, ShouldNotBeNil)
				So(IsConfigError(err), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "DEBUG")
			})
		})

		Convey("When a threshold is negative", func() {
			setEnv("KEEP_MIN", "-1")
			_, err := Load()

			So(IsConfigError(err), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "must not be negative")
		})

		Convey("When a number is not numeric", func() {
			setEnv("DELETE_DAYS", "two weeks")
			_, err := Load()

			So(IsConfigError(err), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "DELETE_DAYS")
		})

		Convey("When the schedule is invalid", func() {
			setEnv("SCHEDULE", "61 * * * *")
			_, err := Load()

			So(IsConfigError(err), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "SCHEDULE")
		})

		Convey("When the global compress default is malformed", func() {
			setEnv("GLOBAL_COMPRESS", "1")
			_, err := Load()

			So(IsConfigError(err), ShouldBeTrue)
		})

		Convey("When the global port is auto in upper case", func() {
			setEnv("GLOBAL_PORT", "AUTO")
			cfg, err := Load()

			So(err, ShouldBeNil)
			So(cfg.GlobalLabels[domain.LabelPort], ShouldEqual, "AUTO")
		})

		Convey("When the global port is not a number", func() {
			setEnv("GLOBAL_PORT", "automatic")
			_, err := Load()

			So(IsConfigError(err), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "GLOBAL_PORT")
		})

		Convey("When the success URL is relative", func() {
			setEnv("SUCCESS_URL", "/ping")
			_, err := Load()

			So(IsConfigError(err), ShouldBeTrue)
		})

		Convey("When HC_UUID is a slug", func() {
			setEnv("HC_UUID", "nightly-db")
			cfg, err := Load()

			So(err, ShouldBeNil)
			So(cfg.Warnings, ShouldHaveLength, 1)
		})

		Convey("When remote targets are configured", func() {
			setEnv("S3_BUCKET", "backups")
			setEnv("S3_PREFIX", "host1/")
			setEnv("TELEGRAM_BOT_TOKEN", "123:abc")
			setEnv("TELEGRAM_CHAT_ID", "-100")

			cfg, err := Load()

			Convey("It should enable them", func() {
				So(err, ShouldBeNil)
				So(cfg.GetEnabledUploadTargets(), ShouldHaveLength, 2)
				So(cfg.UploadTargets[0].Type, ShouldEqual, "s3")
				So(cfg.UploadTargets[0].Region, ShouldEqual, "us-east-1")
				So(cfg.UploadTargets[1].Type, ShouldEqual, "telegram")
				So(cfg.UploadTargets[1].ChatID, ShouldEqual, "-100")
				So(cfg.UploadTargets[1].SendFile, ShouldBeFalse)
			})
		})

		Convey("When Drive uses an OAuth refresh token", func() {
			setEnv("GDRIVE_CLIENT_SECRET_FILE", "/secrets/client.json")
			setEnv("GDRIVE_REFRESH_TOKEN", "1//refresh")
			setEnv("GDRIVE_FOLDER_ID", "folder123")

			cfg, err := Load()

			So(err, ShouldBeNil)
			So(cfg.UploadTargets, ShouldHaveLength, 1)
			So(cfg.UploadTargets[0].Type, ShouldEqual, "gdrive")
			So(cfg.UploadTargets[0].RefreshToken, ShouldEqual, "1//refresh")
		})

		Convey("When Drive has a refresh token but no client secret", func() {
			setEnv("GDRIVE_REFRESH_TOKEN", "1//refresh")
			setEnv("GDRIVE_FOLDER_ID", "folder123")
			_, err := Load()

			So(IsConfigError(err), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "GDRIVE_CLIENT_SECRET_FILE")
		})

		Convey("When Telegram has no chat id", func() {
			setEnv("TELEGRAM_BOT_TOKEN", "123:abc")
			_, err := Load()

			So(IsConfigError(err), ShouldBeTrue)
		})
	})
}

// setEnv sets a variable for the current Convey scope only.
func setEnv(key, value string) {
	old, had := os.LookupEnv(key)
	_ = os.Setenv(key, value)
	Reset(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}
