package database

import (
	"context"
	"fmt"

	"github.com/semmidev/dbwarden/internal/domain"
)

// InfluxDBDatabase writes an `influx backup` directory.
type InfluxDBDatabase struct {
	exec domain.Executor
}

func NewInfluxDB(exec domain.Executor) *InfluxDBDatabase {
	return &InfluxDBDatabase{exec: exec}
}

func (i *InfluxDBDatabase) Backup(ctx context.Context, target domain.BackupTarget, host, outputPath string) error {
	_, err := run(ctx, i.exec, domain.Command{
		Name: "influx",
		Args: []string{
			"backup", outputPath,
			"--host", fmt.Sprintf("http://%s:%d", host, target.Port),
		},
		Env: []string{"INFLUX_TOKEN=" + target.Token},
	})
	return err
}

func (i *InfluxDBDatabase) Extension() string {
	return ""
}

func (i *InfluxDBDatabase) GetType() string {
	return "influxdb"
}
