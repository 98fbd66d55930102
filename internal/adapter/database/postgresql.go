package database

import (
	"context"
	"fmt"

	"github.com/semmidev/dbwarden/internal/domain"
)

type PostgreSQLDatabase struct {
	exec domain.Executor
}

func NewPostgreSQL(exec domain.Executor) *PostgreSQLDatabase {
	return &PostgreSQLDatabase{exec: exec}
}

// Backup dumps the whole cluster, roles included, as plain SQL.
func (p *PostgreSQLDatabase) Backup(ctx context.Context, target domain.BackupTarget, host, outputPath string) error {
	_, err := run(ctx, p.exec, domain.Command{
		Name: "pg_dumpall",
		Args: []string{
			fmt.Sprintf("--host=%s", host),
			fmt.Sprintf("--port=%d", target.Port),
			fmt.Sprintf("--username=%s", target.Username),
			fmt.Sprintf("--file=%s", outputPath),
		},
		Env: []string{fmt.Sprintf("PGPASSWORD=%s", target.Password)},
	})
	return err
}

func (p *PostgreSQLDatabase) Extension() string {
	return ".sql"
}

func (p *PostgreSQLDatabase) GetType() string {
	return "postgresql"
}
