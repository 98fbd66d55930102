package database

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/semmidev/dbwarden/internal/domain"
)

// systemSchemas are never part of a MySQL or MariaDB dump.
var systemSchemas = map[string]bool{
	"mysql":              true,
	"information_schema": true,
	"performance_schema": true,
}

// MySQLDatabase dumps every user schema of a MySQL or MariaDB server into a
// single file. MariaDB ships the same client tools.
type MySQLDatabase struct {
	exec     domain.Executor
	logger   Logger
	typeName string
}

func NewMySQL(exec domain.Executor, logger Logger, typeName string) *MySQLDatabase {
	return &MySQLDatabase{exec: exec, logger: logger, typeName: typeName}
}

func (m *MySQLDatabase) Backup(ctx context.Context, target domain.BackupTarget, host, outputPath string) error {
	env := []string{"MYSQL_PWD=" + target.Password}
	conn := []string{
		"--host=" + host,
		"--port=" + strconv.Itoa(target.Port),
		"--user=" + target.Username,
	}

	res, err := run(ctx, m.exec, domain.Command{
		Name: "mysql",
		Args: append(append([]string{}, conn...), "-N", "-e", "SHOW DATABASES"),
		Env:  env,
	})
	if err != nil {
		return err
	}

	var schemas []string
	scanner := bufio.NewScanner(bytes.NewReader(res.Stdout))
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" || systemSchemas[strings.ToLower(name)] {
			continue
		}
		schemas = append(schemas, name)
	}

	if len(schemas) == 0 {
		m.logger.Warnf("[%s] No user schemas found, writing an empty dump", target.Name)
		return os.WriteFile(outputPath, nil, 0o600)
	}
	m.logger.Debugf("[%s] Dumping schemas: %s", target.Name, strings.Join(schemas, ", "))

	args := append(append([]string{}, conn...), "--result-file="+outputPath, "--databases")
	args = append(args, schemas...)
	_, err = run(ctx, m.exec, domain.Command{Name: "mysqldump", Args: args, Env: env})
	return err
}

func (m *MySQLDatabase) Extension() string {
	return ".sql"
}

func (m *MySQLDatabase) GetType() string {
	return m.typeName
}
