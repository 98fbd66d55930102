package database

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/semmidev/dbwarden/internal/domain"
)

// maxStderr bounds the stderr excerpt kept on a DumpError.
const maxStderr = 2048

type Logger interface {
	Debugf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// ForEngines returns the dump procedure of every supported engine, all
// running their tools through exec.
func ForEngines(exec domain.Executor, logger Logger) map[domain.Engine]domain.Database {
	return map[domain.Engine]domain.Database{
		domain.EngineMySQL:    NewMySQL(exec, logger, "mysql"),
		domain.EngineMariaDB:  NewMySQL(exec, logger, "mariadb"),
		domain.EnginePostgres: NewPostgreSQL(exec),
		domain.EngineInfluxDB: NewInfluxDB(exec),
	}
}

// run executes cmd and turns a failed start or a non-zero exit into a
// *domain.DumpError.
func run(ctx context.Context, exec domain.Executor, cmd domain.Command) (domain.ExecResult, error) {
	res, err := exec.Run(ctx, cmd)
	if err != nil {
		return res, &domain.DumpError{Command: cmd.Name, Code: -1, Stderr: excerpt(res.Stderr), Err: err}
	}
	if res.ExitCode != 0 {
		return res, &domain.DumpError{Command: cmd.Name, Code: res.ExitCode, Stderr: excerpt(res.Stderr)}
	}
	return res, nil
}

// excerpt keeps the tail of stderr, where tools print the actual failure.
func excerpt(stderr []byte) string {
	s := strings.ToValidUTF8(strings.TrimSpace(string(stderr)), "\uFFFD")
	if len(s) > maxStderr {
		cut := len(s) - maxStderr
		for cut < len(s) && !utf8.RuneStart(s[cut]) {
			cut++
		}
		s = "..." + s[cut:]
	}
	return s
}
