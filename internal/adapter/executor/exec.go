package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/semmidev/dbwarden/internal/domain"
)

// Local runs commands as child processes of this one.
type Local struct{}

func NewLocal() *Local {
	return &Local{}
}

// Run waits for cmd to finish. A non-zero exit is reported through
// ExecResult.ExitCode; the error is reserved for processes that could not
// be started or were killed.
func (l *Local) Run(ctx context.Context, cmd domain.Command) (domain.ExecResult, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Env = append(os.Environ(), cmd.Env...)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := domain.ExecResult{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode >= 0 {
			return res, nil
		}
	}

	res.ExitCode = -1
	return res, fmt.Errorf("run %s: %w", cmd.Name, err)
}
