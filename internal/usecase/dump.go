package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/juju/clock"

	"github.com/semmidev/dbwarden/internal/domain"
)

// Dumper runs the dump procedure of each engine against a target reachable
// on the helper network.
type Dumper struct {
	databases map[domain.Engine]domain.Database
	dumpDir   string
	clock     clock.Clock
	logger    Logger
}

func NewDumper(databases map[domain.Engine]domain.Database, dumpDir string, clk clock.Clock, logger Logger) *Dumper {
	return &Dumper{
		databases: databases,
		dumpDir:   dumpDir,
		clock:     clk,
		logger:    logger,
	}
}

// Dump writes the target's data under the dump directory and returns the
// path of the produced file or directory. host is the network alias the
// target answers to. Partial output is removed when the dump fails.
func (d *Dumper) Dump(ctx context.Context, target domain.BackupTarget, host string) (string, error) {
	if target.Engine == domain.EngineUnknown {
		return "", domain.ErrEngineUnknown
	}
	db, ok := d.databases[target.Engine]
	if !ok {
		return "", fmt.Errorf("no dump procedure for %s: %w", target.Engine, domain.ErrEngineUnknown)
	}

	path := filepath.Join(d.dumpDir, domain.ArtifactBase(target.Name, d.clock.Now())) + db.Extension()
	d.logger.Debugf("[%s] Running %s dump into %s", target.Name, db.GetType(), path)

	if err := db.Backup(ctx, target, host, path); err != nil {
		if rmErr := os.RemoveAll(path); rmErr != nil {
			d.logger.Warnf("[%s] Could not remove partial dump %s: %v", target.Name, path, rmErr)
		}
		return "", err
	}

	if _, err := os.Stat(path); err != nil {
		return "", &domain.DumpError{Command: db.GetType() + " dump", Err: fmt.Errorf("no output produced: %w", err)}
	}

	return path, nil
}
