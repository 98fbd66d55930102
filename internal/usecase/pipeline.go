package usecase

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/juju/clock"

	"github.com/semmidev/dbwarden/internal/domain"
)

// Pipeline turns a raw dump into its final artifact: compress, then
// encrypt, then hand ownership to the configured uid/gid.
type Pipeline struct {
	compressor domain.Compressor
	encryptor  domain.Encryptor
	clock      clock.Clock
	logger     Logger
	uid, gid   int

	chown func(path string, uid, gid int) error
}

func NewPipeline(
	compressor domain.Compressor,
	encryptor domain.Encryptor,
	clk clock.Clock,
	logger Logger,
	uid, gid int,
) *Pipeline {
	return &Pipeline{
		compressor: compressor,
		encryptor:  encryptor,
		clock:      clk,
		logger:     logger,
		uid:        uid,
		gid:        gid,
		chown:      os.Chown,
	}
}

// Process post-processes the dump at path. Directories are always archived
// since only single files can be encrypted and rotated.
func (p *Pipeline) Process(ctx context.Context, path string, target domain.BackupTarget) (domain.Artifact, error) {
	art := domain.Artifact{
		Path:       path,
		TargetID:   target.ContainerID,
		TargetName: target.Name,
		CreatedAt:  p.clock.Now(),
	}

	info, err := os.Stat(path)
	if err != nil {
		return art, &domain.ProcessError{Stage: domain.StageStat, Path: path, Err: err}
	}

	if info.IsDir() {
		size, err := dirSize(path)
		if err != nil {
			return art, &domain.ProcessError{Stage: domain.StageStat, Path: path, Err: err}
		}
		art.UncompressedSize = size

		dest := path + ".tar.gz"
		if err := p.stage(domain.StageCompress, path, dest, func() error {
			return p.compressor.Archive(path, dest)
		}); err != nil {
			return art, err
		}
		art.Path = dest
		art.Compressed = true
	} else {
		art.UncompressedSize = info.Size()

		if target.Compress && info.Size() > 0 {
			dest := path + ".gz"
			if err := p.stage(domain.StageCompress, path, dest, func() error {
				return p.compressor.Compress(path, dest)
			}); err != nil {
				return art, err
			}
			art.Path = dest
			art.Compressed = true
		}
	}

	if art.Compressed {
		size, err := fileSize(art.Path)
		if err != nil {
			return art, &domain.ProcessError{Stage: domain.StageStat, Path: art.Path, Err: err}
		}
		art.CompressedSize = size
		p.logger.Infof("[%s] Compressed %s to %s", target.Name,
			humanize.IBytes(uint64(art.UncompressedSize)), humanize.IBytes(uint64(size)))
	}

	if target.EncryptionPassphrase != "" {
		src := art.Path
		dest := src + ".aes"
		if err := p.stage(domain.StageEncrypt, src, dest, func() error {
			return p.encryptor.Encrypt(src, dest, target.EncryptionPassphrase)
		}); err != nil {
			return art, err
		}
		art.Path = dest
		art.Encrypted = true
		p.logger.Debugf("[%s] Encrypted %s", target.Name, filepath.Base(dest))
	}

	if err := ctx.Err(); err != nil {
		return art, &domain.ProcessError{Stage: domain.StageChown, Path: art.Path, Err: err}
	}

	if err := p.chown(art.Path, p.uid, p.gid); err != nil {
		return art, &domain.ProcessError{Stage: domain.StageChown, Path: art.Path, Err: err}
	}

	size, err := fileSize(art.Path)
	if err != nil {
		return art, &domain.ProcessError{Stage: domain.StageStat, Path: art.Path, Err: err}
	}
	art.Size = size

	return art, nil
}

// stage runs fn to produce dest from src. dest is cleared beforehand and
// removed again on failure; src is removed only after fn succeeded.
func (p *Pipeline) stage(name, src, dest string, fn func() error) error {
	if err := os.RemoveAll(dest); err != nil {
		return &domain.ProcessError{Stage: name, Path: dest, Err: err}
	}

	if err := fn(); err != nil {
		_ = os.Remove(dest)
		return &domain.ProcessError{Stage: name, Path: src, Err: err}
	}

	if err := os.RemoveAll(src); err != nil {
		p.logger.Warnf("Could not remove %s after %s: %v", src, name, err)
	}
	return nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			total += info.Size()
		}
		return nil
	})
	return total, err
}
