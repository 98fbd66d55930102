package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/semmidev/dbwarden/internal/domain"
)

type RestoreOptions struct {
	// OutputDir receives the restored dump. Defaults to the working directory.
	OutputDir  string
	Passphrase string
	// DumpDir is refused as OutputDir, since retention would count the
	// restored file as a backup.
	DumpDir string
}

// Restore turns an artifact back into the raw dump it was made from. The
// layers are peeled by file extension: ".aes", then ".tar.gz" or ".gz".
// Intermediate files are removed, the input is never touched, and the path
// of the result is returned.
func Restore(path string, opts RestoreOptions, comp domain.Compressor, enc domain.Encryptor) (string, error) {
	outDir := opts.OutputDir
	if outDir == "" {
		outDir = "."
	}
	if opts.DumpDir != "" && sameDir(outDir, opts.DumpDir) {
		return "", fmt.Errorf("refusing to restore into the dump directory %s, choose another output directory", opts.DumpDir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	current := path
	name := filepath.Base(path)

	if base, ok := strings.CutSuffix(name, ".aes"); ok {
		if opts.Passphrase == "" {
			return "", errors.New("artifact is encrypted but no passphrase was given")
		}
		out := filepath.Join(outDir, base)
		if err := enc.Decrypt(current, out, opts.Passphrase); err != nil {
			return "", fmt.Errorf("decrypt %s: %w", current, err)
		}
		current, name = out, base
	}

	switch {
	case strings.HasSuffix(name, ".tar.gz"):
		dir := filepath.Join(outDir, strings.TrimSuffix(name, ".tar.gz"))
		if err := comp.Extract(current, dir); err != nil {
			return "", fmt.Errorf("extract %s: %w", current, err)
		}
		removeIntermediate(path, current)
		current = dir

	case strings.HasSuffix(name, ".gz"):
		out := filepath.Join(outDir, strings.TrimSuffix(name, ".gz"))
		if err := comp.Decompress(current, out); err != nil {
			return "", fmt.Errorf("decompress %s: %w", current, err)
		}
		removeIntermediate(path, current)
		current = out
	}

	if current == path {
		return "", fmt.Errorf("%s is neither encrypted nor compressed", path)
	}
	return current, nil
}

// removeIntermediate deletes a file produced during restore, never the input.
func removeIntermediate(input, file string) {
	if file != input {
		_ = os.Remove(file)
	}
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	if absA == absB {
		return true
	}
	infoA, errA := os.Stat(absA)
	infoB, errB := os.Stat(absB)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}
