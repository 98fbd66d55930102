package compressor

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type GzipCompressor struct {
	level int
}

func NewGzip() *GzipCompressor {
	return &GzipCompressor{level: gzip.BestCompression}
}

func (g *GzipCompressor) Compress(sourcePath, destPath string) error {
	sourceFile, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer sourceFile.Close()

	return g.writeGzip(destPath, func(w io.Writer) error {
		if _, err := io.Copy(w, sourceFile); err != nil {
			return fmt.Errorf("failed to compress: %w", err)
		}
		return nil
	})
}

func (g *GzipCompressor) Decompress(sourcePath, destPath string) error {
	sourceFile, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer sourceFile.Close()

	gzipReader, err := gzip.NewReader(sourceFile)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	destFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create dest file: %w", err)
	}

	if _, err := io.Copy(destFile, gzipReader); err != nil {
		destFile.Close()
		return fmt.Errorf("failed to decompress: %w", err)
	}

	return destFile.Close()
}

// Archive packs every regular file and directory below sourceDir into a
// gzip compressed tar at destPath. Entry names are relative to sourceDir.
func (g *GzipCompressor) Archive(sourceDir, destPath string) error {
	return g.writeGzip(destPath, func(w io.Writer) error {
		tw := tar.NewWriter(w)

		err := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(sourceDir, path)
			if err != nil || rel == "." {
				return err
			}
			if !d.IsDir() && !d.Type().IsRegular() {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return err
			}
			header, err := tar.FileInfoHeader(info, "")
			if err != nil {
				return fmt.Errorf("failed to build header for %s: %w", rel, err)
			}
			header.Name = filepath.ToSlash(rel)
			if d.IsDir() {
				header.Name += "/"
			}

			if err := tw.WriteHeader(header); err != nil {
				return fmt.Errorf("failed to write header for %s: %w", rel, err)
			}
			if d.IsDir() {
				return nil
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			if _, err := io.Copy(tw, f); err != nil {
				return fmt.Errorf("failed to archive %s: %w", rel, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		return tw.Close()
	})
}

// Extract unpacks an archive written by Archive into destDir.
func (g *GzipCompressor) Extract(sourcePath, destDir string) error {
	sourceFile, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer sourceFile.Close()

	gzipReader, err := gzip.NewReader(sourceFile)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("failed to create dest dir: %w", err)
	}

	root := filepath.Clean(destDir) + string(os.PathSeparator)
	tr := tar.NewReader(gzipReader)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}

		target := filepath.Join(destDir, filepath.FromSlash(header.Name))
		if !strings.HasPrefix(target+string(os.PathSeparator), root) {
			return fmt.Errorf("archive entry %q escapes %s", header.Name, destDir)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := extractFile(tr, target, header.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		}
	}
}

func extractFile(r io.Reader, path string, perm fs.FileMode) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to extract %s: %w", path, err)
	}
	return f.Close()
}

// writeGzip creates destPath and closes the writer chain in reverse order,
// so a failed flush is reported instead of leaving a truncated file behind.
func (g *GzipCompressor) writeGzip(destPath string, fill func(w io.Writer) error) error {
	destFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create dest file: %w", err)
	}

	gzipWriter, err := gzip.NewWriterLevel(destFile, g.level)
	if err != nil {
		destFile.Close()
		return fmt.Errorf("failed to create gzip writer: %w", err)
	}

	if err := fill(gzipWriter); err != nil {
		gzipWriter.Close()
		destFile.Close()
		return err
	}

	if err := gzipWriter.Close(); err != nil {
		destFile.Close()
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return destFile.Close()
}
