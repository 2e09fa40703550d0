// Package archive produces the features tarball: a tar.gz of the
// features_data subdirectories, named with a UTC timestamp. Archiving
// is best effort; missing source directories are skipped, not errors.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// timestampLayout is an RFC3339-derived compact form safe for filenames.
const timestampLayout = "20060102T150405Z"

// ArchiveName returns the tarball filename for a point in time.
func ArchiveName(now time.Time) string {
	return fmt.Sprintf("features_%s.tar.gz", now.UTC().Format(timestampLayout))
}

// Archiver writes feature data tarballs.
type Archiver struct {
	logger *slog.Logger
}

// New creates an archiver.
func New(logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{logger: logger}
}

// Create writes a tar.gz of the given directories into destDir and
// returns the archive path. Entries inside the archive are relative to
// each directory's parent, so unpacking reproduces the features_data
// layout. Directories that do not exist are skipped.
func (a *Archiver) Create(destDir string, sourceDirs []string, now time.Time) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}

	path := filepath.Join(destDir, ArchiveName(now))
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}

	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)

	files := 0
	for _, dir := range sourceDirs {
		info, err := os.Stat(dir)
		if err != nil {
			if os.IsNotExist(err) {
				a.logger.Debug("archive source missing, skipping", slog.String("dir", dir))
				continue
			}
			return "", a.abort(f, tmp, fmt.Errorf("stat %s: %w", dir, err))
		}
		if !info.IsDir() {
			continue
		}
		added, err := a.addDir(tw, dir)
		if err != nil {
			return "", a.abort(f, tmp, err)
		}
		files += added
	}

	if err := tw.Close(); err != nil {
		return "", a.abort(f, tmp, fmt.Errorf("close tar stream: %w", err))
	}
	if err := gw.Close(); err != nil {
		return "", a.abort(f, tmp, fmt.Errorf("close gzip stream: %w", err))
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close archive file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename archive into place: %w", err)
	}

	a.logger.Info("archive written",
		slog.String("path", path),
		slog.Int("files", files))
	return path, nil
}

func (a *Archiver) abort(f *os.File, tmp string, err error) error {
	f.Close()
	os.Remove(tmp)
	return err
}

// addDir walks one source directory and writes its regular files into
// the tar stream, prefixed with the directory's own name.
func (a *Archiver) addDir(tw *tar.Writer, dir string) (int, error) {
	parent := filepath.Dir(dir)
	added := 0

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(parent, path)
		if err != nil {
			return err
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("tar header for %s: %w", path, err)
		}
		hdr.Name = filepath.ToSlash(rel)

		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write tar header for %s: %w", path, err)
		}

		src, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer src.Close()

		if _, err := io.Copy(tw, src); err != nil {
			return fmt.Errorf("copy %s into archive: %w", path, err)
		}
		added++
		return nil
	})
	if err != nil {
		return added, fmt.Errorf("archive %s: %w", dir, err)
	}
	return added, nil
}
