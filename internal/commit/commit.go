// Package commit installs a new outline into a PDF file on disk without
// ever leaving the original in a half-written state.
//
// The updated document is serialized to a temporary file in the same
// directory first. After explicit confirmation the original is copied to
// a backup, the backup is verified, and the temporary file is moved into
// place with an atomic rename. The backup is never deleted.
package commit

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"zotoc/internal/outline"
	"zotoc/internal/pdfdoc"
)

var (
	// ErrDeclined is returned when the user rejects the overwrite.
	// Nothing has been written at that point.
	ErrDeclined = errors.New("overwrite declined, original file unchanged")

	// ErrBackupFailed is returned when the backup copy cannot be
	// written or verified. The original is left untouched.
	ErrBackupFailed = errors.New("backup failed, original file unchanged")

	// ErrWriteFailed is returned for serialization or replacement
	// failures. The original is left untouched in both cases: the
	// serialization target is a separate temporary file, and a failed
	// rename does not modify its destination.
	ErrWriteFailed = errors.New("write failed, original file unchanged")
)

// Summary describes the pending change; it is shown to the user before
// anything is committed.
type Summary struct {
	Path       string
	Entries    int
	BackupPath string
}

// Confirm decides whether the replacement may proceed.
type Confirm func(Summary) (bool, error)

// Committer writes outline trees into PDF files.
type Committer struct {
	log     *slog.Logger
	confirm Confirm

	// copyFile is replaceable in tests to exercise backup failures.
	copyFile func(src, dst string) error
}

func New(log *slog.Logger, confirm Confirm) *Committer {
	return &Committer{log: log, confirm: confirm, copyFile: copyFile}
}

// Write installs the outline tree into the document and commits the
// result to path.
func (c *Committer) Write(f *pdfdoc.File, path string, roots []*outline.Node) error {
	if err := f.SetOutline(roots); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	// Serialize next to the original so the final rename stays on one
	// filesystem.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".zotoc-*.pdf")
	if err != nil {
		return fmt.Errorf("%w: create temporary file: %v", ErrWriteFailed, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temporary file: %v", ErrWriteFailed, err)
	}

	backupPath, err := nextBackupPath(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackupFailed, err)
	}

	ok, err := c.confirm(Summary{
		Path:       path,
		Entries:    outline.Count(roots),
		BackupPath: backupPath,
	})
	if err != nil {
		return fmt.Errorf("confirm overwrite: %w", err)
	}
	if !ok {
		return ErrDeclined
	}

	if err := c.backup(path, backupPath); err != nil {
		return fmt.Errorf("%w: %v", ErrBackupFailed, err)
	}
	c.log.Info("backup written", "path", backupPath)

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: replace original: %v", ErrWriteFailed, err)
	}
	committed = true
	return nil
}

// backup copies src to dst and verifies the copy is complete and
// readable before the original may be replaced.
func (c *Committer) backup(src, dst string) error {
	if err := c.copyFile(src, dst); err != nil {
		return err
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat original: %w", err)
	}
	dstInfo, err := os.Stat(dst)
	if err != nil {
		return fmt.Errorf("stat backup: %w", err)
	}
	if srcInfo.Size() != dstInfo.Size() {
		return fmt.Errorf("backup size mismatch: %d != %d bytes", dstInfo.Size(), srcInfo.Size())
	}

	fd, err := os.Open(dst)
	if err != nil {
		return fmt.Errorf("reopen backup: %w", err)
	}
	defer fd.Close()
	var head [4]byte
	if _, err := io.ReadFull(fd, head[:]); err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	return nil
}

// nextBackupPath picks the first unused of <path>.bak, <path>.bak.1, ...
// Existing backups from earlier runs are never overwritten.
func nextBackupPath(path string) (string, error) {
	candidate := path + ".bak"
	for i := 0; ; i++ {
		if i > 0 {
			candidate = fmt.Sprintf("%s.bak.%d", path, i)
		}
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		} else if err != nil {
			return "", fmt.Errorf("probe backup path: %w", err)
		}
		if i >= 1000 {
			return "", errors.New("too many existing backups")
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open original: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create backup: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy to backup: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("close backup: %w", err)
	}
	return nil
}
