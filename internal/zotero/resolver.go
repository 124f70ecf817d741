// Package zotero resolves citation keys to PDF attachment paths using the
// Zotero and Better-BibTeX sqlite databases. The databases are only ever
// opened read-only, and only for the duration of a single lookup.
package zotero

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrStoreLocked means the reference manager holds an exclusive
	// lock on the database. The lookup is never retried: the lock
	// belongs to a live process and waiting on it could block forever.
	ErrStoreLocked = errors.New("metadata store is locked (is Zotero running?)")

	// ErrUnknownKey means no entry matches the citation key.
	ErrUnknownKey = errors.New("citation key not found")
)

// AmbiguousAttachmentError is returned when an entry has more than one
// PDF attachment. The resolver does not guess which one is meant.
type AmbiguousAttachmentError struct {
	Key        string
	Candidates []string
}

func (e *AmbiguousAttachmentError) Error() string {
	return fmt.Sprintf("citation key %q has %d PDF attachments: %s",
		e.Key, len(e.Candidates), strings.Join(e.Candidates, ", "))
}

// Resolver looks up attachment paths in a Zotero data directory.
type Resolver struct {
	dataDir string
}

func NewResolver(dataDir string) *Resolver {
	return &Resolver{dataDir: dataDir}
}

// Resolve maps a citation key to the absolute path of the entry's single
// PDF attachment.
func (r *Resolver) Resolve(citationKey string) (string, error) {
	db, err := r.open()
	if err != nil {
		return "", err
	}
	defer closeDB(db)

	var entry struct {
		ItemKey   string
		LibraryID int64
	}
	row := db.Raw(
		`SELECT itemKey, libraryID FROM betterbibtex.citationkey WHERE citationkey = ?`,
		citationKey,
	).Row()
	if err := row.Scan(&entry.ItemKey, &entry.LibraryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %q", ErrUnknownKey, citationKey)
		}
		return "", classify(fmt.Errorf("citation key lookup: %w", err))
	}

	var itemID int64
	row = db.Raw(
		`SELECT itemID FROM items WHERE key = ? AND libraryID = ?`,
		entry.ItemKey, entry.LibraryID,
	).Row()
	if err := row.Scan(&itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %q has no library item", ErrUnknownKey, citationKey)
		}
		return "", classify(fmt.Errorf("item lookup: %w", err))
	}

	type attachment struct {
		Path string
		Key  string
	}
	var attachments []attachment
	rows, err := db.Raw(
		`SELECT a.path, i.key
		 FROM itemAttachments a
		 JOIN items i ON i.itemID = a.itemID
		 WHERE a.parentItemID = ?
		 AND a.contentType = 'application/pdf'
		 AND a.path IS NOT NULL
		 ORDER BY a.itemID`,
		itemID,
	).Rows()
	if err != nil {
		return "", classify(fmt.Errorf("attachment lookup: %w", err))
	}
	defer rows.Close()
	for rows.Next() {
		var a attachment
		if err := rows.Scan(&a.Path, &a.Key); err != nil {
			return "", fmt.Errorf("attachment lookup: %w", err)
		}
		attachments = append(attachments, a)
	}
	if err := rows.Err(); err != nil {
		return "", classify(fmt.Errorf("attachment lookup: %w", err))
	}

	switch len(attachments) {
	case 0:
		return "", fmt.Errorf("%w: %q has no PDF attachment", ErrUnknownKey, citationKey)
	case 1:
		return r.attachmentPath(attachments[0].Key, attachments[0].Path)
	default:
		e := &AmbiguousAttachmentError{Key: citationKey}
		for _, a := range attachments {
			if p, err := r.attachmentPath(a.Key, a.Path); err == nil {
				e.Candidates = append(e.Candidates, p)
			} else {
				e.Candidates = append(e.Candidates, a.Path)
			}
		}
		return "", e
	}
}

// attachmentPath turns a stored attachment path into an absolute one.
// Managed attachments use the form "storage:<filename>" and live under
// <dataDir>/storage/<itemKey>/; linked attachments store a plain path.
func (r *Resolver) attachmentPath(itemKey, stored string) (string, error) {
	var path string
	switch {
	case strings.HasPrefix(stored, "storage:"):
		path = filepath.Join(r.dataDir, "storage", itemKey, strings.TrimPrefix(stored, "storage:"))
	case filepath.IsAbs(stored):
		path = stored
	default:
		return "", fmt.Errorf("unsupported attachment path %q", stored)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("attachment file: %w", err)
	}
	return path, nil
}

// open connects to zotero.sqlite in read-only mode and attaches the
// Better-BibTeX database, also read-only. The busy timeout is zero so a
// lock held by the reference manager fails fast instead of blocking.
func (r *Resolver) open() (*gorm.DB, error) {
	dsn := roDSN(filepath.Join(r.dataDir, "zotero.sqlite"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, classify(fmt.Errorf("open metadata store: %w", err))
	}

	bbt := roDSN(filepath.Join(r.dataDir, "better-bibtex.sqlite"))
	if err := db.Exec(`ATTACH DATABASE ? AS betterbibtex`, bbt).Error; err != nil {
		closeDB(db)
		return nil, classify(fmt.Errorf("attach better-bibtex store: %w", err))
	}
	return db, nil
}

func roDSN(path string) string {
	return "file:" + path + "?mode=ro&_busy_timeout=0"
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

// classify maps sqlite busy/locked failures onto ErrStoreLocked so the
// rest of the tool never needs to know about the reference manager.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked") {
		return fmt.Errorf("%w: %v", ErrStoreLocked, err)
	}
	return err
}
