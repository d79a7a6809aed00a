package index

import (
	"log/slog"

	"github.com/arving/kbmirror/internal/parser"
	"github.com/arving/kbmirror/internal/storage"
	"github.com/arving/kbmirror/internal/summary"
)

// Sync walks the mirror and brings the index up to date:
//   - new/changed articles are upserted (checksum mismatch)
//   - articles removed from disk are deleted from the index
//
// The generated table-of-contents file is not an article and is skipped.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		if m.Path == summary.FileName {
			continue
		}
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, m.Checksum, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteArticle(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexFile derives the article's title and upserts it.
func indexFile(db *DB, path, checksum string, data []byte) error {
	return db.UpsertArticle(ArticleRow{
		Path:     path,
		Title:    parser.TitleOrStem(path, data),
		Checksum: checksum,
	}, string(data))
}
