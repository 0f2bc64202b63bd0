package store

import (
	"os"
	"path/filepath"
	"time"
)

// CleanupStats summarizes one retention pass over the local store.
type CleanupStats struct {
	FilesExamined uint64
	FilesDeleted  uint64
	BytesDeleted  uint64
	DirsRemoved   uint64
	DBRowsDeleted uint64
}

// CleanupLocal walks the events/ tree under root depth-first, deleting files
// with mtime older than cutoff and pruning directories that become empty.
// Files whose mtime cannot be read are kept. In dry-run mode deletions are
// counted but not performed.
func CleanupLocal(root string, cutoff time.Time, dryRun bool) (CleanupStats, error) {
	var stats CleanupStats
	eventsRoot := filepath.Join(root, "events")
	if _, err := os.Stat(eventsRoot); os.IsNotExist(err) {
		return stats, nil
	}
	_, err := cleanupDir(eventsRoot, cutoff, dryRun, &stats)
	return stats, err
}

// cleanupDir returns whether dir ended up empty after child recursion.
func cleanupDir(dir string, cutoff time.Time, dryRun bool, stats *CleanupStats) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}

	isEmpty := true
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			childEmpty, err := cleanupDir(path, cutoff, dryRun, stats)
			if err != nil {
				return false, err
			}
			if !childEmpty {
				isEmpty = false
			} else if dryRun {
				stats.DirsRemoved++
			} else if os.Remove(path) == nil {
				stats.DirsRemoved++
			} else {
				isEmpty = false
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Unreadable metadata: keep the file.
			isEmpty = false
			continue
		}
		if !info.Mode().IsRegular() {
			isEmpty = false
			continue
		}

		stats.FilesExamined++
		if info.ModTime().Before(cutoff) {
			size := uint64(info.Size())
			if dryRun {
				stats.FilesDeleted++
				stats.BytesDeleted += size
			} else if os.Remove(path) == nil {
				stats.FilesDeleted++
				stats.BytesDeleted += size
			} else {
				isEmpty = false
			}
		} else {
			isEmpty = false
		}
	}

	return isEmpty, nil
}
