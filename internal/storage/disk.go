package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Usage is the on-disk footprint of the storage locations, by label.
type Usage struct {
	TotalBytes int64            `json:"total_bytes"`
	ByLabel    map[string]int64 `json:"by_label"`
}

// DiskUsage sums the size of each labelled path. A path may be a file or a directory
// (summed recursively). Empty or missing paths count as zero. The SQLite WAL and shared
// memory files next to a database file are included with it.
func DiskUsage(paths map[string]string) (*Usage, error) {
	u := &Usage{ByLabel: make(map[string]int64, len(paths))}
	labels := make([]string, 0, len(paths))
	for label := range paths {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		n, err := pathSize(paths[label])
		if err != nil {
			return nil, err
		}
		u.ByLabel[label] = n
		u.TotalBytes += n
	}
	return u, nil
}

func pathSize(p string) (int64, error) {
	if p == "" || p == ":memory:" {
		return 0, nil
	}
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	if info.IsDir() {
		return dirSize(p)
	}
	total := info.Size()
	for _, suffix := range []string{"-wal", "-shm"} {
		if side, err := os.Stat(p + suffix); err == nil {
			total += side.Size()
		}
	}
	return total, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
