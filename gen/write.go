package gen

import (
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/wippyai/bridge-runtime/errors"
)

// WriteReport says which artifacts Write touched.
type WriteReport struct {
	Written   []string
	Unchanged []string
}

// Write applies artifacts to a directory. Each artifact is compared by
// content hash against the existing file and written only on change;
// writes go through a temp file and rename, so an interrupted run
// never leaves a partial artifact.
func Write(artifacts []Artifact, dir string) (*WriteReport, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Write(dir, err)
	}

	report := &WriteReport{}
	for _, a := range artifacts {
		path := filepath.Join(dir, a.Name)
		existing, err := os.ReadFile(path)
		if err == nil && xxhash.Sum64(existing) == a.Hash {
			report.Unchanged = append(report.Unchanged, a.Name)
			continue
		}
		if err := writeAtomic(path, a.Source); err != nil {
			return nil, err
		}
		report.Written = append(report.Written, a.Name)
		Logger().Info("artifact written",
			zap.String("path", path),
			zap.Int("bytes", len(a.Source)))
	}
	return report, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Write(path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Write(path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Write(path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return errors.Write(path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Write(path, err)
	}
	return nil
}

// DriftReport compares rendered artifacts against a directory.
type DriftReport struct {
	// Missing artifacts have no file on disk.
	Missing []string
	// Stale files exist but differ from the rendered content.
	Stale []string
	// Matching files are up to date.
	Matching []string
}

// Clean reports whether the directory matches the rendered artifacts.
func (d *DriftReport) Clean() bool {
	return len(d.Missing) == 0 && len(d.Stale) == 0
}

// Diff reports drift between rendered artifacts and a directory
// without writing anything.
func Diff(artifacts []Artifact, dir string) (*DriftReport, error) {
	report := &DriftReport{}
	for _, a := range artifacts {
		existing, err := os.ReadFile(filepath.Join(dir, a.Name))
		switch {
		case os.IsNotExist(err):
			report.Missing = append(report.Missing, a.Name)
		case err != nil:
			return nil, errors.Write(a.Name, err)
		case xxhash.Sum64(existing) != a.Hash:
			report.Stale = append(report.Stale, a.Name)
		default:
			report.Matching = append(report.Matching, a.Name)
		}
	}
	return report, nil
}
