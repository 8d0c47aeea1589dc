package fitfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ride-review/internal/activity"
)

// ErrNoDirectory is returned when the folder to scan does not exist
var ErrNoDirectory = errors.New("folder does not exist")

// Entry is a FIT file found by Scan
type Entry struct {
	Path     string
	Created  time.Time
	Activity *activity.Activity // decoded while scanning
}

// Scan finds the .fit files in dir created within [start, end].
// Each file is decoded once and the result kept on its Entry.
// Files that cannot be decoded are logged and skipped.
func Scan(dir string, start, end time.Time, log *logrus.Entry) ([]Entry, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoDirectory)
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var found []Entry
	for _, de := range dirEntries {
		if de.IsDir() || !strings.EqualFold(filepath.Ext(de.Name()), ".fit") {
			continue
		}
		path := filepath.Join(dir, de.Name())

		a, err := DecodeFile(path)
		if err != nil {
			log.WithError(err).WithField("file", de.Name()).Warn("Could not read FIT file")
			continue
		}

		created := a.Created
		if created.IsZero() {
			created = a.Summary.StartTime
		}
		if created.Before(start) || created.After(end) {
			continue
		}
		found = append(found, Entry{Path: path, Created: created, Activity: a})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return found, nil
}
