package filestore

import (
	"os"
	"strings"

	"github.com/teranos/rowdb/errors"
	"github.com/teranos/rowdb/logger"
)

// LiveRef is a reference held by a row. Row identifies the row in error
// reports, typically its primary key.
type LiveRef struct {
	Row string
	Ref string
}

// Report summarizes a Reconcile run.
type Report struct {
	Live        int      `json:"live" yaml:"live"`
	Deleted     []string `json:"deleted,omitempty" yaml:"deleted,omitempty"`
	TempRemoved int      `json:"temp_removed" yaml:"temp_removed"`
}

// Reconcile makes the folder match live: files no row references are
// deleted, along with temp files left by interrupted writes.
//
// When a live reference has no file, nothing is deleted and the returned
// error (ErrDanglingReference) names every such row. Must not run while
// other writers use the folder.
func (s *Store) Reconcile(live []LiveRef) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	refs, temps, err := s.scan()
	if err != nil {
		return Report{}, err
	}
	onDisk := make(map[string]bool, len(refs))
	for _, r := range refs {
		onDisk[r] = true
	}

	wanted := make(map[string]bool, len(live))
	var dangling []string
	for _, lr := range live {
		if err := s.validate(lr.Ref); err != nil {
			return Report{}, errors.Wrapf(err, "row %s", lr.Row)
		}
		wanted[lr.Ref] = true
		if !onDisk[lr.Ref] {
			dangling = append(dangling, lr.Row+" -> "+lr.Ref)
		}
	}
	if len(dangling) > 0 {
		s.log.Warnw("Dangling file references, nothing deleted", logger.FieldCount, len(dangling))
		return Report{}, errors.WithDetailf(
			errors.Wrapf(errors.ErrDanglingReference, "filestore %s: %d row(s) reference missing files", s.folder, len(dangling)),
			"rows: %s", strings.Join(dangling, ", "))
	}

	report := Report{Live: len(wanted)}
	var errs []error
	for _, ref := range refs {
		if wanted[ref] {
			continue
		}
		if err := os.Remove(s.path(ref)); err != nil {
			errs = append(errs, errors.Wrapf(err, "remove %s", ref))
			continue
		}
		report.Deleted = append(report.Deleted, ref)
	}
	for _, tmp := range temps {
		if err := os.Remove(s.path(tmp)); err != nil {
			errs = append(errs, errors.Wrapf(err, "remove %s", tmp))
			continue
		}
		report.TempRemoved++
	}

	s.log.Infow("Reconciled",
		logger.FieldCount, report.Live,
		logger.FieldDeleted, len(report.Deleted))

	if len(errs) > 0 {
		return report, errors.Wrapf(errors.Join(errs...), "filestore %s: reconcile", s.folder)
	}
	return report, nil
}
