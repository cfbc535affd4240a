// Package filestore keeps file-backed column values on disk.
//
// Each value is serialized by a Codec into its own file named by an opaque
// reference, <uuid><ext>. The row stores only the reference. Files are not
// transactional with their rows: a rewritten or deleted row leaves its old
// file behind until Reconcile runs.
package filestore

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/rowdb/errors"
	"github.com/teranos/rowdb/logger"
	"github.com/teranos/rowdb/sym"
)

const (
	tmpSuffix = ".tmp"

	// Attempts to find an unused name before giving up.
	maxCreateAttempts = 3
)

// Store manages the files of one column folder. Safe for concurrent use
// within a process; nothing guards against other processes.
type Store struct {
	mu     sync.Mutex
	folder string
	codec  Codec
	log    *zap.SugaredLogger
}

// New opens folder, creating it if needed.
func New(folder string, codec Codec, log *zap.SugaredLogger) (*Store, error) {
	if folder == "" {
		return nil, errors.New("filestore: empty folder")
	}
	if codec == nil {
		codec = JSONCodec{}
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, errors.Wrapf(err, "filestore: create folder %s", folder)
	}
	return &Store{
		folder: folder,
		codec:  codec,
		log:    logger.WithSymbol(log, sym.Files).With(logger.FieldFolder, folder),
	}, nil
}

// Folder returns the directory holding the files.
func (s *Store) Folder() string { return s.folder }

// Codec returns the payload codec.
func (s *Store) Codec() Codec { return s.codec }

// Store serializes v into a new file and returns its reference. Existing
// files are never overwritten.
func (s *Store) Store(v any) (string, error) {
	data, err := s.codec.Marshal(v)
	if err != nil {
		return "", errors.Wrapf(errors.ErrConversion, "filestore %s: %s encode %T: %v", s.folder, s.codec.Name(), v, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.folder, "*"+tmpSuffix)
	if err != nil {
		return "", errors.Wrapf(err, "filestore %s: create temp file", s.folder)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", errors.Wrapf(err, "filestore %s: write temp file", s.folder)
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrapf(err, "filestore %s: close temp file", s.folder)
	}

	// Link fails with EEXIST instead of replacing, unlike Rename.
	for range maxCreateAttempts {
		ref := uuid.NewString() + s.codec.Ext()
		err := os.Link(tmpPath, s.path(ref))
		if err == nil {
			s.log.Debugw("Stored file", logger.FieldReference, ref, logger.FieldSize, len(data))
			return ref, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", errors.Wrapf(err, "filestore %s: link %s", s.folder, ref)
		}
	}
	return "", errors.Newf("filestore %s: no free name after %d attempts", s.folder, maxCreateAttempts)
}

// Load decodes the file behind ref into dst.
func (s *Store) Load(ref string, dst any) error {
	if err := s.validate(ref); err != nil {
		return err
	}
	data, err := os.ReadFile(s.path(ref))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.WithDetailf(
				errors.Wrapf(errors.ErrMissingFile, "filestore %s: %s", s.folder, ref),
				"the file was removed outside rowdb or the row predates a reconcile")
		}
		return errors.Wrapf(err, "filestore %s: read %s", s.folder, ref)
	}
	if err := s.codec.Unmarshal(data, dst); err != nil {
		return errors.Wrapf(errors.ErrConversion, "filestore %s: %s decode %s: %v", s.folder, s.codec.Name(), ref, err)
	}
	return nil
}

// LoadAs is Load returning a fresh T.
func LoadAs[T any](s *Store, ref string) (T, error) {
	var v T
	err := s.Load(ref, &v)
	return v, err
}

// Exists reports whether ref has a backing file.
func (s *Store) Exists(ref string) (bool, error) {
	if err := s.validate(ref); err != nil {
		return false, err
	}
	_, err := os.Stat(s.path(ref))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, errors.Wrapf(err, "filestore %s: stat %s", s.folder, ref)
}

// Remove deletes the file behind ref. Removing an absent file is not an error.
func (s *Store) Remove(ref string) error {
	if err := s.validate(ref); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(ref)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(err, "filestore %s: remove %s", s.folder, ref)
	}
	return nil
}

// Refs lists the references of all stored files, sorted.
func (s *Store) Refs() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs, _, err := s.scan()
	return refs, err
}

// scan lists payload files and leftover temp files. Caller holds mu.
func (s *Store) scan() (refs, temps []string, err error) {
	entries, err := os.ReadDir(s.folder)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, errors.Wrapf(err, "filestore %s: list", s.folder)
	}
	for _, e := range entries {
		name := e.Name()
		switch {
		case e.IsDir():
		case strings.HasSuffix(name, tmpSuffix):
			temps = append(temps, name)
		case strings.HasSuffix(name, s.codec.Ext()):
			refs = append(refs, name)
		}
	}
	slices.Sort(refs)
	return refs, temps, nil
}

func (s *Store) validate(ref string) error {
	switch {
	case ref == "",
		strings.ContainsAny(ref, `/\`),
		strings.Contains(ref, ".."),
		strings.HasPrefix(ref, "."),
		filepath.Base(ref) != ref:
		return errors.Wrapf(errors.ErrInvalidReference, "filestore %s: %q", s.folder, ref)
	case !strings.HasSuffix(ref, s.codec.Ext()):
		return errors.WithHintf(
			errors.Wrapf(errors.ErrInvalidReference, "filestore %s: %q", s.folder, ref),
			"this folder holds %s files", s.codec.Ext())
	}
	return nil
}

func (s *Store) path(ref string) string {
	return filepath.Join(s.folder, ref)
}

func (s *Store) String() string {
	return fmt.Sprintf("filestore(%s, %s)", s.folder, s.codec.Name())
}
