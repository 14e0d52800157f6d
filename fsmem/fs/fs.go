// Package fs implements a disk-backed fsmem.Collaborator: two files (the
// segment snapshot and the link-content index) in one local snapshot
// directory, with advisory locking and atomic writes. Callers that don't need snapshots to
// survive the process use fsmem.Memory instead.
package fs

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/klauspost/compress/zstd"
	atomicfile "github.com/natefinch/atomic"
	"github.com/pkg/errors"

	"github.com/sc-machine-go/scmem/fsmem"
	"github.com/sc-machine-go/scmem/internal/logging"
)

var log = logging.Module("scmem/fsmem/fs")

const (
	snapshotFileName = "segments.snap"
	contentFileName  = "links.snap"
	lockFileName     = ".scmem.lock"

	dirMode  os.FileMode = 0o700
	fileMode os.FileMode = 0o600
)

// Storage is a fsmem.Collaborator backed by a directory on disk. All
// link-content operations are served from an in-memory index (mem)
// that is populated from disk on Initialize/Load and flushed to disk
// on Save; the string store stays resident and only persists at save
// points.
type Storage struct {
	dir  string
	lock *flock.Flock
	mem  *fsmem.Memory
}

// New creates a disk-backed collaborator rooted at dir. dir is created
// if it does not exist.
func New(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, errors.Wrap(err, "create snapshot directory")
	}

	return &Storage{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, lockFileName)),
		mem:  fsmem.NewMemory(),
	}, nil
}

func (s *Storage) Initialize(params fsmem.Params) error {
	if params.Clear {
		return nil
	}

	_, err := s.Load()

	return err
}

func (s *Storage) Shutdown() error { return nil }

// Save compresses the segment snapshot and the link-content index and
// writes them atomically under an advisory file lock, so a concurrent
// reader never observes a partially written snapshot.
func (s *Storage) Save(snapshot fsmem.Snapshot) error {
	if err := s.lock.Lock(); err != nil {
		return errors.Wrap(err, "lock snapshot directory")
	}
	defer s.lock.Unlock() //nolint:errcheck

	if err := writeCompressed(filepath.Join(s.dir, snapshotFileName), encodeSnapshot(snapshot)); err != nil {
		return errors.Wrap(err, "write segment snapshot")
	}

	if err := writeCompressed(filepath.Join(s.dir, contentFileName), encodeContent(s.mem.ExportContent())); err != nil {
		return errors.Wrap(err, "write link-content index")
	}

	if err := s.mem.Save(snapshot); err != nil {
		return err
	}

	log.Debugw("saved snapshot", "dir", s.dir, "segments", len(snapshot.Segments))

	return nil
}

// Load reads back the most recently saved snapshot, or an empty one if
// none exists yet.
func (s *Storage) Load() (fsmem.Snapshot, error) {
	if err := s.lock.RLock(); err != nil {
		return fsmem.Snapshot{}, errors.Wrap(err, "lock snapshot directory")
	}
	defer s.lock.Unlock() //nolint:errcheck

	data, err := readCompressed(filepath.Join(s.dir, snapshotFileName))
	if os.IsNotExist(err) {
		return fsmem.Snapshot{}, nil
	}

	if err != nil {
		return fsmem.Snapshot{}, errors.Wrap(err, "read segment snapshot")
	}

	snap := decodeSnapshot(data)

	if err := s.mem.Save(snap); err != nil {
		return fsmem.Snapshot{}, err
	}

	contentData, err := readCompressed(filepath.Join(s.dir, contentFileName))
	if err == nil {
		s.mem.ImportContent(decodeContent(contentData))
	} else if !os.IsNotExist(err) {
		return fsmem.Snapshot{}, errors.Wrap(err, "read link-content index")
	}

	return snap, nil
}

func (s *Storage) LinkString(key uint64, data []byte, searchable bool) error {
	return s.mem.LinkString(key, data, searchable)
}

func (s *Storage) UnlinkString(key uint64) error { return s.mem.UnlinkString(key) }

func (s *Storage) GetStringByLink(key uint64) ([]byte, bool, error) { return s.mem.GetStringByLink(key) }

func (s *Storage) GetLinksByString(data []byte) ([]uint64, error) { return s.mem.GetLinksByString(data) }

func (s *Storage) GetLinksBySubstring(data []byte, prefixLimit int) ([]uint64, error) {
	return s.mem.GetLinksBySubstring(data, prefixLimit)
}

func (s *Storage) GetStringsBySubstring(data []byte, prefixLimit int) ([][]byte, error) {
	return s.mem.GetStringsBySubstring(data, prefixLimit)
}

func writeCompressed(path string, data []byte) error {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	defer enc.Close()

	compressed := enc.EncodeAll(data, nil)

	return atomicfile.WriteFile(path, bytesReader(compressed))
}

func readCompressed(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return dec.DecodeAll(raw, nil)
}
