package snapshot

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/redikv/redikv-go/internal/store"
)

// Magic bytes identify snapshot files.
var magicBytes = []byte("RDKVSNAP")

const (
	filePrefix    = "snapshot-"
	fileExtension = ".snap"
	checksumSize  = 32
	headerVersion = 1

	// DefaultRetentionCount is how many snapshots Prune keeps.
	DefaultRetentionCount = 3
)

var (
	ErrInvalidMagic     = errors.New("snapshot: invalid magic bytes")
	ErrChecksumMismatch = errors.New("snapshot: checksum mismatch")
	ErrNoSnapshots      = errors.New("snapshot: no snapshots available")
)

type snapshotHeader struct {
	Version   int    `json:"version"`
	CreatedAt int64  `json:"created_at"`
	KeyCount  uint64 `json:"key_count"`
}

// Config configures the snapshot manager.
type Config struct {
	// Dir is the snapshot directory, created if absent.
	Dir string

	// RetentionCount is how many snapshot files Prune keeps.
	RetentionCount int
}

// DefaultConfig returns a Config with default retention.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:            dir,
		RetentionCount: DefaultRetentionCount,
	}
}

// Manager creates, loads, lists, and prunes snapshot files in a directory.
type Manager struct {
	cfg     Config
	entropy *ulid.MonotonicEntropy
}

// NewManager creates a snapshot manager, creating the directory if needed.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, errors.New("snapshot: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("snapshot: create dir: %w", err)
	}
	if cfg.RetentionCount == 0 {
		cfg.RetentionCount = DefaultRetentionCount
	}

	return &Manager{
		cfg:     cfg,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}, nil
}

// Info contains metadata about a snapshot file.
type Info struct {
	ID        string `json:"id"`
	KeyCount  int64  `json:"key_count"`
	CreatedAt int64  `json:"created_at"`
	Size      int64  `json:"size"`
	Path      string `json:"path"`
	Checksum  string `json:"checksum"`
}

// Create writes a snapshot of the store's current contents.
func (m *Manager) Create(st *store.Store) (*Info, error) {
	now := time.Now()
	id := filePrefix + ulid.MustNew(ulid.Timestamp(now), m.entropy).String()

	tempPath := filepath.Join(m.cfg.Dir, id+".tmp")
	file, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("snapshot: create temp file: %w", err)
	}
	defer os.Remove(tempPath)

	hash := sha256.New()
	bw := bufio.NewWriter(io.MultiWriter(file, hash))

	if _, err := bw.Write(magicBytes); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write magic: %w", err)
	}

	// Record count first so the header can carry it; Range gives a
	// per-shard consistent view which is all SAVE promises.
	type record struct {
		key   string
		value []byte
	}
	var records []record
	st.Range(func(key string, value []byte) bool {
		records = append(records, record{key: key, value: value})
		return true
	})

	hdr := snapshotHeader{
		Version:   headerVersion,
		CreatedAt: now.UnixMilli(),
		KeyCount:  uint64(len(records)),
	}
	hdrJSON, err := json.Marshal(hdr)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: marshal header: %w", err)
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(hdrJSON)))
	if _, err := bw.Write(lenBuf[:]); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write header length: %w", err)
	}
	if _, err := bw.Write(hdrJSON); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write header: %w", err)
	}

	for _, rec := range records {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(rec.key)))
		if _, err := bw.Write(lenBuf[:]); err != nil {
			file.Close()
			return nil, fmt.Errorf("snapshot: write key length: %w", err)
		}
		if _, err := bw.WriteString(rec.key); err != nil {
			file.Close()
			return nil, fmt.Errorf("snapshot: write key: %w", err)
		}
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(rec.value)))
		if _, err := bw.Write(lenBuf[:]); err != nil {
			file.Close()
			return nil, fmt.Errorf("snapshot: write value length: %w", err)
		}
		if _, err := bw.Write(rec.value); err != nil {
			file.Close()
			return nil, fmt.Errorf("snapshot: write value: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: flush: %w", err)
	}

	// Checksum trailer covers everything before it.
	sum := hash.Sum(nil)
	if _, err := file.Write(sum); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write checksum: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("snapshot: close: %w", err)
	}

	stat, err := os.Stat(tempPath)
	if err != nil {
		return nil, err
	}

	finalPath := filepath.Join(m.cfg.Dir, id+fileExtension)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return nil, fmt.Errorf("snapshot: rename: %w", err)
	}

	return &Info{
		ID:        id,
		KeyCount:  int64(len(records)),
		CreatedAt: now.UnixMilli(),
		Size:      stat.Size(),
		Path:      finalPath,
		Checksum:  hex.EncodeToString(sum),
	}, nil
}

// LoadLatest loads the newest valid snapshot into the store. Corrupted
// files are skipped in favor of older ones. It returns ErrNoSnapshots when
// no valid snapshot exists, including when the directory is empty.
func (m *Manager) LoadLatest(st *store.Store) (*Info, error) {
	infos, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, ErrNoSnapshots
	}

	for i := len(infos) - 1; i >= 0; i-- {
		info, err := m.loadFile(infos[i].Path, st)
		if err == nil {
			return info, nil
		}
		if errors.Is(err, ErrChecksumMismatch) || errors.Is(err, ErrInvalidMagic) {
			continue
		}
		return nil, err
	}

	return nil, ErrNoSnapshots
}

func (m *Manager) loadFile(path string, st *store.Store) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Size() < int64(len(magicBytes))+checksumSize {
		return nil, ErrChecksumMismatch
	}

	bodyLen := stat.Size() - checksumSize
	expected := make([]byte, checksumSize)
	if _, err := io.ReadFull(io.NewSectionReader(f, bodyLen, checksumSize), expected); err != nil {
		return nil, err
	}
	h := sha256.New()
	if _, err := io.CopyN(h, io.NewSectionReader(f, 0, bodyLen), bodyLen); err != nil {
		return nil, err
	}
	if !bytes.Equal(h.Sum(nil), expected) {
		return nil, ErrChecksumMismatch
	}

	br := bufio.NewReader(io.NewSectionReader(f, 0, bodyLen))

	magic := make([]byte, len(magicBytes))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, err
	}
	if !bytes.Equal(magic, magicBytes) {
		return nil, ErrInvalidMagic
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
		return nil, err
	}
	hdrLen := binary.BigEndian.Uint32(lenBuf[:])
	if hdrLen == 0 {
		return nil, errors.New("snapshot: empty header")
	}
	hdrJSON := make([]byte, hdrLen)
	if _, err := io.ReadFull(br, hdrJSON); err != nil {
		return nil, err
	}
	var hdr snapshotHeader
	if err := json.Unmarshal(hdrJSON, &hdr); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal header: %w", err)
	}

	for i := uint64(0); i < hdr.KeyCount; i++ {
		if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
			return nil, fmt.Errorf("snapshot: read key length: %w", err)
		}
		key := make([]byte, binary.BigEndian.Uint32(lenBuf[:]))
		if _, err := io.ReadFull(br, key); err != nil {
			return nil, fmt.Errorf("snapshot: read key: %w", err)
		}
		if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
			return nil, fmt.Errorf("snapshot: read value length: %w", err)
		}
		value := make([]byte, binary.BigEndian.Uint32(lenBuf[:]))
		if _, err := io.ReadFull(br, value); err != nil {
			return nil, fmt.Errorf("snapshot: read value: %w", err)
		}
		if err := st.Set(string(key), value); err != nil {
			return nil, fmt.Errorf("snapshot: restore key: %w", err)
		}
	}

	return &Info{
		ID:        strings.TrimSuffix(filepath.Base(path), fileExtension),
		KeyCount:  int64(hdr.KeyCount),
		CreatedAt: hdr.CreatedAt,
		Size:      stat.Size(),
		Path:      path,
		Checksum:  hex.EncodeToString(expected),
	}, nil
}

// List lists snapshot files oldest first. ULID file names sort
// lexicographically in creation order.
func (m *Manager) List() ([]*Info, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileExtension) {
			paths = append(paths, filepath.Join(m.cfg.Dir, name))
		}
	}
	sort.Strings(paths)

	var infos []*Info
	for _, p := range paths {
		stat, err := os.Stat(p)
		if err != nil {
			continue
		}
		infos = append(infos, &Info{
			ID:   strings.TrimSuffix(filepath.Base(p), fileExtension),
			Path: p,
			Size: stat.Size(),
		})
	}
	return infos, nil
}

// Prune deletes snapshots beyond the retention count, newest kept.
func (m *Manager) Prune() error {
	infos, err := m.List()
	if err != nil {
		return err
	}
	if m.cfg.RetentionCount <= 0 || len(infos) <= m.cfg.RetentionCount {
		return nil
	}
	for _, info := range infos[:len(infos)-m.cfg.RetentionCount] {
		_ = os.Remove(info.Path)
	}
	return nil
}
