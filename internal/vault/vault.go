// internal/vault/vault.go
package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrBlobNotFound     = errors.New("archive blob not found")
	ErrCorruptBlob      = errors.New("archive blob hash mismatch")
)

// Snapshot is one stored archive: a labeled pointer at a deduplicated
// content blob.
type Snapshot struct {
	ID         string    `json:"id"`
	Hash       string    `json:"hash"`
	Label      string    `json:"label"`
	FileCount  int       `json:"file_count"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
	AccessedAt time.Time `json:"accessed_at"`
}

// blobMeta tracks one content blob shared by any number of snapshots.
type blobMeta struct {
	Hash       string    `json:"hash"`
	Size       int64     `json:"size"`
	RefCount   uint32    `json:"ref_count"`
	Compressed bool      `json:"compressed"`
	CreatedAt  time.Time `json:"created_at"`
}

// Vault stores encoded archives content-addressed by sha256. Identical
// archives share one blob on disk; snapshot records in badger carry the
// labels and metadata. Blobs above a size threshold are zstd-compressed
// on disk; the archive wire format itself stays plain text.
type Vault struct {
	root    string
	db      *badger.DB
	cache   *lru.Cache[string, []byte]
	comp    *compressor
	minComp int
	logger  *zap.Logger
}

// Options configures a Vault.
type Options struct {
	// Root directory for blob files.
	Root string
	// CacheSize is the number of hot blobs kept in memory.
	CacheSize int
	// CompressMin is the blob size in bytes above which blobs are
	// compressed. Zero uses the default (4KB).
	CompressMin int
	// Logger may be nil.
	Logger *zap.Logger
}

// New creates a vault over an open badger database.
func New(db *badger.DB, opts Options) (*Vault, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if err := os.MkdirAll(opts.Root, 0755); err != nil {
		return nil, fmt.Errorf("creating root directory: %w", err)
	}

	if opts.CacheSize == 0 {
		opts.CacheSize = 128
	}
	cache, err := lru.New[string, []byte](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	if opts.CompressMin == 0 {
		opts.CompressMin = 4 * 1024
	}
	comp, err := newCompressor()
	if err != nil {
		return nil, fmt.Errorf("creating compressor: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Vault{
		root:    opts.Root,
		db:      db,
		cache:   cache,
		comp:    comp,
		minComp: opts.CompressMin,
		logger:  logger,
	}, nil
}

// Close releases the compressor. The badger database belongs to the
// caller and stays open.
func (v *Vault) Close() {
	v.comp.close()
}

// Store saves an encoded archive and returns its snapshot record.
// Identical content is stored once; the new snapshot references the
// existing blob.
func (v *Vault) Store(encoded []byte, label string, fileCount int) (Snapshot, error) {
	hash := hashContent(encoded)

	meta, err := v.getBlobMeta(hash)
	switch {
	case err == nil:
		meta.RefCount++
		if err := v.putBlobMeta(meta); err != nil {
			return Snapshot{}, fmt.Errorf("updating blob ref count: %w", err)
		}
	case errors.Is(err, ErrBlobNotFound):
		if err := v.writeBlob(hash, encoded); err != nil {
			return Snapshot{}, err
		}
	default:
		return Snapshot{}, fmt.Errorf("reading blob metadata: %w", err)
	}

	now := time.Now()
	snap := Snapshot{
		ID:         uuid.New().String(),
		Hash:       hash,
		Label:      label,
		FileCount:  fileCount,
		Size:       int64(len(encoded)),
		CreatedAt:  now,
		AccessedAt: now,
	}
	if err := v.putSnapshot(snap); err != nil {
		return Snapshot{}, fmt.Errorf("storing snapshot: %w", err)
	}

	v.cache.Add(hash, encoded)
	v.logger.Info("stored snapshot",
		zap.String("id", snap.ID),
		zap.String("label", label),
		zap.Int("bytes", len(encoded)))
	return snap, nil
}

// Get returns a snapshot record and its encoded archive, refreshing
// the snapshot's access time.
func (v *Vault) Get(id string) (Snapshot, []byte, error) {
	snap, err := v.getSnapshot(id)
	if err != nil {
		return Snapshot{}, nil, err
	}

	snap.AccessedAt = time.Now()
	if err := v.putSnapshot(snap); err != nil {
		v.logger.Warn("updating snapshot access time", zap.Error(err))
	}

	if content, ok := v.cache.Get(snap.Hash); ok {
		return snap, content, nil
	}

	content, err := v.readBlob(snap.Hash)
	if err != nil {
		return Snapshot{}, nil, err
	}
	v.cache.Add(snap.Hash, content)
	return snap, content, nil
}

// List returns all snapshots, newest first.
func (v *Vault) List() ([]Snapshot, error) {
	var snaps []Snapshot
	err := v.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(snapshotPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var s Snapshot
				if err := json.Unmarshal(val, &s); err != nil {
					return err
				}
				snaps = append(snaps, s)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
	return snaps, nil
}

// Delete removes a snapshot and, when no other snapshot references its
// blob, the blob itself.
func (v *Vault) Delete(id string) error {
	snap, err := v.getSnapshot(id)
	if err != nil {
		return err
	}

	if err := v.deleteKey(snapshotPrefix + id); err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}

	meta, err := v.getBlobMeta(snap.Hash)
	if err != nil {
		return fmt.Errorf("reading blob metadata: %w", err)
	}
	meta.RefCount--
	if meta.RefCount > 0 {
		return v.putBlobMeta(meta)
	}

	if err := os.Remove(v.blobPath(snap.Hash)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing blob file: %w", err)
	}
	if err := v.deleteKey(blobPrefix + snap.Hash); err != nil {
		return fmt.Errorf("deleting blob metadata: %w", err)
	}
	v.cache.Remove(snap.Hash)
	return nil
}

// Verify re-reads a snapshot's blob and checks its hash.
func (v *Vault) Verify(id string) error {
	snap, err := v.getSnapshot(id)
	if err != nil {
		return err
	}
	// Bypass the cache so the on-disk blob is what gets checked.
	content, err := v.readBlob(snap.Hash)
	if err != nil {
		return err
	}
	if hashContent(content) != snap.Hash {
		return ErrCorruptBlob
	}
	return nil
}

// Blob file handling

func (v *Vault) writeBlob(hash string, content []byte) error {
	path := v.blobPath(hash)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating blob directory: %w", err)
	}

	stored := content
	compressed := false
	if len(content) >= v.minComp {
		stored = v.comp.compress(content)
		compressed = true
	}
	if err := os.WriteFile(path, stored, 0644); err != nil {
		return fmt.Errorf("writing blob file: %w", err)
	}

	meta := blobMeta{
		Hash:       hash,
		Size:       int64(len(content)),
		RefCount:   1,
		Compressed: compressed,
		CreatedAt:  time.Now(),
	}
	if err := v.putBlobMeta(meta); err != nil {
		os.Remove(path)
		return fmt.Errorf("storing blob metadata: %w", err)
	}
	return nil
}

func (v *Vault) readBlob(hash string) ([]byte, error) {
	meta, err := v.getBlobMeta(hash)
	if err != nil {
		return nil, err
	}

	stored, err := os.ReadFile(v.blobPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("reading blob file: %w", err)
	}

	content := stored
	if meta.Compressed {
		content, err = v.comp.decompress(stored)
		if err != nil {
			return nil, fmt.Errorf("decompressing blob: %w", err)
		}
	}

	if hashContent(content) != hash {
		return nil, ErrCorruptBlob
	}
	return content, nil
}

func (v *Vault) blobPath(hash string) string {
	return filepath.Join(v.root, hash[:2], hash[2:])
}

func hashContent(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// Badger metadata handling

const (
	snapshotPrefix = "snap:"
	blobPrefix     = "blob:"
)

func (v *Vault) putSnapshot(s Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return v.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(snapshotPrefix+s.ID), data)
	})
}

func (v *Vault) getSnapshot(id string) (Snapshot, error) {
	var snap Snapshot
	err := v.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotPrefix + id))
		if err == badger.ErrKeyNotFound {
			return ErrSnapshotNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	return snap, err
}

func (v *Vault) putBlobMeta(meta blobMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return v.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(blobPrefix+meta.Hash), data)
	})
}

func (v *Vault) getBlobMeta(hash string) (blobMeta, error) {
	var meta blobMeta
	err := v.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(blobPrefix + hash))
		if err == badger.ErrKeyNotFound {
			return ErrBlobNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	return meta, err
}

func (v *Vault) deleteKey(key string) error {
	return v.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

