package sourcegen

import (
	"encoding/hex"
	"os"

	"github.com/blang/semver/v4"
	"github.com/fxamacker/cbor/v2"

	"github.com/consensys/gnark-gpu/gpuerr"
)

// CacheSchemaVersion is bumped whenever CacheIndex's encoding changes in a
// way that invalidates previously-written indexes.
var CacheSchemaVersion = semver.MustParse("1.0.0")

// CacheEntry records which content hash produced which on-disk artifact
// path. CacheIndex is a standalone type for callers to load, update and
// save: Generate does not read or write it (Generate always re-renders the
// bundle and skips only re-writing a content-addressed file that already
// exists), and gpuprogram.Load does not consult it.
type CacheEntry struct {
	ContentHash [32]byte `cbor:"hash"`
	Path        string   `cbor:"path"`
}

// CacheIndex is the persisted state spec §6 allows ("only the generated
// artifacts; no runtime files"): a small index next to the artifacts
// themselves, not a separate runtime database.
type CacheIndex struct {
	SchemaVersion string       `cbor:"schema_version"`
	Entries       []CacheEntry `cbor:"entries"`
}

// LoadCacheIndex reads a CacheIndex from path, cbor-decoded. A missing file
// is not an error: it returns an empty index.
func LoadCacheIndex(path string) (*CacheIndex, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &CacheIndex{SchemaVersion: CacheSchemaVersion.String()}, nil
	}
	if err != nil {
		return nil, gpuerr.WrapIo("reading cache index", err)
	}
	var idx CacheIndex
	if err := cbor.Unmarshal(raw, &idx); err != nil {
		return nil, gpuerr.WrapIo("decoding cache index", err)
	}
	have, err := semver.Parse(idx.SchemaVersion)
	if err != nil || have.Major != CacheSchemaVersion.Major {
		// A schema bump invalidates the old index rather than failing the
		// caller: treat it as empty and let artifacts be regenerated.
		return &CacheIndex{SchemaVersion: CacheSchemaVersion.String()}, nil
	}
	return &idx, nil
}

// Save cbor-encodes idx to path.
func (idx *CacheIndex) Save(path string) error {
	idx.SchemaVersion = CacheSchemaVersion.String()
	raw, err := cbor.Marshal(idx)
	if err != nil {
		return gpuerr.WrapIo("encoding cache index", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return gpuerr.WrapIo("writing cache index", err)
	}
	return nil
}

// Lookup returns the cached path for hash, if present.
func (idx *CacheIndex) Lookup(hash [32]byte) (string, bool) {
	for _, e := range idx.Entries {
		if e.ContentHash == hash {
			return e.Path, true
		}
	}
	return "", false
}

// Put records (hash, path) in the index, replacing any existing entry for
// the same hash.
func (idx *CacheIndex) Put(hash [32]byte, path string) {
	for i, e := range idx.Entries {
		if e.ContentHash == hash {
			idx.Entries[i].Path = path
			return
		}
	}
	idx.Entries = append(idx.Entries, CacheEntry{ContentHash: hash, Path: path})
}

// hashString is a debug/log-friendly rendering of a content hash.
func hashString(h [32]byte) string { return hex.EncodeToString(h[:8]) }
