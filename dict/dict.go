// Package dict loads Zstandard dictionaries and derives their IDs.
//
// A dictionary is either a trained dictionary (starting with the magic number
// 0xEC30A437, as written by `zstd --train`) or arbitrary raw content used as
// match history. Loading never fails; a trained dictionary with broken entropy
// tables is only rejected when an engine attaches it.
package dict

import (
	"encoding/binary"

	"github.com/arloliu/zstdx/format"
	"github.com/arloliu/zstdx/internal/hash"
)

const (
	trainedHeaderSize = 8

	// raw-content IDs are kept clear of the range reserved for registered dictionaries
	rawIDBase  = 32768
	rawIDRange = 1<<31 - rawIDBase
)

// Dictionary is an immutable dictionary. It is safe for concurrent use by any
// number of engines.
type Dictionary struct {
	content []byte
	id      uint32
	trained bool
}

// Load creates a dictionary from b. The bytes are copied, so the caller may
// reuse b afterwards.
func Load(b []byte) *Dictionary {
	d := &Dictionary{content: append([]byte(nil), b...)}

	if id, ok := trainedID(d.content); ok {
		d.id = id
		d.trained = true
	} else {
		d.id = rawID(d.content)
	}

	return d
}

// ID returns the dictionary ID of d, or 0 when d is nil.
func ID(d *Dictionary) uint32 {
	if d == nil {
		return 0
	}

	return d.id
}

// ID returns the 32-bit identifier written into frame headers.
//
// Trained dictionaries carry their ID in bytes 4..8. Raw-content dictionaries
// get an ID derived from the XXH64 hash of their content, mapped into
// [32768, 2^31).
func (d *Dictionary) ID() uint32 {
	return d.id
}

// BackendID returns the ID a compression library associates with the
// dictionary: the trained ID, or 0 for raw content, which libraries treat as
// anonymous history.
func (d *Dictionary) BackendID() uint32 {
	if d == nil || !d.trained {
		return 0
	}

	return d.id
}

// IsTrained reports whether the dictionary has the trained dictionary layout.
func (d *Dictionary) IsTrained() bool {
	return d != nil && d.trained
}

// Bytes returns the dictionary content. The returned slice must not be modified.
func (d *Dictionary) Bytes() []byte {
	if d == nil {
		return nil
	}

	return d.content
}

// Len returns the content length in bytes.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}

	return len(d.content)
}

func trainedID(b []byte) (uint32, bool) {
	if len(b) < trainedHeaderSize || binary.LittleEndian.Uint32(b) != format.DictionaryMagic {
		return 0, false
	}

	id := binary.LittleEndian.Uint32(b[4:])

	return id, id != 0
}

func rawID(b []byte) uint32 {
	return rawIDBase + uint32(hash.Sum64(b)%rawIDRange) //nolint: gosec
}
