package fs

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/sc-machine-go/scmem/fsmem"
)

// encodeSnapshot and decodeSnapshot implement the opaque on-disk
// layout for a segment snapshot: a count followed by
// (length, bytes) pairs. The core treats segment payloads as opaque,
// so this codec only needs to round-trip them, not interpret them.
func encodeSnapshot(s fsmem.Snapshot) []byte {
	var buf bytes.Buffer

	var countBuf [8]byte
	binary.BigEndian.PutUint64(countBuf[:], uint64(len(s.Segments)))
	buf.Write(countBuf[:])

	for _, seg := range s.Segments {
		var lenBuf [8]byte
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(seg)))
		buf.Write(lenBuf[:])
		buf.Write(seg)
	}

	return buf.Bytes()
}

func decodeSnapshot(data []byte) fsmem.Snapshot {
	r := bytes.NewReader(data)

	count, ok := readUint64(r)
	if !ok {
		return fsmem.Snapshot{}
	}

	segments := make([][]byte, 0, count)

	for i := uint64(0); i < count; i++ {
		n, ok := readUint64(r)
		if !ok {
			break
		}

		seg := make([]byte, n)
		if _, err := io.ReadFull(r, seg); err != nil {
			break
		}

		segments = append(segments, seg)
	}

	return fsmem.Snapshot{Segments: segments}
}

func readUint64(r *bytes.Reader) (uint64, bool) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, false
	}

	return binary.BigEndian.Uint64(buf[:]), true
}

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

// encodeContent/decodeContent round-trip the exported link-content
// index: count, then (key, searchable, length, bytes) per entry.
func encodeContent(entries []fsmem.ContentEntry) []byte {
	var buf bytes.Buffer

	var countBuf [8]byte
	binary.BigEndian.PutUint64(countBuf[:], uint64(len(entries)))
	buf.Write(countBuf[:])

	for _, e := range entries {
		var keyBuf [8]byte
		binary.BigEndian.PutUint64(keyBuf[:], e.Key)
		buf.Write(keyBuf[:])

		if e.Searchable {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}

		var lenBuf [8]byte
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(e.Data)))
		buf.Write(lenBuf[:])
		buf.Write(e.Data)
	}

	return buf.Bytes()
}

func decodeContent(data []byte) []fsmem.ContentEntry {
	r := bytes.NewReader(data)

	count, ok := readUint64(r)
	if !ok {
		return nil
	}

	entries := make([]fsmem.ContentEntry, 0, count)

	for i := uint64(0); i < count; i++ {
		key, ok := readUint64(r)
		if !ok {
			break
		}

		searchableByte, err := r.ReadByte()
		if err != nil {
			break
		}

		n, ok := readUint64(r)
		if !ok {
			break
		}

		val := make([]byte, n)
		if _, err := io.ReadFull(r, val); err != nil {
			break
		}

		entries = append(entries, fsmem.ContentEntry{Key: key, Data: val, Searchable: searchableByte != 0})
	}

	return entries
}
