package snapshot

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Format selects the wire encoding of a snapshot.
type Format uint8

const (
	FormatCBOR Format = iota
	FormatMsgpack
)

func (f Format) String() string {
	switch f {
	case FormatCBOR:
		return "cbor"
	case FormatMsgpack:
		return "msgpack"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// ParseFormat maps a format name to its Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "cbor", "":
		return FormatCBOR, nil
	case "msgpack", "mp":
		return FormatMsgpack, nil
	}
	return 0, fmt.Errorf("snapshot: unknown format %q", name)
}

// cborEncMode uses canonical encoding so equal snapshots produce equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal encodes s in the given format.
func Marshal(s *Snapshot, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, s, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a snapshot from data.
func Unmarshal(data []byte, f Format) (*Snapshot, error) {
	return Read(bytes.NewReader(data), f)
}

// Write encodes s to w.
func Write(w io.Writer, s *Snapshot, f Format) error {
	var err error
	switch f {
	case FormatCBOR:
		err = cborEncMode.NewEncoder(w).Encode(s)
	case FormatMsgpack:
		err = msgpack.NewEncoder(w).Encode(s)
	default:
		return fmt.Errorf("snapshot: unknown format %s", f)
	}
	if err != nil {
		return fmt.Errorf("snapshot: encode %s: %w", f, err)
	}
	return nil
}

// Read decodes one snapshot from r.
func Read(r io.Reader, f Format) (*Snapshot, error) {
	var s Snapshot
	var err error
	switch f {
	case FormatCBOR:
		err = cbor.NewDecoder(r).Decode(&s)
	case FormatMsgpack:
		err = msgpack.NewDecoder(r).Decode(&s)
	default:
		return nil, fmt.Errorf("snapshot: unknown format %s", f)
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: decode %s: %w", f, err)
	}
	if s.Schema != SchemaVersion {
		return nil, fmt.Errorf("snapshot: unsupported schema %d (want %d)", s.Schema, SchemaVersion)
	}
	return &s, nil
}
