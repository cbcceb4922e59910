// Package segment reads and writes the persisted index artifacts: the
// vocabulary file and the count matrix file. Both share one container
// layout: a fixed 64-byte header followed by a zstd-compressed CBOR body.
package segment

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/sparse"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/codec"
)

const (
	MagicBytes    uint32 = 0x46525658 // "FRVX"
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
)

// Kind identifies which artifact a file holds.
type Kind uint32

const (
	KindVocabulary  Kind = 1
	KindCountMatrix Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindVocabulary:
		return "vocabulary"
	case KindCountMatrix:
		return "count-matrix"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(k))
	}
}

// Header is the fixed prefix of every artifact file.
//
//	[0:4]   magic
//	[4:8]   format version
//	[8:12]  kind
//	[16:24] compressed payload size
//	[24:32] uncompressed payload size
//	[32:64] BLAKE3 digest of the compressed payload
type Header struct {
	Magic       uint32
	Version     uint32
	Kind        Kind
	PayloadSize int64
	RawSize     int64
	Digest      Digest
}

func (h Header) encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(h.Kind))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.PayloadSize))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(h.RawSize))
	copy(buf[32:64], h.Digest[:])
	return buf
}

type vocabularyBody struct {
	Tokens []string `cbor:"1,keyasint"`
}

type matrixBody struct {
	Rows    int       `cbor:"1,keyasint"`
	Cols    int       `cbor:"2,keyasint"`
	Indptr  []int     `cbor:"3,keyasint"`
	Indices []int     `cbor:"4,keyasint"`
	Data    []float64 `cbor:"5,keyasint"`
}

var zstdEncoder *zstd.Encoder

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("segment: zstd encoder initialization failed: " + err.Error())
	}
}

// WriteVocabulary saves tokens, where tokens[i] is the token with id i.
func WriteVocabulary(path string, tokens []string) error {
	return writeArtifact(path, KindVocabulary, vocabularyBody{Tokens: tokens})
}

// WriteMatrix saves a count matrix. The document count is its column count.
func WriteMatrix(path string, m *sparse.CSR) error {
	return writeArtifact(path, KindCountMatrix, matrixBody{
		Rows:    m.Rows,
		Cols:    m.Cols,
		Indptr:  m.Indptr,
		Indices: m.Indices,
		Data:    m.Data,
	})
}

// writeArtifact writes to a .tmp sibling first and renames on success, so a
// crash never leaves a half-written artifact under the final name.
func writeArtifact(path string, kind Kind, body any) error {
	raw, err := codec.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", kind, err)
	}
	payload := zstdEncoder.EncodeAll(raw, nil)
	header := Header{
		Magic:       MagicBytes,
		Version:     FormatVersion,
		Kind:        kind,
		PayloadSize: int64(len(payload)),
		RawSize:     int64(len(raw)),
		Digest:      blake3.Sum256(payload),
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating artifact directory: %w", err)
		}
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp %s file: %w", kind, err)
	}
	defer f.Close()
	if _, err := f.Write(header.encode()); err != nil {
		return fmt.Errorf("writing %s header: %w", kind, err)
	}
	if _, err := f.Write(payload); err != nil {
		return fmt.Errorf("writing %s payload: %w", kind, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing %s file: %w", kind, err)
	}
	f.Close()
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming %s file: %w", kind, err)
	}
	return nil
}
