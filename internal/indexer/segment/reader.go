package segment

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/sparse"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/codec"
	apperrors "github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/errors"
)

var zstdDecoder *zstd.Decoder

func init() {
	var err error
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("segment: zstd decoder initialization failed: " + err.Error())
	}
}

// Digest is the BLAKE3 sum of an artifact's compressed payload.
type Digest [32]byte

// ReadVocabulary loads the tokens saved by WriteVocabulary along with the
// verified payload digest.
func ReadVocabulary(path string) ([]string, Digest, error) {
	var body vocabularyBody
	h, err := readArtifact(path, KindVocabulary, &body)
	if err != nil {
		return nil, Digest{}, err
	}
	return body.Tokens, h.Digest, nil
}

// ReadMatrix loads and validates a count matrix saved by WriteMatrix, and
// returns it with the verified payload digest.
func ReadMatrix(path string) (*sparse.CSR, Digest, error) {
	var body matrixBody
	h, err := readArtifact(path, KindCountMatrix, &body)
	if err != nil {
		return nil, Digest{}, err
	}
	m := &sparse.CSR{
		Rows:    body.Rows,
		Cols:    body.Cols,
		Indptr:  body.Indptr,
		Indices: body.Indices,
		Data:    body.Data,
	}
	if m.Indptr == nil {
		m.Indptr = make([]int, m.Rows+1)
	}
	if err := m.Validate(); err != nil {
		return nil, Digest{}, apperrors.Newf(apperrors.ErrCorruptArtifact, "%s: %v", path, err)
	}
	return m, h.Digest, nil
}

// ReadHeader decodes and checks the fixed header of an artifact file.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("opening artifact: %w", err)
	}
	defer f.Close()
	buf := make([]byte, HeaderSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return Header{}, apperrors.Newf(apperrors.ErrCorruptArtifact, "%s: short header: %v", path, err)
	}
	return decodeHeader(path, buf)
}

func decodeHeader(path string, buf []byte) (Header, error) {
	h := Header{
		Magic:       binary.LittleEndian.Uint32(buf[0:4]),
		Version:     binary.LittleEndian.Uint32(buf[4:8]),
		Kind:        Kind(binary.LittleEndian.Uint32(buf[8:12])),
		PayloadSize: int64(binary.LittleEndian.Uint64(buf[16:24])),
		RawSize:     int64(binary.LittleEndian.Uint64(buf[24:32])),
	}
	copy(h.Digest[:], buf[32:64])
	if h.Magic != MagicBytes {
		return h, apperrors.Newf(apperrors.ErrCorruptArtifact, "%s: bad magic bytes %x", path, h.Magic)
	}
	if h.Version != FormatVersion {
		return h, apperrors.Newf(apperrors.ErrCorruptArtifact, "%s: unsupported version %d", path, h.Version)
	}
	return h, nil
}

func readArtifact(path string, kind Kind, out any) (Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Header{}, fmt.Errorf("reading %s file: %w", kind, err)
	}
	if len(data) < HeaderSize {
		return Header{}, apperrors.Newf(apperrors.ErrCorruptArtifact, "%s: file shorter than header", path)
	}
	h, err := decodeHeader(path, data[:HeaderSize])
	if err != nil {
		return Header{}, err
	}
	if h.Kind != kind {
		return Header{}, apperrors.Newf(apperrors.ErrCorruptArtifact, "%s: holds %s, want %s", path, h.Kind, kind)
	}
	payload := data[HeaderSize:]
	if int64(len(payload)) != h.PayloadSize {
		return Header{}, apperrors.Newf(apperrors.ErrCorruptArtifact, "%s: payload is %d bytes, header says %d",
			path, len(payload), h.PayloadSize)
	}
	digest := blake3.Sum256(payload)
	if !bytes.Equal(digest[:], h.Digest[:]) {
		return Header{}, apperrors.Newf(apperrors.ErrCorruptArtifact, "%s: digest mismatch", path)
	}
	raw, err := zstdDecoder.DecodeAll(payload, make([]byte, 0, h.RawSize))
	if err != nil {
		return Header{}, apperrors.Newf(apperrors.ErrCorruptArtifact, "%s: decompressing: %v", path, err)
	}
	if err := codec.Unmarshal(raw, out); err != nil {
		return Header{}, apperrors.Newf(apperrors.ErrCorruptArtifact, "%s: decoding %s: %v", path, kind, err)
	}
	return h, nil
}
