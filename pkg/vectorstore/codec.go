package vectorstore

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// FormatHeader identifies version 1 of the store artifact.
const FormatHeader = "Automation.Classifier.VectorStore v1.0"

// maxStringLength bounds a single persisted string.
const maxStringLength = 1 << 26

// ErrStoreFormat is returned when an artifact is not a valid store.
var ErrStoreFormat = errors.New("invalid vector store format")

// Save writes the store to path.
func (s *Store) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create store file: %w", err)
	}

	if err := s.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Encode writes the artifact: the header string, then a gzip body with the vectors,
// the attribute sets and the embedder name. All integers and floats are little-endian;
// strings carry a 7-bit encoded byte length.
func (s *Store) Encode(w io.Writer) error {
	records := s.view()

	header := &binaryWriter{w: w}
	header.writeString(FormatHeader)
	if header.err != nil {
		return fmt.Errorf("failed to write header: %w", header.err)
	}

	gz := gzip.NewWriter(w)
	bw := bufio.NewWriter(gz)
	body := &binaryWriter{w: bw}

	body.writeInt32(len(records))
	for _, r := range records {
		body.writeInt32(len(r.Vector))
		for _, v := range r.Vector {
			body.writeFloat64(v)
		}
	}

	body.writeInt32(len(records))
	for _, r := range records {
		keys := make([]string, 0, len(r.Attributes))
		for k := range r.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		body.writeInt32(len(keys))
		for _, k := range keys {
			body.writeString(k)
			body.writeString(r.Attributes[k])
		}
	}

	name := ""
	if s.embedder != nil {
		name = s.embedder.Name()
	}
	body.writeString(name)

	if body.err != nil {
		return fmt.Errorf("failed to write store body: %w", body.err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush store body: %w", err)
	}
	return gz.Close()
}

// Load reads a store from path. The embedder is rebuilt from registry by its persisted name.
func Load(path string, registry *EmbedderRegistry, opts ...Option) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store file: %w", err)
	}
	defer f.Close()

	return Decode(f, registry, opts...)
}

// Decode reads an artifact written by Encode. When the persisted embedder cannot be rebuilt
// and the stored vectors have DefaultVectorLength, the registry default is used instead.
func Decode(r io.Reader, registry *EmbedderRegistry, opts ...Option) (*Store, error) {
	br := bufio.NewReader(r)

	header, err := (&binaryReader{r: br}).readString()
	if err != nil || header != FormatHeader {
		return nil, fmt.Errorf("%w: header info is missing", ErrStoreFormat)
	}

	gz, err := gzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFormat, err)
	}
	defer gz.Close()

	body := &binaryReader{r: bufio.NewReader(gz)}

	count, err := body.readCount()
	if err != nil {
		return nil, err
	}

	vectorLength := 0
	vectors := make([][]float64, count)
	for i := 0; i < count; i++ {
		n, err := body.readCount()
		if err != nil {
			return nil, err
		}
		if i > 0 && n != vectorLength {
			return nil, fmt.Errorf("%w: record %d has length %d, expected %d", ErrStoreFormat, i, n, vectorLength)
		}
		vectorLength = n

		if vectors[i], err = body.readFloat64s(n); err != nil {
			return nil, err
		}
	}

	attrCount, err := body.readCount()
	if err != nil {
		return nil, err
	}
	if attrCount != count {
		return nil, fmt.Errorf("%w: %d attribute sets for %d records", ErrStoreFormat, attrCount, count)
	}

	records := make([]Record, count)
	for i := 0; i < count; i++ {
		n, err := body.readCount()
		if err != nil {
			return nil, err
		}
		attrs := make(map[string]string, n)
		for j := 0; j < n; j++ {
			key, err := body.readString()
			if err != nil {
				return nil, err
			}
			value, err := body.readString()
			if err != nil {
				return nil, err
			}
			attrs[key] = value
		}
		records[i] = Record{Vector: vectors[i], Attributes: attrs}
	}

	name, err := body.readString()
	if err != nil {
		return nil, err
	}

	embedder, err := registry.Resolve(name)
	if err != nil {
		if vectorLength != DefaultVectorLength {
			return nil, fmt.Errorf("failed to restore embedder %q: %w", name, err)
		}
		log.Warn().Err(err).Str("embedder", name).Msg("Couldn't restore embedder, using default embedder")
		if embedder, err = registry.Default(); err != nil {
			return nil, fmt.Errorf("failed to create default embedder: %w", err)
		}
	}

	if count > 0 && embedder.VectorLength() != vectorLength {
		return nil, fmt.Errorf("%w: embedder %s has length %d, records have %d",
			ErrStoreFormat, embedder.Name(), embedder.VectorLength(), vectorLength)
	}

	store := New(embedder, opts...)
	store.append(records...)

	store.logger.Debug().Int("records", count).Str("embedder", embedder.Name()).Msg("Vector store loaded")

	return store, nil
}

type binaryWriter struct {
	w   io.Writer
	buf [binary.MaxVarintLen64]byte
	err error
}

func (bw *binaryWriter) write(p []byte) {
	if bw.err != nil {
		return
	}
	_, bw.err = bw.w.Write(p)
}

func (bw *binaryWriter) writeInt32(v int) {
	binary.LittleEndian.PutUint32(bw.buf[:4], uint32(int32(v)))
	bw.write(bw.buf[:4])
}

func (bw *binaryWriter) writeFloat64(v float64) {
	binary.LittleEndian.PutUint64(bw.buf[:8], math.Float64bits(v))
	bw.write(bw.buf[:8])
}

// writeString writes a 7-bit encoded byte length followed by the UTF-8 bytes.
func (bw *binaryWriter) writeString(s string) {
	n := binary.PutUvarint(bw.buf[:], uint64(len(s)))
	bw.write(bw.buf[:n])
	bw.write([]byte(s))
}

type binaryReader struct {
	r *bufio.Reader
}

func (br *binaryReader) readInt32() (int32, error) {
	var b [4]byte
	if _, err := io.ReadFull(br.r, b[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreFormat, err)
	}
	return int32(binary.LittleEndian.Uint32(b[:])), nil
}

func (br *binaryReader) readCount() (int, error) {
	n, err := br.readInt32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative count %d", ErrStoreFormat, n)
	}
	return int(n), nil
}

func (br *binaryReader) readFloat64s(n int) ([]float64, error) {
	values := make([]float64, n)
	var b [8]byte
	for i := range values {
		if _, err := io.ReadFull(br.r, b[:]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreFormat, err)
		}
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[:]))
	}
	return values, nil
}

func (br *binaryReader) readString() (string, error) {
	n, err := binary.ReadUvarint(br.r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreFormat, err)
	}
	if n > maxStringLength {
		return "", fmt.Errorf("%w: string length %d too large", ErrStoreFormat, n)
	}

	b := make([]byte, n)
	if _, err := io.ReadFull(br.r, b); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreFormat, err)
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: invalid UTF-8 string", ErrStoreFormat)
	}
	return string(b), nil
}
