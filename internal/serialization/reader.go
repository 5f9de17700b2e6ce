package serialization

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gtn-go/gtn/internal/graph"
)

// BinaryReader reads graphs from .gtn format.
type BinaryReader struct {
	file       *os.File
	header     Header
	flags      uint32
	dataOffset int64 // Offset where the payload starts
	dataSize   int64 // Size of the payload section
	opts       ReaderOptions
	closed     bool
}

// ReaderOptions configures the behavior of BinaryReader.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
}

// NewBinaryReader creates a new .gtn file reader with default options (strict validation).
func NewBinaryReader(path string) (*BinaryReader, error) {
	return NewBinaryReaderWithOptions(path, ReaderOptions{
		ValidationLevel: ValidationStrict,
	})
}

// NewBinaryReaderWithOptions creates a new .gtn file reader with custom options.
func NewBinaryReaderWithOptions(path string, opts ReaderOptions) (*BinaryReader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for graph loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	reader := &BinaryReader{
		file:   file,
		opts:   opts,
		closed: false,
	}
	if err := reader.parseHeader(); err != nil {
		_ = file.Close() // Best effort close on error
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	// Calculate payload size
	fileInfo, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	reader.dataSize = fileInfo.Size() - reader.dataOffset

	// Validate header if requested
	if err := ValidateHeader(&reader.header, reader.dataSize, opts.ValidationLevel); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return reader, nil
}

func (r *BinaryReader) parseHeader() error {
	header, flags, dataOffset, err := readHeader(r.file)
	if err != nil {
		return err
	}
	r.header, r.flags, r.dataOffset = header, flags, dataOffset
	return nil
}

// Header returns the file header.
func (r *BinaryReader) Header() Header {
	return r.header
}

// Metadata returns the metadata map from the header.
func (r *BinaryReader) Metadata() map[string]string {
	return r.header.Metadata
}

// Flags returns the flag word of the file.
func (r *BinaryReader) Flags() uint32 {
	return r.flags
}

// ReadGraph reads the payload and rebuilds the graph.
func (r *BinaryReader) ReadGraph() (*graph.Graph, error) {
	if r.closed {
		return nil, fmt.Errorf("reader is closed")
	}
	if _, err := r.file.Seek(r.dataOffset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to payload: %w", err)
	}
	return readPayload(r.file, &r.header, r.opts)
}

// Close closes the reader and the underlying file.
func (r *BinaryReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

// readHeader consumes the fixed header, the JSON header and the alignment
// padding, leaving reader at the start of the payload, whose offset it
// returns.
func readHeader(reader io.Reader) (Header, uint32, int64, error) {
	// Read magic bytes
	magic := make([]byte, 4)
	if _, err := io.ReadFull(reader, magic); err != nil {
		return Header{}, 0, 0, fmt.Errorf("failed to read magic bytes: %w", err)
	}
	if string(magic) != MagicBytes {
		return Header{}, 0, 0, fmt.Errorf("%w: got %q, expected %q", ErrInvalidMagic, string(magic), MagicBytes)
	}

	// Read version
	var version uint32
	if err := binary.Read(reader, binary.LittleEndian, &version); err != nil {
		return Header{}, 0, 0, fmt.Errorf("failed to read version: %w", err)
	}
	if version != FormatVersion {
		return Header{}, 0, 0, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, FormatVersion)
	}

	// Read flags
	var flags uint32
	if err := binary.Read(reader, binary.LittleEndian, &flags); err != nil {
		return Header{}, 0, 0, fmt.Errorf("failed to read flags: %w", err)
	}

	// Read header size
	var headerSize uint64
	if err := binary.Read(reader, binary.LittleEndian, &headerSize); err != nil {
		return Header{}, 0, 0, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return Header{}, 0, 0, ErrHeaderTooLarge
	}

	// Read header JSON
	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(reader, headerBytes); err != nil {
		return Header{}, 0, 0, fmt.Errorf("failed to read header: %w", err)
	}
	var header Header
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return Header{}, 0, 0, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	// Skip padding
	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	currentPos := int64(FixedHeaderSize) + int64(headerSize)
	if padding := align(currentPos) - currentPos; padding > 0 {
		if _, err := io.ReadFull(reader, make([]byte, padding)); err != nil {
			return Header{}, 0, 0, fmt.Errorf("failed to read padding: %w", err)
		}
	}
	return header, flags, align(currentPos), nil
}

// readPayload reads the payload described by header and builds the graph.
func readPayload(reader io.Reader, header *Header, opts ReaderOptions) (*graph.Graph, error) {
	if header.NumNodes < 0 || header.NumArcs < 0 {
		return nil, fmt.Errorf("validation failed: negative counts in header")
	}
	size := payloadSize(header.NumNodes, header.NumArcs)

	// The buffer grows with the bytes actually read, so a header that
	// overstates its counts fails on EOF instead of allocating up front.
	var buf bytes.Buffer
	if n, err := io.CopyN(&buf, reader, size); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ValidationError{
				Type:    "payload_size",
				Index:   -1,
				Details: fmt.Sprintf("payload has %d bytes, %d nodes and %d arcs need %d", n, header.NumNodes, header.NumArcs, size),
			}
		}
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	payload := buf.Bytes()
	if !opts.SkipChecksumValidation && opts.ValidationLevel == ValidationStrict {
		if err := ValidateChecksum(payload, header.Checksum); err != nil {
			return nil, err
		}
	}

	g := graph.New(header.CalcGrad)
	for n := 0; n < header.NumNodes; n++ {
		g.AddNode(payload[n]&nodeStart != 0, payload[n]&nodeAccept != 0)
	}
	off := nodeSectionSize(header.NumNodes)
	for a := 0; a < header.NumArcs; a++ {
		var fields [4]int
		for i := range fields {
			//nolint:gosec // G115: int32 stored as uint32
			fields[i] = int(int32(binary.LittleEndian.Uint32(payload[off+int64(4*i):])))
		}
		weight := math.Float64frombits(binary.LittleEndian.Uint64(payload[off+16:]))
		off += ArcRecordSize

		if err := ValidateArc(a, fields[0], fields[1], header.NumNodes); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}
		g.MustAddArc(fields[0], fields[1], fields[2], fields[3], weight)
	}
	return g, nil
}

// ReadBinary reads a .gtn graph from an io.Reader.
// This is useful for reading from buffers or network connections.
func ReadBinary(reader io.Reader, opts ReaderOptions) (*graph.Graph, Header, error) {
	header, _, _, err := readHeader(reader)
	if err != nil {
		return nil, Header{}, err
	}
	// The stream length is unknown, so only counts are checked up front.
	if err := ValidateHeader(&header, payloadSize(header.NumNodes, header.NumArcs), opts.ValidationLevel); err != nil {
		return nil, Header{}, fmt.Errorf("validation failed: %w", err)
	}
	g, err := readPayload(reader, &header, opts)
	if err != nil {
		return nil, Header{}, err
	}
	return g, header, nil
}

// ReadText reads a graph in the text format.
func ReadText(reader io.Reader, calcGrad bool) (*graph.Graph, error) {
	type arcLine struct {
		src, dst, ilabel, olabel int
		weight                   float64
	}
	var (
		start, accept []int
		arcs          []arcLine
		headerLines   int
		maxNode       = -1
	)

	parseIDs := func(line int, text string) ([]int, error) {
		var ids []int
		for _, f := range strings.Fields(text) {
			id, err := strconv.Atoi(f)
			if err != nil || id < 0 {
				return nil, &SyntaxError{Line: line, Details: fmt.Sprintf("bad node id %q", f)}
			}
			maxNode = max(maxNode, id)
			ids = append(ids, id)
		}
		return ids, nil
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), MaxHeaderSize)
	line := 0
	var inputSize int64
	for scanner.Scan() {
		line++
		inputSize += int64(len(scanner.Bytes())) + 1
		text := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(text, "#") {
			continue
		}
		if headerLines < 2 {
			ids, err := parseIDs(line, text)
			if err != nil {
				return nil, err
			}
			if headerLines == 0 {
				start = ids
			} else {
				accept = ids
			}
			headerLines++
			continue
		}
		if text == "" {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) < 3 || len(fields) > 5 {
			return nil, &SyntaxError{Line: line, Details: fmt.Sprintf("arc needs 3 to 5 fields, got %d", len(fields))}
		}
		var ints [4]int
		for i := 0; i < 4 && i < len(fields); i++ {
			v, err := strconv.Atoi(fields[i])
			if err != nil {
				return nil, &SyntaxError{Line: line, Details: fmt.Sprintf("bad integer %q", fields[i])}
			}
			ints[i] = v
		}
		if len(fields) < 4 {
			ints[3] = ints[2]
		}
		if ints[0] < 0 || ints[1] < 0 {
			return nil, &SyntaxError{Line: line, Details: "negative node id"}
		}
		a := arcLine{src: ints[0], dst: ints[1], ilabel: ints[2], olabel: ints[3]}
		if len(fields) == 5 {
			w, err := strconv.ParseFloat(fields[4], 64)
			if err != nil {
				return nil, &SyntaxError{Line: line, Details: fmt.Sprintf("bad weight %q", fields[4])}
			}
			a.weight = w
		}
		maxNode = max(maxNode, a.src, a.dst)
		arcs = append(arcs, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read graph text: %w", err)
	}
	if headerLines < 2 {
		return nil, &SyntaxError{Line: line, Details: "missing start or accept line"}
	}
	if limit := textNodeLimit(inputSize); maxNode+1 > limit {
		return nil, fmt.Errorf("%w: got %d, max %d for %d bytes of text", ErrTooManyNodes, maxNode+1, limit, inputSize)
	}

	isStart := make([]bool, maxNode+1)
	isAccept := make([]bool, maxNode+1)
	for _, s := range start {
		isStart[s] = true
	}
	for _, a := range accept {
		isAccept[a] = true
	}
	g := graph.New(calcGrad)
	for n := 0; n <= maxNode; n++ {
		g.AddNode(isStart[n], isAccept[n])
	}
	for _, a := range arcs {
		g.MustAddArc(a.src, a.dst, a.ilabel, a.olabel, a.weight)
	}
	return g, nil
}

// Load reads a graph from path, choosing the .gtn or text format by the
// leading magic bytes. Text graphs track gradients.
func Load(path string) (*graph.Graph, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for graph loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	br := bufio.NewReader(file)
	magic, err := br.Peek(len(MagicBytes))
	if err == nil && string(magic) == MagicBytes {
		return loadBinary(path)
	}
	g, err := ReadText(br, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return g, nil
}

// loadBinary reads a .gtn file, checking the header counts against the
// real file size before the payload is read.
func loadBinary(path string) (*graph.Graph, error) {
	r, err := NewBinaryReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	defer func() { _ = r.Close() }()
	g, err := r.ReadGraph()
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return g, nil
}
