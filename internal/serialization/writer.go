package serialization

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/gtn-go/gtn/internal/graph"
)

// LibraryVersion is recorded in the header of every .gtn file.
const LibraryVersion = "0.1.0"

// BinaryWriter writes graphs in .gtn format.
type BinaryWriter struct {
	file   *os.File
	closed bool
}

// NewBinaryWriter creates a new .gtn file writer.
func NewBinaryWriter(path string) (*BinaryWriter, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for graph saving
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &BinaryWriter{
		file:   file,
		closed: false,
	}, nil
}

// WriteGraph writes g and metadata to the .gtn file.
func (w *BinaryWriter) WriteGraph(g *graph.Graph, metadata map[string]string) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}
	return WriteBinary(w.file, g, metadata)
}

// Close closes the writer and the underlying file.
func (w *BinaryWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// encodePayload lays out node flags and arc records.
func encodePayload(g *graph.Graph) ([]byte, error) {
	payload := make([]byte, payloadSize(g.NumNodes(), g.NumArcs()))
	for n := 0; n < g.NumNodes(); n++ {
		var flags byte
		if g.IsStart(n) {
			flags |= nodeStart
		}
		if g.IsAccept(n) {
			flags |= nodeAccept
		}
		payload[n] = flags
	}

	off := nodeSectionSize(g.NumNodes())
	for a := 0; a < g.NumArcs(); a++ {
		fields := [4]int{g.SrcNode(a), g.DstNode(a), g.ILabel(a), g.OLabel(a)}
		for i, v := range fields {
			if v < math.MinInt32 || v > math.MaxInt32 {
				return nil, fmt.Errorf("arc %d: value %d does not fit in int32", a, v)
			}
			//nolint:gosec // G115: range checked above
			binary.LittleEndian.PutUint32(payload[off+int64(4*i):], uint32(int32(v)))
		}
		binary.LittleEndian.PutUint64(payload[off+16:], math.Float64bits(g.Weight(a)))
		off += ArcRecordSize
	}
	return payload, nil
}

// WriteBinary writes g in .gtn format to an io.Writer.
func WriteBinary(w io.Writer, g *graph.Graph, metadata map[string]string) error {
	payload, err := encodePayload(g)
	if err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	checksum := ComputeChecksum(payload)

	header := Header{
		FormatVersion: FormatVersion,
		ID:            uuid.NewString(),
		GTNVersion:    LibraryVersion,
		CreatedAt:     time.Now().UTC(),
		NumNodes:      g.NumNodes(),
		NumArcs:       g.NumArcs(),
		CalcGrad:      g.CalcGrad(),
		Checksum:      hex.EncodeToString(checksum[:]),
		Metadata:      metadata,
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	// Marshal header to JSON
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(MagicBytes)
	flags := uint32(0)
	if len(metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if g.CalcGrad() {
		flags |= FlagCalcGrad
	}
	for _, v := range []any{uint32(FormatVersion), flags, uint64(len(headerJSON))} {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("failed to write fixed header: %w", err)
		}
	}
	buf.Write(headerJSON)

	// Pad so the payload is aligned
	currentPos := int64(FixedHeaderSize + len(headerJSON))
	buf.Write(make([]byte, align(currentPos)-currentPos))

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	return nil
}

// SaveBinary writes g in .gtn format to path.
func SaveBinary(path string, g *graph.Graph, metadata map[string]string) error {
	w, err := NewBinaryWriter(path)
	if err != nil {
		return err
	}
	if err := w.WriteGraph(g, metadata); err != nil {
		_ = w.Close() // Best effort close on error
		return err
	}
	return w.Close()
}

// WriteText writes g in the text format. Weights are written with the
// shortest representation that reads back to the same float64.
func WriteText(w io.Writer, g *graph.Graph) error {
	bw := bufio.NewWriter(w)
	writeIDs := func(ids []int) {
		for i, id := range ids {
			if i > 0 {
				_ = bw.WriteByte(' ')
			}
			_, _ = bw.WriteString(strconv.Itoa(id))
		}
		_ = bw.WriteByte('\n')
	}
	writeIDs(g.Start())
	writeIDs(g.Accept())
	for a := 0; a < g.NumArcs(); a++ {
		_, _ = fmt.Fprintf(bw, "%d %d %d %d %s\n",
			g.SrcNode(a), g.DstNode(a), g.ILabel(a), g.OLabel(a),
			strconv.FormatFloat(g.Weight(a), 'g', -1, 64))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write graph text: %w", err)
	}
	return nil
}

// Save writes g in the text format to path.
func Save(path string, g *graph.Graph) error {
	//nolint:gosec // G304: File path comes from user input, which is expected for graph saving
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := WriteText(file, g); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
