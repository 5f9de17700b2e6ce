package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/gtn-go/gtn/internal/graph"
)

// sampleGraph has an isolated trailing node, an epsilon arc and weights that
// do not round-trip through short decimal strings.
func sampleGraph() *graph.Graph {
	g := graph.New(true)
	g.AddNode(true, false)
	g.AddNode(false, false)
	g.AddNode(false, true)
	g.AddNode(true, true)
	g.AddNode(false, false)
	g.MustAddArc(0, 1, 1, 2, 0.1)
	g.MustAddArc(1, 2, graph.Epsilon, 3, -1.0/3)
	g.MustAddArc(0, 2, 4, 4, math.Inf(-1))
	g.MustAddArc(3, 3, 5, graph.Epsilon, 1e-300)
	return g
}

// TestBinaryRoundTrip verifies that a graph survives WriteBinary/ReadBinary exactly.
func TestBinaryRoundTrip(t *testing.T) {
	g := sampleGraph()
	var buf bytes.Buffer
	if err := WriteBinary(&buf, g, map[string]string{"source": "test"}); err != nil {
		t.Fatalf("WriteBinary failed: %v", err)
	}

	got, header, err := ReadBinary(&buf, ReaderOptions{ValidationLevel: ValidationStrict})
	if err != nil {
		t.Fatalf("ReadBinary failed: %v", err)
	}
	if !graph.Equal(g, got) {
		t.Errorf("round trip changed the graph: %v vs %v", g, got)
	}
	if got.NumNodes() != 5 {
		t.Errorf("Expected isolated node to survive, got %d nodes", got.NumNodes())
	}
	if !got.CalcGrad() {
		t.Error("Expected calcGrad to be restored")
	}
	if header.Metadata["source"] != "test" {
		t.Errorf("Expected metadata to be preserved, got %v", header.Metadata)
	}
	if header.NumArcs != 4 || header.FormatVersion != FormatVersion {
		t.Errorf("Unexpected header: %+v", header)
	}
	if _, err := uuid.Parse(header.ID); err != nil {
		t.Errorf("Expected a UUID file id, got %q: %v", header.ID, err)
	}
}

// TestBinaryAlignment verifies that the payload starts on an 8-byte boundary.
func TestBinaryAlignment(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBinary(&buf, sampleGraph(), nil); err != nil {
		t.Fatalf("WriteBinary failed: %v", err)
	}
	payload := payloadSize(5, 4)
	headerEnd := int64(buf.Len()) - payload
	if headerEnd%HeaderAlignment != 0 {
		t.Errorf("Payload starts at %d, not aligned to %d", headerEnd, HeaderAlignment)
	}
}

// TestBinaryChecksumMismatch verifies that a flipped payload byte is detected.
func TestBinaryChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBinary(&buf, sampleGraph(), nil); err != nil {
		t.Fatalf("WriteBinary failed: %v", err)
	}
	data := buf.Bytes()
	data[len(data)-1] ^= 0xFF

	_, _, err := ReadBinary(bytes.NewReader(data), ReaderOptions{ValidationLevel: ValidationStrict})
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Expected ErrChecksumMismatch, got: %v", err)
	}

	// Skipping validation accepts the corrupted weight.
	if _, _, err := ReadBinary(bytes.NewReader(data), ReaderOptions{SkipChecksumValidation: true}); err != nil {
		t.Errorf("Expected no error with checksum validation skipped, got: %v", err)
	}
}

// TestBinaryInvalidMagic verifies magic byte validation.
func TestBinaryInvalidMagic(t *testing.T) {
	_, _, err := ReadBinary(strings.NewReader("FSTG\x01\x00\x00\x00"), ReaderOptions{})
	if !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("Expected ErrInvalidMagic, got: %v", err)
	}
}

// TestBinaryUnsupportedVersion verifies version validation.
func TestBinaryUnsupportedVersion(t *testing.T) {
	_, _, err := ReadBinary(strings.NewReader("GTNG\x09\x00\x00\x00"), ReaderOptions{})
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("Expected ErrUnsupportedVersion, got: %v", err)
	}
}

// TestBinaryReader verifies the file-based reader and its size validation.
func TestBinaryReader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "g.gtn")
	if err := SaveBinary(path, sampleGraph(), map[string]string{"k": "v"}); err != nil {
		t.Fatalf("SaveBinary failed: %v", err)
	}

	r, err := NewBinaryReader(path)
	if err != nil {
		t.Fatalf("NewBinaryReader failed: %v", err)
	}
	defer func() { _ = r.Close() }()

	if r.Flags()&FlagHasMetadata == 0 || r.Flags()&FlagCalcGrad == 0 {
		t.Errorf("Expected metadata and calcGrad flags, got %b", r.Flags())
	}
	if r.Metadata()["k"] != "v" {
		t.Errorf("Expected metadata k=v, got %v", r.Metadata())
	}
	g, err := r.ReadGraph()
	if err != nil {
		t.Fatalf("ReadGraph failed: %v", err)
	}
	if !graph.Equal(sampleGraph(), g) {
		t.Error("ReadGraph returned a different graph")
	}

	// Truncate the file: the header no longer matches the payload.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	truncated := filepath.Join(dir, "truncated.gtn")
	if err := os.WriteFile(truncated, data[:len(data)-8], 0o600); err != nil {
		t.Fatal(err)
	}
	_, err = NewBinaryReader(truncated)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Type != "payload_size" {
		t.Errorf("Expected payload_size validation error, got: %v", err)
	}
}

// TestTextRoundTrip verifies WriteText/ReadText.
func TestTextRoundTrip(t *testing.T) {
	g := graph.New(true)
	g.AddNode(true, false)
	g.AddNode(false, false)
	g.AddNode(false, true)
	g.MustAddArc(0, 1, 1, 2, 0.1)
	g.MustAddArc(1, 2, graph.Epsilon, 3, -1.0/3)
	g.MustAddArc(0, 2, 4, 4, 2.5)

	var buf bytes.Buffer
	if err := WriteText(&buf, g); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	got, err := ReadText(&buf, true)
	if err != nil {
		t.Fatalf("ReadText failed: %v", err)
	}
	if !graph.Equal(g, got) {
		t.Errorf("text round trip changed the graph:\n%s", buf.String())
	}
}

// TestReadText_ShortForms verifies optional olabel and weight fields,
// comments and empty start/accept lines.
func TestReadText_ShortForms(t *testing.T) {
	text := `# an acceptor with one transducer arc
0

0 1 3
1 2 4 5
2 0 -1 -1 1.5
`
	g, err := ReadText(strings.NewReader(text), false)
	if err != nil {
		t.Fatalf("ReadText failed: %v", err)
	}
	if g.NumNodes() != 3 || g.NumArcs() != 3 {
		t.Fatalf("Expected 3 nodes and 3 arcs, got %v", g)
	}
	if g.NumAccept() != 0 || !g.IsStart(0) {
		t.Errorf("Unexpected start/accept: start=%v accept=%v", g.Start(), g.Accept())
	}
	if g.OLabel(0) != 3 || g.Weight(0) != 0 {
		t.Errorf("Short arc should default olabel and weight, got %d %g", g.OLabel(0), g.Weight(0))
	}
	if g.OLabel(1) != 5 || g.Weight(2) != 1.5 || g.ILabel(2) != graph.Epsilon {
		t.Error("Unexpected arc fields")
	}
	if g.CalcGrad() {
		t.Error("Expected calcGrad false")
	}
}

// TestReadText_Errors verifies syntax error reporting.
func TestReadText_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
		line int
	}{
		{"bad start id", "x\n1\n", 1},
		{"too few fields", "0\n1\n0 1\n", 3},
		{"too many fields", "0\n1\n0 1 2 3 4 5\n", 3},
		{"bad weight", "0\n1\n0 1 2 3 heavy\n", 3},
		{"negative node", "0\n1\n-2 1 2\n", 3},
		{"missing accept line", "0\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadText(strings.NewReader(tt.text), true)
			var serr *SyntaxError
			if !errors.As(err, &serr) {
				t.Fatalf("Expected SyntaxError, got: %v", err)
			}
			if serr.Line != tt.line {
				t.Errorf("Expected line %d, got %d", tt.line, serr.Line)
			}
			if !errors.Is(err, ErrSyntax) {
				t.Error("Expected errors.Is(err, ErrSyntax)")
			}
		})
	}
}

// TestLoad_DetectsFormat verifies that Load handles both formats.
func TestLoad_DetectsFormat(t *testing.T) {
	dir := t.TempDir()
	g := sampleGraph()

	binPath := filepath.Join(dir, "g.gtn")
	if err := SaveBinary(binPath, g, nil); err != nil {
		t.Fatalf("SaveBinary failed: %v", err)
	}
	txtPath := filepath.Join(dir, "g.txt")
	if err := Save(txtPath, g); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	fromBin, err := Load(binPath)
	if err != nil {
		t.Fatalf("Load binary failed: %v", err)
	}
	if !graph.Equal(g, fromBin) {
		t.Error("binary Load changed the graph")
	}

	fromTxt, err := Load(txtPath)
	if err != nil {
		t.Fatalf("Load text failed: %v", err)
	}
	// The isolated last node is not mentioned in the text format.
	if fromTxt.NumNodes() != 4 || fromTxt.NumArcs() != 4 {
		t.Errorf("Unexpected text graph %v", fromTxt)
	}
	if !math.IsInf(fromTxt.Weight(2), -1) {
		t.Errorf("Expected -Inf weight, got %g", fromTxt.Weight(2))
	}

	if _, err := Load(filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected error for missing file")
	}
}

// TestComputeChecksum verifies SHA-256 checksum computation.
func TestComputeChecksum(t *testing.T) {
	data := []byte("test data")
	if ComputeChecksum(data) != ComputeChecksum(data) {
		t.Error("Checksums should match for identical data")
	}
	if ComputeChecksum(data) == ComputeChecksum([]byte("different data")) {
		t.Error("Checksums should differ for different data")
	}
	if err := ValidateChecksum(data, "not-hex"); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Expected ErrChecksumMismatch for malformed digest, got: %v", err)
	}
}

// TestValidateHeader verifies count limits and levels.
func TestValidateHeader(t *testing.T) {
	h := &Header{NumNodes: 2, NumArcs: 1}
	if err := ValidateHeader(h, payloadSize(2, 1), ValidationStrict); err != nil {
		t.Errorf("Expected valid header, got: %v", err)
	}
	if err := ValidateHeader(h, 3, ValidationNormal); err == nil {
		t.Error("Expected payload size error")
	}
	if err := ValidateHeader(&Header{NumNodes: MaxNodes + 1}, 0, ValidationStrict); !errors.Is(err, ErrTooManyNodes) {
		t.Errorf("Expected ErrTooManyNodes, got: %v", err)
	}
	if err := ValidateHeader(&Header{NumNodes: -1}, 0, ValidationNone); err != nil {
		t.Errorf("ValidationNone should skip checks, got: %v", err)
	}
	if err := ValidateArc(0, 0, 2, 2); err == nil {
		t.Error("Expected arc endpoint error")
	}
}

// headerOnly encodes a .gtn file whose header claims numNodes and numArcs
// but which carries no payload.
func headerOnly(t *testing.T, numNodes, numArcs int) []byte {
	t.Helper()
	header, err := json.Marshal(Header{FormatVersion: FormatVersion, NumNodes: numNodes, NumArcs: numArcs})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var buf bytes.Buffer
	buf.WriteString(MagicBytes)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(FormatVersion))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0))
	_ = binary.Write(&buf, binary.LittleEndian, uint64(len(header)))
	buf.Write(header)
	end := int64(buf.Len())
	buf.Write(make([]byte, align(end)-end))
	return buf.Bytes()
}

// TestLoad_OversizedHeaderCounts verifies that header counts are checked
// against the real file size before anything is allocated.
func TestLoad_OversizedHeaderCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.gtn")
	if err := os.WriteFile(path, headerOnly(t, 1<<28, 1<<28), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := Load(path)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Type != "payload_size" {
		t.Fatalf("Expected payload_size ValidationError, got: %v", err)
	}
}

// TestReadBinary_OversizedHeaderCounts verifies that a stream shorter than
// its header claims fails cleanly at every validation level.
func TestReadBinary_OversizedHeaderCounts(t *testing.T) {
	data := headerOnly(t, 1<<28, 1<<28)
	for _, level := range []ValidationLevel{ValidationStrict, ValidationNormal, ValidationNone} {
		_, _, err := ReadBinary(bytes.NewReader(data), ReaderOptions{ValidationLevel: level})
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Type != "payload_size" {
			t.Errorf("level %d: expected payload_size ValidationError, got: %v", level, err)
		}
	}
}

// TestReadText_NodeIDBound verifies that node ids far beyond the input size
// are rejected while ordinary gaps of isolated nodes are accepted.
func TestReadText_NodeIDBound(t *testing.T) {
	_, err := ReadText(strings.NewReader("0\n\n0 268435455 1\n"), false)
	if !errors.Is(err, ErrTooManyNodes) {
		t.Errorf("Expected ErrTooManyNodes, got: %v", err)
	}

	g, err := ReadText(strings.NewReader("0\n500\n0 1 1\n"), false)
	if err != nil {
		t.Fatalf("ReadText failed: %v", err)
	}
	if g.NumNodes() != 501 {
		t.Errorf("Expected 501 nodes, got %d", g.NumNodes())
	}

	if got := textNodeLimit(1 << 40); got != MaxNodes {
		t.Errorf("textNodeLimit = %d, want %d", got, MaxNodes)
	}
}
