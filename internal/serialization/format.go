package serialization

import "time"

// Format constants.
const (
	MagicBytes      = "GTNG"
	FormatVersion   = 1  // v1: JSON header with payload checksum
	HeaderAlignment = 8  // Payload starts on an 8-byte boundary
	FixedHeaderSize = 20 // magic + version + flags + header size
	ArcRecordSize   = 24 // 4 x int32 + float64
	ChecksumSize    = 32 // SHA-256 checksum size (32 bytes)
)

// Flags for the .gtn format.
const (
	FlagHasMetadata uint32 = 1 << 0 // bit 0: custom metadata included
	FlagCalcGrad    uint32 = 1 << 1 // bit 1: graph tracks gradients
)

// Node flag bits in the payload.
const (
	nodeStart  byte = 1 << 0
	nodeAccept byte = 1 << 1
)

// Header represents the JSON header in a .gtn file.
type Header struct {
	FormatVersion int               `json:"format_version"` // Version of the .gtn format
	ID            string            `json:"id"`             // Random UUID assigned when the file is written
	GTNVersion    string            `json:"gtn_version"`    // Version of the library that wrote the file
	CreatedAt     time.Time         `json:"created_at"`     // When the file was created
	NumNodes      int               `json:"num_nodes"`      // Node count
	NumArcs       int               `json:"num_arcs"`       // Arc count
	CalcGrad      bool              `json:"calc_grad"`      // Gradient tracking of the saved graph
	Checksum      string            `json:"checksum"`       // Hex SHA-256 of the payload
	Metadata      map[string]string `json:"metadata"`       // Custom metadata
}

// nodeSectionSize is the padded size of the node flag section.
func nodeSectionSize(numNodes int) int64 {
	return align(int64(numNodes))
}

// payloadSize is the exact payload size for the given counts.
func payloadSize(numNodes, numArcs int) int64 {
	return nodeSectionSize(numNodes) + int64(numArcs)*ArcRecordSize
}

func align(n int64) int64 {
	return n + (HeaderAlignment-(n%HeaderAlignment))%HeaderAlignment
}
