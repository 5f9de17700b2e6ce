package serialization

import "fmt"

// Validation limits for resource protection.
const (
	MaxHeaderSize = 16 * 1024 * 1024 // 16MB - maximum header size
	MaxNodes      = 1 << 28          // Maximum node count in a file
	MaxArcs       = 1 << 28          // Maximum arc count in a file

	// Node ids in text may leave gaps of isolated nodes, but the node count
	// stays within TextNodesPerByte per input byte plus TextNodeSlack.
	TextNodesPerByte = 8
	TextNodeSlack    = 1024
)

// ValidationLevel controls the strictness of validation.
type ValidationLevel int

const (
	// ValidationStrict checks counts, payload size, the checksum and every
	// arc endpoint (default).
	ValidationStrict ValidationLevel = iota
	// ValidationNormal checks counts and payload size only.
	ValidationNormal
	// ValidationNone skips validation (use only with trusted input).
	ValidationNone
)

// ValidateHeader checks header counts against limits and the payload size.
func ValidateHeader(h *Header, dataSize int64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}
	if h.NumNodes < 0 || h.NumNodes > MaxNodes {
		return fmt.Errorf("%w: got %d, max %d", ErrTooManyNodes, h.NumNodes, MaxNodes)
	}
	if h.NumArcs < 0 || h.NumArcs > MaxArcs {
		return fmt.Errorf("%w: got %d, max %d", ErrTooManyArcs, h.NumArcs, MaxArcs)
	}
	if want := payloadSize(h.NumNodes, h.NumArcs); dataSize != want {
		return &ValidationError{
			Type:    "payload_size",
			Index:   -1,
			Details: fmt.Sprintf("payload has %d bytes, %d nodes and %d arcs need %d", dataSize, h.NumNodes, h.NumArcs, want),
		}
	}
	return nil
}

// ValidateArc checks that an arc's endpoints lie within [0, numNodes).
func ValidateArc(index, src, dst, numNodes int) error {
	if src < 0 || src >= numNodes || dst < 0 || dst >= numNodes {
		return &ValidationError{
			Type:    "arc_endpoint",
			Index:   index,
			Details: fmt.Sprintf("arc %d -> %d, graph has %d nodes", src, dst, numNodes),
		}
	}
	return nil
}

// textNodeLimit is the largest node count accepted from size bytes of text.
func textNodeLimit(size int64) int {
	return int(min(size*TextNodesPerByte+TextNodeSlack, MaxNodes))
}
