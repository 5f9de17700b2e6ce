// Package serialization saves and loads graphs in two formats.
//
// The text format is line oriented and easy to write by hand:
//
//	0              start node ids, space separated (may be empty)
//	3              accept node ids, space separated (may be empty)
//	0 1 1 2 0.5    one arc per line: src dst ilabel [olabel [weight]]
//	1 3 -1
//
// A missing olabel equals ilabel and a missing weight is 0. Lines starting
// with '#' are comments. The node count is one more than the largest node id
// mentioned.
//
// The binary .gtn format keeps the exact node count and every weight bit:
//
//	Format Structure:
//	  [4 bytes: Magic "GTNG"]
//	  [4 bytes: Version (uint32 LE)]
//	  [4 bytes: Flags (uint32 LE)]
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON metadata, including a file UUID and the payload SHA-256]
//	  [Payload, 8-byte aligned:
//	     node flags, one byte per node (bit 0 start, bit 1 accept), padded to 8
//	     arcs, 24 bytes each: int32 src, dst, ilabel, olabel + float64 weight]
//
// Example usage:
//
//	if err := serialization.SaveBinary("decoder.gtn", g, map[string]string{"lexicon": "v3"}); err != nil {
//	    log.Fatal(err)
//	}
//	g, err := serialization.Load("decoder.gtn") // format picked by magic bytes
//	if err != nil {
//	    log.Fatal(err)
//	}
package serialization
