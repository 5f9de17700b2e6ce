// Copyright 2025 GTN Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph provides differentiable weighted finite-state transducers.
//
// # Overview
//
// A Graph holds ordered nodes and arcs. Each arc carries an input label, an
// output label and a weight; Epsilon marks an arc that consumes or emits no
// symbol. Graphs built by the operations in package functions remember the
// graphs they came from, so a single Backward call on a scalar result
// accumulates the gradient of every upstream arc weight.
//
// # Basic Usage
//
//	g := graph.New(true)
//	g.AddNode(true, false)
//	g.AddNode(false, true)
//	g.MustAddArc(0, 1, 0, 0, 0.5)
//	g.MustAddArc(0, 1, 1, 1, 1.5)
//
//	score, err := functions.ForwardScore(g)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := graph.Backward(score); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(g.Grad()) // arc posteriors
//
// # Immutability
//
// Once a graph is used as an operation input it is frozen: AddNode, AddArc,
// MakeAccept, ArcSort and SetWeights fail or panic with ErrFrozen. Its gradient keeps
// accumulating, and accumulation is safe from concurrent backward passes.
package graph
