// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package graph holds a container's metadata: a set of
// (subject, predicate, value) statements.
//
// A [Graph] is populated while a container is being opened, from the
// volume's information.turtle member ([ParseTurtle]) or its CBOR
// snapshot ([UnmarshalSnapshot]), and then sealed. A sealed graph is
// read-only and safe for concurrent readers without locking.
package graph

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/bureau-foundation/aff4/lib/aff4"
)

// ErrSealed is returned by Add after Seal.
var ErrSealed = errors.New("graph: sealed graphs are read-only")

// Reader is the query surface of a metadata graph.
type Reader interface {
	// Values returns every object of (subject, predicate) in the order
	// the statements were first added.
	Values(subject, predicate aff4.URN) []aff4.Value

	// Subjects returns, sorted, every subject having the statement
	// (subject, predicate, object).
	Subjects(predicate aff4.URN, object aff4.Value) []aff4.URN

	// Query returns every statement matching pattern, ordered by
	// subject then predicate then insertion order.
	Query(pattern Pattern) []aff4.Statement
}

// Pattern selects statements. Zero fields are wildcards.
type Pattern struct {
	Subject   aff4.URN
	Predicate aff4.URN
	Object    aff4.Value
}

func (p Pattern) matches(statement aff4.Statement) bool {
	return (p.Subject == "" || p.Subject == statement.Subject) &&
		(p.Predicate == "" || p.Predicate == statement.Predicate) &&
		(p.Object.IsZero() || p.Object == statement.Object)
}

// Graph is an in-memory statement set. Adding a statement that is
// already present is a no-op. Add is not safe for concurrent use;
// queries are, once the graph is sealed.
type Graph struct {
	subjects map[aff4.URN]map[aff4.URN][]aff4.Value
	seen     map[aff4.Statement]struct{}
	sealed   bool
}

// New returns an empty, unsealed graph.
func New() *Graph {
	return &Graph{
		subjects: make(map[aff4.URN]map[aff4.URN][]aff4.Value),
		seen:     make(map[aff4.Statement]struct{}),
	}
}

// Add inserts a statement.
func (g *Graph) Add(statement aff4.Statement) error {
	if g.sealed {
		return ErrSealed
	}
	if statement.Subject == "" || statement.Predicate == "" || statement.Object.IsZero() {
		return fmt.Errorf("graph: incomplete statement %s", statement)
	}
	if _, ok := g.seen[statement]; ok {
		return nil
	}
	g.seen[statement] = struct{}{}
	predicates := g.subjects[statement.Subject]
	if predicates == nil {
		predicates = make(map[aff4.URN][]aff4.Value)
		g.subjects[statement.Subject] = predicates
	}
	predicates[statement.Predicate] = append(predicates[statement.Predicate], statement.Object)
	return nil
}

// AddAll inserts statements in order, stopping at the first error.
func (g *Graph) AddAll(statements []aff4.Statement) error {
	for _, statement := range statements {
		if err := g.Add(statement); err != nil {
			return err
		}
	}
	return nil
}

// Seal makes the graph read-only.
func (g *Graph) Seal() { g.sealed = true }

// Sealed reports whether Seal has been called.
func (g *Graph) Sealed() bool { return g.sealed }

// Len returns the number of distinct statements.
func (g *Graph) Len() int { return len(g.seen) }

// Values returns every object of (subject, predicate).
func (g *Graph) Values(subject, predicate aff4.URN) []aff4.Value {
	return slices.Clone(g.subjects[subject][predicate])
}

// Value returns the first object of (subject, predicate).
func (g *Graph) Value(subject, predicate aff4.URN) (aff4.Value, bool) {
	values := g.subjects[subject][predicate]
	if len(values) == 0 {
		return aff4.Value{}, false
	}
	return values[0], true
}

// Subjects returns every subject with (predicate, object), sorted.
func (g *Graph) Subjects(predicate aff4.URN, object aff4.Value) []aff4.URN {
	var subjects []aff4.URN
	for subject, predicates := range g.subjects {
		if slices.Contains(predicates[predicate], object) {
			subjects = append(subjects, subject)
		}
	}
	slices.Sort(subjects)
	return subjects
}

// Query returns the statements matching pattern.
func (g *Graph) Query(pattern Pattern) []aff4.Statement {
	var statements []aff4.Statement
	visit := func(subject aff4.URN, predicates map[aff4.URN][]aff4.Value) {
		for predicate, values := range predicates {
			for _, value := range values {
				statement := aff4.Statement{Subject: subject, Predicate: predicate, Object: value}
				if pattern.matches(statement) {
					statements = append(statements, statement)
				}
			}
		}
	}
	if pattern.Subject != "" {
		visit(pattern.Subject, g.subjects[pattern.Subject])
	} else {
		for subject, predicates := range g.subjects {
			visit(subject, predicates)
		}
	}
	// Stable keeps per-(subject, predicate) insertion order.
	slices.SortStableFunc(statements, func(a, b aff4.Statement) int {
		return cmp.Or(cmp.Compare(a.Subject, b.Subject), cmp.Compare(a.Predicate, b.Predicate))
	})
	return statements
}

// Statements returns every statement in Query order.
func (g *Graph) Statements() []aff4.Statement {
	return g.Query(Pattern{})
}
