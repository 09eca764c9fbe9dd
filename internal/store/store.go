// Package store defines the wide-column store collaborator boundary: keyed
// rows of named columns, batch mutation writes, and filtered reads at a
// caller-supplied consistency level. The indexing core never talks to a
// backend directly; it produces Mutation batches and hands them to a Store.
package store

import "context"

// Consistency is the replication guarantee requested for a read or write.
// It is threaded through from configuration and interpreted by the backend;
// the indexing core never decides it.
type Consistency string

const (
	ConsistencyOne    Consistency = "one"
	ConsistencyQuorum Consistency = "quorum"
	ConsistencyAll    Consistency = "all"
)

// ParseConsistency maps a config string to a Consistency, defaulting to
// quorum for unrecognised values.
func ParseConsistency(s string) Consistency {
	switch Consistency(s) {
	case ConsistencyOne, ConsistencyQuorum, ConsistencyAll:
		return Consistency(s)
	default:
		return ConsistencyQuorum
	}
}

// RowKey addresses one row. Keys are produced by the index key builder and
// are opaque to backends.
type RowKey string

// Column is one named cell of a row.
type Column struct {
	Name  string
	Value []byte
}

// ColumnOp is a single column write or tombstone within a mutation.
type ColumnOp struct {
	Name      string
	Value     []byte
	Tombstone bool
}

// Mutation is the batch of column writes and deletes destined for one row.
// If RowTombstone is set the entire row is removed and Ops is ignored.
type Mutation struct {
	Key          RowKey
	Ops          []ColumnOp
	RowTombstone bool
}

// Set appends a column write.
func (m *Mutation) Set(name string, value []byte) {
	m.Ops = append(m.Ops, ColumnOp{Name: name, Value: value})
}

// Delete appends a column tombstone.
func (m *Mutation) Delete(name string) {
	m.Ops = append(m.Ops, ColumnOp{Name: name, Tombstone: true})
}

// ColumnFilter restricts a read to the named columns. A nil/empty filter
// reads the whole row.
type ColumnFilter struct {
	Names []string
}

// Store is the wide-column backend. Implementations must return columns from
// Read in ascending column-name order; the delete coordinator relies on that
// order for in-order document visitation.
type Store interface {
	// Insert applies a batch of mutations. The batch is not atomic across
	// rows; a failed batch may be partially applied, which the commit
	// pipeline tolerates by retrying the whole snapshot.
	Insert(ctx context.Context, mutations []Mutation, level Consistency) error

	// Read returns the live columns of a row, optionally filtered, sorted
	// by column name. A missing row yields an empty slice, not an error.
	Read(ctx context.Context, key RowKey, filter ColumnFilter, level Consistency) ([]Column, error)
}
