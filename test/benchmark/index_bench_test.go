// Package benchmark contains Go benchmarks for the document mapper, the
// commit pipeline, and the posting codec, measuring throughput and
// allocation behaviour.
package benchmark

import (
	"context"
	"fmt"
	"testing"

	"colindex/internal/index"
	"colindex/internal/index/analysis"
	"colindex/internal/index/codec"
	"colindex/internal/store"
)

func benchWriter(b *testing.B) *index.Writer {
	w, err := index.NewWriter(store.NewMemory(), analysis.NewStandard(0), codec.JSON{}, index.Config{
		MaxDocsPerShard: 1 << 17,
	}, nil)
	if err != nil {
		b.Fatal(err)
	}
	return w
}

func benchDocument(i int) index.Document {
	return index.Document{Fields: []index.Field{
		index.NewTextField("title", "distributed column store indexing"),
		index.NewTextField("body", "mapping tokenized documents onto batches of row mutations with per term posting rows and stored field metadata"),
		index.NewKeywordField("id", fmt.Sprintf("doc-%d", i)),
		index.NewNumericField("seq", int64(i)),
	}}
}

// BenchmarkAddDocument measures per-document mapping and enqueue throughput.
func BenchmarkAddDocument(b *testing.B) {
	ctx := context.Background()
	w := benchWriter(b)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := w.AddDocument(ctx, "bench", benchDocument(i), i, index.AddOptions{}); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkAddAndCommit measures end-to-end throughput including the store
// write, committing every 100 documents.
func BenchmarkAddAndCommit(b *testing.B) {
	ctx := context.Background()
	w := benchWriter(b)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := w.AddDocument(ctx, "bench", benchDocument(i), i, index.AddOptions{}); err != nil {
			b.Fatal(err)
		}
		if i%100 == 99 {
			w.Commit(ctx, "bench", true)
		}
	}
	w.Commit(ctx, "bench", true)
}

// BenchmarkDeleteDocument measures tombstone collection over committed
// documents.
func BenchmarkDeleteDocument(b *testing.B) {
	ctx := context.Background()
	w := benchWriter(b)
	for i := 0; i < 1000; i++ {
		if err := w.AddDocument(ctx, "bench", benchDocument(i), i, index.AddOptions{}); err != nil {
			b.Fatal(err)
		}
	}
	w.Commit(ctx, "bench", true)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := w.DeleteDocument(ctx, "bench", i%1000); err != nil {
			b.Fatal(err)
		}
	}
}
