package index

import (
	"fmt"
	"strconv"

	"colindex/internal/index/analysis"
	"colindex/internal/index/codec"
	apperrors "colindex/pkg/errors"
)

// mapperConfig carries the knobs the mapper needs from the writer.
type mapperConfig struct {
	maxDocsPerShard int
	codec           codec.Codec
}

// mapDocument converts one tokenized document into the full set of row
// mutations: posting rows, the term list, stored-field rows, field-cache
// rows, the id-lookup entry, and the metadata row that later drives
// deletion. All mutations are folded through acc. It returns the document's
// shard slot.
//
// The position counter is document-global: a position-increment gap is added
// before the first token of every tokenized field after the first, so
// repeated fields of the same name keep Lucene's gap semantics.
func mapDocument(indexName string, doc Document, analyzer analysis.Analyzer, docNumber int, cfg mapperConfig, docID string, acc *accumulator) (int, error) {
	// Round-robin shard replacement: the slot is reused once the modulus
	// wraps, superseding whatever document held it.
	slot := docNumber % cfg.maxDocsPerShard
	slotCol := slotColumn(slot)

	var metadata DocumentMetadata
	seenTerms := make(map[TermRef]struct{})
	recordTerm := func(ref TermRef) {
		if _, ok := seenTerms[ref]; ok {
			return
		}
		seenTerms[ref] = struct{}{}
		metadata.Terms = append(metadata.Terms, ref)
	}

	storedByName := make(map[string]*StoredField)
	var storedOrder []string
	recordStored := func(name string, value StoredValue) {
		sf, ok := storedByName[name]
		if !ok {
			sf = &StoredField{}
			storedByName[name] = sf
			storedOrder = append(storedOrder, name)
		}
		sf.Values = append(sf.Values, value)
	}

	position := 0

	for _, field := range doc.Fields {
		if err := checkText("field name", field.Name); err != nil {
			return 0, err
		}
		var firstTerm *TermRef

		switch field.Kind {
		case KindTokenizedText:
			if position > 0 {
				position += analyzer.PositionIncrementGap(field.Name)
			}

			type aggEntry struct {
				term string
				info *TermInfo
			}
			agg := make(map[string]*TermInfo)
			var order []aggEntry
			tokenCount := 0

			stream := analyzer.Tokens(field.Name, field.Text)
			for {
				token, ok := stream.Next()
				if !ok {
					break
				}
				tokenCount++
				if err := checkText("term", token.Term); err != nil {
					return 0, err
				}

				info := agg[token.Term]
				if info == nil {
					info = &TermInfo{}
					agg[token.Term] = info
					order = append(order, aggEntry{term: token.Term, info: info})
				}
				info.Freq++

				position += token.PositionIncrement - 1
				position++
				info.Positions = append(info.Positions, position)

				if field.StoreOffsets {
					info.Offsets = append(info.Offsets, token.StartOffset, token.EndOffset)
				}

				ref := TermRef{Field: field.Name, Text: token.Term}
				recordTerm(ref)
				if firstTerm == nil {
					firstTerm = &ref
				}
			}

			// One norm per field, stored redundantly on every term
			// row of the field: more writes, one read.
			var norm byte
			hasNorm := !field.OmitNorms
			if hasNorm {
				norm = analysis.EncodeNorm(doc.boost()*field.boost(), tokenCount)
			}

			for _, entry := range order {
				entry.info.Norm = norm
				entry.info.HasNorm = hasNorm
				acc.set(termKey(indexName, field.Name, entry.term), slotCol, encodePosting(*entry.info))
				acc.set(termListKey(indexName), termColumn(field.Name, entry.term), []byte{})
			}

		case KindUntokenizedText, KindNumeric:
			text := field.Text
			if field.Kind == KindNumeric {
				text = strconv.FormatInt(field.Numeric, 10)
			}
			if err := checkText("term", text); err != nil {
				return 0, err
			}
			ref := TermRef{Field: field.Name, Text: text}
			recordTerm(ref)
			if firstTerm == nil {
				firstTerm = &ref
			}

			// A whole-value term carries no frequency or position
			// data.
			acc.set(termKey(indexName, field.Name, text), slotCol, encodePosting(TermInfo{}))
			acc.set(termListKey(indexName), termColumn(field.Name, text), []byte{})

		case KindBinary, KindStoredOnly:
			// Nothing indexed.

		default:
			return 0, fmt.Errorf("%w: field %q has unknown kind %d", apperrors.ErrInvalidInput, field.Name, field.Kind)
		}

		if field.Stored {
			switch field.Kind {
			case KindTokenizedText, KindUntokenizedText, KindStoredOnly:
				if err := checkStoredText("stored value", field.Text); err != nil {
					return 0, err
				}
				recordStored(field.Name, StoredValue{Text: field.Text})
			case KindNumeric:
				n := field.Numeric
				recordStored(field.Name, StoredValue{Numeric: &n})
			case KindBinary:
				recordStored(field.Name, StoredValue{Binary: field.Binary})
			}
		}

		if firstTerm != nil {
			acc.set(fieldCacheKey(indexName, field.Name), slotCol, []byte(firstTerm.Text))
		}
	}

	docK := docKey(indexName, slot)
	for _, name := range storedOrder {
		data, err := cfg.codec.Encode(storedByName[name])
		if err != nil {
			return 0, fmt.Errorf("%w: stored field %q: %v", apperrors.ErrSerialization, name, err)
		}
		acc.set(docK, name, data)
	}

	metaBytes, err := cfg.codec.Encode(&metadata)
	if err != nil {
		return 0, fmt.Errorf("%w: document metadata: %v", apperrors.ErrSerialization, err)
	}
	acc.set(docK, metaColumn, metaBytes)

	if docID != "" {
		acc.set(idListKey(indexName), slotCol, []byte(docID))
	}

	return slot, nil
}
