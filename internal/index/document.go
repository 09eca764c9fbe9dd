package index

// FieldKind is the tagged variant replacing boolean indexed/tokenized flag
// pairs. Every switch over it handles all five kinds.
type FieldKind int

const (
	// KindTokenizedText is analyzed into a token stream and indexed.
	KindTokenizedText FieldKind = iota
	// KindUntokenizedText is indexed whole as a single term.
	KindUntokenizedText
	// KindNumeric is indexed as its decimal rendering and stores the
	// numeric value when stored.
	KindNumeric
	// KindBinary carries raw bytes; storable, never indexed.
	KindBinary
	// KindStoredOnly carries text that is stored but not indexed.
	KindStoredOnly
)

func (k FieldKind) String() string {
	switch k {
	case KindTokenizedText:
		return "tokenized"
	case KindUntokenizedText:
		return "untokenized"
	case KindNumeric:
		return "numeric"
	case KindBinary:
		return "binary"
	case KindStoredOnly:
		return "stored-only"
	default:
		return "unknown"
	}
}

// indexed reports whether the kind produces index terms.
func (k FieldKind) indexed() bool {
	switch k {
	case KindTokenizedText, KindUntokenizedText, KindNumeric:
		return true
	case KindBinary, KindStoredOnly:
		return false
	default:
		return false
	}
}

// Field is one named value of a document.
type Field struct {
	Name string
	Kind FieldKind

	// Text holds the value for text kinds; Numeric and Binary hold the
	// value for their kinds.
	Text    string
	Numeric int64
	Binary  []byte

	// Stored writes the literal value into the document's stored-field
	// row.
	Stored bool
	// OmitNorms suppresses the per-field norm byte on term rows.
	OmitNorms bool
	// StoreOffsets records start/end offsets per occurrence for
	// tokenized fields.
	StoreOffsets bool
	// Boost scales this field's norm; zero means 1.0.
	Boost float32
}

// Document is an ordered set of fields. Mapping is deterministic in field
// order and token order.
type Document struct {
	Fields []Field
	// Boost scales every field norm; zero means 1.0.
	Boost float32
}

func (f Field) boost() float32 {
	if f.Boost == 0 {
		return 1
	}
	return f.Boost
}

func (d Document) boost() float32 {
	if d.Boost == 0 {
		return 1
	}
	return d.Boost
}

// NewTextField builds a stored, tokenized text field.
func NewTextField(name, text string) Field {
	return Field{Name: name, Kind: KindTokenizedText, Text: text, Stored: true}
}

// NewKeywordField builds a stored, untokenized text field.
func NewKeywordField(name, text string) Field {
	return Field{Name: name, Kind: KindUntokenizedText, Text: text, Stored: true}
}

// NewNumericField builds a stored numeric field.
func NewNumericField(name string, value int64) Field {
	return Field{Name: name, Kind: KindNumeric, Numeric: value, Stored: true}
}

// NewBinaryField builds a stored binary field.
func NewBinaryField(name string, value []byte) Field {
	return Field{Name: name, Kind: KindBinary, Binary: value, Stored: true}
}

// TermRef names one (field, term) pair of a document.
type TermRef struct {
	Field string `json:"f"`
	Text  string `json:"t"`
}

// DocumentMetadata is the ordered list of every distinct indexed term of a
// document. Once written it is the sole authoritative record of which rows
// deletion must clean up; re-tokenizing is never required.
type DocumentMetadata struct {
	Terms []TermRef `json:"terms"`
}

// StoredValue is one literal stored-field value.
type StoredValue struct {
	Text    string `json:"text,omitempty"`
	Binary  []byte `json:"binary,omitempty"`
	Numeric *int64 `json:"numeric,omitempty"`
}

// StoredField is the ordered value list for one field name; repeated fields
// with the same name merge into one list.
type StoredField struct {
	Values []StoredValue `json:"values"`
}
