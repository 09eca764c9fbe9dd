package ingestion

import (
	"fmt"
	"strings"

	apperrors "colindex/pkg/errors"
)

const (
	maxFieldNameLength = 255
	maxTextLength      = 1 << 20
	maxFields          = 256
)

// Validate checks an event's structural constraints before it reaches the
// index writer. Mapping-level encoding checks still run later; this rejects
// obviously malformed events at the pipeline edge.
func Validate(ev *IngestEvent) error {
	switch ev.Op {
	case OpIndex:
		if ev.Index == "" {
			return fmt.Errorf("%w: index name is required", apperrors.ErrInvalidInput)
		}
		if len(ev.Fields) == 0 {
			return fmt.Errorf("%w: index op requires at least one field", apperrors.ErrInvalidInput)
		}
		if len(ev.Fields) > maxFields {
			return fmt.Errorf("%w: too many fields (%d > %d)", apperrors.ErrInvalidInput, len(ev.Fields), maxFields)
		}
		for i, f := range ev.Fields {
			name := strings.TrimSpace(f.Name)
			if name == "" {
				return fmt.Errorf("%w: field %d has no name", apperrors.ErrInvalidInput, i)
			}
			if len(name) > maxFieldNameLength {
				return fmt.Errorf("%w: field %q name too long", apperrors.ErrInvalidInput, name)
			}
			if len(f.Text) > maxTextLength {
				return fmt.Errorf("%w: field %q text exceeds %d bytes", apperrors.ErrInvalidInput, name, maxTextLength)
			}
			switch f.Kind {
			case "", "text", "keyword", "numeric", "binary", "stored":
			default:
				return fmt.Errorf("%w: field %q has unknown kind %q", apperrors.ErrInvalidInput, name, f.Kind)
			}
		}
	case OpDelete:
		if ev.Index == "" {
			return fmt.Errorf("%w: index name is required", apperrors.ErrInvalidInput)
		}
		if ev.MatchField == "" || ev.MatchTerm == "" {
			return fmt.Errorf("%w: delete op requires match_field and match_term", apperrors.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown op %q", apperrors.ErrInvalidInput, ev.Op)
	}
	return nil
}
