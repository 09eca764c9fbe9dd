package index

import (
	"encoding/binary"
	"fmt"
)

// TermInfo is the per-document occurrence record of one term: frequency,
// positions, optional offset pairs, and the field's norm byte. It is the
// value of one posting-row column.
type TermInfo struct {
	Freq      int
	Positions []int
	Offsets   []int // start,end pairs, flattened
	Norm      byte
	HasNorm   bool
}

// Posting values use a uvarint framing separate from the metadata codec:
// they are written once per (term, doc) and read in bulk at query time, so
// they stay compact and self-contained.
//
//	uvarint frequency
//	uvarint positionCount, then positions as uvarint deltas
//	uvarint offsetCount,   then flattened offsets as uvarint deltas
//	1 byte  norm presence, then the norm byte if present

func encodePosting(info TermInfo) []byte {
	buf := make([]byte, 0, 8+len(info.Positions)*2+len(info.Offsets)*2)
	buf = binary.AppendUvarint(buf, uint64(info.Freq))

	buf = binary.AppendUvarint(buf, uint64(len(info.Positions)))
	prev := 0
	for _, p := range info.Positions {
		buf = binary.AppendUvarint(buf, uint64(p-prev))
		prev = p
	}

	buf = binary.AppendUvarint(buf, uint64(len(info.Offsets)))
	prev = 0
	for _, o := range info.Offsets {
		buf = binary.AppendUvarint(buf, uint64(o-prev))
		prev = o
	}

	if info.HasNorm {
		buf = append(buf, 1, info.Norm)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

func decodePosting(data []byte) (TermInfo, error) {
	var info TermInfo
	pos := 0

	next := func() (uint64, error) {
		v, n := binary.Uvarint(data[pos:])
		if n <= 0 {
			return 0, fmt.Errorf("truncated posting value at byte %d", pos)
		}
		pos += n
		return v, nil
	}

	freq, err := next()
	if err != nil {
		return info, err
	}
	info.Freq = int(freq)

	posCount, err := next()
	if err != nil {
		return info, err
	}
	prev := 0
	for i := uint64(0); i < posCount; i++ {
		delta, err := next()
		if err != nil {
			return info, err
		}
		prev += int(delta)
		info.Positions = append(info.Positions, prev)
	}

	offCount, err := next()
	if err != nil {
		return info, err
	}
	prev = 0
	for i := uint64(0); i < offCount; i++ {
		delta, err := next()
		if err != nil {
			return info, err
		}
		prev += int(delta)
		info.Offsets = append(info.Offsets, prev)
	}

	if pos >= len(data) {
		return info, fmt.Errorf("truncated posting value: missing norm flag")
	}
	if data[pos] == 1 {
		pos++
		if pos >= len(data) {
			return info, fmt.Errorf("truncated posting value: missing norm byte")
		}
		info.HasNorm = true
		info.Norm = data[pos]
	}
	return info, nil
}
