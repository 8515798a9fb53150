// Package worddiff computes word-level differences between two versions of
// a text and renders them as marked-up HTML: deletions highlighted on the
// old side, insertions on the new side. Tokens are maximal whitespace or
// non-whitespace runs, so the alignment works on words while whitespace
// changes still show up.
package worddiff

import (
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

// Tag classifies a diff segment.
type Tag uint8

const (
	TagEqual Tag = iota
	TagReplace
	TagDelete
	TagInsert
)

func (t Tag) String() string {
	switch t {
	case TagEqual:
		return "equal"
	case TagReplace:
		return "replace"
	case TagDelete:
		return "delete"
	case TagInsert:
		return "insert"
	}
	return "unknown"
}

// Segment is a contiguous span of tokens from the alignment of the old and
// new token sequences. Old holds the span's text on the old side, New on
// the new side: equal segments carry the same text on both, delete segments
// have an empty New, insert segments an empty Old, replace segments carry
// the differing texts of both sides.
type Segment struct {
	Tag Tag
	Old string
	New string
}

// Tokenize splits s into maximal runs of whitespace and maximal runs of
// non-whitespace, left to right. No characters are dropped: joining the
// tokens reproduces s exactly. Empty input yields no tokens.
func Tokenize(s string) []string {
	if s == "" {
		return nil
	}
	var tokens []string
	start := 0
	var inSpace bool
	for i, r := range s {
		isSpace := unicode.IsSpace(r)
		if i == 0 {
			inSpace = isSpace
			continue
		}
		if isSpace != inSpace {
			tokens = append(tokens, s[start:i])
			start = i
			inSpace = isSpace
		}
	}
	return append(tokens, s[start:])
}

// Segments aligns the token sequences of old and new and returns the tagged
// spans in order. The alignment is the sequence matcher's opcode walk with
// the junk heuristic disabled, so whitespace tokens participate like any
// other token. Concatenating Old across all segments reproduces old, and
// concatenating New reproduces new.
func Segments(old, new string) []Segment {
	a := Tokenize(old)
	b := Tokenize(new)
	m := difflib.NewMatcherWithJunk(a, b, false, nil)

	var segments []Segment
	for _, op := range m.GetOpCodes() {
		seg := Segment{
			Old: strings.Join(a[op.I1:op.I2], ""),
			New: strings.Join(b[op.J1:op.J2], ""),
		}
		switch op.Tag {
		case 'e':
			seg.Tag = TagEqual
		case 'r':
			seg.Tag = TagReplace
		case 'd':
			seg.Tag = TagDelete
		case 'i':
			seg.Tag = TagInsert
		}
		segments = append(segments, seg)
	}
	return segments
}
