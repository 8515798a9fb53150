package worddiff

import (
	"html"
	"strings"
)

// Markup wraps deleted and inserted spans in the rendered output.
type Markup struct {
	DeleteOpen  string
	DeleteClose string
	InsertOpen  string
	InsertClose string
}

// DefaultMarkup returns the span markers styled by StyleCSS.
func DefaultMarkup() Markup {
	return Markup{
		DeleteOpen:  "<span class='diff-del'>",
		DeleteClose: "</span>",
		InsertOpen:  "<span class='diff-ins'>",
		InsertClose: "</span>",
	}
}

// StyleCSS styles the default markup: insertions green and underlined,
// deletions red and struck through.
const StyleCSS = `.diff-ins { background-color: #d9fbe5; text-decoration: underline; }
.diff-del { background-color: #fde2e1; text-decoration: line-through; }`

// Render walks the segments and produces the marked-up old and new strings.
// Equal spans appear HTML-escaped in both outputs. Deleted spans appear
// only in the old output wrapped in the deletion markers; inserted spans
// only in the new output wrapped in the insertion markers. Replaced spans
// mark the old side as a deletion and the new side as an insertion. Empty
// spans emit no markers. Token order is preserved on each side.
func Render(segments []Segment, m Markup) (oldMarked, newMarked string) {
	var ob, nb strings.Builder
	for _, seg := range segments {
		switch seg.Tag {
		case TagEqual:
			esc := html.EscapeString(seg.Old)
			ob.WriteString(esc)
			nb.WriteString(esc)
		case TagDelete:
			writeWrapped(&ob, seg.Old, m.DeleteOpen, m.DeleteClose)
		case TagInsert:
			writeWrapped(&nb, seg.New, m.InsertOpen, m.InsertClose)
		case TagReplace:
			writeWrapped(&ob, seg.Old, m.DeleteOpen, m.DeleteClose)
			writeWrapped(&nb, seg.New, m.InsertOpen, m.InsertClose)
		}
	}
	return ob.String(), nb.String()
}

// Diff renders the word-level difference between old and new with the
// default markup. The first result is the old text with deletions
// highlighted, the second the new text with insertions highlighted.
func Diff(old, new string) (string, string) {
	return Render(Segments(old, new), DefaultMarkup())
}

func writeWrapped(b *strings.Builder, s, open, closing string) {
	if s == "" {
		return
	}
	b.WriteString(open)
	b.WriteString(html.EscapeString(s))
	b.WriteString(closing)
}
