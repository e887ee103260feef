package document

import "unicode/utf8"

// BlockKind is the block-level format of a line of content.
type BlockKind int

const (
	Paragraph BlockKind = iota
	Heading1
	Heading2
	Blockquote
	ListItem
)

func (k BlockKind) tag() string {
	switch k {
	case Heading1:
		return "h1"
	case Heading2:
		return "h2"
	case Blockquote:
		return "blockquote"
	case ListItem:
		return "li"
	default:
		return "p"
	}
}

// ListKind distinguishes bulleted from numbered list items.
type ListKind int

const (
	NoList ListKind = iota
	Unordered
	Ordered
)

func (k ListKind) tag() string {
	if k == Ordered {
		return "ol"
	}
	return "ul"
}

// Alignment is the horizontal text alignment of a block.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

func (a Alignment) css() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	default:
		return "left"
	}
}

// Run is a span of text sharing the same inline marks.
type Run struct {
	Text   string
	Bold   bool
	Italic bool
}

func (r Run) sameMarks(o Run) bool {
	return r.Bold == o.Bold && r.Italic == o.Italic
}

// Block is one paragraph, heading, quote or list item.
type Block struct {
	Kind  BlockKind
	List  ListKind
	Align Alignment
	Runs  []Run
}

// Len is the block length in runes.
func (b *Block) Len() int {
	n := 0
	for _, r := range b.Runs {
		n += utf8.RuneCountInString(r.Text)
	}
	return n
}

// Text is the block content without marks.
func (b *Block) Text() string {
	s := ""
	for _, r := range b.Runs {
		s += r.Text
	}
	return s
}

func (b *Block) clone() Block {
	out := *b
	out.Runs = append([]Run(nil), b.Runs...)
	return out
}

// splitAt guarantees a run boundary at rune offset off and returns the index
// of the first run starting at or after off.
func (b *Block) splitAt(off int) int {
	pos := 0
	for i, r := range b.Runs {
		n := utf8.RuneCountInString(r.Text)
		if off == pos {
			return i
		}
		if off < pos+n {
			runes := []rune(r.Text)
			left := r
			left.Text = string(runes[:off-pos])
			right := r
			right.Text = string(runes[off-pos:])
			b.Runs = append(b.Runs[:i], append([]Run{left, right}, b.Runs[i+1:]...)...)
			return i + 1
		}
		pos += n
	}
	return len(b.Runs)
}

// normalize merges neighbouring runs with equal marks and drops empty runs.
func (b *Block) normalize() {
	out := b.Runs[:0]
	for _, r := range b.Runs {
		if r.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].sameMarks(r) {
			out[n-1].Text += r.Text
			continue
		}
		out = append(out, r)
	}
	b.Runs = out
}

// marksAt returns the marks a character typed at off would inherit.
func (b *Block) marksAt(off int) Run {
	pos := 0
	var last Run
	for _, r := range b.Runs {
		n := utf8.RuneCountInString(r.Text)
		if off > pos && off <= pos+n {
			return Run{Bold: r.Bold, Italic: r.Italic}
		}
		pos += n
		last = r
	}
	if off == 0 && len(b.Runs) > 0 {
		return Run{Bold: b.Runs[0].Bold, Italic: b.Runs[0].Italic}
	}
	return Run{Bold: last.Bold, Italic: last.Italic}
}

// cut removes the runes in [from, to) and returns them as runs.
func (b *Block) cut(from, to int) []Run {
	if from >= to {
		return nil
	}
	i := b.splitAt(from)
	j := b.splitAt(to)
	removed := append([]Run(nil), b.Runs[i:j]...)
	b.Runs = append(b.Runs[:i], b.Runs[j:]...)
	return removed
}
