// Package document is a headless rich-text model for post bodies.
//
// A Document is seeded once from HTML and afterwards owns the content:
// editor commands mutate the current selection, re-serialize the body and
// hand the new HTML to the owner's change callback.
package document

import (
	"strings"
	"unicode/utf8"
)

// Position addresses a character boundary: block index and rune offset.
type Position struct {
	Block  int
	Offset int
}

func (p Position) before(o Position) bool {
	return p.Block < o.Block || (p.Block == o.Block && p.Offset < o.Offset)
}

// Selection is a range between two positions. Start == End is a caret.
type Selection struct {
	Start Position
	End   Position
}

// Collapsed reports whether the selection is a bare caret.
func (s Selection) Collapsed() bool { return s.Start == s.End }

// Document is the authoritative body of one post.
type Document struct {
	blocks   []Block
	sel      *Selection
	focused  bool
	onChange func(html string)
}

// New parses seed and returns a document that reports every change to
// onChange. Later changes to seed are not observed.
func New(seed string, onChange func(html string)) *Document {
	return &Document{
		blocks:   parse(seed),
		onChange: onChange,
	}
}

// Blocks returns a copy of the current blocks.
func (d *Document) Blocks() []Block {
	out := make([]Block, len(d.blocks))
	for i := range d.blocks {
		out[i] = d.blocks[i].clone()
	}
	return out
}

// Selection returns the current selection, if any.
func (d *Document) Selection() (Selection, bool) {
	if d.sel == nil {
		return Selection{}, false
	}
	return *d.sel, true
}

// Focused reports whether the editor holds focus. Every command restores it.
func (d *Document) Focused() bool { return d.focused }

// Blur drops editing focus.
func (d *Document) Blur() { d.focused = false }

// Select sets the selection. Out-of-range positions are clamped and
// reversed ranges are swapped.
func (d *Document) Select(start, end Position) {
	start, end = d.clamp(start), d.clamp(end)
	if end.before(start) {
		start, end = end, start
	}
	d.sel = &Selection{Start: start, End: end}
}

// SelectAll selects the whole document.
func (d *Document) SelectAll() {
	if len(d.blocks) == 0 {
		d.sel = &Selection{}
		return
	}
	last := len(d.blocks) - 1
	d.sel = &Selection{End: Position{Block: last, Offset: d.blocks[last].Len()}}
}

// Collapse turns the selection into a caret at its end.
func (d *Document) Collapse() {
	if d.sel != nil {
		d.sel.Start = d.sel.End
	}
}

// ClearSelection removes the selection entirely.
func (d *Document) ClearSelection() { d.sel = nil }

func (d *Document) clamp(p Position) Position {
	if len(d.blocks) == 0 {
		return Position{}
	}
	if p.Block < 0 {
		return Position{}
	}
	if p.Block >= len(d.blocks) {
		last := len(d.blocks) - 1
		return Position{Block: last, Offset: d.blocks[last].Len()}
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if n := d.blocks[p.Block].Len(); p.Offset > n {
		p.Offset = n
	}
	return p
}

// HTML serializes the document.
func (d *Document) HTML() string {
	return render(d.blocks)
}

// PlainText returns the text of every block separated by newlines.
func (d *Document) PlainText() string {
	lines := make([]string, len(d.blocks))
	for i := range d.blocks {
		lines[i] = d.blocks[i].Text()
	}
	return strings.Join(lines, "\n")
}

// WordCount counts whitespace-separated words.
func (d *Document) WordCount() int {
	return len(strings.Fields(d.PlainText()))
}

// commit finishes every operation: serialize, notify, refocus.
func (d *Document) commit() {
	if d.onChange != nil {
		d.onChange(d.HTML())
	}
	d.focused = true
}

// InsertText replaces the selection with text. Newlines start new blocks.
// Without a selection the text goes to the end of the document.
func (d *Document) InsertText(text string) {
	d.insert(text)
	d.commit()
}

// InsertParagraph splits the current block at the caret.
func (d *Document) InsertParagraph() {
	d.insert("\n")
	d.commit()
}

func (d *Document) insert(text string) {
	if text == "" {
		return
	}
	at := d.deleteSelection()
	if len(d.blocks) == 0 {
		d.blocks = []Block{{Kind: Paragraph}}
		at = Position{}
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i > 0 {
			at = d.splitBlock(at)
		}
		if line == "" {
			continue
		}
		b := &d.blocks[at.Block]
		marks := b.marksAt(at.Offset)
		idx := b.splitAt(at.Offset)
		run := Run{Text: line, Bold: marks.Bold, Italic: marks.Italic}
		b.Runs = append(b.Runs[:idx], append([]Run{run}, b.Runs[idx:]...)...)
		b.normalize()
		at.Offset += utf8.RuneCountInString(line)
	}
	d.sel = &Selection{Start: at, End: at}
}

// deleteSelection removes the selected range and returns the caret.
func (d *Document) deleteSelection() Position {
	if d.sel == nil {
		if len(d.blocks) == 0 {
			return Position{}
		}
		last := len(d.blocks) - 1
		return Position{Block: last, Offset: d.blocks[last].Len()}
	}
	s := *d.sel
	s.Start, s.End = d.clamp(s.Start), d.clamp(s.End)
	if s.Collapsed() || len(d.blocks) == 0 {
		return s.Start
	}

	first := &d.blocks[s.Start.Block]
	if s.Start.Block == s.End.Block {
		first.cut(s.Start.Offset, s.End.Offset)
		first.normalize()
		return s.Start
	}

	last := d.blocks[s.End.Block].clone()
	first.cut(s.Start.Offset, first.Len())
	last.cut(0, s.End.Offset)
	first.Runs = append(first.Runs, last.Runs...)
	first.normalize()
	d.blocks = append(d.blocks[:s.Start.Block+1], d.blocks[s.End.Block+1:]...)
	return s.Start
}

// splitBlock breaks the block at p and returns the start of the new block.
func (d *Document) splitBlock(p Position) Position {
	b := &d.blocks[p.Block]
	tail := b.clone()
	b.cut(p.Offset, b.Len())
	tail.cut(0, p.Offset)
	if tail.Kind == Heading1 || tail.Kind == Heading2 {
		tail.Kind = Paragraph
	}

	rest := append([]Block{tail}, d.blocks[p.Block+1:]...)
	d.blocks = append(d.blocks[:p.Block+1], rest...)
	return Position{Block: p.Block + 1}
}
