package document

import (
	"fmt"
	"strings"
)

// CommandKind enumerates the editor toolbar actions.
type CommandKind int

const (
	CmdBold CommandKind = iota
	CmdItalic
	CmdParagraph
	CmdHeading
	CmdBlockquote
	CmdList
	CmdAlign
)

// Command is one toolbar action. Level is used by CmdHeading, List by CmdList
// and Align by CmdAlign.
type Command struct {
	Kind  CommandKind
	Level int
	List  ListKind
	Align Alignment
}

func Bold() Command { return Command{Kind: CmdBold} }
func Italic() Command { return Command{Kind: CmdItalic} }
func ParagraphCmd() Command { return Command{Kind: CmdParagraph} }
func Heading(level int) Command { return Command{Kind: CmdHeading, Level: level} }
func BlockquoteCmd() Command { return Command{Kind: CmdBlockquote} }
func List(kind ListKind) Command { return Command{Kind: CmdList, List: kind} }
func Align(align Alignment) Command { return Command{Kind: CmdAlign, Align: align} }

var commandNames = map[string]Command{
	"bold":       Bold(),
	"italic":     Italic(),
	"p":          ParagraphCmd(),
	"paragraph":  ParagraphCmd(),
	"h1":         Heading(1),
	"h2":         Heading(2),
	"blockquote": BlockquoteCmd(),
	"ul":         List(Unordered),
	"ol":         List(Ordered),
	"left":       Align(AlignLeft),
	"center":     Align(AlignCenter),
	"right":      Align(AlignRight),
}

// ParseCommand resolves a toolbar name such as "bold", "h2" or "ol".
func ParseCommand(name string) (Command, error) {
	cmd, ok := commandNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Command{}, fmt.Errorf("unknown command %q", name)
	}
	return cmd, nil
}

// Apply runs cmd against the current selection, then serializes, notifies
// the owner and restores focus. Commands never fail: without a selection
// they change nothing, and inline marks need a non-empty range.
func (d *Document) Apply(cmd Command) {
	switch cmd.Kind {
	case CmdBold:
		d.toggleMark(func(r *Run) *bool { return &r.Bold })
	case CmdItalic:
		d.toggleMark(func(r *Run) *bool { return &r.Italic })
	case CmdParagraph:
		d.setBlockKind(Paragraph)
	case CmdHeading:
		switch cmd.Level {
		case 1:
			d.setBlockKind(Heading1)
		case 2:
			d.setBlockKind(Heading2)
		}
	case CmdBlockquote:
		d.setBlockKind(Blockquote)
	case CmdList:
		if cmd.List == Unordered || cmd.List == Ordered {
			d.toggleList(cmd.List)
		}
	case CmdAlign:
		d.setAlign(cmd.Align)
	}
	d.commit()
}

// ApplyInlineStyle toggles bold or italic on the selection.
func (d *Document) ApplyInlineStyle(cmd Command) { d.Apply(cmd) }

// ApplyBlockFormat sets the block format of every selected block.
func (d *Document) ApplyBlockFormat(kind BlockKind) {
	switch kind {
	case Heading1:
		d.Apply(Heading(1))
	case Heading2:
		d.Apply(Heading(2))
	case Blockquote:
		d.Apply(BlockquoteCmd())
	default:
		d.Apply(ParagraphCmd())
	}
}

// ApplyList toggles a list of the given kind on the selected blocks.
func (d *Document) ApplyList(kind ListKind) { d.Apply(List(kind)) }

// ApplyAlignment aligns the selected blocks.
func (d *Document) ApplyAlignment(align Alignment) { d.Apply(Align(align)) }

// selectedBlocks returns the block index range touched by the selection.
func (d *Document) selectedBlocks() (int, int, bool) {
	if d.sel == nil || len(d.blocks) == 0 {
		return 0, 0, false
	}
	start, end := d.clamp(d.sel.Start), d.clamp(d.sel.End)
	return start.Block, end.Block, true
}

// span is the selected rune range inside a single block.
type span struct {
	block    int
	from, to int
}

func (d *Document) selectedSpans() []span {
	if d.sel == nil || len(d.blocks) == 0 {
		return nil
	}
	start, end := d.clamp(d.sel.Start), d.clamp(d.sel.End)
	var out []span
	for i := start.Block; i <= end.Block; i++ {
		from, to := 0, d.blocks[i].Len()
		if i == start.Block {
			from = start.Offset
		}
		if i == end.Block {
			to = end.Offset
		}
		if from < to {
			out = append(out, span{block: i, from: from, to: to})
		}
	}
	return out
}

// toggleMark removes the mark if every selected character already has it,
// otherwise applies it to all of them.
func (d *Document) toggleMark(mark func(*Run) *bool) {
	spans := d.selectedSpans()
	if len(spans) == 0 {
		return
	}

	all := true
	for _, sp := range spans {
		b := &d.blocks[sp.block]
		i, j := b.splitAt(sp.from), b.splitAt(sp.to)
		for k := i; k < j; k++ {
			if !*mark(&b.Runs[k]) {
				all = false
			}
		}
	}

	for _, sp := range spans {
		b := &d.blocks[sp.block]
		i, j := b.splitAt(sp.from), b.splitAt(sp.to)
		for k := i; k < j; k++ {
			*mark(&b.Runs[k]) = !all
		}
		b.normalize()
	}
}

func (d *Document) setBlockKind(kind BlockKind) {
	first, last, ok := d.selectedBlocks()
	if !ok {
		return
	}
	for i := first; i <= last; i++ {
		d.blocks[i].Kind = kind
		d.blocks[i].List = NoList
	}
}

// toggleList turns the selected blocks into list items of kind, or back
// into paragraphs when they all already are.
func (d *Document) toggleList(kind ListKind) {
	first, last, ok := d.selectedBlocks()
	if !ok {
		return
	}

	all := true
	for i := first; i <= last; i++ {
		if d.blocks[i].Kind != ListItem || d.blocks[i].List != kind {
			all = false
			break
		}
	}

	for i := first; i <= last; i++ {
		if all {
			d.blocks[i].Kind = Paragraph
			d.blocks[i].List = NoList
			continue
		}
		d.blocks[i].Kind = ListItem
		d.blocks[i].List = kind
	}
}

func (d *Document) setAlign(align Alignment) {
	first, last, ok := d.selectedBlocks()
	if !ok {
		return
	}
	for i := first; i <= last; i++ {
		d.blocks[i].Align = align
	}
}
