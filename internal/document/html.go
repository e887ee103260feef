package document

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// parse reads an HTML fragment into blocks. Unsupported markup is flattened
// to its text; scripts, styles and embeds are dropped.
func parse(seed string) []Block {
	if strings.TrimSpace(seed) == "" {
		return nil
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(seed), body)
	if err != nil {
		return []Block{{Kind: Paragraph, Runs: []Run{{Text: collapseSpace(seed)}}}}
	}

	p := &parser{}
	for _, n := range nodes {
		p.walk(n, Run{}, blockCtx{kind: Paragraph})
	}
	p.finish(0)
	return p.blocks
}

type blockCtx struct {
	kind    BlockKind
	list    ListKind
	align   Alignment
	inherit bool // nested paragraphs keep kind (inside quotes and list items)
}

type openBlock struct {
	Block
	id int
}

type parser struct {
	blocks []Block
	cur    *openBlock
	nextID int
}

func (p *parser) open(ctx blockCtx) int {
	p.nextID++
	p.cur = &openBlock{
		Block: Block{Kind: ctx.kind, List: ctx.list, Align: ctx.align},
		id:    p.nextID,
	}
	return p.nextID
}

// finish closes the current block. The block opened by element owner is kept
// even when empty; anything else is kept only if it has text.
func (p *parser) finish(owner int) {
	if p.cur == nil {
		return
	}
	b := p.cur.Block
	trimEdges(&b)
	b.normalize()
	if len(b.Runs) > 0 || (owner != 0 && p.cur.id == owner) {
		p.blocks = append(p.blocks, b)
	}
	p.cur = nil
}

func (p *parser) walk(n *html.Node, marks Run, ctx blockCtx) {
	switch n.Type {
	case html.TextNode:
		text := collapseSpace(n.Data)
		if p.cur == nil {
			if strings.TrimSpace(text) == "" {
				return
			}
			p.open(ctx)
		}
		p.cur.Runs = append(p.cur.Runs, Run{Text: text, Bold: marks.Bold, Italic: marks.Italic})
		return
	case html.ElementNode:
	default:
		p.children(n, marks, ctx)
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Head, atom.Template, atom.Iframe, atom.Noscript, atom.Object, atom.Embed:
		return
	case atom.B, atom.Strong:
		marks.Bold = true
		p.children(n, marks, ctx)
	case atom.I, atom.Em:
		marks.Italic = true
		p.children(n, marks, ctx)
	case atom.Br:
		if p.cur != nil {
			p.cur.Runs = append(p.cur.Runs, Run{Text: " ", Bold: marks.Bold, Italic: marks.Italic})
		}
	case atom.Ul, atom.Ol:
		p.finish(0)
		inner := ctx
		inner.list = Unordered
		if n.DataAtom == atom.Ol {
			inner.list = Ordered
		}
		inner.align = alignOf(n, ctx.align)
		p.children(n, marks, inner)
		p.finish(0)
	case atom.P, atom.Div, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Blockquote, atom.Li:
		p.finish(0)
		inner := blockElementCtx(n, ctx)
		id := p.open(inner)
		p.children(n, marks, inner)
		p.finish(id)
	default:
		p.children(n, marks, ctx)
	}
}

func (p *parser) children(n *html.Node, marks Run, ctx blockCtx) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c, marks, ctx)
	}
}

func blockElementCtx(n *html.Node, outer blockCtx) blockCtx {
	ctx := blockCtx{align: alignOf(n, outer.align)}
	switch n.DataAtom {
	case atom.H1:
		ctx.kind = Heading1
	case atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		ctx.kind = Heading2
	case atom.Blockquote:
		ctx.kind = Blockquote
		ctx.inherit = true
	case atom.Li:
		ctx.kind = ListItem
		ctx.list = outer.list
		if ctx.list == NoList {
			ctx.list = Unordered
		}
		ctx.inherit = true
	default:
		ctx.kind = Paragraph
		if outer.inherit {
			ctx.kind = outer.kind
			ctx.list = outer.list
			ctx.inherit = true
		}
	}
	return ctx
}

func alignOf(n *html.Node, fallback Alignment) Alignment {
	for _, a := range n.Attr {
		var v string
		switch strings.ToLower(a.Key) {
		case "align":
			v = strings.ToLower(strings.TrimSpace(a.Val))
		case "style":
			v = styleTextAlign(a.Val)
		default:
			continue
		}
		switch v {
		case "center":
			return AlignCenter
		case "right":
			return AlignRight
		case "left":
			return AlignLeft
		}
	}
	return fallback
}

func styleTextAlign(style string) string {
	for _, decl := range strings.Split(style, ";") {
		kv := strings.SplitN(decl, ":", 2)
		if len(kv) == 2 && strings.EqualFold(strings.TrimSpace(kv[0]), "text-align") {
			return strings.ToLower(strings.TrimSpace(kv[1]))
		}
	}
	return ""
}

func collapseSpace(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			if !space {
				sb.WriteByte(' ')
			}
			space = true
		default:
			sb.WriteRune(r)
			space = false
		}
	}
	return sb.String()
}

func trimEdges(b *Block) {
	if len(b.Runs) == 0 {
		return
	}
	b.Runs[0].Text = strings.TrimLeft(b.Runs[0].Text, " ")
	last := len(b.Runs) - 1
	b.Runs[last].Text = strings.TrimRight(b.Runs[last].Text, " ")
}

// render serializes blocks. Consecutive list items of one kind share a list.
func render(blocks []Block) string {
	var sb strings.Builder
	for i := 0; i < len(blocks); i++ {
		if blocks[i].Kind != ListItem {
			writeBlock(&sb, &blocks[i])
			continue
		}

		kind := listKindOf(&blocks[i])
		sb.WriteString("<" + kind.tag() + ">")
		for ; i < len(blocks) && blocks[i].Kind == ListItem && listKindOf(&blocks[i]) == kind; i++ {
			writeBlock(&sb, &blocks[i])
		}
		sb.WriteString("</" + kind.tag() + ">")
		i--
	}
	return sb.String()
}

func listKindOf(b *Block) ListKind {
	if b.List == NoList {
		return Unordered
	}
	return b.List
}

func writeBlock(sb *strings.Builder, b *Block) {
	tag := b.Kind.tag()
	sb.WriteString("<" + tag)
	if b.Align != AlignLeft {
		sb.WriteString(` style="text-align: ` + b.Align.css() + `;"`)
	}
	sb.WriteString(">")
	for _, r := range b.Runs {
		text := html.EscapeString(r.Text)
		switch {
		case r.Bold && r.Italic:
			sb.WriteString("<b><i>" + text + "</i></b>")
		case r.Bold:
			sb.WriteString("<b>" + text + "</b>")
		case r.Italic:
			sb.WriteString("<i>" + text + "</i>")
		default:
			sb.WriteString(text)
		}
	}
	sb.WriteString("</" + tag + ">")
}

// Sanitize normalizes arbitrary HTML into the subset the editor produces.
func Sanitize(raw string) string {
	return render(parse(raw))
}
