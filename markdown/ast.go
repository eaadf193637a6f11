// Package markdown implements the document model used by the
// translation and bundling pipelines: a tree of block and inline nodes
// parsed from Markdown source, with traversal, plain-text flattening,
// and lossless re-serialization of verbatim content.
//
// The parser is deliberately conservative. Every block records the raw
// source text it was parsed from; rendering emits that raw text for any
// block that has not been rewritten, so content the pipeline does not
// touch survives byte for byte. Code fences, indented code, and HTML
// blocks are verbatim: they are never traversed for translatable text
// and never have URLs rewritten inside them.
package markdown

import "strings"

// BlockKind tags a block node.
type BlockKind int

const (
	Paragraph BlockKind = iota
	Heading
	Quote
	CodeBlock
	FencedCode
	RawMarkup
	List
	ListItem
	ThematicBreak
)

// String returns the kind name for diagnostics.
func (k BlockKind) String() string {
	switch k {
	case Paragraph:
		return "paragraph"
	case Heading:
		return "heading"
	case Quote:
		return "quote"
	case CodeBlock:
		return "code"
	case FencedCode:
		return "fenced-code"
	case RawMarkup:
		return "raw-markup"
	case List:
		return "list"
	case ListItem:
		return "list-item"
	case ThematicBreak:
		return "thematic-break"
	}
	return "unknown"
}

// Verbatim reports whether the kind is opaque: no inline children, no
// translatable text, no URL rewriting.
func (k BlockKind) Verbatim() bool {
	switch k {
	case CodeBlock, FencedCode, RawMarkup, ThematicBreak:
		return true
	}
	return false
}

// InlineKind tags an inline node.
type InlineKind int

const (
	PlainText InlineKind = iota
	CodeSpan
	Emphasis
	Strong
	Link
	Image
	LineBreak
)

// Block is a block-level node.
type Block struct {
	Kind BlockKind
	// Level is the heading level (1-6) for Heading blocks.
	Level int
	// Raw is the block's original source text. Rendering emits Raw
	// verbatim when it is non-empty; a rewritten block clears it.
	Raw string
	// Inlines are the inline children of Paragraph, Heading, Quote
	// and ListItem blocks.
	Inlines []*Inline
	// Items holds the ListItem children of a List block.
	Items []*Block
}

// Inline is an inline node.
type Inline struct {
	Kind InlineKind
	// Text carries the content of PlainText and CodeSpan nodes.
	Text string
	// URL is set for Link and Image nodes and is never translated.
	URL string
	// Title is the optional link/image title.
	Title string
	// Children are the inline children of Emphasis, Strong, Link and
	// Image (the image alt text) nodes.
	Children []*Inline
}

// Document is an ordered sequence of blocks, owned by a single
// pipeline invocation.
type Document struct {
	Blocks []*Block
}

// Walk traverses blocks depth-first in document order. fn returning
// false skips the block's children. Verbatim blocks have no children.
func (d *Document) Walk(fn func(*Block) bool) {
	for _, b := range d.Blocks {
		walkBlock(b, fn)
	}
}

func walkBlock(b *Block, fn func(*Block) bool) {
	if !fn(b) {
		return
	}
	for _, item := range b.Items {
		walkBlock(item, fn)
	}
}

// FlattenInlines renders inline nodes to plain text for translation:
// code spans contribute nothing, links and images contribute only
// their label text, hard line breaks become a single space.
func FlattenInlines(inlines []*Inline) string {
	var sb strings.Builder
	flattenInto(&sb, inlines)
	return sb.String()
}

func flattenInto(sb *strings.Builder, inlines []*Inline) {
	for _, in := range inlines {
		switch in.Kind {
		case PlainText:
			sb.WriteString(in.Text)
		case CodeSpan:
			// excluded from translatable text
		case Emphasis, Strong, Link, Image:
			flattenInto(sb, in.Children)
		case LineBreak:
			sb.WriteString(" ")
		}
	}
}

// FlattenedText returns the block's inline content as plain text.
// Verbatim blocks flatten to the empty string.
func (b *Block) FlattenedText() string {
	if b.Kind.Verbatim() {
		return ""
	}
	return FlattenInlines(b.Inlines)
}

// Clone returns a deep copy of the block. The copy shares no node
// instances with the original.
func (b *Block) Clone() *Block {
	nb := &Block{Kind: b.Kind, Level: b.Level, Raw: b.Raw}
	if b.Inlines != nil {
		nb.Inlines = cloneInlines(b.Inlines)
	}
	for _, item := range b.Items {
		nb.Items = append(nb.Items, item.Clone())
	}
	return nb
}

func cloneInlines(inlines []*Inline) []*Inline {
	out := make([]*Inline, 0, len(inlines))
	for _, in := range inlines {
		ni := &Inline{Kind: in.Kind, Text: in.Text, URL: in.URL, Title: in.Title}
		if in.Children != nil {
			ni.Children = cloneInlines(in.Children)
		}
		out = append(out, ni)
	}
	return out
}
