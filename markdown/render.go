package markdown

import "strings"

// Render serializes the document back to Markdown. Blocks that still
// carry their original source are emitted verbatim; rewritten blocks
// (Raw cleared by the rebuilder) are serialized from their structure.
// Blocks are separated by one blank line and the output ends with a
// single newline.
func (d *Document) Render() string {
	if len(d.Blocks) == 0 {
		return ""
	}
	parts := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		parts = append(parts, renderBlock(b))
	}
	return strings.Join(parts, "\n\n") + "\n"
}

func renderBlock(b *Block) string {
	if b.Raw != "" {
		return b.Raw
	}

	switch b.Kind {
	case Heading:
		level := b.Level
		if level < 1 {
			level = 1
		}
		return strings.Repeat("#", level) + " " + RenderInlines(b.Inlines)

	case Quote:
		lines := strings.Split(RenderInlines(b.Inlines), "\n")
		for i, line := range lines {
			lines[i] = "> " + line
		}
		return strings.Join(lines, "\n")

	case List:
		items := make([]string, 0, len(b.Items))
		for _, item := range b.Items {
			items = append(items, renderBlock(item))
		}
		return strings.Join(items, "\n")

	case ListItem:
		return "- " + RenderInlines(b.Inlines)

	case ThematicBreak:
		return "---"

	default:
		return RenderInlines(b.Inlines)
	}
}

// RenderInlines serializes inline nodes to Markdown.
func RenderInlines(inlines []*Inline) string {
	var sb strings.Builder
	for _, in := range inlines {
		switch in.Kind {
		case PlainText:
			sb.WriteString(in.Text)
		case CodeSpan:
			sb.WriteString("`")
			sb.WriteString(in.Text)
			sb.WriteString("`")
		case Emphasis:
			sb.WriteString("*")
			sb.WriteString(RenderInlines(in.Children))
			sb.WriteString("*")
		case Strong:
			sb.WriteString("**")
			sb.WriteString(RenderInlines(in.Children))
			sb.WriteString("**")
		case Link:
			sb.WriteString("[")
			sb.WriteString(RenderInlines(in.Children))
			sb.WriteString("](")
			sb.WriteString(in.URL)
			if in.Title != "" {
				sb.WriteString(` "` + in.Title + `"`)
			}
			sb.WriteString(")")
		case Image:
			sb.WriteString("![")
			sb.WriteString(RenderInlines(in.Children))
			sb.WriteString("](")
			sb.WriteString(in.URL)
			if in.Title != "" {
				sb.WriteString(` "` + in.Title + `"`)
			}
			sb.WriteString(")")
		case LineBreak:
			sb.WriteString("  \n")
		}
	}
	return sb.String()
}
