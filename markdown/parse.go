package markdown

import (
	"regexp"
	"strings"
)

var (
	// atxHeading matches "# Title" through "###### Title".
	atxHeading = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*(?:#+\s*)?$`)
	// thematicBreakLine matches horizontal rules (---, ***, ___).
	thematicBreakLine = regexp.MustCompile(`^ {0,3}((?:\* *){3,}|(?:- *){3,}|(?:_ *){3,})$`)
	// fenceOpenLine matches the opening of a ``` or ~~~ code fence.
	fenceOpenLine = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})(.*)$")
	// listMarkerLine matches bullet and ordered list item starts.
	listMarkerLine = regexp.MustCompile(`^(\s{0,3})([-+*]|\d{1,9}[.)])\s+(.*)$`)
	// quotePrefix strips the "> " marker from quote lines.
	quotePrefix = regexp.MustCompile(`^ {0,3}> ?`)
)

// Parse parses Markdown source into a Document. Parsing never fails:
// anything the scanner does not recognize degrades to a paragraph.
func Parse(src string) *Document {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	lines := strings.Split(src, "\n")
	doc := &Document{}

	i := 0

	// A leading frontmatter block (--- fenced YAML) is kept verbatim:
	// its keys and values must never reach the translation provider.
	if len(lines) > 0 && strings.TrimRight(lines[0], " ") == "---" {
		for j := 1; j < len(lines); j++ {
			if strings.TrimRight(lines[j], " ") == "---" {
				doc.Blocks = append(doc.Blocks, &Block{
					Kind: RawMarkup,
					Raw:  strings.Join(lines[:j+1], "\n"),
				})
				i = j + 1
				break
			}
		}
	}

	for i < len(lines) {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			i++
			continue
		}

		switch {
		case fenceOpenLine.MatchString(line):
			block, next := parseFence(lines, i)
			doc.Blocks = append(doc.Blocks, block)
			i = next

		case thematicBreakLine.MatchString(line):
			doc.Blocks = append(doc.Blocks, &Block{Kind: ThematicBreak, Raw: line})
			i++

		case atxHeading.MatchString(line):
			m := atxHeading.FindStringSubmatch(line)
			doc.Blocks = append(doc.Blocks, &Block{
				Kind:    Heading,
				Level:   len(m[1]),
				Raw:     line,
				Inlines: parseInlines(m[2]),
			})
			i++

		case strings.HasPrefix(strings.TrimLeft(line, " "), ">"):
			block, next := parseQuote(lines, i)
			doc.Blocks = append(doc.Blocks, block)
			i = next

		case isIndentedCode(line):
			block, next := parseIndentedCode(lines, i)
			doc.Blocks = append(doc.Blocks, block)
			i = next

		case strings.HasPrefix(strings.TrimLeft(line, " "), "<"):
			block, next := parseHTMLBlock(lines, i)
			doc.Blocks = append(doc.Blocks, block)
			i = next

		case listMarkerLine.MatchString(line):
			block, next := parseList(lines, i)
			doc.Blocks = append(doc.Blocks, block)
			i = next

		default:
			block, next := parseParagraph(lines, i)
			doc.Blocks = append(doc.Blocks, block)
			i = next
		}
	}

	return doc
}

func isIndentedCode(line string) bool {
	return strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t")
}

// interruptsParagraph reports whether line starts a new block and so
// ends a paragraph without a blank line.
func interruptsParagraph(line string) bool {
	if fenceOpenLine.MatchString(line) {
		return true
	}
	if thematicBreakLine.MatchString(line) {
		return true
	}
	if atxHeading.MatchString(line) {
		return true
	}
	if strings.HasPrefix(strings.TrimLeft(line, " "), ">") {
		return true
	}
	if listMarkerLine.MatchString(line) {
		return true
	}
	return false
}

func parseFence(lines []string, start int) (*Block, int) {
	m := fenceOpenLine.FindStringSubmatch(lines[start])
	marker := m[1]
	i := start + 1
	for i < len(lines) {
		if isFenceClose(lines[i], marker[0], len(marker)) {
			i++
			break
		}
		i++
	}
	return &Block{Kind: FencedCode, Raw: strings.Join(lines[start:i], "\n")}, i
}

func isFenceClose(line string, char byte, minLen int) bool {
	t := strings.TrimRight(strings.TrimLeft(line, " "), " ")
	if len(t) < minLen {
		return false
	}
	for j := 0; j < len(t); j++ {
		if t[j] != char {
			return false
		}
	}
	return true
}

func parseQuote(lines []string, start int) (*Block, int) {
	i := start
	var content []string
	for i < len(lines) {
		t := strings.TrimLeft(lines[i], " ")
		if !strings.HasPrefix(t, ">") {
			break
		}
		content = append(content, quotePrefix.ReplaceAllString(lines[i], ""))
		i++
	}
	return &Block{
		Kind:    Quote,
		Raw:     strings.Join(lines[start:i], "\n"),
		Inlines: parseInlines(strings.Join(content, "\n")),
	}, i
}

func parseIndentedCode(lines []string, start int) (*Block, int) {
	i := start
	for i < len(lines) && (isIndentedCode(lines[i]) || strings.TrimSpace(lines[i]) == "") {
		i++
	}
	// Trailing blank lines belong to the document, not the code block.
	end := i
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return &Block{Kind: CodeBlock, Raw: strings.Join(lines[start:end], "\n")}, end
}

func parseHTMLBlock(lines []string, start int) (*Block, int) {
	i := start
	for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
		i++
	}
	return &Block{Kind: RawMarkup, Raw: strings.Join(lines[start:i], "\n")}, i
}

func parseList(lines []string, start int) (*Block, int) {
	i := start
	list := &Block{Kind: List}
	var itemLines []string
	var itemStart int

	flush := func(end int) {
		if itemLines == nil {
			return
		}
		list.Items = append(list.Items, &Block{
			Kind:    ListItem,
			Raw:     strings.Join(lines[itemStart:end], "\n"),
			Inlines: parseInlines(strings.Join(itemLines, " ")),
		})
		itemLines = nil
	}

	for i < len(lines) {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			break
		}
		if m := listMarkerLine.FindStringSubmatch(line); m != nil {
			flush(i)
			itemStart = i
			itemLines = []string{m[3]}
		} else if itemLines != nil {
			// continuation line of the current item
			itemLines = append(itemLines, strings.TrimSpace(line))
		} else {
			break
		}
		i++
	}
	flush(i)
	list.Raw = strings.Join(lines[start:i], "\n")
	return list, i
}

func parseParagraph(lines []string, start int) (*Block, int) {
	i := start
	for i < len(lines) {
		if strings.TrimSpace(lines[i]) == "" {
			break
		}
		if i > start && interruptsParagraph(lines[i]) {
			break
		}
		i++
	}
	raw := strings.Join(lines[start:i], "\n")
	return &Block{Kind: Paragraph, Raw: raw, Inlines: parseInlines(raw)}, i
}

// ---------------------------------------------------------------------------
// Inline parsing
// ---------------------------------------------------------------------------

// parseInlines scans text into inline nodes. Unclosed or malformed
// constructs fall through as plain text.
func parseInlines(text string) []*Inline {
	var out []*Inline
	var plain strings.Builder

	flush := func() {
		if plain.Len() > 0 {
			out = append(out, &Inline{Kind: PlainText, Text: plain.String()})
			plain.Reset()
		}
	}

	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == '\\' && i+1 < len(text) && text[i+1] == '\n':
			flush()
			out = append(out, &Inline{Kind: LineBreak})
			i += 2

		case c == '\n':
			// Two trailing spaces make a hard break.
			if s := plain.String(); strings.HasSuffix(s, "  ") {
				plain.Reset()
				plain.WriteString(strings.TrimRight(s, " "))
				flush()
				out = append(out, &Inline{Kind: LineBreak})
			} else {
				plain.WriteByte('\n')
			}
			i++

		case c == '`':
			run := runLength(text[i:], '`')
			rest := text[i+run:]
			if idx := strings.Index(rest, strings.Repeat("`", run)); idx >= 0 && !strings.HasPrefix(rest[idx:], strings.Repeat("`", run+1)) {
				flush()
				out = append(out, &Inline{Kind: CodeSpan, Text: rest[:idx]})
				i += run + idx + run
			} else {
				plain.WriteByte(c)
				i++
			}

		case c == '!' && i+1 < len(text) && text[i+1] == '[':
			if node, next, ok := parseLinkLike(text, i+1, true); ok {
				flush()
				out = append(out, node)
				i = next
			} else {
				plain.WriteByte(c)
				i++
			}

		case c == '[':
			if node, next, ok := parseLinkLike(text, i, false); ok {
				flush()
				out = append(out, node)
				i = next
			} else {
				plain.WriteByte(c)
				i++
			}

		case c == '*' || c == '_':
			if node, next, ok := parseEmphasis(text, i); ok {
				flush()
				out = append(out, node)
				i = next
			} else {
				plain.WriteByte(c)
				i++
			}

		default:
			plain.WriteByte(c)
			i++
		}
	}
	flush()
	return out
}

func isWordChar(b byte) bool {
	return b == '_' || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z' || '0' <= b && b <= '9'
}

func runLength(s string, c byte) int {
	n := 0
	for n < len(s) && s[n] == c {
		n++
	}
	return n
}

// parseLinkLike parses [label](url "title") starting at the '[' in
// position start. isImage shifts the reported end past nothing extra;
// the caller already consumed the leading '!'.
func parseLinkLike(text string, start int, isImage bool) (*Inline, int, bool) {
	depth := 0
	labelEnd := -1
	for j := start; j < len(text); j++ {
		switch text[j] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				labelEnd = j
			}
		}
		if labelEnd >= 0 {
			break
		}
	}
	if labelEnd < 0 || labelEnd+1 >= len(text) || text[labelEnd+1] != '(' {
		return nil, 0, false
	}

	close := strings.IndexByte(text[labelEnd+2:], ')')
	if close < 0 {
		return nil, 0, false
	}
	dest := text[labelEnd+2 : labelEnd+2+close]
	end := labelEnd + 2 + close + 1

	url := dest
	title := ""
	if sp := strings.IndexAny(dest, " \t"); sp >= 0 {
		url = dest[:sp]
		rest := strings.TrimSpace(dest[sp:])
		if len(rest) >= 2 && (rest[0] == '"' || rest[0] == '\'') && rest[len(rest)-1] == rest[0] {
			title = rest[1 : len(rest)-1]
		}
	}

	kind := Link
	if isImage {
		kind = Image
	}
	node := &Inline{
		Kind:     kind,
		URL:      url,
		Title:    title,
		Children: parseInlines(text[start+1 : labelEnd]),
	}
	return node, end, true
}

// parseEmphasis parses *em*, _em_, **strong** and __strong__.
// Underscore runs flanked by word characters are literal text, so
// identifiers like snake_case_name survive intact (CommonMark does
// not emphasize intraword underscores).
func parseEmphasis(text string, start int) (*Inline, int, bool) {
	c := text[start]
	markerLen := 1
	if start+1 < len(text) && text[start+1] == c {
		markerLen = 2
	}
	marker := text[start : start+markerLen]

	if c == '_' && start > 0 && isWordChar(text[start-1]) {
		return nil, 0, false
	}

	rest := text[start+markerLen:]
	idx := -1
	for from := 0; ; {
		j := strings.Index(rest[from:], marker)
		if j < 0 {
			break
		}
		j += from
		if c == '_' && j+markerLen < len(rest) && isWordChar(rest[j+markerLen]) {
			// Intraword underscore cannot close; keep scanning.
			from = j + 1
			continue
		}
		idx = j
		break
	}
	if idx <= 0 {
		return nil, 0, false
	}
	content := rest[:idx]
	if strings.TrimSpace(content) == "" {
		return nil, 0, false
	}

	kind := Emphasis
	if markerLen == 2 {
		kind = Strong
	}
	node := &Inline{Kind: kind, Children: parseInlines(content)}
	return node, start + markerLen + idx + markerLen, true
}

// ---------------------------------------------------------------------------
// Verbatim ranges (shared with the asset bundler)
// ---------------------------------------------------------------------------

// VerbatimRanges returns the [start, end) byte ranges of src covered
// by verbatim blocks: front matter, fenced code, indented code and raw
// HTML. It walks the source with the same block dispatch as Parse, so
// an indented line continuing a paragraph or list item is prose, not
// code. Offsets index the original src; line endings are not
// normalized.
func VerbatimRanges(src string) [][]int {
	lines := strings.SplitAfter(src, "\n")
	offsets := make([]int, len(lines)+1)
	for i, l := range lines {
		offsets[i+1] = offsets[i] + len(l)
	}

	var ranges [][]int
	i := 0

	// Leading frontmatter block.
	if len(lines) > 0 && strings.TrimRight(trimEOL(lines[0]), " ") == "---" {
		for j := 1; j < len(lines); j++ {
			if strings.TrimRight(trimEOL(lines[j]), " ") == "---" {
				ranges = append(ranges, []int{0, offsets[j+1]})
				i = j + 1
				break
			}
		}
	}

	for i < len(lines) {
		line := trimEOL(lines[i])
		if strings.TrimSpace(line) == "" {
			i++
			continue
		}

		switch {
		case fenceOpenLine.MatchString(line):
			m := fenceOpenLine.FindStringSubmatch(line)
			start := i
			i++
			for i < len(lines) {
				closed := isFenceClose(trimEOL(lines[i]), m[1][0], len(m[1]))
				i++
				if closed {
					break
				}
			}
			ranges = append(ranges, []int{offsets[start], offsets[i]})

		case thematicBreakLine.MatchString(line), atxHeading.MatchString(line):
			i++

		case strings.HasPrefix(strings.TrimLeft(line, " "), ">"):
			for i < len(lines) && strings.HasPrefix(strings.TrimLeft(trimEOL(lines[i]), " "), ">") {
				i++
			}

		case isIndentedCode(line):
			start := i
			for i < len(lines) && (isIndentedCode(trimEOL(lines[i])) || strings.TrimSpace(lines[i]) == "") {
				i++
			}
			end := i
			for end > start && strings.TrimSpace(lines[end-1]) == "" {
				end--
			}
			ranges = append(ranges, []int{offsets[start], offsets[end]})
			i = end

		case strings.HasPrefix(strings.TrimLeft(line, " "), "<"):
			start := i
			for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
				i++
			}
			ranges = append(ranges, []int{offsets[start], offsets[i]})

		case listMarkerLine.MatchString(line):
			for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
				i++
			}

		default:
			i++
			for i < len(lines) && strings.TrimSpace(lines[i]) != "" && !interruptsParagraph(trimEOL(lines[i])) {
				i++
			}
		}
	}
	return ranges
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// InsideRanges reports whether pos falls within any [start, end) range.
func InsideRanges(pos int, ranges [][]int) bool {
	for _, r := range ranges {
		if pos >= r[0] && pos < r[1] {
			return true
		}
	}
	return false
}
