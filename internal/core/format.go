package core

import (
	"html"
	"regexp"
	"strings"
)

// BlockKind classifies one line of model output.
type BlockKind string

const (
	BlockParagraph BlockKind = "paragraph"
	BlockHeading   BlockKind = "heading"
	BlockDivider   BlockKind = "divider"
	BlockBullet    BlockKind = "bullet"
	BlockOrdered   BlockKind = "ordered"
	BlockBlank     BlockKind = "blank"
)

// Block is a classified line with its markers stripped. Number is set for
// ordered items.
type Block struct {
	Kind   BlockKind `json:"kind"`
	Text   string    `json:"text"`
	Number string    `json:"number,omitempty"`
}

var orderedItem = regexp.MustCompile(`^(\d+)\.\s+(.*)$`)

// Format splits model output into blocks. Rules, first match wins:
// "***" divider heading, "**" bold heading, "* " bullet, "N. " ordered item,
// empty line, paragraph.
func Format(text string) []Block {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	blocks := make([]Block, 0, len(lines))
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			blocks = append(blocks, Block{Kind: BlockBlank})
		case strings.HasPrefix(line, "***"):
			blocks = append(blocks, Block{Kind: BlockDivider, Text: strings.TrimSpace(strings.Trim(line, "*"))})
		case strings.HasPrefix(line, "**"):
			blocks = append(blocks, Block{Kind: BlockHeading, Text: strings.TrimSpace(strings.Trim(line, "*"))})
		case strings.HasPrefix(line, "* "):
			blocks = append(blocks, Block{Kind: BlockBullet, Text: strings.TrimSpace(line[2:])})
		default:
			if m := orderedItem.FindStringSubmatch(line); m != nil {
				blocks = append(blocks, Block{Kind: BlockOrdered, Number: m[1], Text: m[2]})
				continue
			}
			blocks = append(blocks, Block{Kind: BlockParagraph, Text: line})
		}
	}
	return blocks
}

// RenderHTML turns blocks into escaped HTML fragments, one element per line.
func RenderHTML(blocks []Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		t := html.EscapeString(b.Text)
		switch b.Kind {
		case BlockBlank:
			sb.WriteString(`<div class="spacer"></div>`)
		case BlockDivider:
			sb.WriteString(`<hr><h4 class="divider-heading">` + t + `</h4>`)
		case BlockHeading:
			sb.WriteString(`<h4><strong>` + t + `</strong></h4>`)
		case BlockBullet:
			sb.WriteString(`<li class="bullet">` + t + `</li>`)
		case BlockOrdered:
			sb.WriteString(`<li class="ordered" value="` + b.Number + `">` + t + `</li>`)
		default:
			sb.WriteString(`<p>` + t + `</p>`)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
