package markdown

import (
	"strings"

	"golang.org/x/net/html"
)

// maxColspan is the largest colspan browsers honour.
const maxColspan = 1000

// RenderTable renders every row of table as a pipe row. Cell text is
// trimmed and "|" is escaped as "\|". A cell spanning several columns is
// followed by empty cells for the extra columns. A separator row follows the
// first row. Column counts are not otherwise reconciled across rows.
func RenderTable(table *html.Node) string {
	var rows []string
	for i, tr := range descendants(table, "tr") {
		cells := descendants(tr, "th", "td")
		texts := make([]string, 0, len(cells))
		for _, cell := range cells {
			texts = append(texts, strings.ReplaceAll(strings.TrimSpace(TextContent(cell)), "|", `\|`))
			for span := min(AttrInt(cell, "colspan"), maxColspan); span > 1; span-- {
				texts = append(texts, "")
			}
		}

		line := "| " + strings.Join(texts, " | ") + " |"
		if i == 0 {
			seps := make([]string, len(texts))
			for j := range seps {
				seps[j] = "---"
			}
			line += "\n| " + strings.Join(seps, " | ") + " |"
		}
		rows = append(rows, line)
	}
	return strings.Join(rows, "\n") + "\n\n"
}
