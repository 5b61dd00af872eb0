package notes

import (
	"strconv"
	"strings"
)

// Markdown renders the notes of several products. Sections follow table
// order; within a section each product with notes gets a heading and an
// ordered list of "<note>(<key>)" items. Empty sections are omitted.
func Markdown(table *LabelTable, software ...Software) string {
	var doc strings.Builder
	var section strings.Builder

	for i := range table.Len() {
		section.Reset()
		for _, sw := range software {
			if i >= len(sw.Groups) || len(sw.Groups[i]) == 0 {
				continue
			}
			section.WriteString("### " + sw.Name + "\n\n")
			for n, issue := range sw.Groups[i] {
				section.WriteString(strconv.Itoa(n+1) + ". " + singleLine(issue.ReleaseNote) + "(" + issue.Key + ")\n")
			}
			section.WriteString("\n")
		}
		if section.Len() == 0 {
			continue
		}
		doc.WriteString("## " + table.Title(i) + "\n\n")
		doc.WriteString(section.String())
	}
	return doc.String()
}

// singleLine keeps a multi-line note inside its list item.
func singleLine(s string) string {
	s = strings.TrimSpace(s)
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\n", "<br>")
}
