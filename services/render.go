package services

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const (
	opportunityTableClass = "table table-striped"
	gapTableClass         = "table table-striped table-hover table-bordered text-center"
)

// renderTable draws the same rows twice: as an HTML table for the browser
// and as a boxed text table for logs and terminals.
func renderTable(header table.Row, rows []table.Row, cssClass string) (html, plain string) {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().HTML = table.HTMLOptions{
		CSSClass:    cssClass,
		EmptyColumn: "&nbsp;",
		EscapeText:  true,
		Newline:     "<br/>",
	}
	tw.AppendHeader(header)
	tw.AppendRows(rows)
	return tw.RenderHTML(), tw.Render()
}
