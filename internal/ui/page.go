package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/bookclub/internal/resource"
)

// page is one admin tab: a resource manager and the table showing its derived rows.
type page struct {
	mgr   *resource.Manager
	table table.Model
}

func newPage(kind resource.Kind, api resource.API, logger *log.Logger) *page {
	p := &page{mgr: resource.NewManager(kind, api, logger)}
	p.table = table.New(table.WithColumns(p.columns()), table.WithFocused(true))
	return p
}

// columns numbers each header so the sort keys (1-9) are discoverable and marks the sorted one.
func (p *page) columns() []table.Column {
	kind := p.mgr.Kind()
	sort := p.mgr.View().Sort()

	cols := make([]table.Column, len(kind.Columns))
	for i, c := range kind.Columns {
		title := fmt.Sprintf("%d %s", i+1, c.Title)
		if sort.Key == c.Path {
			if sort.Direction == resource.Descending {
				title += " ▼"
			} else {
				title += " ▲"
			}
		}
		cols[i] = table.Column{Title: title, Width: c.Width}
	}
	return cols
}

// sync copies the derived rows into the table.
func (p *page) sync(height int) {
	kind := p.mgr.Kind()
	derived := p.mgr.Rows()

	rows := make([]table.Row, len(derived))
	for i, r := range derived {
		cells := make(table.Row, len(kind.Columns))
		for j, c := range kind.Columns {
			cells[j] = c.Value(r)
		}
		rows[i] = cells
	}

	p.table.SetRows(nil)
	p.table.SetColumns(p.columns())
	p.table.SetRows(rows)
	if height > 0 {
		p.table.SetHeight(height)
	}
	if c := p.table.Cursor(); c >= len(rows) {
		p.table.SetCursor(max(len(rows)-1, 0))
	}
}

// sortBy toggles the sort on the n-th (0-based) column.
func (p *page) sortBy(n int) bool {
	cols := p.mgr.Kind().Columns
	if n < 0 || n >= len(cols) {
		return false
	}
	p.mgr.View().Toggle(cols[n].Path)
	return true
}

// selected returns the row under the cursor.
func (p *page) selected() (resource.Row, bool) {
	rows := p.mgr.Rows()
	c := p.table.Cursor()
	if c < 0 || c >= len(rows) {
		return nil, false
	}
	return rows[c], true
}
