package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/bookclub/internal/resource"
)

// form renders the add/edit modal's inputs. The draft itself lives in the resource controller.
type form struct {
	fields []resource.Field
	inputs []textinput.Model
	focus  int
}

func newForm(kind resource.Kind, draft resource.Row) *form {
	f := &form{fields: kind.Fields, inputs: make([]textinput.Model, len(kind.Fields))}
	for i, field := range kind.Fields {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 256
		in.Width = 40
		in.Placeholder = placeholder(field, draft[field.Name])
		in.SetValue(resource.Stringify(draft[field.Name]))
		f.inputs[i] = in
	}
	if len(f.inputs) > 0 {
		f.inputs[0].Focus()
	}
	return f
}

func placeholder(field resource.Field, current any) string {
	if obj, ok := current.(map[string]any); ok {
		row := resource.Row(obj)
		if name := row.String("name"); name != "" {
			return fmt.Sprintf("unchanged: %s", name)
		}
		if title := row.String("title"); title != "" {
			return fmt.Sprintf("unchanged: %s", title)
		}
		return fmt.Sprintf("unchanged: %s", row.ID())
	}
	if field.Type == resource.DateField {
		return "YYYY-MM-DD"
	}
	return strings.ToLower(field.Label)
}

func (f *form) move(delta int) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	return f.inputs[f.focus].Focus()
}

// update forwards msg to the focused input and reports the field whose text changed.
func (f *form) update(msg tea.Msg) (field, value string, changed bool, cmd tea.Cmd) {
	if len(f.inputs) == 0 {
		return "", "", false, nil
	}
	before := f.inputs[f.focus].Value()
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	after := f.inputs[f.focus].Value()
	return f.fields[f.focus].Name, after, before != after, cmd
}

func (f *form) view(p *Palette, title string, fieldErrs map[string]string, errMsg string, saving bool) string {
	var b strings.Builder
	b.WriteString(p.title.Render(title))
	b.WriteString("\n")

	width := 0
	for _, field := range f.fields {
		width = max(width, len(field.Label))
	}

	for i, field := range f.fields {
		marker := "  "
		if i == f.focus {
			marker = p.As("▸ ", p.accent)
		}
		b.WriteString(fmt.Sprintf("%s%-*s  %s\n", marker, width, field.Label, f.inputs[i].View()))
		if msg, ok := fieldErrs[field.Name]; ok {
			b.WriteString(strings.Repeat(" ", width+4) + p.err.Render(msg) + "\n")
		}
	}

	if errMsg != "" {
		b.WriteString("\n" + p.err.Render(errMsg) + "\n")
	}
	if saving {
		b.WriteString("\n" + p.warn.Render("Saving...") + "\n")
	}
	return p.modal.Render(b.String())
}
