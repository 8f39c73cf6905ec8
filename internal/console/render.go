package console

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/odyssey-erp/partnerdesk/internal/partners"
)

type styles struct {
	renderer *lipgloss.Renderer
	title    lipgloss.Style
	header   lipgloss.Style
	cell     lipgloss.Style
	muted    lipgloss.Style
	success  lipgloss.Style
	failure  lipgloss.Style
	field    lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		renderer: r,
		title:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		header:   r.NewStyle().Bold(true).Padding(0, 1),
		cell:     r.NewStyle().Padding(0, 1),
		muted:    r.NewStyle().Foreground(lipgloss.Color("8")),
		success: r.NewStyle().
			Foreground(lipgloss.Color("10")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("10")).
			Padding(0, 1),
		failure: r.NewStyle().
			Foreground(lipgloss.Color("9")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(0, 1),
		field: r.NewStyle().Foreground(lipgloss.Color("9")).Italic(true),
	}
}

// collection renders the filtered view of a manager as a table.
func (s styles) collection(m *partners.Manager) string {
	schema := m.Schema()
	view := m.View()

	var b strings.Builder
	b.WriteString(s.title.Render(schema.Plural))
	if f := m.Filter(); !f.IsZero() {
		b.WriteString(" ")
		b.WriteString(s.muted.Render(fmt.Sprintf("(name=%q %s=%q)", f.Name, strings.ToLower(schema.TaxLabel), f.TaxID)))
	}
	b.WriteString("\n")

	if len(view) == 0 {
		b.WriteString(s.muted.Render("No " + strings.ToLower(schema.Plural) + " to show."))
		b.WriteString("\n")
		return b.String()
	}

	rows := make([][]string, 0, len(view))
	for _, r := range view {
		rows = append(rows, []string{strconv.FormatInt(r.ID, 10), r.Name, r.TaxID, r.Contact, r.Address})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.muted).
		Headers("ID", "Name", schema.TaxLabel, "Contact", "Address").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.header
			}
			return s.cell
		})
	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

// form renders the record being created or edited.
func (s styles) form(m *partners.Manager, draft partners.Draft) string {
	schema := m.Schema()
	sel, ok := m.Selection()
	if !ok {
		return ""
	}
	heading := "New " + strings.ToLower(schema.Label)
	if !sel.IsNew() {
		heading = fmt.Sprintf("Edit %s #%d", strings.ToLower(schema.Label), sel.ID)
	}

	var b strings.Builder
	b.WriteString(s.title.Render(heading))
	b.WriteString("\n")
	for _, f := range []struct{ label, value string }{
		{"Name", draft.Name},
		{schema.TaxLabel, draft.TaxID},
		{"Contact", draft.Contact},
		{"Address", draft.Address},
	} {
		fmt.Fprintf(&b, "  %-9s %s\n", f.label+":", f.value)
	}
	if verr := m.FieldError(); verr != nil {
		b.WriteString(s.field.Render(verr.Message))
		b.WriteString("\n")
	}
	return b.String()
}

func (s styles) notification(n partners.Notification) string {
	if n.Kind == partners.NotifyError {
		return s.failure.Render(n.Text) + "\n"
	}
	return s.success.Render(n.Text) + "\n"
}
