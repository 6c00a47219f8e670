package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/registree/registree/internal/tree"
)

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	cursorStyle     = lipgloss.NewStyle().Reverse(true)
	repositoryStyle = lipgloss.NewStyle().Bold(true)
	digestStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	tagStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	platformStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	noticeStyle     = lipgloss.NewStyle().Faint(true).Italic(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	toggleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("247"))
	helpStyle       = lipgloss.NewStyle().Faint(true)
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Registree"))
	if m.loading > 0 {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteString("\n")
	b.WriteString(m.filter.View())
	b.WriteString("\n\n")

	if m.fatal != nil {
		b.WriteString(errorStyle.Render("Error: " + m.fatal.Error()))
		b.WriteString("\n")
		return b.String()
	}

	rows := m.tree.Visible()
	end := m.offset + m.viewHeight()
	if end > len(rows) {
		end = len(rows)
	}
	start := m.offset
	if start > len(rows) {
		start = len(rows)
	}
	for i := start; i < end; i++ {
		line := renderRow(rows[i])
		if i == m.cursor {
			line = cursorStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter/space toggle · / filter · q quit"))
	b.WriteString("\n")
	return b.String()
}

// viewHeight is the number of tree rows that fit between the header
// and the help line.
func (m Model) viewHeight() int {
	h := m.height - 6
	if h < 1 {
		h = 10
	}
	return h
}

func renderRow(row tree.Row) string {
	indent := strings.Repeat("  ", row.Depth)
	n := row.Node

	var b strings.Builder
	b.WriteString(indent)

	if n.Kind == tree.KindRepository || n.Kind == tree.KindRevision {
		// The control label names the action the toggle performs.
		if n.Expanded {
			b.WriteString(toggleStyle.Render("[hide] "))
		} else {
			b.WriteString(toggleStyle.Render("[show] "))
		}
	}

	switch n.Kind {
	case tree.KindRepository:
		b.WriteString(repositoryStyle.Render(n.Label))
	case tree.KindRevision:
		b.WriteString(digestStyle.Render(n.Label))
		if n.Platform != "" {
			b.WriteString(" " + platformStyle.Render(n.Platform))
		}
		if len(n.Tags) > 0 {
			b.WriteString(" " + tagStyle.Render(strings.Join(n.Tags, " ")))
		}
	case tree.KindBranch:
		b.WriteString(n.Label)
	case tree.KindNotice:
		b.WriteString(noticeStyle.Render(n.Label))
	case tree.KindError:
		b.WriteString(errorStyle.Render(n.Label))
	default:
		b.WriteString(n.Label)
	}
	return b.String()
}
