package cli

import (
	"fmt"
	"path"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/skillindex/pkg/integrations/github"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// =============================================================================
// DirListModel - Interactive package directory selection
// =============================================================================

// DirListModel is the bubbletea model for choosing a package directory.
// The first entry is the base directory itself.
type DirListModel struct {
	Repo     string
	Dirs     []string
	Cursor   int
	Selected *string
	Height   int
	Offset   int
}

// NewDirListModel creates a model listing base and its subdirectories.
func NewDirListModel(repo, base string, items []github.ContentItem) DirListModel {
	m := DirListModel{Repo: repo, Height: 15}
	var dirs []string
	for _, it := range items {
		if it.IsDir() && !strings.HasPrefix(it.Name, ".") {
			dirs = append(dirs, path.Join(base, it.Name))
		}
	}
	if len(dirs) == 0 {
		return m
	}
	m.Dirs = append([]string{base}, dirs...)
	return m
}

func (m DirListModel) Init() tea.Cmd {
	return nil
}

func (m DirListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Dirs)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Dirs) == 0 {
				return m, tea.Quit
			}
			dir := m.Dirs[m.Cursor]
			m.Selected = &dir
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m DirListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select package in " + m.Repo))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ validate  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Dirs))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, displayDir(m.Dirs[i])})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleBorder).
		Headers("", "Directory").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			if m.Offset+row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Dirs))))

	return b.String()
}

func displayDir(dir string) string {
	if dir == "" {
		return "(repository root)"
	}
	return dir
}
