package channel

import (
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const (
	colorBlue   = lipgloss.Color("12")
	colorGreen  = lipgloss.Color("10")
	colorYellow = lipgloss.Color("11")
	colorRed    = lipgloss.Color("9")
	colorCyan   = lipgloss.Color("14")
	colorDim    = lipgloss.Color("8")
)

// styles holds the lipgloss styles bound to the shell's output writer.
type styles struct {
	r        *lipgloss.Renderer
	info     lipgloss.Style
	notice   lipgloss.Style
	success  lipgloss.Style
	err      lipgloss.Style
	tool     lipgloss.Style
	dim      lipgloss.Style
	prompt   lipgloss.Style
	bold     lipgloss.Style
	markdown *glamour.TermRenderer
}

func newStyles(out io.Writer, color bool) *styles {
	r := lipgloss.NewRenderer(out)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	return &styles{
		r:       r,
		info:    r.NewStyle().Foreground(colorBlue).Bold(true),
		notice:  r.NewStyle().Foreground(colorYellow).Bold(true),
		success: r.NewStyle().Foreground(colorGreen),
		err:     r.NewStyle().Foreground(colorRed),
		tool:    r.NewStyle().Foreground(colorCyan),
		dim:     r.NewStyle().Foreground(colorDim),
		prompt:  r.NewStyle().Foreground(colorGreen).Bold(true),
		bold:    r.NewStyle().Bold(true),
	}
}

// enableMarkdown turns on glamour rendering of final answers. Failures leave
// answers as plain text.
func (s *styles) enableMarkdown(wordWrap int) error {
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return err
	}
	s.markdown = md
	return nil
}

// panel renders body in a rounded box with title on the top line.
func (s *styles) panel(title, body string, border lipgloss.Color) string {
	heading := s.r.NewStyle().Foreground(border).Bold(true).Render(title)
	box := s.r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
	return box.Render(heading + "\n\n" + strings.TrimRight(body, "\n"))
}

func (s *styles) answer(text string) string {
	if s.markdown == nil {
		return text
	}
	rendered, err := s.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(rendered, "\n")
}
