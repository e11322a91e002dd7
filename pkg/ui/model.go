package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"litedb/pkg/database"
)

type keyMap struct {
	Execute key.Binding
	Clear   key.Binding
	Help    key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Execute: key.NewBinding(
		key.WithKeys("ctrl+e"),
		key.WithHelp("ctrl+e", "execute statement"),
	),
	Clear: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "clear editor"),
	),
	Help: key.NewBinding(
		key.WithKeys("ctrl+h"),
		key.WithHelp("ctrl+h", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "ctrl+d"),
		key.WithHelp("ctrl+c", "quit"),
	),
}

// resultMsg carries the outcome of one statement back into Update.
type resultMsg struct {
	input    string
	result   *database.ResultSet
	text     string
	err      error
	duration time.Duration
}

// openedMsg carries a freshly opened database into Update, which owns
// the model swap.
type openedMsg struct {
	db   *database.Database
	path string
	err  error
}

// Model is the REPL's Bubble Tea state.
type Model struct {
	db *database.Database

	editor     textarea.Model
	resultView viewport.Model
	help       help.Model

	width, height int
	showHelp      bool
	lastErr       error
	lastText      string
	lastDuration  time.Duration
	history       []string

	keys keyMap
}

// NewModel builds the REPL model around an open database.
func NewModel(db *database.Database) Model {
	ta := textarea.New()
	ta.Placeholder = "Enter a SQL statement or a .command (.schema, .explain, .quit)"
	ta.ShowLineNumbers = false
	ta.SetHeight(4)
	ta.Focus()
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(textMuted)
	ta.FocusedStyle.Text = lipgloss.NewStyle().Foreground(textPrimary)

	vp := viewport.New(80, 12)
	vp.Style = resultStyle

	return Model{
		db:         db,
		editor:     ta,
		resultView: vp,
		help:       help.New(),
		keys:       keys,
	}
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.editor.SetWidth(msg.Width - 6)
		m.resultView.Width = msg.Width - 6
		m.resultView.Height = msg.Height - m.editor.Height() - 8

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Execute):
			input := strings.TrimSpace(m.editor.Value())
			if input != "" {
				return m, m.execute(input)
			}

		case key.Matches(msg, m.keys.Clear):
			m.editor.SetValue("")
			m.lastErr = nil
			m.lastText = ""

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
		}

	case resultMsg:
		m.lastErr = msg.err
		m.lastDuration = msg.duration
		if msg.err == nil {
			m.history = append(m.history, msg.input)
			m.editor.SetValue("")
			m.renderResult(msg)
		}
		if msg.input == ".quit" || msg.input == ".exit" {
			return m, tea.Quit
		}

	case openedMsg:
		m.lastErr = msg.err
		if msg.err == nil {
			m.db.Close()
			m.db = msg.db
			m.editor.SetValue("")
			m.lastText = "opened " + msg.path
			m.resultView.SetContent(m.lastText)
		}
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	cmds = append(cmds, cmd)
	m.resultView, cmd = m.resultView.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// execute runs one statement or meta-command against the database.
func (m Model) execute(input string) tea.Cmd {
	return func() tea.Msg {
		if path, ok := strings.CutPrefix(input, ".open "); ok {
			db, err := database.Open(strings.TrimSpace(path), false)
			return openedMsg{db: db, path: strings.TrimSpace(path), err: err}
		}

		start := time.Now()
		msg := resultMsg{input: input}

		if strings.HasPrefix(input, ".") {
			msg.text, msg.err = m.runMetaCommand(input)
		} else {
			msg.result, msg.err = m.db.Run(input)
		}

		msg.duration = time.Since(start)
		return msg
	}
}

// runMetaCommand handles the dot commands the REPL offers alongside
// SQL.
func (m Model) runMetaCommand(input string) (string, error) {
	cmd, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case ".quit", ".exit":
		return "bye", nil
	case ".schema":
		return m.db.SchemaJSON()
	case ".explain":
		if rest == "" {
			return "", fmt.Errorf("usage: .explain <select statement>")
		}
		return m.db.Explain(rest)
	case ".tables":
		var names []string
		for _, dbName := range []string{"main", "temp"} {
			tables, err := m.db.Tables(dbName)
			if err != nil {
				return "", err
			}
			for _, t := range tables {
				names = append(names, dbName+"."+t.Name)
			}
		}
		return strings.Join(names, "\n"), nil
	case ".stats":
		s := m.db.Stats()
		return fmt.Sprintf("queries: %d\nrows read: %d\nrows written: %d\nerrors: %d",
			s.QueriesExecuted, s.RowsRead, s.RowsWritten, s.ErrorCount), nil
	default:
		return "", fmt.Errorf("unknown command %s", cmd)
	}
}

// renderResult fills the result pane from a successful execution.
func (m *Model) renderResult(msg resultMsg) {
	if msg.text != "" {
		m.lastText = msg.text
		m.resultView.SetContent(m.lastText)
		return
	}

	rs := msg.result
	if rs == nil {
		return
	}

	switch {
	case rs.Desc != nil:
		m.lastText = renderRows(rs)
	case rs.Message != "":
		m.lastText = rs.Message
	default:
		m.lastText = fmt.Sprintf("%d row(s) written", rs.RowsAffected)
	}
	m.resultView.SetContent(m.lastText)
}

// renderRows lays the result out as an aligned text table.
func renderRows(rs *database.ResultSet) string {
	columns := rs.Columns()
	rows := rs.StringRows()

	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len(c)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", widths[i]-len(cell)))
		}
		b.WriteString("\n")
	}

	writeRow(columns)
	for i, w := range widths {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(strings.Repeat("─", w))
	}
	b.WriteString("\n")
	for _, row := range rows {
		writeRow(row)
	}
	fmt.Fprintf(&b, "\n%d row(s)", len(rows))
	return b.String()
}

func (m Model) View() string {
	var sections []string

	title := titleStyle.Render("litedb")
	badge := badgeStyle.Render(m.dbLabel())
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Left, title, "  ", badge))

	sections = append(sections, m.editor.View())

	switch {
	case m.lastErr != nil:
		sections = append(sections, errorStyle.Render("error: "+m.lastErr.Error()))
	case m.lastText != "":
		sections = append(sections, m.resultView.View())
	}

	status := "ctrl+e run · ctrl+l clear · ctrl+h help · ctrl+c quit"
	if m.lastDuration > 0 {
		status += fmt.Sprintf(" · last: %s", m.lastDuration.Round(time.Microsecond))
	}
	sections = append(sections, statusStyle.Render(status))

	if m.showHelp {
		sections = append(sections, m.help.FullHelpView([][]key.Binding{
			{m.keys.Execute, m.keys.Clear, m.keys.Help, m.keys.Quit},
		}))
	}

	return appStyle.Render(strings.Join(sections, "\n\n"))
}

func (m Model) dbLabel() string {
	if m.db.Path() == "" {
		return "in-memory"
	}
	return m.db.Path()
}
