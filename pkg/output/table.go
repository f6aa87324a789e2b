package output

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// ToolSummary describes one registered tool for the tools table.
type ToolSummary struct {
	Name        string
	ReadOnly    bool
	Destructive bool
	Description string
}

// SessionSummary describes one active MCP session for the sessions table.
type SessionSummary struct {
	ID        string
	Transport string // stdio, http
	State     string // the initialization state machine's phase name
	OrgAlias  string
}

// LogEntry describes one recently-retrieved Apex debug log entry.
type LogEntry struct {
	ID        string
	Operation string
	Status    string
	SizeBytes int
}

// Tools prints the registered tool table.
func (p *Printer) Tools(tools []ToolSummary) {
	if len(tools) == 0 {
		return
	}

	p.Section("TOOLS")

	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(p.tableStyle())

	t.AppendHeader(table.Row{"Name", "Read Only", "Destructive", "Description"})
	if descWidth := p.width - 50; descWidth > 20 {
		t.SetColumnConfigs([]table.ColumnConfig{
			{Name: "Description", WidthMax: descWidth, WidthMaxEnforcer: text.WrapSoft},
		})
	}

	for _, tool := range tools {
		readOnly := "no"
		if tool.ReadOnly {
			readOnly = "yes"
		}
		destructive := "no"
		if tool.Destructive {
			destructive = "yes"
			if p.isTTY {
				destructive = lipgloss.NewStyle().Foreground(ColorRed).Render(destructive)
			}
		}
		t.AppendRow(table.Row{tool.Name, readOnly, destructive, tool.Description})
	}

	t.Render()
	p.Println()
}

// Sessions prints the active-session table.
func (p *Printer) Sessions(sessions []SessionSummary) {
	if len(sessions) == 0 {
		return
	}

	p.Section("SESSIONS")

	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(p.tableStyle())

	t.AppendHeader(table.Row{"ID", "Transport", "State", "Org"})

	for _, s := range sessions {
		state := s.State
		if p.isTTY {
			state = colorState(s.State)
		}
		t.AppendRow(table.Row{s.ID, s.Transport, state, s.OrgAlias})
	}

	t.Render()
	p.Println()
}

// RecentLogs prints the recently-retrieved Apex debug log table.
func (p *Printer) RecentLogs(logs []LogEntry) {
	if len(logs) == 0 {
		return
	}

	p.Section("RECENT APEX LOGS")

	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(p.tableStyle())

	t.AppendHeader(table.Row{"ID", "Operation", "Status", "Size"})

	for _, l := range logs {
		status := l.Status
		if p.isTTY {
			status = colorState(l.Status)
		}
		t.AppendRow(table.Row{l.ID, l.Operation, status, l.SizeBytes})
	}

	t.Render()
	p.Println()
}

// colorState applies color based on the initialization state machine's
// phase, or a generic ready/failed status.
func colorState(state string) string {
	var style lipgloss.Style
	switch state {
	case "Ready", "Success", "ready", "success":
		style = lipgloss.NewStyle().Foreground(ColorGreen)
	case "Failed", "failed", "error", "Error":
		style = lipgloss.NewStyle().Foreground(ColorRed)
	case "Created", "AwaitingInitialize", "ClientBound", "WorkspaceResolved", "OrgIdentified", "PermissionsValidated":
		style = lipgloss.NewStyle().Foreground(ColorBlue)
	default:
		style = lipgloss.NewStyle().Foreground(ColorGray)
	}
	return style.Render(state)
}

// tableStyle returns the standard Salesforce-blue table style.
func (p *Printer) tableStyle() table.Style {
	style := table.StyleRounded
	if p.isTTY {
		style.Color.Header = text.Colors{text.FgHiBlue, text.Bold}
		style.Color.Border = text.Colors{text.FgHiBlack}
	}
	style.Options.SeparateRows = false
	return style
}

// Section prints a section header.
func (p *Printer) Section(title string) {
	if p.isTTY {
		style := lipgloss.NewStyle().Foreground(ColorBlue).Bold(true)
		p.Println(style.Render(title))
	} else {
		p.Println(title)
	}
}
