// Terminal dashboard for a running simulator server. Polls the admin
// endpoints and renders active sessions with their telemetry and metrics.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"dronesim/internal/admin"
	"dronesim/internal/metrics"
	"dronesim/internal/session"
)

const pollInterval = 2 * time.Second

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	statsStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
)

type statsPayload struct {
	UptimeSeconds  float64        `json:"uptime_seconds"`
	ActiveSessions int            `json:"active_sessions"`
	Totals         metrics.Totals `json:"totals"`
}

type pollMsg struct {
	sessions []session.Info
	stats    statsPayload
	err      error
}

type tickMsg struct{}

// client fetches the admin endpoints with the shared token.
type client struct {
	base  string
	token string
	http  *http.Client
}

func (c *client) get(path string, v any) error {
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set(admin.TokenHeader, c.token)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *client) poll() tea.Msg {
	var sessions struct {
		Sessions []session.Info `json:"sessions"`
	}
	if err := c.get("/sessions", &sessions); err != nil {
		return pollMsg{err: err}
	}
	var stats statsPayload
	if err := c.get("/stats", &stats); err != nil {
		return pollMsg{err: err}
	}
	return pollMsg{sessions: sessions.Sessions, stats: stats}
}

type model struct {
	client *client
	table  table.Model
	vp     viewport.Model
	events []string
	states map[string]string
	stats  statsPayload
	err    error
	width  int
	height int
}

func newModel(c *client) model {
	cols := []table.Column{
		{Title: "Session", Width: 36},
		{Title: "State", Width: 8},
		{Title: "X", Width: 8},
		{Title: "Y", Width: 8},
		{Title: "Battery", Width: 8},
		{Title: "Sensors", Width: 8},
		{Title: "Iter", Width: 6},
		{Title: "Distance", Width: 10},
		{Title: "Cmds", Width: 6},
	}
	t := table.New(table.WithColumns(cols), table.WithFocused(true))
	return model{
		client: c,
		table:  t,
		vp:     viewport.New(0, 0),
		states: make(map[string]string),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.client.poll, tick())
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.layout()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	case tickMsg:
		return m, tea.Batch(m.client.poll, tick())
	case pollMsg:
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.stats = msg.stats
		m.apply(msg.sessions)
	}
	return m, nil
}

// apply refreshes the table and records lifecycle transitions as events.
func (m *model) apply(sessions []session.Info) {
	seen := make(map[string]bool, len(sessions))
	rows := make([]table.Row, 0, len(sessions))
	for _, s := range sessions {
		seen[s.ID] = true
		if prev, ok := m.states[s.ID]; !ok {
			m.addEvent(fmt.Sprintf("session %s connected", s.ID))
		} else if prev != s.State {
			line := fmt.Sprintf("session %s: %s -> %s", s.ID, prev, s.State)
			if s.CrashReason != "" {
				line += " (" + s.CrashReason + ")"
			}
			m.addEvent(line)
		}
		m.states[s.ID] = s.State

		rows = append(rows, table.Row{
			s.ID,
			s.State,
			fmt.Sprintf("%d", s.Telemetry.XPosition),
			fmt.Sprintf("%d", s.Telemetry.YPosition),
			fmt.Sprintf("%.1f", s.Telemetry.Battery),
			string(s.Telemetry.SensorStatus),
			fmt.Sprintf("%d", s.Metrics.Iterations),
			fmt.Sprintf("%.1f", s.Metrics.TotalDistance),
			fmt.Sprintf("%d", s.Metrics.CommandsSent),
		})
	}
	for id := range m.states {
		if !seen[id] {
			m.addEvent(fmt.Sprintf("session %s removed", id))
			delete(m.states, id)
		}
	}
	m.table.SetRows(rows)
	m.layout()
}

func (m *model) addEvent(line string) {
	stamped := time.Now().Format("15:04:05") + " " + line
	m.events = append(m.events, stamped)
	if len(m.events) > 500 {
		m.events = m.events[len(m.events)-500:]
	}
}

func (m *model) layout() {
	tableHeight := len(m.table.Rows()) + 2
	if max := m.height / 2; m.height > 0 && tableHeight > max {
		tableHeight = max
	}
	m.table.SetHeight(tableHeight)

	vpHeight := m.height - tableHeight - 4
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.vp.Height = vpHeight

	width := m.width
	if width <= 0 {
		width = 80
	}
	content := ""
	for _, e := range m.events {
		content += wordwrap.String(e, width) + "\n"
	}
	m.vp.SetContent(content)
	m.vp.GotoBottom()
}

func (m model) View() string {
	header := titleStyle.Render("Drone Simulator Dashboard")
	stats := statsStyle.Render(fmt.Sprintf(
		"uptime %s | sessions %d | iterations %d | distance %.1f | commands %d",
		(time.Duration(m.stats.UptimeSeconds)*time.Second).String(),
		m.stats.ActiveSessions,
		m.stats.Totals.Iterations,
		m.stats.Totals.TotalDistance,
		m.stats.Totals.CommandsSent,
	))
	if m.err != nil {
		stats = errStyle.Render("poll failed: " + m.err.Error())
	}
	return header + "\n" + stats + "\n" + m.colorize(m.table.View()) + "\n" + m.vp.View()
}

// colorize highlights status cells after the table has rendered.
func (m model) colorize(view string) string {
	for word, style := range map[string]lipgloss.Style{
		"RED":     redStyle,
		"YELLOW":  yellowStyle,
		"GREEN":   greenStyle,
		"CRASHED": redStyle,
	} {
		view = strings.ReplaceAll(view, word, style.Render(word))
	}
	return view
}

func main() {
	adminURL := flag.String("admin", "http://localhost:8766", "Admin endpoint base URL")
	token := flag.String("token", os.Getenv("ADMIN_TOKEN"), "Admin token")
	flag.Parse()

	c := &client{
		base:  *adminURL,
		token: *token,
		http:  &http.Client{Timeout: 5 * time.Second},
	}
	p := tea.NewProgram(newModel(c), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
