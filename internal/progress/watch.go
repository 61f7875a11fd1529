package progress

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/losslessforge/transcoder/internal/queue"
)

var (
	watchTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).MarginBottom(1)
	watchHelpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	watchStatusStyles = map[queue.Status]lipgloss.Style{
		queue.StatusPending:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		queue.StatusRunning:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		queue.StatusCompleted: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		queue.StatusFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

const watchPollInterval = 2 * time.Second

// WatchModel is a live Bubble Tea view over a queue's item list,
// polling the database on an interval and rendering statuses.
type WatchModel struct {
	db    *queue.DB
	items []queue.Item
	err   error
}

// NewWatchModel returns a WatchModel reading from db.
func NewWatchModel(db *queue.DB) *WatchModel {
	return &WatchModel{db: db}
}

type watchTickMsg struct{}

type watchItemsMsg struct {
	items []queue.Item
	err   error
}

func (m *WatchModel) Init() tea.Cmd {
	return m.load
}

func (m *WatchModel) load() tea.Msg {
	items, err := m.db.List(context.Background(), "")
	return watchItemsMsg{items: items, err: err}
}

func watchTick() tea.Cmd {
	return tea.Tick(watchPollInterval, func(time.Time) tea.Msg { return watchTickMsg{} })
}

func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case watchItemsMsg:
		m.items = msg.items
		m.err = msg.err
		return m, watchTick()
	case watchTickMsg:
		return m, m.load
	}
	return m, nil
}

func (m *WatchModel) View() string {
	var b strings.Builder
	b.WriteString(watchTitleStyle.Render("Queue"))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(fmt.Sprintf("error loading queue: %v\n", m.err))
		return b.String()
	}

	if len(m.items) == 0 {
		b.WriteString("queue is empty\n")
	}

	for _, item := range m.items {
		style, ok := watchStatusStyles[item.Status]
		if !ok {
			style = lipgloss.NewStyle()
		}
		b.WriteString(fmt.Sprintf("  %-4d %s  %s\n", item.ID, style.Render(string(item.Status)), item.ContentDir))
		if item.Status == queue.StatusFailed && item.ErrorMessage != "" {
			b.WriteString(fmt.Sprintf("         %s\n", watchHelpStyle.Render(item.ErrorMessage)))
		}
	}

	b.WriteString("\n")
	b.WriteString(watchHelpStyle.Render("[q] Quit"))
	return b.String()
}

// Run starts the live queue-watch program, blocking until the user quits.
func Run(db *queue.DB) error {
	_, err := tea.NewProgram(NewWatchModel(db)).Run()
	return err
}
