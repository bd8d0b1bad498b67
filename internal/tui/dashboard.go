package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/wasp/internal/model"
)

const (
	// DashboardPageID identifies the dashboard page.
	DashboardPageID = "dashboard"

	maxSamples  = 64
	minInterval = 500 * time.Millisecond
	maxInterval = 5 * time.Minute
	chartHeight = 6
)

// TickMsg triggers the next poll.
type TickMsg struct{}

// ResultMsg reports one finished poll.
type ResultMsg struct {
	Latency time.Duration
	Err     error
	Summary *model.RequestSummary
}

type sample struct {
	latency time.Duration
	failed  bool
}

// DashboardModel polls a Source and renders its lifecycle state.
type DashboardModel struct {
	source   Source
	history  model.HistoryReader
	interval time.Duration
	timeout  time.Duration

	keys     KeyMap
	help     help.Model
	spinner  spinner.Model
	viewport viewport.Model

	feed        *stateFeed
	polls       *pollGroup
	unsubscribe func()

	inFlight bool
	paused   bool
	lastErr  error
	samples  []sample
	summary  *model.RequestSummary

	width  int
	height int
}

// DashboardOption configures a DashboardModel.
type DashboardOption func(*DashboardModel)

// WithHistory shows aggregate figures read from h after every poll.
func WithHistory(h model.HistoryReader) DashboardOption {
	return func(m *DashboardModel) {
		m.history = h
	}
}

// WithTimeout bounds each poll. The default is model.DefaultRequestTimeout.
func WithTimeout(d time.Duration) DashboardOption {
	return func(m *DashboardModel) {
		m.timeout = d
	}
}

// NewDashboardModel creates a dashboard polling src every interval.
func NewDashboardModel(src Source, interval time.Duration, opts ...DashboardOption) *DashboardModel {
	if interval <= 0 {
		interval = model.DefaultRefreshInterval
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorBlue)

	m := &DashboardModel{
		source:   src,
		interval: interval,
		timeout:  model.DefaultRequestTimeout,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		spinner:  sp,
		viewport: viewport.New(80, 10),
		feed:     newStateFeed(),
		polls:    newPollGroup(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ID implements Page.
func (m *DashboardModel) ID() string { return DashboardPageID }

// Init implements Page. It subscribes to the source so state changes
// render as soon as they are reduced.
func (m *DashboardModel) Init() tea.Cmd {
	if m.unsubscribe == nil {
		m.unsubscribe = m.source.Subscribe(m.feed.push)
	}
	return tea.Batch(m.spinner.Tick, m.fetch(), m.feed.wait())
}

// Close unsubscribes, cancels any running poll and waits for it to return.
// After Close no poll starts, so the client behind the source can be
// waited on safely.
func (m *DashboardModel) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.feed.close()
	m.polls.close()
}

// Update implements Page.
func (m *DashboardModel) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return nil, nil

	case tea.KeyMsg:
		return m.handleKey(msg), nil

	case TickMsg:
		if m.paused {
			return nil, nil
		}
		return m.fetch(), nil

	case StateMsg:
		if msg.State == nil {
			return nil, nil
		}
		m.refreshViewport()
		return m.feed.wait(), nil

	case ResultMsg:
		m.inFlight = false
		m.lastErr = msg.Err
		m.record(sample{latency: msg.Latency, failed: msg.Err != nil || m.stateFailed()})
		if msg.Summary != nil {
			m.summary = msg.Summary
		}
		m.refreshViewport()
		return m.scheduleTick(), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return cmd, nil
}

func (m *DashboardModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.ForceQuit):
		return tea.Quit
	case key.Matches(msg, m.keys.Refresh):
		return m.fetch()
	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused
		if !m.paused {
			return m.fetch()
		}
	case key.Matches(msg, m.keys.Clear):
		m.source.Clear()
		m.lastErr = nil
		m.refreshViewport()
	case key.Matches(msg, m.keys.IntervalUp):
		m.interval = min(m.interval*2, maxInterval)
	case key.Matches(msg, m.keys.IntervalDown):
		m.interval = max(m.interval/2, minInterval)
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

// fetch starts a poll unless one is already running.
func (m *DashboardModel) fetch() tea.Cmd {
	if m.inFlight {
		return nil
	}
	m.inFlight = true

	src, hist, timeout, polls := m.source, m.history, m.timeout, m.polls
	return func() tea.Msg {
		if !polls.begin() {
			return nil
		}
		defer polls.end()

		ctx, cancel := context.WithTimeout(polls.ctx, timeout)
		defer cancel()

		start := time.Now()
		err := src.Fetch(ctx)
		res := ResultMsg{Latency: time.Since(start), Err: err}

		if hist != nil {
			if sum, serr := hist.Summary(ctx); serr == nil {
				res.Summary = &sum
			}
		}
		return res
	}
}

func (m *DashboardModel) scheduleTick() tea.Cmd {
	if m.paused {
		return nil
	}
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return TickMsg{} })
}

func (m *DashboardModel) record(s sample) {
	m.samples = append(m.samples, s)
	if len(m.samples) > maxSamples {
		m.samples = m.samples[len(m.samples)-maxSamples:]
	}
}

func (m *DashboardModel) stateFailed() bool {
	st := m.source.State()
	return st != nil && st.DidError != nil && *st.DidError
}

func (m *DashboardModel) resize() {
	w := max(m.width-4, 20)
	h := max(m.height-chartHeight-12, 3)
	m.viewport.Width = w
	m.viewport.Height = h
	m.help.Width = m.width
	m.refreshViewport()
}

func (m *DashboardModel) refreshViewport() {
	m.viewport.SetContent(renderData(m.source.State()))
}

func renderData(st *model.State) string {
	if st == nil || st.Data == nil {
		return labelStyle.Render("no data")
	}
	out, err := json.MarshalIndent(st.Data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", st.Data)
	}
	return string(out)
}

// View implements Page.
func (m *DashboardModel) View(width, height int) string {
	if width > 0 && (width != m.width || height != m.height) {
		m.width, m.height = width, height
		m.resize()
	}

	sections := []string{
		m.renderHeader(),
		m.renderStatus(),
		panelStyle.Render(m.viewport.View()),
		m.renderLatency(),
		m.help.View(m.keys),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *DashboardModel) renderHeader() string {
	mode := fmt.Sprintf("every %s", m.interval)
	if m.paused {
		mode = "paused"
	}
	return titleStyle.Render("wasp") + "  " +
		valueStyle.Render(m.source.Label()) + "  " +
		labelStyle.Render(mode)
}

func (m *DashboardModel) renderStatus() string {
	st := m.source.State()
	if st == nil {
		st = model.InitialState()
	}

	var parts []string
	if st.IsFetching || m.inFlight {
		parts = append(parts, m.spinner.View()+" fetching")
	} else {
		parts = append(parts, labelStyle.Render("idle"))
	}

	didError := st.DidError != nil && *st.DidError
	if st.Status != nil {
		parts = append(parts, labelStyle.Render("status ")+statusStyle(*st.Status, didError).Render(fmt.Sprint(*st.Status)))
	}
	if st.LastUpdated != nil {
		ts := time.UnixMilli(*st.LastUpdated).Format("15:04:05")
		parts = append(parts, labelStyle.Render("updated ")+valueStyle.Render(ts))
	}
	if m.summary != nil {
		parts = append(parts, labelStyle.Render(fmt.Sprintf("history %d req, %d err, avg %.0fms",
			m.summary.Total, m.summary.Errors, m.summary.AvgMs)))
	}

	line := strings.Join(parts, "  ")
	if msg := st.ErrorMessage(); msg != "" {
		line += "\n" + errorStyle.Render("error: "+msg)
	} else if m.lastErr != nil {
		line += "\n" + errorStyle.Render("error: "+m.lastErr.Error())
	}
	return line
}

func (m *DashboardModel) renderLatency() string {
	width := max(m.width-4, 20)
	return panelStyle.Render(renderLatencyChart(m.samples, width, chartHeight))
}

// renderLatencyChart draws one bar per sample, newest on the right, padded
// with empty bars on the left.
func renderLatencyChart(samples []sample, width, height int) string {
	maxBars := max(width/2, 1)

	bc := barchart.New(width, height,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(1),
		barchart.WithNoAxis(),
	)

	okStyle := lipgloss.NewStyle().Foreground(ColorGreen).Background(ColorGreen)
	failStyle := lipgloss.NewStyle().Foreground(ColorRed).Background(ColorRed)
	emptyStyle := lipgloss.NewStyle().Foreground(ColorBorder).Background(ColorBorder)

	start := max(len(samples)-maxBars, 0)
	visible := samples[start:]
	for i := 0; i < maxBars-len(visible); i++ {
		bc.Push(barchart.BarData{
			Values: []barchart.BarValue{{Name: "EMPTY", Value: 0, Style: emptyStyle}},
		})
	}

	var peak time.Duration
	for _, s := range visible {
		style := okStyle
		if s.failed {
			style = failStyle
		}
		peak = max(peak, s.latency)
		bc.Push(barchart.BarData{
			Values: []barchart.BarValue{{
				Name:  "latency",
				Value: float64(s.latency.Milliseconds()),
				Style: style,
			}},
		})
	}

	bc.Draw()

	legend := labelStyle.Render("latency")
	if len(visible) > 0 {
		last := visible[len(visible)-1].latency
		legend = labelStyle.Render(fmt.Sprintf("latency  last %s  peak %s",
			last.Round(time.Millisecond), peak.Round(time.Millisecond)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, bc.View(), legend)
}
