// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/tuikoch/internal/model"
	"github.com/verte-zerg/tuikoch/internal/morse"
	"github.com/verte-zerg/tuikoch/internal/stats"
)

const (
	tabOverview = iota
	tabCharTable
	tabCharCurves
)

const (
	plotHeight  = 10
	curveGlyphs = 5
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	modalStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// Model implements the Bubble Tea stats UI.
type Model struct {
	source stats.RoundSource
	cfg    model.StatsConfig
	now    func() time.Time

	report     stats.Report
	errMsg     string
	charErrMsg string

	tabs       []string
	activeTab  int
	viewports  []viewport.Model
	charTable  table.Model
	charLayout tableLayout

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string

	charSelection       []string
	charSelectionCustom bool
	charPerRound        map[int64]map[string]model.CharAggregate

	charInputMode bool
	charInput     textinput.Model
}

type tableLayout struct {
	width    int
	height   int
	rowCount int
	colCount int
}

// NewModel constructs a stats UI model. chars preselects the glyphs shown
// on the curves tab; empty picks the most practiced ones.
func NewModel(source stats.RoundSource, cfg model.StatsConfig, chars string) *Model {
	m := &Model{
		source: source,
		cfg:    cfg,
		now:    time.Now,
		tabs:   []string{"Overview", "Glyphs", "Glyph Curves"},
	}
	m.charSelection = parseGlyphs(chars)
	if len(m.charSelection) > 0 {
		m.charSelectionCustom = true
	}
	m.initInputs()
	m.initCharInput()
	m.charTable = newCharTable()
	m.initViewports()
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (!m.filterMode && !m.charInputMode && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		if m.charInputMode {
			return m.updateCharInput(msg)
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
			m.refreshReport()
			m.updateLayout()
			return m, nil
		case "-":
			m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
			m.refreshReport()
			m.updateLayout()
			return m, nil
		case "/":
			return m.startFilter()
		case "enter":
			if m.activeTab == tabCharCurves {
				return m.startCharInput()
			}
			return m, nil
		case "g", "home":
			if m.activeTab == tabCharTable {
				m.charTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabCharTable {
				m.charTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabCharTable {
				var cmd tea.Cmd
				m.charTable, cmd = m.charTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.charInputMode {
		return fitLines(m.renderCharModal(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Mode (single/head/live): "),
		newFilterInput("Since (YYYY-MM-DD): "),
		newFilterInput("Last rounds: "),
		newFilterInput("Curve window: "),
	}
	m.setInputsFromConfig()
}

func (m *Model) initCharInput() {
	m.charInput = newFilterInput("Glyphs: ")
	m.charInput.Placeholder = "KMUR"
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) setInputsFromConfig() {
	if len(m.filterInputs) == 0 {
		return
	}
	m.filterInputs[0].SetValue(string(m.cfg.Mode))
	if m.cfg.Since != nil {
		m.filterInputs[1].SetValue(m.cfg.Since.Format("2006-01-02"))
	} else {
		m.filterInputs[1].SetValue("")
	}
	if m.cfg.Last > 0 {
		m.filterInputs[2].SetValue(strconv.Itoa(m.cfg.Last))
	} else {
		m.filterInputs[2].SetValue("")
	}
	m.filterInputs[3].SetValue(strconv.Itoa(m.cfg.CurveWindow))
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.setCharTableSize(m.width, vpHeight)
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = maxInt(10, m.width-promptWidth-2)
	}
	promptWidth := lipgloss.Width(m.charInput.Prompt)
	m.charInput.Width = maxInt(10, modalInnerWidth(m.width)-promptWidth)
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	m.activeTab = (m.activeTab + delta + count) % count
	if m.activeTab == tabCharTable {
		m.charTable.Focus()
	} else {
		m.charTable.Blur()
	}
}

func (m *Model) renderHeader() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	tabs := padLines(lipgloss.JoinHorizontal(lipgloss.Top, parts...), m.width)
	filters := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + filters
}

func (m *Model) renderFilterSummary() string {
	mode := string(m.cfg.Mode)
	if mode == "" {
		mode = "any"
	}
	since := "any"
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format("2006-01-02")
	}
	last := "all"
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	summary := fmt.Sprintf("Filters: mode=%s  since=%s  last=%s  window=%d", mode, since, last, m.cfg.CurveWindow)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := "Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Filters: /  Quit: q"
	if m.activeTab == tabCharCurves {
		help = "Nav: left/right  Scroll: up/down/pgup/pgdn  Edit glyphs: enter  Window: -/=  Filters: /  Quit: q"
	}
	help = headerStyle.Render(help)
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		lines := []string{"Filters (enter to apply, esc to cancel)"}
		for _, input := range m.filterInputs {
			lines = append(lines, input.View())
		}
		if m.filterError != "" {
			lines = append(lines, errorStyle.Render(m.filterError))
		}
		return fitLines(strings.Join(lines, "\n"), m.width, height)
	}
	if m.activeTab == tabCharTable {
		switch {
		case len(m.report.Rounds) == 0:
			return fitLines("No rounds found.", m.width, height)
		case len(m.report.CharAggsAll) == 0:
			return fitLines("No character stats found.", m.width, height)
		default:
			return fitLines(tableMutedStyle.Render(m.charTable.View()), m.width, height)
		}
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.source, m.cfg, curveGlyphs)
	if err != nil {
		m.errMsg = err.Error()
		m.charErrMsg = ""
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	m.errMsg = ""
	m.report = report
	if !m.charSelectionCustom {
		m.charSelection = report.CurveChars
		m.charPerRound = report.PerRound
		m.charErrMsg = ""
	} else {
		m.loadCharPerRound()
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.applyCharTable(m.contentWidth(), bodyHeight)
	m.renderTabContents()
}

func (m *Model) contentWidth() int {
	if m.width <= 0 {
		return 80
	}
	return m.width
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	if m.errMsg != "" {
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	width := m.contentWidth()
	m.viewports[tabOverview].SetContent(renderOverview(m.report.Rounds, m.cfg.CurveWindow, width, m.now()))
	m.viewports[tabCharCurves].SetContent(renderCharCurves(m.report.Rounds, m.charSelection, m.charPerRound, m.cfg.CurveWindow, width, m.charErrMsg))
}

func renderOverview(rounds []model.RoundAggregate, window, width int, now time.Time) string {
	if len(rounds) == 0 {
		return "No rounds found."
	}
	summary := renderSummaryCards(rounds, width, now)
	var buf bytes.Buffer
	if err := stats.RenderCurvesWithSize(&buf, rounds, window, width, plotHeight, true); err != nil {
		return summary + "\n\n" + fmt.Sprintf("Failed to render curves: %v", err)
	}
	return strings.TrimRight(summary+"\n\n"+buf.String(), "\n")
}

func renderSummaryCards(rounds []model.RoundAggregate, width int, now time.Time) string {
	sum := stats.Summarize(rounds)
	last := rounds[len(rounds)-1].EndedAt
	cards := []string{
		metricCard("Rounds", humanize.Comma(int64(sum.Rounds))),
		metricCard("Attempts", humanize.Comma(int64(sum.Attempts))),
		metricCard("Last practice", humanize.RelTime(last, now, "ago", "from now")),
		metricCard("Avg Acc", fmt.Sprintf("%.1f%%", sum.AvgAccuracy)),
		metricCard("Best Acc", fmt.Sprintf("%.1f%%", sum.BestAccuracy)),
		metricCard("Avg Edit Dist", fmt.Sprintf("%.2f", sum.AvgEditDistance)),
		metricCard("Unlocked", fmt.Sprintf("%d/%d", sum.UnlockedCount, morse.CharacterCount)),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3:]...)
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func newCharTable() table.Model {
	cols, rows := buildCharTableData(nil, nil)
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(1),
	)
	t.SetStyles(charTableStyles())
	return t
}

func (m *Model) applyCharTable(width, height int) {
	cols, rows := buildCharTableData(m.report.Rounds, m.report.CharAggsAll)
	m.charTable.SetColumns(cols)
	m.charTable.SetRows(rows)
	m.charLayout.rowCount = len(rows)
	m.charLayout.colCount = len(cols)
	m.charLayout.width = 0
	m.setCharTableSize(width, height)
}

func (m *Model) setCharTableSize(width, height int) {
	viewportHeight := maxInt(1, height-1)
	if m.charLayout.width == width && m.charLayout.height == viewportHeight {
		return
	}
	m.charLayout.width = width
	m.charLayout.height = viewportHeight
	m.charTable.SetWidth(width)
	m.charTable.SetHeight(viewportHeight)
	viewportHeight = m.adjustCharTableHeight(height)
	if m.charLayout.height != viewportHeight {
		m.charLayout.height = viewportHeight
		m.charTable.SetHeight(viewportHeight)
	}
}

func charTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) adjustCharTableHeight(bodyHeight int) int {
	target := maxInt(1, bodyHeight)
	height := m.charTable.Height()
	for i := 0; i < 2; i++ {
		viewHeight := lipgloss.Height(m.charTable.View())
		if viewHeight == target {
			return height
		}
		height = maxInt(1, height+target-viewHeight)
		m.charTable.SetHeight(height)
	}
	return height
}

// buildCharTableData lists glyphs by how often they were sent, most first.
func buildCharTableData(rounds []model.RoundAggregate, aggs []model.CharAggregate) ([]table.Column, []table.Row) {
	columns := []table.Column{
		{Title: "Glyph", Width: 5},
		{Title: "Code", Width: 8},
		{Title: "Accuracy", Width: 9},
		{Title: "Correct", Width: 7},
		{Title: "Incorrect", Width: 9},
		{Title: "Total", Width: 7},
	}
	rows := make([]table.Row, 0, len(aggs))
	if len(rounds) == 0 || len(aggs) == 0 {
		return columns, rows
	}
	for _, agg := range sortCharAggsByTotal(aggs) {
		total := agg.Correct + agg.Incorrect
		acc := stats.RoundAccuracy(agg.Correct, agg.Incorrect)
		pattern := ""
		if r := []rune(agg.Char); len(r) > 0 {
			if ch, ok := morse.Lookup(r[0]); ok {
				pattern = ch.Pattern()
			}
		}
		rows = append(rows, table.Row{
			agg.Char,
			pattern,
			fmt.Sprintf("%.2f%%", acc),
			humanize.Comma(int64(agg.Correct)),
			humanize.Comma(int64(agg.Incorrect)),
			humanize.Comma(int64(total)),
		})
	}
	return columns, rows
}

func renderCharCurves(rounds []model.RoundAggregate, chars []string, perRound map[int64]map[string]model.CharAggregate, window, width int, errMsg string) string {
	if len(rounds) == 0 {
		return "No rounds found."
	}
	if errMsg != "" {
		return fmt.Sprintf("Failed to load glyph curves: %s", errMsg)
	}
	if len(chars) == 0 {
		return "No glyphs selected. Press Enter to pick glyphs."
	}
	header := headerStyle.Render(fmt.Sprintf("Glyphs: %s", strings.Join(chars, ", ")))
	var buf bytes.Buffer
	if err := stats.RenderCharCurvesWithSize(&buf, rounds, perRound, chars, window, width, plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render glyph curves: %v", err)
	}
	return strings.TrimRight(header+"\n"+buf.String(), "\n")
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromConfig()
	return m, m.setFilterIndex(0)
}

func (m *Model) startCharInput() (tea.Model, tea.Cmd) {
	m.charInputMode = true
	m.charInput.SetValue(strings.Join(m.charSelection, ""))
	return m, m.charInput.Focus()
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		cfg, err := parseFilter(m.filterInputs)
		if err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.cfg = cfg
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) updateCharInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.charInputMode = false
		return m, nil
	case tea.KeyEnter:
		m.applyCharInput()
		m.charInputMode = false
		m.renderTabContents()
		return m, nil
	}
	var cmd tea.Cmd
	m.charInput, cmd = m.charInput.Update(msg)
	normalized := strings.Join(parseGlyphs(m.charInput.Value()), "")
	if normalized != m.charInput.Value() {
		m.charInput.SetValue(normalized)
	}
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if count == 0 {
		return nil
	}
	m.filterIndex = (idx + count) % count
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func parseFilter(inputs []textinput.Model) (model.StatsConfig, error) {
	var cfg model.StatsConfig
	mode := model.Mode(strings.ToLower(strings.TrimSpace(inputs[0].Value())))
	switch mode {
	case "", model.ModeSingle, model.ModeHeadCopy, model.ModeLiveCopy:
		cfg.Mode = mode
	default:
		return cfg, fmt.Errorf("invalid mode (use single, head or live)")
	}

	if sinceInput := strings.TrimSpace(inputs[1].Value()); sinceInput != "" {
		parsed, err := time.ParseInLocation("2006-01-02", sinceInput, time.Local)
		if err != nil {
			return cfg, fmt.Errorf("invalid since date (expected YYYY-MM-DD)")
		}
		cfg.Since = &parsed
	}

	if lastInput := strings.TrimSpace(inputs[2].Value()); lastInput != "" {
		parsed, err := strconv.Atoi(lastInput)
		if err != nil || parsed < 0 {
			return cfg, fmt.Errorf("invalid last value (use 0 or positive integer)")
		}
		cfg.Last = parsed
	}

	if windowInput := strings.TrimSpace(inputs[3].Value()); windowInput != "" {
		parsed, err := strconv.Atoi(windowInput)
		if err != nil {
			return cfg, fmt.Errorf("invalid curve window (use integer)")
		}
		if parsed < 1 {
			return cfg, fmt.Errorf("invalid curve window (use integer >= 1)")
		}
		cfg.CurveWindow = parsed
	}
	return cfg, nil
}

func (m *Model) applyCharInput() {
	chars := parseGlyphs(m.charInput.Value())
	if len(chars) == 0 {
		m.charSelectionCustom = false
		m.charSelection = m.report.CurveChars
		m.charPerRound = m.report.PerRound
		m.charErrMsg = ""
		return
	}
	m.charSelectionCustom = true
	m.charSelection = chars
	m.loadCharPerRound()
}

func (m *Model) renderCharModal() string {
	body := []string{
		cardValueStyle.Render("Select Glyphs"),
		m.charInput.View(),
		headerStyle.Render("Letters, digits and . , / ? only. Spaces are ignored."),
		headerStyle.Render("Enter to apply / Esc to cancel"),
	}
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) loadCharPerRound() {
	m.charErrMsg = ""
	m.charPerRound = nil
	if len(m.report.Rounds) == 0 || len(m.charSelection) == 0 {
		return
	}
	ids := make([]int64, len(m.report.Rounds))
	for i, r := range m.report.Rounds {
		ids[i] = r.RoundID
	}
	perRound, err := m.source.ListCharStatsForRounds(context.Background(), ids, m.charSelection)
	if err != nil {
		m.charErrMsg = err.Error()
		return
	}
	m.charPerRound = perRound
}

// parseGlyphs keeps Morse glyphs from free text, upper-cased and
// de-duplicated in input order.
func parseGlyphs(input string) []string {
	seen := map[rune]bool{}
	var out []string
	for _, r := range input {
		if r == ',' || unicode.IsSpace(r) {
			continue
		}
		if _, ok := morse.Lookup(r); !ok {
			continue
		}
		r = morse.Normalize(r)
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, string(r))
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	if n%5 == 0 {
		return n + 5
	}
	return ((n / 5) + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func modalWidth(width int) int {
	return maxInt(40, minInt(width-4, 80))
}

func modalInnerWidth(width int) int {
	w := modalWidth(width)
	w -= 6 // 2 border + 4 padding
	if w < 10 {
		return 10
	}
	return w
}

func sortCharAggsByTotal(aggs []model.CharAggregate) []model.CharAggregate {
	out := append([]model.CharAggregate(nil), aggs...)
	sort.Slice(out, func(i, j int) bool {
		totalI := out[i].Correct + out[i].Incorrect
		totalJ := out[j].Correct + out[j].Incorrect
		if totalI == totalJ {
			return out[i].Char < out[j].Char
		}
		return totalI > totalJ
	})
	return out
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
