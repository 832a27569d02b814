package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/domains"
	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/export"
	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/fasta"
)

// defaultPath is the combined FASTA written by `microdomains extract`.
const defaultPath = "outputs/microdomains.fasta"

var (
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#10B981")
	accentColor    = lipgloss.Color("#F59E0B")
	surfaceColor   = lipgloss.Color("#1F2937")
	textColor      = lipgloss.Color("#F3F4F6")
	mutedColor     = lipgloss.Color("#9CA3AF")
	borderColor    = lipgloss.Color("#374151")
)

var (
	containerStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor)

	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Background(surfaceColor).
			Padding(0, 1)

	sequenceStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Background(lipgloss.Color("#111827")).
			Padding(1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor)

	// evidence styles
	proteinLevelStyle = lipgloss.NewStyle().Foreground(secondaryColor).Bold(true)
	otherLevelStyle   = lipgloss.NewStyle().Foreground(accentColor)
	unknownLevelStyle = lipgloss.NewStyle().Foreground(mutedColor)
)

// domainRecord is one entry of an exported domain FASTA.
type domainRecord struct {
	Accession string
	Interval  domains.DomainInterval
	Residues  string
}

type listItem struct {
	record domainRecord
}

func (i listItem) FilterValue() string { return i.record.Accession }

func (i listItem) Title() string {
	return fmt.Sprintf("%s  %d-%d", i.record.Accession, i.record.Interval.Start, i.record.Interval.End)
}

func (i listItem) Description() string {
	iv := i.record.Interval
	return fmt.Sprintf("Domain: %d aa    Protein: %d aa    %s", iv.DomainLen, iv.ProteinLen, peStyle(iv.ProteinExistence).Render(iv.ProteinExistence))
}

func peStyle(pe string) lipgloss.Style {
	switch {
	case pe == "" || pe == domains.Unknown:
		return unknownLevelStyle
	case strings.Contains(strings.ToLower(pe), "protein level"):
		return proteinLevelStyle
	default:
		return otherLevelStyle
	}
}

type mode int

const (
	modeRaw mode = iota
	modeGrouped
)

func (m mode) String() string {
	switch m {
	case modeRaw:
		return "Raw"
	case modeGrouped:
		return "Grouped by 10"
	default:
		return "Unknown"
	}
}

type model struct {
	list          list.Model
	records       []domainRecord
	path          string
	currentMode   mode
	showHelp      bool
	width         int
	height        int
	selectedIndex int
}

// loadRecords reads an exported domain FASTA. Entries whose header is not a
// domain header are kept with zero coordinates.
func loadRecords(path string) ([]domainRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	seqs, err := fasta.ReadRecords(f, "")
	if err != nil {
		return nil, err
	}
	out := make([]domainRecord, 0, len(seqs))
	for _, s := range seqs {
		rec := domainRecord{Accession: s.Accession, Residues: s.Sequence}
		if _, desc, found := strings.Cut(s.RawHeader, " "); found {
			if iv, ok := export.ParseHeader(desc); ok {
				rec.Interval = iv
			}
		}
		rec.Interval.Accession = s.Accession
		out = append(out, rec)
	}
	return out, nil
}

func initialModel(path string) (model, error) {
	records, err := loadRecords(path)
	if err != nil {
		return model{}, err
	}
	items := make([]list.Item, len(records))
	for i, r := range records {
		items[i] = listItem{record: r}
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Microdomains"
	l.SetShowStatusBar(false)
	l.SetShowPagination(true)
	l.SetFilteringEnabled(true)

	return model{
		list:        l,
		records:     records,
		path:        path,
		currentMode: modeRaw,
	}, nil
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) cycleMode() model {
	m.currentMode = (m.currentMode + 1) % 2
	return m
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetWidth(msg.Width / 3)
		m.list.SetHeight(msg.Height - 4)
		return m, nil

	case tea.KeyMsg:
		// keys typed into the filter prompt belong to the list
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "h":
			m.showHelp = !m.showHelp
			return m, nil
		case "1":
			m.currentMode = modeRaw
			return m, nil
		case "2":
			m.currentMode = modeGrouped
			return m, nil
		case "tab":
			return m.cycleMode(), nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	m.selectedIndex = m.list.Index()
	return m, cmd
}

func (m model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelpModal()
	}
	main := lipgloss.JoinHorizontal(lipgloss.Top, m.renderLeftPanel(), m.renderRightPanel())
	return lipgloss.JoinVertical(lipgloss.Left, main, m.renderStatusBar())
}

func (m model) renderLeftPanel() string {
	return containerStyle.
		Width(m.width/3 - 2).
		Height(m.height - 4).
		Render(m.list.View())
}

func (m model) renderRightPanel() string {
	panel := containerStyle.
		Width(m.width*2/3 - 2).
		Height(m.height - 4)

	if len(m.records) == 0 {
		return panel.Render("No domains in " + m.path)
	}
	item, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return panel.Render("No item selected")
	}
	return panel.Render(strings.Join(m.buildRightLines(item.record), "\n"))
}

// buildRightLines renders the detail view of rec for the current mode.
func (m model) buildRightLines(rec domainRecord) []string {
	iv := rec.Interval
	label := lipgloss.NewStyle().Foreground(mutedColor)
	lines := []string{
		titleStyle.Render(fmt.Sprintf("%s  Domain %d-%d", rec.Accession, iv.Start, iv.End)),
		label.Render("Length: ") + fmt.Sprintf("%d of %d aa", iv.DomainLen, iv.ProteinLen),
		label.Render("Protein existence: ") + peStyle(iv.ProteinExistence).Render(orUnknown(iv.ProteinExistence)),
		label.Render("Evidence: ") + orUnknown(iv.Evidence),
	}
	if iv.SourceLabel != "" {
		lines = append(lines, label.Render("Source: ")+iv.SourceLabel)
	}
	lines = append(lines, "", lipgloss.NewStyle().Foreground(accentColor).Bold(true).Render(m.currentMode.String()+":"))

	if rec.Residues == "" {
		return append(lines, label.Render("No residues"))
	}
	body := rec.Residues
	if m.currentMode == modeGrouped {
		body = strings.Join(groupResidues(rec.Residues, 10, 6), "\n")
	}
	width := m.width*2/3 - 6
	if width < 10 {
		width = 10
	}
	return append(lines, sequenceStyle.Width(width).Render(body))
}

// groupResidues splits seq into blocks of size residues, perLine blocks per
// line, each line prefixed with the 1-based position of its first residue.
func groupResidues(seq string, size, perLine int) []string {
	var (
		lines []string
		b     strings.Builder
	)
	lineLen := size * perLine
	for off := 0; off < len(seq); off += lineLen {
		b.Reset()
		fmt.Fprintf(&b, "%5d ", off+1)
		end := min(off+lineLen, len(seq))
		for i := off; i < end; i += size {
			if i > off {
				b.WriteByte(' ')
			}
			b.WriteString(seq[i:min(i+size, end)])
		}
		lines = append(lines, b.String())
	}
	return lines
}

func orUnknown(s string) string {
	if s == "" {
		return domains.Unknown
	}
	return s
}

func (m model) renderStatusBar() string {
	left := fmt.Sprintf("%d/%d domains", m.selectedIndex+1, len(m.records))
	center := "Mode: " + m.currentMode.String()
	right := "Press 'h' for help, 'q' to quit"

	spacing := m.width - len(left) - len(center) - len(right) - 6
	var content string
	if spacing > 0 {
		ls := spacing / 2
		content = left + strings.Repeat(" ", ls) + center + strings.Repeat(" ", spacing-ls) + right
	} else {
		content = left + " | " + center
	}
	return statusBarStyle.Width(m.width).Render(content)
}

func (m model) renderHelpModal() string {
	help := `Microdomain browser

Navigation:
  up/down, j/k   Move through the list
  /              Filter by accession

View:
  1              Raw residues
  2              Residues grouped by 10
  tab            Switch view

General:
  h              Toggle this help
  q, Ctrl+C      Quit

File: ` + m.path + `
Domains: ` + fmt.Sprint(len(m.records)) + `
`
	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(primaryColor).
		Padding(1, 2).
		Background(surfaceColor).
		Foreground(textColor).
		Width(60).
		Render(help)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}

func main() {
	path := defaultPath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	m, err := initialModel(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v", err)
		os.Exit(1)
	}
}
