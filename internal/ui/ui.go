package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/bookclub/internal/prefs"
	"github.com/desertthunder/bookclub/internal/resource"
	"github.com/desertthunder/bookclub/internal/shared"
)

// Options configures a [Model].
type Options struct {
	API       resource.API
	Kinds     []resource.Kind // tabs; defaults to every admin kind
	Prefs     prefs.Prefs
	PrefsPath string // where theme and last tab are saved on quit; empty disables saving
	Logger    *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	cancel    context.CancelFunc
	api       resource.API
	pages     []*page
	active    int
	form      *form
	saving    bool
	searching bool
	search    textinput.Model
	spinner   spinner.Model
	help      help.Model
	keys      keyMap
	palette   *Palette
	prefs     prefs.Prefs
	prefsPath string
	logger    *log.Logger
	width     int
	height    int
}

// NewModel creates the admin TUI. Requests made by the model are cancelled when it quits.
func NewModel(ctx context.Context, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if len(opts.Kinds) == 0 {
		opts.Kinds = resource.Kinds()
	}

	ctx, cancel := context.WithCancel(ctx)

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search"
	search.CharLimit = 64

	m := &Model{
		ctx:       ctx,
		cancel:    cancel,
		api:       opts.API,
		search:    search,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:      help.New(),
		keys:      newKeyMap(),
		palette:   PaletteFor(opts.Prefs.Theme),
		prefs:     opts.Prefs,
		prefsPath: opts.PrefsPath,
		logger:    opts.Logger,
	}

	for i, k := range opts.Kinds {
		m.pages = append(m.pages, newPage(k, opts.API, opts.Logger))
		if k.Name == opts.Prefs.LastTab {
			m.active = i
		}
	}
	return m
}

// Run starts the TUI on the alternate screen and blocks until it exits.
func Run(ctx context.Context, opts Options) error {
	model := NewModel(ctx, opts)
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// Init loads the starting tab.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load(m.active))
}

func (m *Model) current() *page { return m.pages[m.active] }

// load starts a fetch for tab i. Only the network call runs off the update loop.
func (m *Model) load(i int) tea.Cmd {
	p := m.pages[i]
	gen := p.mgr.BeginLoad()
	ctx := m.ctx
	return func() tea.Msg {
		res, err := p.mgr.Fetch(ctx)
		return loadedMsg(i, gen, res, err)
	}
}

func (m *Model) mutate(i int, mut resource.Mutation) tea.Cmd {
	m.saving = true
	api, ctx := m.api, m.ctx
	return func() tea.Msg {
		return mutatedMsg(i, mut.Execute(ctx, api))
	}
}

func (m *Model) tableHeight() int {
	if m.height == 0 {
		return 15
	}
	return max(m.height-14, 3)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		for _, p := range m.pages {
			p.table.SetHeight(m.tableHeight())
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) && msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		switch m.current().mgr.Controller().State() {
		case resource.AddOpen, resource.EditOpen:
			return m.handleFormKeys(msg)
		case resource.ConfirmDeleteOpen:
			return m.handleConfirmKeys(msg)
		}
		if m.searching {
			return m.handleSearchKeys(msg)
		}
		return m.handlePageKeys(msg)
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgLoaded:
		d := msg.data.(loadedData)
		p := m.pages[d.tab]
		if p.mgr.ApplyLoad(d.gen, d.result, d.err) {
			if d.err != nil {
				m.logger.Warn("load failed", "resource", p.mgr.Kind().Name, "error", d.err)
			}
			p.sync(m.tableHeight())
		}
		return m, nil

	case MsgMutated:
		d := msg.data.(mutatedData)
		m.saving = false
		p := m.pages[d.tab]
		ctrl := p.mgr.Controller()
		ctrl.Resolve(d.err)
		if d.err != nil {
			return m, nil
		}
		m.form = nil
		return m, m.load(d.tab)
	}
	return m, nil
}

func (m *Model) handlePageKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.current()
	ctrl := p.mgr.Controller()

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, m.quit()

	case key.Matches(msg, m.keys.nextTab):
		return m, m.switchTab(1)

	case key.Matches(msg, m.keys.prevTab):
		return m, m.switchTab(-1)

	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.theme):
		m.cycleTheme()
		return m, nil

	case key.Matches(msg, m.keys.retry):
		if p.mgr.Status() == resource.Loading {
			return m, nil
		}
		return m, m.load(m.active)
	}

	if p.mgr.Status() != resource.Ready {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.search):
		m.searching = true
		m.search.SetValue(p.mgr.View().Term())
		return m, m.search.Focus()

	case key.Matches(msg, m.keys.sort):
		if p.sortBy(int(msg.String()[0] - '1')) {
			p.sync(0)
		}
		return m, nil

	case key.Matches(msg, m.keys.add):
		if err := ctrl.OpenAdd(); err == nil {
			m.form = newForm(p.mgr.Kind(), ctrl.Draft())
		}
		return m, nil

	case key.Matches(msg, m.keys.edit):
		if row, ok := p.selected(); ok {
			if err := ctrl.OpenEdit(row); err == nil {
				m.form = newForm(p.mgr.Kind(), ctrl.Draft())
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.delete):
		if row, ok := p.selected(); ok {
			_ = ctrl.OpenDelete(row)
		}
		return m, nil
	}

	var cmd tea.Cmd
	p.table, cmd = p.table.Update(msg)
	return m, cmd
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.current()
	switch msg.String() {
	case "enter":
		m.searching = false
		m.search.Blur()
		return m, nil
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		p.mgr.View().SetTerm("")
		p.sync(0)
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	p.mgr.View().SetTerm(m.search.Value())
	p.sync(0)
	return m, cmd
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.saving || m.form == nil {
		return m, nil
	}
	p := m.current()
	ctrl := p.mgr.Controller()

	switch {
	case key.Matches(msg, m.keys.back):
		_ = ctrl.Cancel()
		m.form = nil
		return m, nil

	case key.Matches(msg, m.keys.submit):
		mut, err := ctrl.PrepareSubmit()
		if err != nil {
			return m, nil
		}
		return m, m.mutate(m.active, mut)

	case key.Matches(msg, m.keys.nextField):
		return m, m.form.move(1)

	case key.Matches(msg, m.keys.prevField):
		return m, m.form.move(-1)
	}

	field, value, changed, cmd := m.form.update(msg)
	if changed {
		_ = ctrl.SetInput(field, value)
	}
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.saving {
		return m, nil
	}
	ctrl := m.current().mgr.Controller()

	switch {
	case key.Matches(msg, m.keys.yes):
		mut, err := ctrl.PrepareDelete()
		if err != nil {
			return m, nil
		}
		return m, m.mutate(m.active, mut)
	case key.Matches(msg, m.keys.no):
		_ = ctrl.Cancel()
	}
	return m, nil
}

func (m *Model) switchTab(delta int) tea.Cmd {
	m.active = (m.active + delta + len(m.pages)) % len(m.pages)
	m.prefs.LastTab = m.current().mgr.Kind().Name
	m.search.SetValue(m.current().mgr.View().Term())
	if m.current().mgr.Status() == resource.Idle {
		return m.load(m.active)
	}
	return nil
}

func (m *Model) cycleTheme() {
	names := Themes()
	next := names[0]
	for i, n := range names {
		if n == m.palette.Name() {
			next = names[(i+1)%len(names)]
		}
	}
	m.palette = PaletteFor(next)
	m.prefs.Theme = next
}

// quit drops in-flight loads, cancels outstanding requests and saves preferences.
func (m *Model) quit() tea.Cmd {
	for _, p := range m.pages {
		p.mgr.Discard()
	}
	m.cancel()
	if m.prefsPath != "" {
		if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
			m.logger.Warn("failed to save preferences", "error", err)
		}
	}
	return tea.Quit
}

// View renders the UI based on the current page state.
func (m *Model) View() string {
	p := m.current()
	sections := []string{m.renderTabs()}

	switch p.mgr.Status() {
	case resource.Idle, resource.Loading:
		sections = append(sections, fmt.Sprintf("%s Loading %s...", m.spinner.View(), strings.ToLower(p.mgr.Kind().Title)))
	case resource.Failed:
		sections = append(sections, m.renderError(p))
	case resource.Ready:
		sections = append(sections, m.renderStats(p), m.renderBody(p))
	}

	sections = append(sections, m.help.View(m.keys))
	return strings.Join(sections, "\n\n")
}

func (m *Model) renderTabs() string {
	tabs := make([]string, len(m.pages))
	for i, p := range m.pages {
		if i == m.active {
			tabs[i] = m.palette.active.Render(p.mgr.Kind().Title)
		} else {
			tabs[i] = m.palette.tab.Render(p.mgr.Kind().Title)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) renderError(p *page) string {
	msg := p.mgr.ErrMessage()
	if errors.Is(p.mgr.Err(), shared.ErrNotAuthenticated) {
		msg = "Not signed in. Run `bookclub auth login` and start the TUI again."
	}
	return fmt.Sprintf("%s\n\n%s", m.palette.err.Render("Error: "+msg), m.palette.help.Render("Press r to retry, q to quit"))
}

func (m *Model) renderStats(p *page) string {
	kind := p.mgr.Kind()
	s := p.mgr.Stats()

	cards := []string{
		m.palette.card.Render(fmt.Sprintf("Total\n%s", m.palette.ok.Render(fmt.Sprint(s.Total)))),
		m.palette.card.Render(fmt.Sprintf("Active\n%s", m.palette.ok.Render(fmt.Sprint(s.Active)))),
	}
	if kind.AverageField != "" {
		avg := "n/a"
		if s.AverageCount > 0 {
			avg = fmt.Sprintf("%.2f", s.Average)
		}
		cards = append(cards, m.palette.card.Render(fmt.Sprintf("%s\n%s", kind.AverageLabel, m.palette.ok.Render(avg))))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func (m *Model) renderBody(p *page) string {
	ctrl := p.mgr.Controller()
	kind := p.mgr.Kind()

	switch ctrl.State() {
	case resource.AddOpen, resource.EditOpen:
		if m.form != nil {
			title := "Add " + strings.TrimSuffix(kind.Title, "s")
			if ctrl.State() == resource.EditOpen {
				title = "Edit " + ctrl.Target()
			}
			return m.form.view(m.palette, title, ctrl.FieldErrors(), ctrl.Err(), m.saving)
		}

	case resource.ConfirmDeleteOpen:
		name := ctrl.Target()
		if row, ok := p.mgr.Lookup(ctrl.Target()); ok {
			for _, f := range []string{"title", "name"} {
				if v := row.String(f); v != "" {
					name = v
					break
				}
			}
		}
		body := m.palette.warn.Render(fmt.Sprintf("Delete %q? This cannot be undone.", name))
		if e := ctrl.Err(); e != "" {
			body += "\n\n" + m.palette.err.Render(e)
		}
		if m.saving {
			body += "\n\n" + m.spinner.View() + " Deleting..."
		}
		body += "\n\n" + m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
		return m.palette.modal.Render(body)
	}

	var search string
	if m.searching || p.mgr.View().Term() != "" {
		search = m.search.View() + "\n"
	}
	count := m.palette.help.Render(fmt.Sprintf("%d of %d", len(p.mgr.Rows()), len(p.mgr.Raw())))
	return search + p.table.View() + "\n" + count
}
