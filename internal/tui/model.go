package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"habit-gallery/internal/analysis"
	"habit-gallery/internal/app"
	"habit-gallery/internal/detail"
	"habit-gallery/internal/gallery"
	"habit-gallery/internal/shared/placeholder"
	"habit-gallery/internal/shared/telemetry"
	"habit-gallery/internal/uploads"
)

type screen int

const (
	screenGallery screen = iota
	screenUpload
	screenDetail
	screenLightbox
)

// refreshMsg tells the model a controller rendered new state.
type refreshMsg struct{}

// opDoneMsg reports the end of a controller call run off the event loop.
type opDoneMsg struct {
	op  string
	err error
}

// Model is the gallery page as a Bubble Tea program. Controller calls that
// may block run as commands; the rest run inline since views never block.
type Model struct {
	ctx    context.Context
	app    *app.App
	bridge *bridge

	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	viewport viewport.Model
	form     uploadForm

	snap       snapshot
	result     string
	cursor     int
	uploading  bool
	formResets int
	status     string
	width      int
	height     int
}

func newModel(ctx context.Context, a *app.App, b *bridge) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = cursorStyle
	return &Model{
		ctx:      ctx,
		app:      a,
		bridge:   b,
		keys:     defaultKeys(),
		help:     help.New(),
		spinner:  sp,
		viewport: viewport.New(76, 12),
		form:     newUploadForm(),
		snap:     b.snapshot(),
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		waitForRefresh(m.bridge.notify),
		m.run("load", m.app.Start),
		m.spinner.Tick,
	)
}

func waitForRefresh(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return refreshMsg{}
	}
}

func (m *Model) run(op string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

func (m *Model) screen() screen {
	switch {
	case m.snap.Lightbox.Visible:
		return screenLightbox
	case m.snap.Modal.Visible:
		return screenDetail
	case m.uploading:
		return screenUpload
	default:
		return screenGallery
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = max(msg.Width-6, 20)
		m.viewport.Height = max(msg.Height-18, 5)
		return m, nil

	case refreshMsg:
		m.applySnapshot(m.bridge.snapshot())
		return m, waitForRefresh(m.bridge.notify)

	case opDoneMsg:
		m.status = opStatus(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.snap.Alert != "" {
			m.bridge.clearAlert()
			return m, nil
		}
		switch m.screen() {
		case screenLightbox:
			return m, m.lightboxKey(msg)
		case screenDetail:
			return m, m.detailKey(msg)
		case screenUpload:
			return m, m.uploadKey(msg)
		default:
			return m, m.galleryKey(msg)
		}
	}
	return m, nil
}

func (m *Model) applySnapshot(s snapshot) {
	m.snap = s
	if s.FormResets != m.formResets {
		m.formResets = s.FormResets
		m.form.reset()
		m.uploading = false
	}
	if s.Analysis.Result != m.result {
		m.result = s.Analysis.Result
		m.viewport.SetContent(m.result)
		m.viewport.GotoTop()
	}
	if m.cursor >= len(s.Grid.Cards) {
		m.cursor = max(len(s.Grid.Cards)-1, 0)
	}
}

func opStatus(msg opDoneMsg) string {
	if msg.err == nil {
		return ""
	}
	var violations uploads.Violations
	if errors.As(msg.err, &violations) {
		return ""
	}
	telemetry.Debug("tui.op.failed", map[string]any{"op": msg.op, "err": msg.err})
	return fmt.Sprintf("%s failed: %v", msg.op, msg.err)
}

func (m *Model) galleryKey(msg tea.KeyMsg) tea.Cmd {
	cards := m.snap.Grid.Cards
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(cards)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Open):
		if len(cards) == 0 {
			return nil
		}
		id, k := cards[m.cursor].ID, msg.String()
		return m.run("open", func(ctx context.Context) error {
			_, err := m.app.Gallery.HandleKey(ctx, id, k)
			return err
		})
	case key.Matches(msg, m.keys.Upload):
		m.uploading = true
		m.status = ""
		return m.form.inputs[m.form.focus].Focus()
	case key.Matches(msg, m.keys.Reload):
		return m.run("reload", m.app.Gallery.Load)
	}
	return nil
}

func (m *Model) detailKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.app.HandleKey("esc")
	case key.Matches(msg, m.keys.Analyze):
		return m.run("analysis", m.app.Analysis.Trigger)
	case key.Matches(msg, m.keys.Play):
		return m.run("playback", m.app.Analysis.Play)
	case key.Matches(msg, m.keys.Stop):
		m.app.Analysis.Stop()
	case key.Matches(msg, m.keys.Autoplay):
		m.app.Analysis.SetAutoplay(!m.snap.Analysis.Autoplay)
	case key.Matches(msg, m.keys.Enlarge1):
		m.app.Modal.ClickImage(detail.SlotScorecard)
	case key.Matches(msg, m.keys.Enlarge2):
		m.app.Modal.ClickImage(detail.SlotComic)
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) lightboxKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.app.HandleKey("esc")
	case key.Matches(msg, m.keys.Close):
		m.app.Lightbox.CloseButton()
	}
	return nil
}

func (m *Model) uploadKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.uploading = false
	case key.Matches(msg, m.keys.Submit):
		form := m.form.form()
		return m.run("share", func(ctx context.Context) error {
			return m.app.Uploads.Submit(ctx, form)
		})
	case key.Matches(msg, m.keys.Next):
		return m.form.move(1)
	case key.Matches(msg, m.keys.Prev):
		return m.form.move(-1)
	default:
		return m.form.update(msg)
	}
	return nil
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Habit Gallery"))
	b.WriteString("\n")
	b.WriteString(slideStyle.Render(m.slideshowLine()))
	b.WriteString("\n\n")

	switch m.screen() {
	case screenLightbox:
		b.WriteString(m.lightboxView())
	case screenDetail:
		b.WriteString(m.detailView())
	case screenUpload:
		b.WriteString(m.uploadView())
	default:
		b.WriteString(m.galleryView())
	}

	if m.snap.Alert != "" {
		b.WriteString("\n")
		b.WriteString(alertStyle.Render(plain(m.snap.Alert) + "\n" + mutedStyle.Render("press any key")))
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(plain(m.status)))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys.forScreen(m.screen())))
	return b.String()
}

func (m *Model) slideshowLine() string {
	st := m.snap.Slideshow
	if len(st.Slides) == 0 {
		if st.Placeholder == "" {
			return ""
		}
		return st.Placeholder
	}
	for i, s := range st.Slides {
		if !s.Active {
			continue
		}
		line := fmt.Sprintf("Slideshow %d/%d: %s", i+1, len(st.Slides), imageLabel(s.Image))
		if st.Running {
			line += " ▶"
		}
		return line
	}
	return fmt.Sprintf("Slideshow: %d images", len(st.Slides))
}

func imageLabel(img placeholder.Image) string {
	if img.Failed {
		return display(img.Alt)
	}
	return display(img.Src)
}

func (m *Model) galleryView() string {
	g := m.snap.Grid
	notice := ""
	if m.snap.Upload.Level == uploads.LevelSuccess {
		notice = successStyle.Render(plain(m.snap.Upload.Message)) + "\n\n"
	}
	return notice + m.cardsView(g)
}

func (m *Model) cardsView(g gallery.GridState) string {
	switch {
	case g.Loading:
		return m.spinner.View() + " Loading works..."
	case g.Error != "":
		return errorStyle.Render(plain(g.Error))
	case len(g.Cards) == 0:
		return mutedStyle.Render(g.Message)
	}

	var b strings.Builder
	for i, c := range g.Cards {
		line := fmt.Sprintf("%s · %s", display(c.Author), display(c.HabitPreview))
		if c.Preview.Failed {
			line += mutedStyle.Render("  [preview unavailable]")
		}
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) detailView() string {
	md := m.snap.Modal
	var b strings.Builder
	b.WriteString(labelStyle.Render(display(md.Author)))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Current habits: ") + display(md.Habits) + "\n")
	b.WriteString(labelStyle.Render("Reflection: ") + display(md.Reflection) + "\n\n")
	b.WriteString(slotLine("1", md.Scorecard))
	b.WriteString(slotLine("2", md.Comic))
	b.WriteString("\n")
	b.WriteString(m.analysisView())
	return m.panel(b.String())
}

func slotLine(n string, img placeholder.Image) string {
	if img.Failed {
		return fmt.Sprintf("[%s] %s\n", n, warnStyle.Render(display(img.Alt)))
	}
	return fmt.Sprintf("[%s] %s: %s\n", n, display(img.Alt), mutedStyle.Render(display(img.Src)))
}

func (m *Model) analysisView() string {
	st := m.snap.Analysis
	var b strings.Builder
	b.WriteString(labelStyle.Render("AI coach"))
	if st.Autoplay {
		b.WriteString(mutedStyle.Render("  (autoplay on)"))
	}
	b.WriteString("\n")

	switch {
	case st.Loading:
		b.WriteString(m.spinner.View() + " Analyzing...\n")
	case st.Error != "":
		b.WriteString(errorStyle.Render(plain(st.Error)) + "\n")
	case st.Result != "":
		b.WriteString(m.viewport.View() + "\n")
	case st.Info != "":
		b.WriteString(mutedStyle.Render(plain(st.Info)) + "\n")
	}

	if n := st.AudioNotice; n != nil {
		style := warnStyle
		if n.Level == analysis.LevelError {
			style = errorStyle
		}
		b.WriteString(style.Render(plain(n.Text)) + "\n")
	}

	var controls []string
	if st.TriggerEnabled {
		controls = append(controls, "a: analyze")
	}
	if st.PlayEnabled {
		controls = append(controls, "p: play")
	}
	if st.StopVisible {
		controls = append(controls, "s: stop")
	}
	if len(controls) > 0 {
		b.WriteString(mutedStyle.Render(strings.Join(controls, "  ")))
	}
	return b.String()
}

func (m *Model) lightboxView() string {
	lb := m.snap.Lightbox
	body := labelStyle.Render(display(lb.Caption)) + "\n" + display(lb.Src)
	return m.panel(body)
}

func (m *Model) uploadView() string {
	st := m.snap.Upload
	var b strings.Builder
	b.WriteString(labelStyle.Render("Share your work"))
	b.WriteString("\n\n")
	b.WriteString(m.form.view())

	if st.Message != "" {
		switch st.Level {
		case uploads.LevelError:
			b.WriteString(errorStyle.Render(plain(st.Message)))
		case uploads.LevelSuccess:
			b.WriteString(successStyle.Render(plain(st.Message)))
		case uploads.LevelPending:
			b.WriteString(m.spinner.View() + " " + plain(st.Message))
		default:
			b.WriteString(plain(st.Message))
		}
		b.WriteString("\n")
	}
	for _, v := range st.Violations {
		b.WriteString(errorStyle.Render("  • " + plain(v)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) panel(body string) string {
	style := panelStyle
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	return lipgloss.JoinVertical(lipgloss.Left, style.Render(body))
}
