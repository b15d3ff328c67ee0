package detail

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habit-gallery/internal/works"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func (f *fakeFetcher) FetchDataURL(ctx context.Context, ref string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[ref]++
	if f.fail[ref] || ref == "" {
		return "", errors.New("fetch failed")
	}
	return "data:image/png;base64,QUJD", nil
}

func (f *fakeFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type fakeAnalysis struct {
	events []string
	last   works.Record
}

func (a *fakeAnalysis) SetRecord(rec works.Record) {
	a.events = append(a.events, "set:"+rec.ID)
	a.last = rec
}

func (a *fakeAnalysis) Reset() { a.events = append(a.events, "reset") }

type modalRecorder struct {
	states []ModalState
}

func (r *modalRecorder) RenderModal(s ModalState) { r.states = append(r.states, s) }

type lightboxRecorder struct {
	last LightboxState
}

func (r *lightboxRecorder) RenderLightbox(s LightboxState) { r.last = s }

type fixture struct {
	store    *works.Store
	fetcher  *fakeFetcher
	analysis *fakeAnalysis
	view     *modalRecorder
	lbView   *lightboxRecorder
	lightbox *Lightbox
	modal    *Modal
	alerts   []string
}

func newFixture(t *testing.T, recs ...works.Record) *fixture {
	t.Helper()
	f := &fixture{
		store:    works.NewStore(),
		fetcher:  &fakeFetcher{fail: map[string]bool{}},
		analysis: &fakeAnalysis{},
		view:     &modalRecorder{},
		lbView:   &lightboxRecorder{},
	}
	require.NoError(t, f.store.Replace(context.Background(), recs))
	f.lightbox = NewLightbox(f.lbView)
	f.modal = NewModal(ModalOptions{
		Store:    f.store,
		Fetcher:  f.fetcher,
		Analysis: f.analysis,
		Lightbox: f.lightbox,
		View:     f.view,
		Alert:    func(msg string) { f.alerts = append(f.alerts, msg) },
	})
	return f
}

func work(id string) works.Record {
	return works.Record{
		ID:                id,
		Author:            "<b>Ann</b>",
		CurrentHabits:     "run & read",
		Reflection:        "",
		ScorecardImageURL: "/uploads/" + id + "_scorecard.png",
		ComicImageURL:     "/uploads/" + id + "_comic.png",
	}
}

func TestOpenPopulatesAndCaches(t *testing.T) {
	f := newFixture(t, work("a"))

	require.NoError(t, f.modal.Open(context.Background(), "a"))
	st := f.modal.State()
	assert.True(t, st.Visible)
	assert.True(t, st.ScrollLocked)
	assert.Equal(t, "&lt;b&gt;Ann&lt;/b&gt;", st.Author)
	assert.Equal(t, "run &amp; read", st.Habits)
	assert.Equal(t, "(not provided)", st.Reflection)
	assert.Equal(t, "Habit scorecard", st.Scorecard.Alt)
	assert.Equal(t, "Six-panel comic", st.Comic.Alt)
	assert.True(t, st.Scorecard.Clickable)
	assert.True(t, st.Comic.Clickable)
	assert.Equal(t, 2, f.fetcher.total())

	rec, _ := f.store.Find("a")
	assert.True(t, rec.HasImages())
	assert.Equal(t, []string{"set:a"}, f.analysis.events)
	assert.True(t, f.analysis.last.HasImages())
}

func TestSecondOpenReusesCachedImages(t *testing.T) {
	f := newFixture(t, work("a"))
	require.NoError(t, f.modal.Open(context.Background(), "a"))
	f.modal.Close()
	require.NoError(t, f.modal.Open(context.Background(), "a"))

	assert.Equal(t, 2, f.fetcher.total())
	st := f.modal.State()
	assert.True(t, st.Scorecard.Clickable)
	assert.True(t, st.Comic.Clickable)
}

func TestOpenWithFailedImageDiscardsPartialCache(t *testing.T) {
	f := newFixture(t, work("a"))
	f.fetcher.fail["/uploads/a_comic.png"] = true

	require.NoError(t, f.modal.Open(context.Background(), "a"))
	st := f.modal.State()
	assert.True(t, st.Scorecard.Clickable)
	assert.False(t, st.Comic.Clickable)
	assert.True(t, st.Comic.Failed)
	assert.Equal(t, "Six-panel comic failed to load", st.Comic.Alt)
	assert.True(t, strings.HasPrefix(st.Comic.Src, "data:image/svg+xml,"))

	rec, _ := f.store.Find("a")
	assert.Empty(t, rec.ScorecardBase64)
	assert.Empty(t, rec.ComicBase64)

	assert.False(t, f.modal.ClickImage(SlotComic))
	assert.False(t, f.lightbox.Visible())
}

func TestOpenUnknownWorkAlerts(t *testing.T) {
	f := newFixture(t, work("a"))
	err := f.modal.Open(context.Background(), "zzz")
	assert.ErrorIs(t, err, ErrWorkNotFound)
	assert.Equal(t, []string{"Unable to show work details."}, f.alerts)
	assert.False(t, f.modal.Visible())
	assert.Empty(t, f.analysis.events)
}

func TestOpenWithoutViewAlerts(t *testing.T) {
	store := works.NewStore()
	require.NoError(t, store.Replace(context.Background(), []works.Record{work("a")}))
	var alerts []string
	m := NewModal(ModalOptions{Store: store, Fetcher: &fakeFetcher{}, Alert: func(s string) { alerts = append(alerts, s) }})
	assert.ErrorIs(t, m.Open(context.Background(), "a"), ErrNoView)
	assert.Len(t, alerts, 1)
}

func TestCloseIsIdempotentAndResetsAnalysis(t *testing.T) {
	f := newFixture(t, work("a"))
	f.modal.Close()
	assert.Empty(t, f.analysis.events)

	require.NoError(t, f.modal.Open(context.Background(), "a"))
	f.modal.Close()
	f.modal.Close()
	assert.Equal(t, []string{"set:a", "reset"}, f.analysis.events)
	st := f.modal.State()
	assert.False(t, st.Visible)
	assert.False(t, st.ScrollLocked)
	assert.Empty(t, st.WorkID)
}

func TestDismissalTriggers(t *testing.T) {
	f := newFixture(t, work("a"))
	ctx := context.Background()

	require.NoError(t, f.modal.Open(ctx, "a"))
	assert.False(t, f.modal.Click(ClickTarget{}))
	assert.False(t, f.modal.Click(ClickTarget{Backdrop: true, InAnalysisPanel: true}))
	assert.True(t, f.modal.Visible())
	assert.True(t, f.modal.Click(ClickTarget{Backdrop: true}))
	assert.False(t, f.modal.Visible())

	require.NoError(t, f.modal.Open(ctx, "a"))
	assert.False(t, f.modal.HandleKey("enter"))
	assert.True(t, f.modal.HandleKey("esc"))
	assert.False(t, f.modal.HandleKey("esc"))

	require.NoError(t, f.modal.Open(ctx, "a"))
	f.modal.CloseButton()
	assert.False(t, f.modal.Visible())
}

func TestImageOutcomesReportedByView(t *testing.T) {
	f := newFixture(t, work("a"))
	require.NoError(t, f.modal.Open(context.Background(), "a"))

	f.modal.ImageFailed(SlotScorecard)
	st := f.modal.State()
	assert.False(t, st.Scorecard.Clickable)
	assert.Equal(t, "Habit scorecard failed to load", st.Scorecard.Alt)

	f.modal.ImageLoaded(SlotScorecard)
	assert.False(t, f.modal.State().Scorecard.Clickable)
}

func TestClickImageOpensLightbox(t *testing.T) {
	f := newFixture(t, work("a"))
	require.NoError(t, f.modal.Open(context.Background(), "a"))

	assert.True(t, f.modal.ClickImage(SlotScorecard))
	lb := f.lightbox.State()
	assert.True(t, lb.Visible)
	assert.Equal(t, "/uploads/a_scorecard.png", lb.Src)
	assert.Equal(t, "Habit scorecard", lb.Caption)
	assert.Equal(t, lb, f.lbView.last)
}

func TestLightboxBehaviour(t *testing.T) {
	view := &lightboxRecorder{}
	lb := NewLightbox(view)

	lb.Open("", "ignored")
	assert.True(t, lb.Visible())
	assert.Equal(t, "", lb.State().Src)
	assert.Equal(t, "Image could not be loaded", lb.State().Caption)

	lb.Open(`/uploads/x.png?a=1&b="2"`, "")
	assert.Equal(t, "/uploads/x.png?a=1&amp;b=&quot;2&quot;", lb.State().Src)
	assert.Equal(t, "Enlarged image", lb.State().Caption)

	assert.False(t, lb.Click(false))
	assert.True(t, lb.Click(true))
	assert.Equal(t, LightboxState{}, lb.State())
	assert.Equal(t, LightboxState{}, view.last)

	lb.Open("/a.png", "A")
	assert.True(t, lb.HandleKey("Escape"))
	assert.False(t, lb.HandleKey("Escape"))

	lb.Open("/a.png", "A")
	lb.CloseButton()
	assert.False(t, lb.Visible())
}
