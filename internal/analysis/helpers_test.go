package analysis

import (
	"context"
	"sync"

	"habit-gallery/internal/audio"
	"habit-gallery/internal/backend"
	"habit-gallery/internal/works"
)

type fakeClient struct {
	mu      sync.Mutex
	calls   int
	resp    backend.AnalyzeResponse
	err     error
	gate    chan struct{}
	started chan struct{}
	lastReq backend.AnalyzeRequest
	lastID  string
}

func (f *fakeClient) wait() {
	f.mu.Lock()
	f.calls++
	gate, started := f.gate, f.started
	f.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
}

func (f *fakeClient) Analyze(ctx context.Context, req backend.AnalyzeRequest) (backend.AnalyzeResponse, error) {
	f.mu.Lock()
	f.lastReq = req
	f.mu.Unlock()
	f.wait()
	return f.resp, f.err
}

func (f *fakeClient) AnalyzeWork(ctx context.Context, id string) (backend.AnalyzeResponse, error) {
	f.mu.Lock()
	f.lastID = id
	f.mu.Unlock()
	f.wait()
	return f.resp, f.err
}

func (f *fakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePlayer struct {
	mu      sync.Mutex
	src     audio.Source
	loaded  []audio.Source
	playing bool
	plays   int
	unloads int
	playErr error
	events  audio.Events
}

func (p *fakePlayer) Load(src audio.Source) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.src = src
	p.loaded = append(p.loaded, src)
	return nil
}

func (p *fakePlayer) Unload() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.src = nil
	p.playing = false
	p.unloads++
}

func (p *fakePlayer) Play(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playErr != nil {
		return p.playErr
	}
	p.playing = true
	p.plays++
	return nil
}

func (p *fakePlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
}

func (p *fakePlayer) Rewind() {}

func (p *fakePlayer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.playing
}

func (p *fakePlayer) Source() audio.Source {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.src
}

func (p *fakePlayer) SetEvents(ev audio.Events) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = ev
}

func (p *fakePlayer) firePlay() {
	p.mu.Lock()
	ev := p.events
	p.mu.Unlock()
	ev.OnPlay()
}

func (p *fakePlayer) firePause() {
	p.mu.Lock()
	ev := p.events
	p.mu.Unlock()
	ev.OnPause()
}

func (p *fakePlayer) fireError(err error) {
	p.mu.Lock()
	ev := p.events
	p.mu.Unlock()
	ev.OnError(err)
}

func (p *fakePlayer) lastLoaded() audio.Source {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.loaded) == 0 {
		return nil
	}
	return p.loaded[len(p.loaded)-1]
}

type recordingView struct {
	mu     sync.Mutex
	states []State
}

func (v *recordingView) RenderAnalysis(s State) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.states = append(v.states, s)
}

func (v *recordingView) count(pred func(State) bool) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for _, s := range v.states {
		if pred(s) {
			n++
		}
	}
	return n
}

type staticLookup map[string]works.Record

func (l staticLookup) Find(id string) (works.Record, error) {
	rec, ok := l[id]
	if !ok {
		return works.Record{}, works.ErrNotFound
	}
	return rec, nil
}

type prefixResolver string

func (p prefixResolver) ResolveURL(ref string) string { return string(p) + ref }

func readyRecord() works.Record {
	return works.Record{
		ID:                "w1",
		Author:            "Ann",
		CurrentHabits:     "run daily",
		Reflection:        "felt good",
		ScorecardImageURL: "/uploads/w1_scorecard.png",
		ComicImageURL:     "/uploads/w1_comic.png",
		ScorecardBase64:   "data:image/png;base64,AA==",
		ComicBase64:       "data:image/png;base64,AQ==",
	}
}
