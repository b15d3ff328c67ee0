package audio

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"

	"habit-gallery/internal/shared/telemetry"
)

// Events are the player notifications. They never fire synchronously from a
// Player method call.
type Events struct {
	OnPlay  func()
	OnPause func()
	OnError func(error)
}

// Player plays at most one attached source.
type Player interface {
	Load(src Source) error
	Unload()
	Play(ctx context.Context) error
	Pause()
	Rewind()
	Paused() bool
	Source() Source
	SetEvents(Events)
}

type playerSpec struct {
	name string
	args []string
}

var knownPlayers = []playerSpec{
	{name: "mpv", args: []string{"--no-video", "--really-quiet"}},
	{name: "ffplay", args: []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
	{name: "mpg123", args: []string{"-q"}},
	{name: "afplay"},
}

// ExecPlayer plays through an external command. External players cannot
// resume, so Pause stops the process and the next Play starts from the top.
type ExecPlayer struct {
	command string
	args    []string

	mu      sync.Mutex
	src     Source
	current *run
	events  Events
}

type run struct {
	cmd     *exec.Cmd
	stopped atomic.Bool
}

// NewExecPlayer resolves the configured command, or the first known player on
// PATH when command is empty.
func NewExecPlayer(command string) (*ExecPlayer, error) {
	if command != "" {
		path, err := exec.LookPath(command)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNoPlayer, command)
		}
		p := &ExecPlayer{command: path}
		for _, spec := range knownPlayers {
			if spec.name == command {
				p.args = spec.args
			}
		}
		return p, nil
	}
	for _, spec := range knownPlayers {
		if path, err := exec.LookPath(spec.name); err == nil {
			return &ExecPlayer{command: path, args: spec.args}, nil
		}
	}
	return nil, ErrNoPlayer
}

func (p *ExecPlayer) SetEvents(ev Events) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = ev
}

func (p *ExecPlayer) Load(src Source) error {
	if src == nil {
		return ErrNoSource
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.src = src
	return nil
}

func (p *ExecPlayer) Unload() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.src = nil
}

func (p *ExecPlayer) Source() Source {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.src
}

func (p *ExecPlayer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current == nil
}

func (p *ExecPlayer) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.src == nil {
		return ErrNoSource
	}
	if p.current != nil {
		return nil
	}
	args := append(append([]string{}, p.args...), p.src.URI())
	cmd := exec.Command(p.command, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start player: %w", err)
	}
	r := &run{cmd: cmd}
	p.current = r
	events := p.events
	telemetry.Debug("audio.player.start", map[string]any{"command": p.command, "uri": p.src.URI()})

	go func() {
		if events.OnPlay != nil {
			events.OnPlay()
		}
		p.wait(r)
	}()
	return nil
}

func (p *ExecPlayer) wait(r *run) {
	err := r.cmd.Wait()

	p.mu.Lock()
	if p.current == r {
		p.current = nil
	}
	events := p.events
	p.mu.Unlock()

	if err == nil || r.stopped.Load() {
		if events.OnPause != nil {
			events.OnPause()
		}
		return
	}
	telemetry.Warn("audio.player.exit", map[string]any{"command": p.command, "err": err})
	if events.OnError != nil {
		events.OnError(fmt.Errorf("player exited: %w", err))
	}
}

func (p *ExecPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Rewind is implied by Pause for external players.
func (p *ExecPlayer) Rewind() {}

func (p *ExecPlayer) stopLocked() {
	r := p.current
	if r == nil {
		return
	}
	p.current = nil
	r.stopped.Store(true)
	if r.cmd.Process == nil {
		return
	}
	if err := r.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		_ = r.cmd.Process.Kill()
	}
}
