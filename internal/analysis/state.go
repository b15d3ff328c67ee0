package analysis

// Phase is the request lifecycle of the active record.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRequesting
	PhaseRendered
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseRequesting:
		return "requesting"
	case PhaseRendered:
		return "rendered"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

type NoticeLevel int

const (
	LevelWarning NoticeLevel = iota + 1
	LevelError
)

// Notice is a non-blocking message about the audio part of a result.
type Notice struct {
	Level NoticeLevel
	Text  string
}

// State is everything an analysis panel displays.
type State struct {
	Phase    Phase
	RecordID string
	Info     string

	TriggerEnabled bool
	Loading        bool

	// Result is the rendered analysis. Fallback is set when it is the raw
	// Markdown because rendering failed.
	Result   string
	Fallback bool
	Error    string

	AudioNotice *Notice
	PlayEnabled bool
	StopVisible bool
	Autoplay    bool
}

// View receives every state change. It is called with the controller locked
// and must not call back into it synchronously.
type View interface {
	RenderAnalysis(State)
}

type nopView struct{}

func (nopView) RenderAnalysis(State) {}
