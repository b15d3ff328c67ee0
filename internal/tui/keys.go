package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Open     key.Binding
	Upload   key.Binding
	Reload   key.Binding
	Analyze  key.Binding
	Play     key.Binding
	Stop     key.Binding
	Autoplay key.Binding
	Enlarge1 key.Binding
	Enlarge2 key.Binding
	Next     key.Binding
	Prev     key.Binding
	Submit   key.Binding
	Close    key.Binding
	Back     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:     key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "open")),
		Upload:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "share work")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Analyze:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "analyze")),
		Play:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "play")),
		Stop:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		Autoplay: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "autoplay")),
		Enlarge1: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "scorecard")),
		Enlarge2: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "comic")),
		Next:     key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		Prev:     key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev field")),
		Submit:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "share")),
		Close:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "close image")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

// helpKeys selects the bindings shown for the current screen.
type helpKeys []key.Binding

func (h helpKeys) ShortHelp() []key.Binding  { return h }
func (h helpKeys) FullHelp() [][]key.Binding { return [][]key.Binding{h} }

func (k keyMap) forScreen(s screen) helpKeys {
	switch s {
	case screenUpload:
		return helpKeys{k.Next, k.Prev, k.Submit, k.Back}
	case screenLightbox:
		return helpKeys{k.Close, k.Back}
	case screenDetail:
		return helpKeys{k.Analyze, k.Play, k.Stop, k.Autoplay, k.Enlarge1, k.Enlarge2, k.Back}
	default:
		return helpKeys{k.Up, k.Down, k.Open, k.Upload, k.Reload, k.Quit}
	}
}
