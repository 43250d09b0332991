package pipeline

// Event is a user input polled from a window.
type Event int

const (
	// EventNone means no input arrived during the poll.
	EventNone Event = iota
	// EventQuit asks the loop to stop.
	EventQuit
	// EventToggleFullscreen switches the window between normal and fullscreen.
	EventToggleFullscreen
	// EventClosed means the user closed the window.
	EventClosed
)

// String returns the event name
func (e Event) String() string {
	switch e {
	case EventQuit:
		return "quit"
	case EventToggleFullscreen:
		return "toggle_fullscreen"
	case EventClosed:
		return "closed"
	default:
		return "none"
	}
}

// Stops reports whether the event ends the loop.
func (e Event) Stops() bool {
	return e == EventQuit || e == EventClosed
}

// Display holds exactly one display variant. Build it with WindowDisplay
// or StreamDisplay.
type Display[F any] struct {
	window WindowSink[F]
	stream StreamSink[F]
}

// WindowDisplay selects an interactive window.
func WindowDisplay[F any](w WindowSink[F]) Display[F] {
	return Display[F]{window: w}
}

// StreamDisplay selects a network stream.
func StreamDisplay[F any](s StreamSink[F]) Display[F] {
	return Display[F]{stream: s}
}

// Mode returns "window", "stream" or "" when unset.
func (d Display[F]) Mode() string {
	switch {
	case d.window != nil:
		return "window"
	case d.stream != nil:
		return "stream"
	default:
		return ""
	}
}

func (d Display[F]) validate() error {
	switch {
	case d.window != nil && d.stream != nil:
		return ErrMultipleDisplays
	case d.window == nil && d.stream == nil:
		return ErrNoDisplay
	}
	return nil
}

func (d Display[F]) send(frame F) error {
	if d.window != nil {
		return d.window.Show(frame)
	}
	return d.stream.SendFrame(frame)
}

// poll returns EventNone for streams; they run unattended.
func (d Display[F]) poll() Event {
	if d.window == nil {
		return EventNone
	}
	return d.window.Poll()
}

func (d Display[F]) close() error {
	if d.window != nil {
		return d.window.Close()
	}
	return d.stream.Close()
}
