package tracker

import "github.com/MikeSquared-Agency/chatmark/internal/dom"

// Signal is one input to the tracker loop.
type Signal int

const (
	SignalPoll Signal = iota
	SignalPush
	SignalReplace
	SignalPop
	SignalHash
	SignalMutation
)

func (s Signal) String() string {
	switch s {
	case SignalPoll:
		return "poll"
	case SignalPush:
		return "push"
	case SignalReplace:
		return "replace"
	case SignalPop:
		return "pop"
	case SignalHash:
		return "hash"
	case SignalMutation:
		return "mutation"
	}
	return "unknown"
}

// SignalFor maps a navigation kind onto its tracker signal.
func SignalFor(kind dom.NavigationKind) Signal {
	switch kind {
	case dom.NavigatePush:
		return SignalPush
	case dom.NavigateReplace:
		return SignalReplace
	case dom.NavigatePop:
		return SignalPop
	case dom.NavigateHash:
		return SignalHash
	}
	return SignalPoll
}

// ListenNavigation forwards every navigation of w to notify. History
// interception and back/forward both arrive here; the returned func detaches.
func ListenNavigation(w *dom.Window, notify func(Signal)) func() {
	return w.Listen(func(nav dom.Navigation) {
		notify(SignalFor(nav.Kind))
	})
}
