package autosave

import "github.com/fakeyudi/tabdock/internal/session"

// Decision is the outcome of evaluating a tab-creation event.
type Decision int

const (
	// Normal means the regular debounced update path applies.
	Normal Decision = iota
	// FreshStartSuspected means the event looks like a browser relaunch and
	// deserves its own session slot.
	FreshStartSuspected
)

func (d Decision) String() string {
	switch d {
	case FreshStartSuspected:
		return "fresh-start-suspected"
	default:
		return "normal"
	}
}

// FreshStartPolicy guesses whether the browser was just relaunched. There is
// no authoritative restart signal, so the thresholds are tuning knobs.
type FreshStartPolicy struct {
	// Windows is the exact open-window count a relaunch shows.
	Windows int
	// MaxOpenTabs is the most open tabs a relaunch is expected to show.
	MaxOpenTabs int
	// MinPriorTabs is the tab count the newest stored session must exceed.
	MinPriorTabs int
}

// DefaultFreshStartPolicy returns exactly 1 window, <= 2 tabs, prior session
// > 3 tabs.
func DefaultFreshStartPolicy() FreshStartPolicy {
	return FreshStartPolicy{Windows: 1, MaxOpenTabs: 2, MinPriorTabs: 3}
}

// Evaluate decides for one tab-creation event. stored is newest first.
func (p FreshStartPolicy) Evaluate(stored []session.Snapshot, openWindows, openTabs int) Decision {
	if len(stored) == 0 {
		return FreshStartSuspected
	}
	if openWindows == p.Windows &&
		openTabs <= p.MaxOpenTabs &&
		stored[0].TotalTabs > p.MinPriorTabs {
		return FreshStartSuspected
	}
	return Normal
}
