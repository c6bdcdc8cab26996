package host

// Event is one tab lifecycle notification. The set is closed: TabCreated,
// TabRemoved, TabUpdated and TabMoved.
type Event interface {
	isEvent()
}

// TabCreated is delivered after the host created a tab.
type TabCreated struct {
	Tab Tab
}

// TabRemoved is delivered after the host closed a tab.
type TabRemoved struct {
	TabID    TabID
	WindowID WindowID
	// WindowClosing is set when the tab went away with its window.
	WindowClosing bool
}

// TabUpdated carries the fields that changed on a tab.
type TabUpdated struct {
	TabID   TabID
	Changed ChangedFields
	Tab     Tab
}

// TabMoved is delivered when a tab changed position or window.
type TabMoved struct {
	TabID    TabID
	WindowID WindowID
}

func (TabCreated) isEvent() {}
func (TabRemoved) isEvent() {}
func (TabUpdated) isEvent() {}
func (TabMoved) isEvent()   {}

// ChangedFields lists what a TabUpdated changed. Nil pointers are unchanged.
type ChangedFields struct {
	URL    *string
	Title  *string
	Pinned *bool
	Status string
}

// AffectsSnapshot reports whether the change alters restorable state.
func (c ChangedFields) AffectsSnapshot() bool {
	return c.URL != nil || c.Title != nil
}

// EventSource is implemented by hosts that can stream tab events.
type EventSource interface {
	// Events returns a channel that is closed when the host detaches.
	Events() <-chan Event
}
