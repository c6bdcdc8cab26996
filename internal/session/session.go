package session

// Snapshot is one restorable session: every restorable tab of every window
// plus the group names needed to rebuild the grouping.
type Snapshot struct {
	ID          string            `json:"id" yaml:"id"`
	Timestamp   int64             `json:"timestamp" yaml:"timestamp"` // epoch millis of last write
	TotalTabs   int               `json:"totalTabs" yaml:"totalTabs"`
	WindowCount int               `json:"windowCount" yaml:"windowCount"`
	Windows     []WindowSnapshot  `json:"windows" yaml:"windows"`
	GroupNames  map[string]string `json:"groupNames" yaml:"groupNames"` // union of every window's names
}

// WindowSnapshot is one window of a Snapshot.
type WindowSnapshot struct {
	Tabs       []TabSnapshot     `json:"tabs" yaml:"tabs"`
	GroupNames map[string]string `json:"groupNames" yaml:"groupNames"`
}

// TabSnapshot is one restorable tab. GroupID is "ungrouped" for tabs without a group.
type TabSnapshot struct {
	URL     string `json:"url" yaml:"url"`
	Title   string `json:"title" yaml:"title"`
	Pinned  bool   `json:"pinned" yaml:"pinned"`
	GroupID string `json:"groupId" yaml:"groupId"`
}

// Config holds the retention settings of the repository.
type Config struct {
	MaxSessions int `json:"maxSessions" yaml:"maxSessions"`
}

// Retention bounds.
const (
	DefaultMaxSessions = 3
	MinMaxSessions     = 1
	MaxMaxSessions     = 10
)

// DefaultConfig returns the configuration applied when none is stored.
func DefaultConfig() Config {
	return Config{MaxSessions: DefaultMaxSessions}
}

// CountTabs sums the tabs over all windows.
func (s Snapshot) CountTabs() int {
	n := 0
	for _, w := range s.Windows {
		n += len(w.Tabs)
	}
	return n
}

// Empty reports whether the snapshot has nothing to restore.
func (s Snapshot) Empty() bool {
	return s.CountTabs() == 0
}

// Clone returns a deep copy so stored records never alias caller data.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.GroupNames = cloneNames(s.GroupNames)
	out.Windows = make([]WindowSnapshot, len(s.Windows))
	for i, w := range s.Windows {
		out.Windows[i] = WindowSnapshot{
			Tabs:       append([]TabSnapshot(nil), w.Tabs...),
			GroupNames: cloneNames(w.GroupNames),
		}
	}
	return out
}

func cloneNames(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
