package engine

import (
	"github.com/fakeyudi/tabdock/internal/host"
	"github.com/fakeyudi/tabdock/internal/restore"
	"github.com/fakeyudi/tabdock/internal/session"
	"github.com/fakeyudi/tabdock/internal/state"
)

// Request is one control message. The set is closed; Handle switches over
// every variant.
type Request interface {
	isRequest()
}

// GetTabGroupMap returns the group mapping, limited to one window when
// WindowID is set.
type GetTabGroupMap struct {
	WindowID *host.WindowID `json:"windowId,omitempty"`
}

// UpdateMultipleTabGroups moves tabs into NewGroupID. The Ungrouped id, or
// an empty one, removes their mapping.
type UpdateMultipleTabGroups struct {
	TabIDs     []host.TabID `json:"tabIds"`
	NewGroupID string       `json:"newGroupId"`
}

// AddTabToNewGroup creates a group in the window and moves the tab into it.
type AddTabToNewGroup struct {
	WindowID  host.WindowID `json:"windowId"`
	TabID     host.TabID    `json:"tabId"`
	GroupID   string        `json:"groupId,omitempty"`
	GroupName string        `json:"groupName,omitempty"`
}

// UpdateGroupName renames an existing group.
type UpdateGroupName struct {
	WindowID  host.WindowID `json:"windowId"`
	GroupID   string        `json:"groupId"`
	GroupName string        `json:"groupName"`
}

// CreateGroup registers a group name in a window.
type CreateGroup struct {
	WindowID  host.WindowID `json:"windowId"`
	GroupID   string        `json:"groupId,omitempty"`
	GroupName string        `json:"groupName,omitempty"`
}

// DeleteGroup drops a group and ungroups its tabs.
type DeleteGroup struct {
	WindowID host.WindowID `json:"windowId"`
	GroupID  string        `json:"groupId"`
}

// SaveSession stores the open tabs as a new session.
type SaveSession struct{}

// RestoreSession reopens a stored session, the current one when SessionID
// is empty.
type RestoreSession struct {
	SessionID string `json:"sessionId,omitempty"`
}

// GetStoredSessions lists stored sessions, newest first.
type GetStoredSessions struct{}

// GetSessionConfig returns the retention config.
type GetSessionConfig struct{}

// UpdateSessionConfig replaces the retention config.
type UpdateSessionConfig struct {
	Config session.Config `json:"config"`
}

func (GetTabGroupMap) isRequest()          {}
func (UpdateMultipleTabGroups) isRequest() {}
func (AddTabToNewGroup) isRequest()        {}
func (UpdateGroupName) isRequest()         {}
func (CreateGroup) isRequest()             {}
func (DeleteGroup) isRequest()             {}
func (SaveSession) isRequest()             {}
func (RestoreSession) isRequest()          {}
func (GetStoredSessions) isRequest()       {}
func (GetSessionConfig) isRequest()        {}
func (UpdateSessionConfig) isRequest()     {}

// Response is the reply to every Request. Only the payload fields that
// belong to the request are set. The map and list payloads are always
// encoded, so an empty result arrives as {} or [] and an unrelated one as
// null.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`

	TabGroupMap state.TabGroupMap  `json:"tabGroupMap"`
	GroupNames  map[string]string  `json:"groupNames"`
	GroupID     string             `json:"groupId,omitempty"`
	Session     *session.Snapshot  `json:"session,omitempty"`
	Sessions    []session.Snapshot `json:"sessions"`
	Config      *session.Config    `json:"config,omitempty"`
	Restore     *restore.Result    `json:"restore,omitempty"`
}
