package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	apperr "github.com/fakeyudi/tabdock/internal/errors"
	"github.com/fakeyudi/tabdock/internal/host"
	"github.com/fakeyudi/tabdock/internal/session"
	"github.com/fakeyudi/tabdock/internal/state"
)

// DefaultGroupName names groups created without a name.
const DefaultGroupName = "New Group"

// Handle answers one control request. Failures are reported in the
// Response rather than returned.
func (e *Engine) Handle(ctx context.Context, req Request) Response {
	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		resp Response
		err  error
	)
	switch req := req.(type) {
	case GetTabGroupMap:
		resp, err = e.getTabGroupMap(ctx, req)
	case UpdateMultipleTabGroups:
		resp, err = e.updateMultipleTabGroups(ctx, req)
	case AddTabToNewGroup:
		resp, err = e.addTabToNewGroup(ctx, req)
	case UpdateGroupName:
		resp, err = e.updateGroupName(ctx, req)
	case CreateGroup:
		resp, err = e.createGroup(ctx, req)
	case DeleteGroup:
		resp, err = e.deleteGroup(ctx, req)
	case SaveSession:
		resp, err = e.saveSession(ctx)
	case RestoreSession:
		resp, err = e.restoreSession(ctx, req)
	case GetStoredSessions:
		resp, err = e.getStoredSessions(ctx)
	case GetSessionConfig:
		resp, err = e.getSessionConfig(ctx)
	case UpdateSessionConfig:
		resp, err = e.updateSessionConfig(ctx, req)
	default:
		err = apperr.InvalidParameters(fmt.Sprintf("unsupported request %T", req))
	}

	if err != nil {
		code := apperr.GetCode(err)
		if code == "" {
			code = apperr.ErrCodeInternal
		}
		e.log.WithError(err).WithFields(logrus.Fields{
			"request": fmt.Sprintf("%T", req),
			"code":    code,
		}).Debug("request failed")
		return Response{Error: err.Error(), Code: string(code)}
	}
	resp.Success = true
	return resp
}

func (e *Engine) getTabGroupMap(ctx context.Context, req GetTabGroupMap) (Response, error) {
	st, err := e.state.Get(ctx)
	if err != nil {
		return Response{}, err
	}
	if req.WindowID == nil {
		return Response{TabGroupMap: st.TabGroupMap}, nil
	}

	tabs, err := e.host.ListTabs(ctx, *req.WindowID)
	if err != nil {
		return Response{}, apperr.HostFailure("listTabs", err).WithDetail("windowId", int(*req.WindowID))
	}
	filtered := make(state.TabGroupMap)
	for _, t := range tabs {
		if g, ok := st.TabGroupMap[t.ID]; ok {
			filtered[t.ID] = g
		}
	}
	names := map[string]string{}
	if rec, ok := st.WindowData[*req.WindowID]; ok {
		for k, v := range rec.GroupNames {
			names[k] = v
		}
	}
	return Response{TabGroupMap: filtered, GroupNames: names}, nil
}

func (e *Engine) updateMultipleTabGroups(ctx context.Context, req UpdateMultipleTabGroups) (Response, error) {
	if len(req.TabIDs) == 0 {
		return Response{}, apperr.InvalidParameters("tabIds is required")
	}
	st, err := e.state.Get(ctx)
	if err != nil {
		return Response{}, err
	}
	for _, id := range req.TabIDs {
		if req.NewGroupID == "" || req.NewGroupID == state.Ungrouped {
			delete(st.TabGroupMap, id)
			continue
		}
		st.TabGroupMap[id] = req.NewGroupID
	}
	if err := e.state.Set(ctx, state.Update{TabGroupMap: st.TabGroupMap}); err != nil {
		return Response{}, err
	}
	e.scheduler.Notify()
	return Response{TabGroupMap: st.TabGroupMap}, nil
}

func (e *Engine) addTabToNewGroup(ctx context.Context, req AddTabToNewGroup) (Response, error) {
	if req.WindowID == 0 || req.TabID == 0 {
		return Response{}, apperr.InvalidParameters("windowId and tabId are required")
	}
	st, err := e.state.Get(ctx)
	if err != nil {
		return Response{}, err
	}
	groupID, err := e.registerGroup(st, req.WindowID, req.GroupID, req.GroupName)
	if err != nil {
		return Response{}, err
	}
	st.TabGroupMap[req.TabID] = groupID
	if err := e.state.Set(ctx, state.Update{TabGroupMap: st.TabGroupMap, WindowData: st.WindowData}); err != nil {
		return Response{}, err
	}
	e.scheduler.Notify()
	return Response{GroupID: groupID}, nil
}

func (e *Engine) createGroup(ctx context.Context, req CreateGroup) (Response, error) {
	if req.WindowID == 0 {
		return Response{}, apperr.InvalidParameters("windowId is required")
	}
	st, err := e.state.Get(ctx)
	if err != nil {
		return Response{}, err
	}
	groupID, err := e.registerGroup(st, req.WindowID, req.GroupID, req.GroupName)
	if err != nil {
		return Response{}, err
	}
	if err := e.state.Set(ctx, state.Update{WindowData: st.WindowData}); err != nil {
		return Response{}, err
	}
	return Response{GroupID: groupID, GroupNames: st.WindowData[req.WindowID].GroupNames}, nil
}

// registerGroup adds a group name to the window registry in st.
func (e *Engine) registerGroup(st state.State, windowID host.WindowID, groupID, name string) (string, error) {
	if groupID == "" {
		groupID = fmt.Sprintf("group-%d", e.now().UnixMilli())
	}
	if groupID == state.Ungrouped {
		return "", apperr.InvalidParameters("groupId is reserved").WithDetail("groupId", groupID)
	}
	if name == "" {
		name = DefaultGroupName
	}
	names := st.WindowData.Names(windowID)
	if _, exists := names[groupID]; exists {
		return "", apperr.DuplicateGroup(int(windowID), groupID)
	}
	names[groupID] = name
	return groupID, nil
}

func (e *Engine) updateGroupName(ctx context.Context, req UpdateGroupName) (Response, error) {
	if req.WindowID == 0 || req.GroupID == "" || req.GroupName == "" {
		return Response{}, apperr.InvalidParameters("windowId, groupId and groupName are required")
	}
	st, err := e.state.Get(ctx)
	if err != nil {
		return Response{}, err
	}
	rec, ok := st.WindowData[req.WindowID]
	if !ok {
		return Response{}, apperr.NotFound("window", fmt.Sprint(req.WindowID))
	}
	if _, ok := rec.GroupNames[req.GroupID]; !ok {
		return Response{}, apperr.NotFound("group", req.GroupID)
	}
	rec.GroupNames[req.GroupID] = req.GroupName
	if err := e.state.Set(ctx, state.Update{WindowData: st.WindowData}); err != nil {
		return Response{}, err
	}
	e.scheduler.Notify()
	return Response{GroupNames: rec.GroupNames}, nil
}

func (e *Engine) deleteGroup(ctx context.Context, req DeleteGroup) (Response, error) {
	if req.WindowID == 0 || req.GroupID == "" {
		return Response{}, apperr.InvalidParameters("windowId and groupId are required")
	}
	st, err := e.state.Get(ctx)
	if err != nil {
		return Response{}, err
	}
	rec, ok := st.WindowData[req.WindowID]
	if !ok {
		return Response{}, apperr.NotFound("window", fmt.Sprint(req.WindowID))
	}
	if _, ok := rec.GroupNames[req.GroupID]; !ok {
		return Response{}, apperr.NotFound("group", req.GroupID)
	}
	delete(rec.GroupNames, req.GroupID)

	// Tabs of the group in this window fall back to ungrouped. Without the
	// window's tab list every tab of the group is released.
	inWindow := map[host.TabID]bool{}
	tabs, err := e.host.ListTabs(ctx, req.WindowID)
	if err != nil {
		e.log.WithError(err).WithField("window", req.WindowID).Warn("failed to list tabs of deleted group")
	}
	for _, t := range tabs {
		inWindow[t.ID] = true
	}
	for id, g := range st.TabGroupMap {
		if g == req.GroupID && (err != nil || inWindow[id]) {
			delete(st.TabGroupMap, id)
		}
	}

	if err := e.state.Set(ctx, state.Update{TabGroupMap: st.TabGroupMap, WindowData: st.WindowData}); err != nil {
		return Response{}, err
	}
	e.scheduler.Notify()
	return Response{TabGroupMap: st.TabGroupMap, GroupNames: rec.GroupNames}, nil
}

func (e *Engine) saveSession(ctx context.Context) (Response, error) {
	snap, err := e.collector.Collect(ctx)
	if err != nil {
		return Response{}, err
	}
	if snap.TotalTabs == 0 {
		return Response{}, apperr.InvalidSession("no restorable tabs are open")
	}
	stored, err := e.sessions.CreateNew(ctx, snap)
	if err != nil {
		return Response{}, err
	}
	e.log.WithFields(logrus.Fields{"id": stored.ID, "tabs": stored.TotalTabs}).Info("session saved")
	return Response{Session: &stored}, nil
}

func (e *Engine) restoreSession(ctx context.Context, req RestoreSession) (Response, error) {
	all, err := e.sessions.GetAll(ctx)
	if err != nil {
		return Response{}, err
	}

	var snap *session.Snapshot
	switch {
	case req.SessionID == "" && len(all) > 0:
		snap = &all[0]
	case req.SessionID == "":
		return Response{}, apperr.InvalidSession("no stored sessions")
	default:
		for i := range all {
			if all[i].ID == req.SessionID {
				snap = &all[i]
				break
			}
		}
		if snap == nil {
			return Response{}, apperr.NotFound("session", req.SessionID)
		}
	}

	// Tabs opened before a failure are marked too, so their creation events
	// are skipped.
	res, err := e.restorer.Restore(ctx, snap)
	for _, id := range res.Tabs {
		e.restored[id] = struct{}{}
	}
	if err != nil {
		return Response{}, err
	}
	return Response{Restore: &res, Session: snap}, nil
}

func (e *Engine) getStoredSessions(ctx context.Context) (Response, error) {
	all, err := e.sessions.GetAll(ctx)
	if err != nil {
		return Response{}, err
	}
	if all == nil {
		all = []session.Snapshot{}
	}
	cfg, err := e.sessions.Config(ctx)
	if err != nil {
		return Response{}, err
	}
	return Response{Sessions: all, Config: &cfg}, nil
}

func (e *Engine) getSessionConfig(ctx context.Context) (Response, error) {
	cfg, err := e.sessions.Config(ctx)
	if err != nil {
		return Response{}, err
	}
	return Response{Config: &cfg}, nil
}

func (e *Engine) updateSessionConfig(ctx context.Context, req UpdateSessionConfig) (Response, error) {
	cfg, err := e.sessions.SetConfig(ctx, req.Config)
	if err != nil {
		return Response{}, err
	}
	return Response{Config: &cfg}, nil
}
