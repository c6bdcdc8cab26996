// Package server exposes the control requests over a local websocket.
// Each text frame carries one JSON request with an "action" field; the
// reply echoes the optional "id" next to the response fields.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/fakeyudi/tabdock/internal/engine"
	apperr "github.com/fakeyudi/tabdock/internal/errors"
	"github.com/fakeyudi/tabdock/internal/logging"
)

// Handler answers control requests.
type Handler interface {
	Handle(ctx context.Context, req engine.Request) engine.Response
}

// Server is the websocket control surface.
type Server struct {
	handler  Handler
	log      *logrus.Entry
	upgrader websocket.Upgrader
}

// New returns a Server dispatching to h.
func New(h Handler, log *logrus.Entry) *Server {
	if log == nil {
		log = logging.NewLogger("server")
	}
	return &Server{
		handler:  h,
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowedOrigin},
	}
}

// allowedOrigin admits extension pages, loopback pages and clients that send
// no Origin at all.
func allowedOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "chrome-extension", "moz-extension":
		return true
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// Routes returns the HTTP handler: /ws for the control socket and /healthz.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.WithField("addr", addr).Info("control surface listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type reply struct {
	ID string `json:"id,omitempty"`
	engine.Response
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	log := s.log.WithField("remote", r.RemoteAddr)
	log.Debug("client connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("websocket read ended")
			}
			return
		}

		id, req, err := Decode(data)
		var resp engine.Response
		if err != nil {
			resp = engine.Response{Error: err.Error(), Code: string(apperr.GetCode(err))}
		} else {
			resp = s.handler.Handle(ctx, req)
		}
		if err := conn.WriteJSON(reply{ID: id, Response: resp}); err != nil {
			log.WithError(err).Warn("websocket write failed")
			return
		}
	}
}

// Actions accepted on the wire.
const (
	ActionGetTabGroupMap          = "getTabGroupMap"
	ActionUpdateMultipleTabGroups = "updateMultipleTabGroups"
	ActionAddTabToNewGroup        = "addTabToNewGroup"
	ActionUpdateGroupName         = "updateGroupName"
	ActionCreateGroup             = "createGroup"
	ActionDeleteGroup             = "deleteGroup"
	ActionSaveSession             = "saveSession"
	ActionRestoreSession          = "restoreSession"
	ActionGetStoredSessions       = "getStoredSessions"
	ActionGetSessionConfig        = "getSessionConfig"
	ActionUpdateSessionConfig     = "updateSessionConfig"
)

type envelope struct {
	ID     string `json:"id"`
	Action string `json:"action"`
}

// Decode parses one wire message into its request variant. The returned id
// is the caller's correlation id, empty when absent.
func Decode(data []byte) (string, engine.Request, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, apperr.InvalidParameters("malformed message").WithDetail("cause", err.Error())
	}

	var (
		req engine.Request
		err error
	)
	switch env.Action {
	case ActionGetTabGroupMap:
		req, err = decodeInto[engine.GetTabGroupMap](data)
	case ActionUpdateMultipleTabGroups:
		req, err = decodeInto[engine.UpdateMultipleTabGroups](data)
	case ActionAddTabToNewGroup:
		req, err = decodeInto[engine.AddTabToNewGroup](data)
	case ActionUpdateGroupName:
		req, err = decodeInto[engine.UpdateGroupName](data)
	case ActionCreateGroup:
		req, err = decodeInto[engine.CreateGroup](data)
	case ActionDeleteGroup:
		req, err = decodeInto[engine.DeleteGroup](data)
	case ActionSaveSession:
		req = engine.SaveSession{}
	case ActionRestoreSession:
		req, err = decodeInto[engine.RestoreSession](data)
	case ActionGetStoredSessions:
		req = engine.GetStoredSessions{}
	case ActionGetSessionConfig:
		req = engine.GetSessionConfig{}
	case ActionUpdateSessionConfig:
		req, err = decodeInto[engine.UpdateSessionConfig](data)
	case "":
		return env.ID, nil, apperr.InvalidParameters("action is required")
	default:
		return env.ID, nil, apperr.InvalidParameters(fmt.Sprintf("unknown action %q", env.Action))
	}

	if err != nil {
		return env.ID, nil, apperr.InvalidParameters(fmt.Sprintf("bad %s message", env.Action)).WithDetail("cause", err.Error())
	}
	return env.ID, req, nil
}

func decodeInto[T engine.Request](data []byte) (engine.Request, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
