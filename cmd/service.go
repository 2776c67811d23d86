package main

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/globedrape/bulk"
	"github.com/aukilabs/globedrape/control"
	"github.com/aukilabs/globedrape/dataset"
	"github.com/aukilabs/globedrape/drape"
	globehttp "github.com/aukilabs/globedrape/http"
	"github.com/aukilabs/globedrape/surface"
	"github.com/aukilabs/globedrape/task"
	"github.com/aukilabs/globedrape/view"
	"github.com/aukilabs/globedrape/websocket"
	"github.com/aukilabs/globedrape/wmts"
	xwebsocket "golang.org/x/net/websocket"
)

const (
	errTypeInvalidArgument = "invalid_argument"

	msgTypeShow   = "show"
	msgTypeCamera = "camera"
	msgTypeState  = "state"
)

var statusCodes = map[string]int{
	errTypeInvalidArgument:     http.StatusBadRequest,
	dataset.ErrTypeNotFound:    http.StatusNotFound,
	surface.ErrTypeNotReady:    http.StatusServiceUnavailable,
	drape.ErrTypeInvalidConfig: http.StatusUnprocessableEntity,
	bulk.ErrTypeCancelled:      http.StatusServiceUnavailable,
	task.ErrTypeTimeout:        http.StatusGatewayTimeout,
}

// service exposes the surface controller over HTTP and WebSocket. Builds are
// bound to ctx rather than to the requests that trigger them.
type service struct {
	ctx           context.Context
	loop          *control.Loop
	dataset       dataset.Dataset
	factory       *drape.Factory
	controller    *surface.Controller
	tour          tour
	feed          *websocket.Feed
	basemap       string
	wsIdleTimeout time.Duration
	wsHeartbeat   time.Duration
}

// State is the body of state responses.
type State struct {
	surface.State

	Nodes    int               `json:"nodes"`
	Progress *surface.Progress `json:"progress,omitempty"`
	Tiles    []drape.TileState `json:"tiles,omitempty"`
}

// state returns the controller state read on the loop. The value is only
// read once the loop has run the call.
func (s *service) state(ctx context.Context) (State, error) {
	done := make(chan State, 1)
	if err := s.loop.Call(ctx, func() {
		var state State
		state.State = s.controller.Snapshot()

		if active, ok := s.controller.Active(); ok {
			if ds, ok := active.(*drape.Surface); ok {
				p := ds.Progress()
				state.Progress = &p
				state.Tiles = ds.Tiles()
			}
		}
		done <- state
	}); err != nil {
		return State{}, err
	}

	state := <-done
	state.Nodes = s.factory.Nodes()
	return state, nil
}

func (s *service) show(ctx context.Context, key surface.Key) error {
	if err := s.checkKey(key); err != nil {
		return err
	}

	var err error
	if callErr := s.loop.Call(ctx, func() {
		err = s.controller.Show(s.ctx, key)
	}); callErr != nil {
		return callErr
	}
	return err
}

func (s *service) setCamera(c view.Camera) {
	s.loop.Post(func() {
		s.controller.UpdateCamera(c)
	})
}

func (s *service) checkKey(key surface.Key) error {
	times, err := s.dataset.Times(key.Name)
	if err != nil {
		return err
	}
	if err := checkIndex("time", key.Time, len(times)); err != nil {
		return err
	}

	levels, err := s.dataset.Levels(key.Name)
	if err != nil {
		return err
	}
	return checkIndex("level", key.Level, len(levels))
}

func checkIndex(name string, index, count int) error {
	if index == surface.NoIndex || (index == 0 && count == 0) {
		return nil
	}
	if index < 0 || index >= count {
		return errors.Newf("%s index %d out of range", name, index).
			WithType(dataset.ErrTypeNotFound).
			WithTag("count", count)
	}
	return nil
}

func (s *service) HandleShow(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey(r)
	if err != nil {
		globehttp.WriteError(w, err, statusCodes)
		return
	}

	if err := s.show(r.Context(), key); err != nil {
		globehttp.WriteError(w, err, statusCodes)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *service) HandleState(w http.ResponseWriter, r *http.Request) {
	state, err := s.state(r.Context())
	if err != nil {
		globehttp.WriteError(w, err, statusCodes)
		return
	}
	globehttp.WriteJSON(w, http.StatusOK, state)
}

func (s *service) HandleBasemap(w http.ResponseWriter, r *http.Request) {
	if s.basemap == "" {
		globehttp.WriteError(w, errors.New("no basemap configured").
			WithType(dataset.ErrTypeNotFound), statusCodes)
		return
	}

	q := r.URL.Query()
	lat, err := parseFloat(q, "lat")
	if err != nil {
		globehttp.WriteError(w, err, statusCodes)
		return
	}

	lon, err := parseFloat(q, "lon")
	if err != nil {
		globehttp.WriteError(w, err, statusCodes)
		return
	}

	zoom, err := parseFloat(q, "zoom")
	if err != nil {
		globehttp.WriteError(w, err, statusCodes)
		return
	}

	at := time.Now().UTC()
	if raw := q.Get("time"); raw != "" {
		if at, err = time.Parse(time.RFC3339, raw); err != nil {
			globehttp.WriteError(w, errors.New("invalid basemap time").
				WithType(errTypeInvalidArgument).
				Wrap(err), statusCodes)
			return
		}
	}

	location, err := wmts.Expand(s.basemap, at, wmts.TileAt(lat, lon, int(zoom)))
	if err != nil {
		globehttp.WriteError(w, err, statusCodes)
		return
	}
	http.Redirect(w, r, location, http.StatusFound)
}

func (s *service) HandleEvents() xwebsocket.Server {
	return xwebsocket.Server{
		Handshake: func(c *xwebsocket.Config, r *http.Request) error {
			return nil
		},
		Handler: func(conn *xwebsocket.Conn) {
			defer conn.Close()

			websocket.Handle(s.ctx, conn, websocket.Options{
				Feed:              s.feed,
				HeartbeatInterval: s.wsHeartbeat,
				IdleTimeout:       s.wsIdleTimeout,
				HandleMessage:     s.handleMessage,
			})
		},
	}
}

type cameraMessage struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Altitude float64 `json:"altitude"`
}

func (s *service) handleMessage(ctx context.Context, respond websocket.Responder, msg websocket.Message) error {
	switch msg.Type {
	case msgTypeShow:
		key := surface.NewKey("")
		if err := msg.DataTo(&key); err != nil {
			return errors.New("invalid show message").
				WithType(errTypeInvalidArgument).
				Wrap(err)
		}
		return s.show(ctx, key)

	case msgTypeCamera:
		var c cameraMessage
		if err := msg.DataTo(&c); err != nil {
			return errors.New("invalid camera message").
				WithType(errTypeInvalidArgument).
				Wrap(err)
		}
		s.setCamera(s.tour.CameraAt(c.Lat, c.Lon, c.Altitude))
		return nil

	case msgTypeState:
		state, err := s.state(ctx)
		if err != nil {
			return err
		}
		return respond.Send(msgTypeState, state)

	default:
		return errors.New("unknown message type").
			WithType(errTypeInvalidArgument).
			WithTag("type", msg.Type)
	}
}

// publish forwards controller events to the WebSocket feed.
func (s *service) publish(e surface.Event) {
	if err := s.feed.Publish(e.Type, e); err != nil {
		logs.Error(errors.New("publishing surface event failed").
			WithTag("event", e.Type).
			Wrap(err))
	}
}

// runTour moves the camera around the globe until ctx is done.
func (s *service) runTour(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return

		case now := <-ticker.C:
			s.setCamera(s.tour.CameraAfter(now.Sub(start)))
		}
	}
}

func parseKey(r *http.Request) (surface.Key, error) {
	q := r.URL.Query()

	key := surface.NewKey(q.Get("name"))
	if key.Name == "" {
		return surface.Key{}, errors.New("name is missing").
			WithType(errTypeInvalidArgument)
	}

	t, err := parseIndex(q.Get("time"))
	if err != nil {
		return surface.Key{}, err
	}

	l, err := parseIndex(q.Get("level"))
	if err != nil {
		return surface.Key{}, err
	}
	return key.WithTime(t).WithLevel(l), nil
}

func parseIndex(raw string) (int, error) {
	if raw == "" {
		return surface.NoIndex, nil
	}

	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 {
		return 0, errors.New("index is not a positive integer").
			WithType(errTypeInvalidArgument).
			WithTag("index", raw)
	}
	return i, nil
}

func parseFloat(q url.Values, name string) (float64, error) {
	v, err := strconv.ParseFloat(q.Get(name), 64)
	if err != nil {
		return 0, errors.New("invalid number").
			WithType(errTypeInvalidArgument).
			WithTag("param", name).
			Wrap(err)
	}
	return v, nil
}
