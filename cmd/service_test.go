package main

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/globedrape/surface"
	"github.com/aukilabs/globedrape/websocket"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

func testConfig() config {
	return config{
		Tiling:      "uniform",
		Concurrency: 4,
		InitTimeout: 10 * time.Second,
		Dataset: datasetConfig{
			Width:     72,
			Height:    36,
			TimeSteps: 3,
			Radius:    6371,
		},
		View: viewConfig{
			VerticalResolution: 1000,
			MaxPixelError:      1,
			FOV:                60,
			Aspect:             1,
			CMin:               4330,
			CMax:               100000,
		},
		Tour: tourConfig{
			Period:   time.Minute,
			Altitude: 12000,
		},
	}
}

func newTestService(t *testing.T, conf config, init bool) *service {
	ctx, cancel := context.WithCancel(context.Background())

	svc, err := newService(ctx, conf)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.loop.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		svc.controller.Close()
	})

	if init {
		svc.controller.Init(ctx, nil)
		require.Eventually(t, svc.controller.Ready, 5*time.Second, time.Millisecond)
	}
	return svc
}

func get(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestServiceShow(t *testing.T) {
	t.Run("not ready", func(t *testing.T) {
		svc := newTestService(t, testConfig(), false)

		w := get(svc.HandleShow, "/show?name=temperature")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	svc := newTestService(t, testConfig(), true)

	t.Run("shows surface", func(t *testing.T) {
		w := get(svc.HandleShow, "/show?name=temperature&time=1&level=2")
		require.Equal(t, http.StatusAccepted, w.Code)

		expected := surface.NewKey("temperature").WithTime(1).WithLevel(2)
		require.Eventually(t, func() bool {
			state, err := svc.state(context.Background())
			return err == nil && state.Active != nil && *state.Active == expected
		}, 5*time.Second, time.Millisecond)

		state, err := svc.state(context.Background())
		require.NoError(t, err)
		require.True(t, state.Ready)
		require.NotEmpty(t, state.Tiles)
		require.NotNil(t, state.Progress)
		require.Equal(t, 2*len(state.Tiles), state.Progress.Total)
		require.Equal(t, state.Progress.Total, state.Nodes)
	})

	t.Run("state endpoint", func(t *testing.T) {
		w := get(svc.HandleState, "/state")
		require.Equal(t, http.StatusOK, w.Code)

		var state State
		err := json.Unmarshal(w.Body.Bytes(), &state)
		require.NoError(t, err)
		require.True(t, state.Ready)
		require.NotNil(t, state.Active)
	})

	tests := []struct {
		target string
		code   int
	}{
		{target: "/show", code: http.StatusBadRequest},
		{target: "/show?name=temperature&time=x", code: http.StatusBadRequest},
		{target: "/show?name=temperature&level=-3", code: http.StatusBadRequest},
		{target: "/show?name=salinity", code: http.StatusNotFound},
		{target: "/show?name=temperature&time=3", code: http.StatusNotFound},
		{target: "/show?name=wave_height&level=1", code: http.StatusNotFound},
		{target: "/show?name=wave_height&level=0", code: http.StatusAccepted},
	}

	for _, test := range tests {
		t.Run(test.target, func(t *testing.T) {
			w := get(svc.HandleShow, test.target)
			require.Equal(t, test.code, w.Code)
		})
	}
}

func TestServiceStateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := newService(ctx, testConfig())
	require.NoError(t, err)
	defer svc.controller.Close()

	reqCtx, reqCancel := context.WithCancel(context.Background())
	reqCancel()

	state, err := svc.state(reqCtx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, State{}, state)

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.loop.Run(ctx)
	}()

	state, err = svc.state(context.Background())
	require.NoError(t, err)
	require.False(t, state.Ready)

	cancel()
	<-done
}

func TestServiceBasemap(t *testing.T) {
	svc := newTestService(t, testConfig(), false)

	t.Run("not configured", func(t *testing.T) {
		w := get(svc.HandleBasemap, "/basemap?lat=0&lon=0&zoom=1")
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	svc.basemap = "https://tiles.example.com/%Y-%M-%D/%L/%y/%x.png"

	t.Run("redirects", func(t *testing.T) {
		w := get(svc.HandleBasemap, "/basemap?lat=10&lon=10&zoom=1&time=2024-02-03T00:00:00Z")
		require.Equal(t, http.StatusFound, w.Code)
		require.Equal(t, "https://tiles.example.com/2024-02-03/1/0/1.png", w.Header().Get("Location"))
	})

	t.Run("invalid coordinates", func(t *testing.T) {
		w := get(svc.HandleBasemap, "/basemap?lat=north&lon=10&zoom=1")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid time", func(t *testing.T) {
		w := get(svc.HandleBasemap, "/basemap?lat=10&lon=10&zoom=1&time=yesterday")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

type testResponder struct {
	types []string
}

func (r *testResponder) Send(typ string, data any) error {
	r.types = append(r.types, typ)
	return nil
}

func TestServiceHandleMessage(t *testing.T) {
	svc := newTestService(t, testConfig(), true)

	sub := svc.feed.Subscribe(64)
	defer sub.Close()

	message := func(typ string, data any) websocket.Message {
		msg, err := websocket.NewMessage(typ, data)
		require.NoError(t, err)
		return msg
	}

	t.Run("show", func(t *testing.T) {
		var r testResponder
		err := svc.handleMessage(context.Background(), &r, message(msgTypeShow, map[string]any{
			"name": "wave_height",
		}))
		require.NoError(t, err)

		for {
			var msg websocket.Message
			select {
			case b := <-sub.Messages():
				err := json.Unmarshal(b, &msg)
				require.NoError(t, err)

			case <-time.After(5 * time.Second):
				t.Fatal("surface not activated")
			}

			if msg.Type != surface.EventActivated {
				continue
			}

			var e surface.Event
			err := msg.DataTo(&e)
			require.NoError(t, err)
			require.Equal(t, surface.NewKey("wave_height"), e.Key)
			break
		}
	})

	t.Run("camera", func(t *testing.T) {
		var r testResponder
		err := svc.handleMessage(context.Background(), &r, message(msgTypeCamera, cameraMessage{
			Lat: 10,
			Lon: 20,
		}))
		require.NoError(t, err)
	})

	t.Run("state", func(t *testing.T) {
		var r testResponder
		err := svc.handleMessage(context.Background(), &r, message(msgTypeState, nil))
		require.NoError(t, err)
		require.Equal(t, []string{msgTypeState}, r.types)
	})

	t.Run("unknown", func(t *testing.T) {
		var r testResponder
		err := svc.handleMessage(context.Background(), &r, message("dance", nil))
		require.Error(t, err)
		require.True(t, errors.IsType(err, errTypeInvalidArgument))
	})
}

func TestNewServiceInvalidConfig(t *testing.T) {
	conf := testConfig()
	conf.Dataset.Width = 0
	_, err := newService(context.Background(), conf)
	require.Error(t, err)

	conf = testConfig()
	conf.Tiling = "hexagonal"
	_, err = newService(context.Background(), conf)
	require.Error(t, err)
}

func TestTour(t *testing.T) {
	tr := tour{
		Radius:   6371,
		Altitude: 1000,
		Period:   time.Minute,
		FOV:      math.Pi / 3,
		Aspect:   1,
	}

	t.Run("camera looks at the center", func(t *testing.T) {
		c := tr.CameraAt(45, 90, 0)
		require.InDelta(t, 7371, c.Position.Norm(), 1e-6)

		toCenter := c.Position.Mul(-1).Normalize()
		require.InDelta(t, 1, c.Forward().Dot(toCenter), 1e-9)
		require.Less(t, c.Near, c.Far)
	})

	t.Run("camera above the pole", func(t *testing.T) {
		c := tr.CameraAt(90, 0, 500)
		require.InDelta(t, 6871, c.Position.Norm(), 1e-6)
		require.False(t, math.IsNaN(c.Forward().X))
	})

	t.Run("revolution", func(t *testing.T) {
		start := tr.CameraAfter(0)
		half := tr.CameraAfter(30 * time.Second)
		full := tr.CameraAfter(time.Minute)

		require.InDelta(t, 0, start.Position.Sub(full.Position).Norm(), 1e-6)
		require.Greater(t, start.Position.Sub(half.Position).Norm(), 7371.0)
	})
}
