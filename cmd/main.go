package main

import (
	"context"
	"fmt"
	"io/fs"
	"math"
	"net/http"
	"net/http/pprof"
	"os"
	"reflect"
	"sync"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/globedrape/bulk"
	"github.com/aukilabs/globedrape/colormap"
	"github.com/aukilabs/globedrape/control"
	"github.com/aukilabs/globedrape/dataset"
	"github.com/aukilabs/globedrape/drape"
	"github.com/aukilabs/globedrape/featureflag"
	"github.com/aukilabs/globedrape/geo"
	globehttp "github.com/aukilabs/globedrape/http"
	"github.com/aukilabs/globedrape/registry"
	"github.com/aukilabs/globedrape/surface"
	"github.com/aukilabs/globedrape/task"
	"github.com/aukilabs/globedrape/view"
	"github.com/aukilabs/globedrape/websocket"
	"github.com/golang/geo/r3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
)

var (
	// The globedrape version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "globedrape_info",
		Help:        "Globedrape information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr              string        `cli:""        env:"GLOBEDRAPE_ADDR"               help:"Listening address for client connections."`
	AdminAddr         string        `cli:""        env:"GLOBEDRAPE_ADMIN_ADDR"         help:"Admin listening address."`
	LogLevel          string        `cli:""        env:"GLOBEDRAPE_LOG_LEVEL"          help:"Log level (debug|info|warning|error)."`
	LogIndent         bool          `cli:""        env:"GLOBEDRAPE_LOG_INDENT"         help:"Indent logs."`
	Tiling            string        `cli:""        env:"GLOBEDRAPE_TILING"             help:"Tiling mode (uniform|tree)."`
	PaletteDir        string        `cli:""        env:"GLOBEDRAPE_PALETTE_DIR"        help:"Directory of JSON palettes. Built-in palettes are used when empty."`
	BasemapTemplate   string        `cli:""        env:"GLOBEDRAPE_BASEMAP_TEMPLATE"   help:"Web map tile URL template of the basemap."`
	FeatureFlags      []string      `cli:",hidden" env:"GLOBEDRAPE_FEATURE_FLAGS"      help:"Comma separated feature flags."`
	Concurrency       int           `cli:",hidden" env:"GLOBEDRAPE_CONCURRENCY"        help:"The maximum number of tile builds running at once."`
	InitTimeout       time.Duration `cli:",hidden" env:"GLOBEDRAPE_INIT_TIMEOUT"       help:"The time given to the facet sizing of the dataset."`
	Dataset           datasetConfig `cli:",hidden" env:"-"                             help:"Synthetic dataset configuration."`
	View              viewConfig    `cli:",hidden" env:"-"                             help:"Viewer configuration."`
	Tour              tourConfig    `cli:",hidden" env:"-"                             help:"Camera tour configuration."`
	HeartbeatInterval time.Duration `cli:",hidden" env:"GLOBEDRAPE_HEARTBEAT_INTERVAL" help:"Client heartbeat message interval."`
	ClientIdleTimeout time.Duration `cli:",hidden" env:"GLOBEDRAPE_CLIENT_IDLE_TIMEOUT" help:"Time until an idle client will be disconnected."`
	Events            eventsConfig  `cli:",hidden" env:"-"                             help:"Event pusher configuration."`
	Version           bool          `cli:""        env:"-"                             help:"Show version."`
	Help              bool          `cli:""        env:"-"                             help:"Show help."`
}

type datasetConfig struct {
	Width     int     `cli:",hidden" env:"GLOBEDRAPE_DATASET_WIDTH"      help:"The number of columns of the synthetic raster."`
	Height    int     `cli:",hidden" env:"GLOBEDRAPE_DATASET_HEIGHT"     help:"The number of rows of the synthetic raster."`
	TimeSteps int     `cli:",hidden" env:"GLOBEDRAPE_DATASET_TIME_STEPS" help:"The number of hourly time steps."`
	Radius    float64 `cli:",hidden" env:"GLOBEDRAPE_DATASET_RADIUS"     help:"The globe radius in model units."`
}

type viewConfig struct {
	VerticalResolution float64 `cli:",hidden" env:"GLOBEDRAPE_VIEW_VERTICAL_RESOLUTION" help:"The vertical resolution of the viewport in pixels."`
	MaxPixelError      float64 `cli:",hidden" env:"GLOBEDRAPE_VIEW_MAX_PIXEL_ERROR"     help:"The tolerated screen error in pixels."`
	FOV                float64 `cli:",hidden" env:"GLOBEDRAPE_VIEW_FOV"                 help:"The vertical field of view in degrees."`
	Aspect             float64 `cli:",hidden" env:"GLOBEDRAPE_VIEW_ASPECT"              help:"The viewport width over height."`
	CMin               float64 `cli:",hidden" env:"GLOBEDRAPE_VIEW_CMIN"                help:"The closest camera distance considered."`
	CMax               float64 `cli:",hidden" env:"GLOBEDRAPE_VIEW_CMAX"                help:"The farthest camera distance considered."`
}

type tourConfig struct {
	Interval time.Duration `cli:",hidden" env:"GLOBEDRAPE_TOUR_INTERVAL" help:"The duration between each camera move. Zero disables the tour."`
	Period   time.Duration `cli:",hidden" env:"GLOBEDRAPE_TOUR_PERIOD"   help:"The duration of a revolution around the globe."`
	Altitude float64       `cli:",hidden" env:"GLOBEDRAPE_TOUR_ALTITUDE" help:"The camera altitude above the globe."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"GLOBEDRAPE_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"GLOBEDRAPE_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"GLOBEDRAPE_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"GLOBEDRAPE_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:              ":4000",
		AdminAddr:         ":18190",
		LogLevel:          logs.InfoLevel.String(),
		Tiling:            drape.TilingUniform,
		Concurrency:       8,
		InitTimeout:       surface.DefaultInitTimeout,
		HeartbeatInterval: websocket.DefaultHeartbeatInterval,
		ClientIdleTimeout: websocket.DefaultIdleTimeout,
		Dataset: datasetConfig{
			Width:     720,
			Height:    360,
			TimeSteps: 24,
			Radius:    6371,
		},
		View: viewConfig{
			VerticalResolution: 1080,
			MaxPixelError:      2,
			FOV:                60,
			Aspect:             16.0 / 9,
			CMin:               100,
			CMax:               60000,
		},
		Tour: tourConfig{
			Interval: time.Second,
			Period:   time.Minute * 2,
			Altitude: 12000,
		},
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts the globedrape server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     metrics.HTTPTransport(http.DefaultTransport),
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "globedrape",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	svc, err := newService(ctx, conf)
	if err != nil {
		logs.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.loop.Run(ctx)
	}()

	svc.controller.Init(ctx, func(err error) {
		if err != nil {
			return
		}

		variables := svc.dataset.Variables()
		if len(variables) == 0 {
			return
		}
		if err := svc.controller.Show(ctx, surface.NewKey(variables[0])); err != nil {
			logs.Error(err)
		}
	})

	if conf.Tour.Interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.runTour(ctx, conf.Tour.Interval)
		}()
	}

	var service http.ServeMux
	service.HandleFunc("/show", globehttp.HandleWithCORS(svc.HandleShow))
	service.HandleFunc("/state", globehttp.HandleWithCORS(svc.HandleState))
	service.HandleFunc("/basemap", globehttp.HandleWithCORS(svc.HandleBasemap))
	service.Handle("/events", svc.HandleEvents())
	service.HandleFunc("/health", globehttp.HandleWithCORS(globehttp.HandleHealthCheck))
	service.HandleFunc("/version", globehttp.HandleWithCORS(globehttp.HandleVersion(version)))
	service.HandleFunc("/ready", globehttp.HandleWithCORS(globehttp.HandleReadyCheck(svc.controller.Ready)))

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", globehttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", globehttp.HandleReadyCheck(svc.controller.Ready))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("tiling", conf.Tiling).
		WithTag("grid", fmt.Sprintf("%dx%d", conf.Dataset.Width, conf.Dataset.Height)).
		WithTag("feature_flags", conf.FeatureFlags).
		Info("starting globedrape server")

	globehttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			globehttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)

	wg.Wait()

	// The loop is stopped, surfaces are released without it.
	svc.controller.Close()
}

// newService wires the synthetic dataset, the drape factory and the surface
// controller.
func newService(ctx context.Context, conf config) (*service, error) {
	if conf.Dataset.Width <= 0 || conf.Dataset.Height <= 0 {
		return nil, errors.New("invalid dataset size").
			WithType(drape.ErrTypeInvalidConfig).
			WithTag("width", conf.Dataset.Width).
			WithTag("height", conf.Dataset.Height)
	}

	fov := conf.View.FOV * math.Pi / 180
	properties := view.NewProperties(
		conf.View.VerticalResolution,
		conf.View.MaxPixelError,
		fov,
		conf.View.CMin,
		conf.View.CMax,
	)

	var paletteFS fs.FS
	if conf.PaletteDir != "" {
		paletteFS = os.DirFS(conf.PaletteDir)
	}

	grid := geo.Grid{
		Bounds: geo.World,
		Width:  conf.Dataset.Width,
		Height: conf.Dataset.Height,
	}
	ds := dataset.Demo(grid,
		geo.Sphere{Radius: conf.Dataset.Radius},
		registry.New[bulk.Accessor[r3.Vector]](),
		time.Now().UTC().Truncate(time.Hour),
		conf.Dataset.TimeSteps,
	)

	loop := control.NewLoop(0)
	limiter := task.NewLimiter(conf.Concurrency)

	factory, err := drape.NewFactory(drape.Options{
		Dataset:  ds,
		View:     properties,
		Palettes: colormap.NewPalettes(paletteFS),
		Loop:     loop,
		Limiter:  limiter,
		Flags:    featureflag.New(conf.FeatureFlags),
		Tiling:   conf.Tiling,
	})
	if err != nil {
		return nil, errors.New("creating drape factory failed").Wrap(err)
	}

	svc := &service{
		ctx:     ctx,
		loop:    loop,
		dataset: ds,
		factory: factory,
		tour: tour{
			Radius:   conf.Dataset.Radius,
			Altitude: conf.Tour.Altitude,
			Period:   conf.Tour.Period,
			FOV:      fov,
			Aspect:   conf.View.Aspect,
		},
		feed:          &websocket.Feed{},
		basemap:       conf.BasemapTemplate,
		wsIdleTimeout: conf.ClientIdleTimeout,
		wsHeartbeat:   conf.HeartbeatInterval,
	}

	svc.controller = surface.NewController(factory, loop, limiter)
	svc.controller.InitTimeout = conf.InitTimeout
	svc.controller.OnEvent = svc.publish
	return svc, nil
}
