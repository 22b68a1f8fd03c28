package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/paperwx/paperwx/pkg/battery"
	"github.com/paperwx/paperwx/pkg/config"
	"github.com/paperwx/paperwx/pkg/display"
	"github.com/paperwx/paperwx/pkg/power"
	"github.com/paperwx/paperwx/pkg/state"
	"github.com/paperwx/paperwx/pkg/weather"
)

var (
	conf       config.Config
	controller *Controller
)

func setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/status", getStatus)
	router.GET("/state", getState)
	router.GET("/config", getConfig)
	router.GET("/keep-awake", getKeepAwake)
	router.PUT("/keep-awake", setKeepAwake)
	router.PUT("/refresh-minutes", setRefreshMinutes)
	router.POST("/refresh", triggerRefresh)
	router.GET("/version", getVersion)
	router.GET("/events", getEvents)

	return router
}

// Options configures the daemon beyond the config file.
type Options struct {
	ConfigPath string
	SocketPath string
	StatePath  string

	// DryRun swaps the renderer and panel for logging stand-ins and
	// disables the actual shutdown command.
	DryRun bool

	// Once runs a single cycle and exits instead of looping.
	Once bool
}

// Run starts the paperwx daemon in the foreground.
func Run(opts Options) error {
	router := setupRoutes()

	fileConf, err := config.NewFile(opts.ConfigPath)
	if err != nil {
		logrus.Fatalf("failed to parse config during startup: %v", err)
	}
	conf = fileConf
	logrus.WithFields(fileConf.LogrusFields()).Infof("config loaded")

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			err := conf.Load()
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			logrus.Infof("config reloaded")
		}
	}()

	controller, err = buildController(fileConf, opts)
	if err != nil {
		logrus.Fatalf("failed to build controller: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if opts.Once {
		controller.RunOnce(ctx)
		return nil
	}

	srv := &http.Server{
		Handler: router,
	}

	// Stale socket from an unclean shutdown would fail the listen.
	_ = os.Remove(opts.SocketPath)
	l, err := net.Listen("unix", opts.SocketPath)
	if err != nil {
		logrus.Fatal(err)
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	done := make(chan struct{})
	go func() {
		logrus.Debugln("scheduling loop starts")
		controller.Run(ctx)
		close(done)
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigc:
		logrus.Infof("caught signal \"%s\": shutting down.", sig)
		cancel()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			logrus.Error("scheduling loop did not stop in time")
		}
	case <-done:
		// The controller powered the appliance off (or exited); nothing
		// left to schedule.
		logrus.Info("scheduling loop finished")
	}

	logrus.Info("shutting down http server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	shutdownCancel()

	logrus.Info("saving config")
	if err := conf.Save(); err != nil {
		logrus.Errorf("failed to save config: %v", err)
	}

	logrus.Info("exiting")
	return nil
}

func buildController(fileConf *config.File, opts Options) (*Controller, error) {
	fetcher := weather.NewOpenWeather(
		fileConf.APIKey(),
		fileConf.Latitude(),
		fileConf.Longitude(),
		fileConf.City(),
		fileConf.Units(),
		fileConf.HourlyCount(),
		fileConf.DailyCount(),
		fetchTimeout,
	)

	// The real HTML→raster pipeline and panel driver plug in here; the
	// built-ins log what they would have drawn.
	var renderer display.Renderer = display.DebugRenderer{}
	var panel display.Panel = display.LogPanel{}

	powerMgr := power.NewManager()
	if opts.DryRun {
		powerMgr.ShutdownCmd = func() error {
			logrus.Info("dry run: skipping shutdown command")
			return nil
		}
	}

	return NewController(
		fileConf,
		fetcher,
		renderer,
		panel,
		pickMonitor(),
		&power.SystemClock{},
		powerMgr,
		state.NewStore(opts.StatePath),
	)
}

// pickMonitor prefers the UPS sysfs device, falls back to the host
// battery, then to no sensor at all.
func pickMonitor() battery.Monitor {
	sysfs := battery.NewSysfsMonitor("")
	if _, err := sysfs.Sample(); err == nil {
		logrus.Debug("using sysfs battery monitor")
		return sysfs
	}
	host := battery.HostMonitor{}
	if _, err := host.Sample(); err == nil {
		logrus.Debug("using host battery monitor")
		return host
	}
	logrus.Warn("no battery sensor found, scheduling will assume the conservative band")
	return battery.NopMonitor{}
}
