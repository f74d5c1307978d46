// Command aesdsocket appends newline terminated packets received on TCP
// port 9000 to a file and echoes the whole file back after each packet.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/pflag"

	"github.com/One-com/aesdsocket/aesd"
	"github.com/One-com/aesdsocket/config"
	"github.com/One-com/aesdsocket/daemon"
	"github.com/One-com/aesdsocket/log"
	"github.com/One-com/aesdsocket/log/syslog"
	"github.com/One-com/aesdsocket/metric"
	"github.com/One-com/aesdsocket/metric/sink/statsd"
	"github.com/One-com/aesdsocket/sd"
	"github.com/One-com/aesdsocket/signals"
	"github.com/One-com/aesdsocket/store"
)

const listenerName = "aesdsocket"

var (
	flags = pflag.NewFlagSet("aesdsocket", pflag.ContinueOnError)

	daemonMode = flags.BoolP("daemon", "d", false, "detach after the listening socket is bound")
	configFile = flags.StringP("config", "c", "", "config file (yaml, json or toml)")
	envFile    = flags.String("env-file", "", "dotenv file with AESD_* variables")
)

func init() {
	flags.StringP("listen", "l", ":9000", "listen address")
	flags.StringP("data-file", "f", store.DefaultPath, "file to accumulate received data in")
	flags.String("log-level", "info", "log level (emerg .. debug)")
	flags.Bool("syslog", true, "also log to the system logger")
	flags.String("statsd", "", "statsd host:port to send metrics to")
}

var flagKeys = map[string]string{
	"listen":    "listen.address",
	"data-file": "store.path",
	"log-level": "log.level",
	"syslog":    "log.syslog",
	"statsd":    "metrics.statsd",
}

// caught is set by the termination signal handler.
var caught int32

func onSignalExit() {
	atomic.StoreInt32(&caught, 1)
	daemon.Exit(true)
}

func onSignalIncLogLevel() {
	lvl := log.IncLevel()
	log.NOTICE("Log level raised", "level", lvl)
}

func onSignalDecLogLevel() {
	lvl := log.DecLevel()
	log.NOTICE("Log level lowered", "level", lvl)
}

func daemonLogFunc(level int, message string) {
	log.Default().Log(syslog.Priority(level), message)
}

// jwwWriter feeds the config registry trace into the log at debug level.
type jwwWriter struct{}

func (jwwWriter) Write(p []byte) (int, error) {
	log.DEBUG(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	log.AutoColoring()
	daemon.SetLogger(daemonLogFunc)
	jww.SetLogOutput(jwwWriter{})
	jww.SetLogThreshold(jww.LevelTrace)
	jww.SetStdoutThreshold(jww.LevelFatal)

	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}
	// The detached process runs in /
	if err := absFlags("config", "env-file", "data-file"); err != nil {
		log.CRIT("Bad path", "err", err)
		return 1
	}

	reg, settings, err := loadConfig()
	if err != nil {
		log.CRIT("Configuration failed", "err", err)
		return 1
	}
	if err = setupLogging(settings); err != nil {
		log.CRIT("Logging setup failed", "err", err)
		return 1
	}

	if *daemonMode && !sd.Detached() {
		parent, err := daemon.Daemonize(listenerGroup(settings))
		if err != nil {
			log.CRIT("Could not start daemon", "err", err)
			return 1
		}
		if parent {
			return 0
		}
	}

	metrics, err := setupMetrics(settings)
	if err != nil {
		log.CRIT("Metrics setup failed", "err", err)
		return 1
	}
	defer metrics.Stop()
	stats := aesd.NewStats(metrics)

	stopSignals := signals.RunSignalHandler(signals.Mappings{
		syscall.SIGINT:  onSignalExit,
		syscall.SIGTERM: onSignalExit,
		syscall.SIGHUP:  daemon.Reload,
		syscall.SIGUSR1: onSignalIncLogLevel,
		syscall.SIGUSR2: onSignalDecLogLevel,
	})
	defer stopSignals()

	if *configFile != "" {
		stopWatch, err := reg.Watch(func(string) { daemon.Reload() })
		if err != nil {
			log.WARN("Config file not watched", "err", err)
		} else {
			defer stopWatch()
		}
	}

	cf := newConfigurator(reg, settings, stats)
	log.INFO("Starting aesdsocket", "pid", os.Getpid(), "listen", settings.Listen.Address)

	err = daemon.Run(
		daemon.Configurator(cf.configure),
		daemon.ShutdownTimeout(4*time.Second),
		daemon.SdNotifyOnReady(true, "Accepting connections"),
		daemon.ReadyCallback(cf.ready),
		daemon.OnExit(announceExit, cf.removeStore),
	)
	if err != nil {
		log.CRIT("aesdsocket failed", "err", err)
		return 1
	}
	log.INFO("Halted")
	return 0
}

func absFlags(names ...string) error {
	for _, n := range names {
		f := flags.Lookup(n)
		if f == nil || !f.Changed || f.Value.String() == "" {
			continue
		}
		p, err := filepath.Abs(f.Value.String())
		if err != nil {
			return err
		}
		if err = f.Value.Set(p); err != nil {
			return err
		}
	}
	return nil
}

func loadConfig() (*config.Registry, *config.Settings, error) {
	if err := config.LoadEnvFile(*envFile); err != nil {
		return nil, nil, err
	}
	reg := config.New(config.EnvPrefix("AESD"))
	config.SetDefaults(reg)
	if err := reg.AddConfigFile("", *configFile); err != nil {
		return nil, nil, err
	}
	if err := reg.Load(); err != nil {
		return nil, nil, err
	}
	reg.AutomaticEnv()
	for name, key := range flagKeys {
		if err := reg.BindPFlag(key, flags.Lookup(name)); err != nil {
			return nil, nil, err
		}
	}
	settings, err := reg.Settings()
	if err != nil {
		return nil, nil, err
	}
	return reg, settings, nil
}

func setupLogging(s *config.Settings) error {
	lvl, err := syslog.ParsePriority(s.Log.Level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)

	var h log.Handler
	if log.IsTerminal(os.Stderr) {
		h = log.NewTermFormatter(os.Stderr, true)
	} else {
		h = log.NewMinFormatter(os.Stderr)
	}
	if s.Log.Syslog {
		sh, err := log.NewSyslogHandler(listenerName)
		if err != nil {
			log.WARN("No system logger", "err", err)
		} else {
			h = log.MultiHandler(h, sh)
		}
	}
	log.SetHandler(h)
	return nil
}

func setupMetrics(s *config.Settings) (*metric.Client, error) {
	c := metric.NewClient(nil, metric.FlushInterval(s.Metrics.Interval))
	if s.Metrics.Statsd == "" {
		return c, nil
	}
	sink, err := statsd.New(statsd.Peer(s.Metrics.Statsd), statsd.Prefix(s.Metrics.Prefix))
	if err != nil {
		return nil, err
	}
	c.SetSink(sink)
	c.Start()
	return c, nil
}

func listenerGroup(s *config.Settings) daemon.ListenerGroup {
	return daemon.ListenerGroup{{
		Net:            "tcp",
		Addr:           s.Listen.Address,
		ListenerFdName: listenerName,
		Backlog:        s.Listen.Backlog,
	}}
}

func announceExit() error {
	if atomic.LoadInt32(&caught) == 1 {
		log.INFO("Caught signal, exiting")
		if err := sd.NotifyStatus(sd.StatusStopping, "Shutting down"); err != nil && err != sd.ErrSdNotifyNoSocket {
			log.WARN("sd_notify failed", "err", err)
		}
	}
	return nil
}

// configurator builds a server generation from the current settings.
type configurator struct {
	reg   *config.Registry
	stats *aesd.Stats

	mu       sync.Mutex
	revision int
	settings *config.Settings
	store    *store.File
	server   *aesd.Server
}

func newConfigurator(reg *config.Registry, s *config.Settings, stats *aesd.Stats) *configurator {
	return &configurator{reg: reg, settings: s, stats: stats}
}

func (c *configurator) configure() ([]daemon.Server, []daemon.CleanupFunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	settings := c.settings
	if c.revision > 0 {
		if err := c.reg.Load(); err != nil {
			return nil, nil, err
		}
		var err error
		if settings, err = c.reg.Settings(); err != nil {
			return nil, nil, err
		}
	}
	lvl, err := syslog.ParsePriority(settings.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	term, err := settings.TerminatorByte()
	if err != nil {
		return nil, nil, err
	}
	log.SetLevel(lvl)
	c.revision++
	c.settings = settings
	c.store = store.New(settings.Store.Path, store.Mode(settings.Store.Mode), store.Sync(settings.Store.Sync))
	c.server = &aesd.Server{
		Listeners:   listenerGroup(settings),
		Store:       c.store,
		Framer:      aesd.Framer{Terminator: term},
		BufferSize:  settings.Session.Buffer,
		IdleTimeout: settings.Session.IdleTimeout,
		Logger:      log.With("rev", c.revision),
		Stats:       c.stats,
	}
	log.INFO("Configured", "rev", c.revision, "store", settings.Store.Path)
	return []daemon.Server{c.server}, nil, nil
}

func (c *configurator) ready() error {
	c.mu.Lock()
	srv := c.server
	c.mu.Unlock()
	if a := srv.Addr(); a != nil {
		log.INFO(fmt.Sprintf("Listening on %s", a))
	}
	return nil
}

func (c *configurator) removeStore() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil || c.settings.Store.Keep {
		return nil
	}
	return errors.Wrapf(c.store.Remove(), "remove %s", c.store.Path())
}
