package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/dbehnke/pmr171-cps/pkg/config"
	"github.com/dbehnke/pmr171-cps/pkg/database"
	"github.com/dbehnke/pmr171-cps/pkg/logger"
	"github.com/dbehnke/pmr171-cps/pkg/metrics"
	"github.com/dbehnke/pmr171-cps/pkg/mqtt"
	"github.com/dbehnke/pmr171-cps/pkg/radio"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const usage = `Usage: pmr171 [flags] <command>

Commands:
  read        read channels from the radio into a codeplug file
  write       write a codeplug file to the radio
  info        show the radio identification
  snapshots   list archived reads, or export one with --id

Flags:
`

// options holds the command line flags that are not configuration keys
type options struct {
	configFile  string
	showVersion bool
	output      string
	input       string
	channels    string
	skipEmpty   bool
	label       string
	limit       int
	snapshotID  uint
	noBackup    bool
}

// app carries the wired components shared by every command
type app struct {
	cfg       *config.Config
	opts      options
	log       *logger.Logger
	collector *metrics.Collector
	publisher *mqtt.Publisher
	db        *database.DB
}

func main() {
	fs := pflag.NewFlagSet("pmr171", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}

	var opts options
	fs.StringVarP(&opts.configFile, "config", "c", "", "Path to configuration file")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")
	fs.StringVarP(&opts.output, "output", "o", "codeplug.json", "codeplug file written by read and snapshots --id")
	fs.StringVarP(&opts.input, "input", "i", "", "codeplug file read by write")
	fs.StringVar(&opts.channels, "channels", "", "channel list for read, e.g. 0-15,100")
	fs.BoolVar(&opts.skipEmpty, "skip-empty", false, "leave unused slots out of the codeplug")
	fs.StringVar(&opts.label, "label", "", "label stored with the snapshot")
	fs.IntVar(&opts.limit, "limit", 20, "snapshots to list")
	fs.UintVar(&opts.snapshotID, "id", 0, "snapshot to export")
	fs.BoolVar(&opts.noBackup, "no-backup", false, "skip the snapshot taken before write")
	if err := config.BindFlags(fs); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	// Show version
	if opts.showVersion {
		fmt.Printf("pmr171 %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	if err := run(fs.Arg(0), opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, opts options) error {
	// Load configuration
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	})
	defer func() { _ = log.Sync() }()

	log.Debug("Starting pmr171",
		logger.String("version", version),
		logger.String("command", command))

	// Create context cancelled on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		cfg:       cfg,
		opts:      opts,
		log:       log,
		collector: metrics.NewCollector(),
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	metricsCtx, stopMetrics := context.WithCancel(ctx)
	defer stopMetrics()

	// Start Prometheus metrics server if enabled
	if cfg.Metrics.Enabled && cfg.Metrics.Prometheus.Enabled {
		server := metrics.NewPrometheusServer(
			metrics.PrometheusConfig{
				Enabled: cfg.Metrics.Prometheus.Enabled,
				Port:    cfg.Metrics.Prometheus.Port,
				Path:    cfg.Metrics.Prometheus.Path,
			},
			a.collector,
			log,
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Start(metricsCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Prometheus metrics server error", logger.Error(err))
			}
		}()
	}

	// Initialize MQTT publisher if enabled
	if cfg.MQTT.Enabled {
		a.publisher = mqtt.New(
			mqtt.Config{
				Enabled:     cfg.MQTT.Enabled,
				Broker:      cfg.MQTT.Broker,
				TopicPrefix: cfg.MQTT.TopicPrefix,
				ClientID:    cfg.MQTT.ClientID,
				Username:    cfg.MQTT.Username,
				Password:    cfg.MQTT.Password,
				QoS:         cfg.MQTT.QoS,
				Retained:    cfg.MQTT.Retained,
			},
			log,
		)
		if err := a.publisher.Start(ctx); err != nil {
			// events are optional; keep programming the radio
			log.Error("MQTT publisher error", logger.Error(err))
		}
		defer a.publisher.Stop()
	}

	// Open the snapshot archive if enabled
	if cfg.Database.Enabled {
		db, err := database.NewDB(database.Config{Path: cfg.Database.Path}, log)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		a.db = db
	}

	switch command {
	case "read":
		return a.read(ctx)
	case "write":
		return a.write(ctx)
	case "info":
		return a.info()
	case "snapshots":
		return a.snapshots()
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// connect opens the configured serial port
func (a *app) connect() (*radio.Session, error) {
	if a.cfg.Serial.Port == "" {
		return nil, errors.New("no serial port configured (use --port or serial.port)")
	}

	a.log.Info("Connecting to radio", logger.String("port", a.cfg.Serial.Port))
	return radio.Connect(a.cfg.Serial.Port, a.sessionOptions()...)
}

func (a *app) sessionOptions() []radio.Option {
	timing := radio.DefaultTiming()
	timing.MaxRetries = a.cfg.Radio.MaxRetries
	timing.RetryDelay = a.cfg.Radio.RetryDelay
	timing.SettleDelay = a.cfg.Radio.SettleDelay
	timing.PreWriteWake = a.cfg.Radio.PreWriteWake
	timing.PreWriteWakeDelay = a.cfg.Radio.PreWriteWakeDelay
	timing.WriteSettleDelay = a.cfg.Radio.WriteSettleDelay
	timing.DMRSettleDelay = a.cfg.Radio.DMRSettleDelay
	timing.DMRSettleStep = a.cfg.Radio.DMRSettleStep

	opts := []radio.Option{
		radio.WithTiming(timing),
		radio.WithBaudRate(a.cfg.Serial.Baud),
		radio.WithReadTimeout(a.cfg.Serial.ReadTimeout),
		radio.WithMaxScanBytes(a.cfg.Serial.MaxScanBytes),
		radio.WithLogger(a.log),
		radio.WithMetrics(a.collector),
	}
	if a.publisher != nil {
		opts = append(opts, radio.WithObserver(a.publisher))
	}
	return opts
}
