package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/itohio/gosmartpower/pkg/config"
	"github.com/itohio/gosmartpower/pkg/logger"
	"github.com/itohio/gosmartpower/pkg/smartpower"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Device path override (e.g., /dev/ttyUSB0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		saveFlag   = flag.String("save-config", "", "Write the effective configuration to this file")
		mockFlag   = flag.Bool("mock", false, "Use mocked device instead of the serial port")
		listFlag   = flag.Bool("list", false, "List available serial ports and exit")
		pauseFlag  = flag.Duration("pause", 0, "Measurement duration of the sample command (overrides config)")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] enable|disable|start|stop|sample\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := loadConfig(*configFlag, *portFlag, *pauseFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg, closeLog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	os.Exit(execute(cfg, lg, *saveFlag, *listFlag, *mockFlag, closeLog))
}

// execute runs the selected action and returns the process exit code. The
// log file is closed before returning.
func execute(cfg *config.Config, lg *zap.Logger, savePath string, list, mock bool, closeLog func() error) int {
	defer closeLog()

	if savePath != "" {
		if err := cfg.Save(savePath); err != nil {
			lg.Error("failed to save configuration", zap.String("path", savePath), zap.Error(err))
			return 1
		}
		lg.Info("configuration saved", zap.String("path", savePath))
		if flag.NArg() == 0 {
			return 0
		}
	}

	if list {
		ports, err := smartpower.Ports()
		if err != nil {
			lg.Error("failed to list ports", zap.Error(err))
			return 1
		}
		for _, p := range ports {
			fmt.Println(p.Name)
		}
		return 0
	}

	if flag.NArg() < 1 {
		flag.Usage()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dev := newDevice(cfg, mock, lg)
	if err := run(ctx, dev, cfg, flag.Arg(0)); err != nil {
		lg.Error("command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
		var oerr *smartpower.OpenError
		if errors.As(err, &oerr) {
			fmt.Fprintf(os.Stderr, "cannot open %s, errno = %d\n", oerr.Path, oerr.Errno())
		}
		return 1
	}

	if m, ok := dev.(*smartpower.Mock); ok {
		lg.Info("mock device", zap.Stringer("state", m.DeviceState()), zap.Int("codes", len(m.Sent())))
	}
	return 0
}

// loadConfig loads the config file and applies command line overrides.
func loadConfig(path, port string, pause time.Duration) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if port != "" {
		cfg.Serial.Port = port
	}
	if pause > 0 {
		cfg.Sample.Pause = pause
	}
	return cfg, nil
}

func newDevice(cfg *config.Config, mock bool, lg *zap.Logger) smartpower.Device {
	if mock {
		return smartpower.NewMock(lg)
	}
	var opener smartpower.Opener
	if cfg.Serial.Mode == config.ModeSerial {
		opener = smartpower.OpenSerial(cfg.Serial.BaudRate)
	}
	return smartpower.New(opener, lg)
}

// run executes one command against dev. Every command except sample opens
// the configured port and closes it when done.
func run(ctx context.Context, dev smartpower.Device, cfg *config.Config, command string) error {
	if command == "sample" {
		if err := dev.Open(cfg.Serial.Port); err != nil {
			return err
		}
		return smartpower.Sample(ctx, dev, cfg.Sample.Pause)
	}

	state, err := smartpower.ParseState(command)
	if err != nil {
		return fmt.Errorf("command %s is not valid: %w", command, err)
	}

	if err := dev.Open(cfg.Serial.Port); err != nil {
		return err
	}
	defer dev.Close()

	switch state {
	case smartpower.EnableMonitor:
		return dev.EnableMonitor()
	case smartpower.DisableMonitor:
		return dev.DisableMonitor()
	case smartpower.StartMeasurement:
		return dev.StartMeasurement()
	default:
		return dev.StopMeasurement()
	}
}
