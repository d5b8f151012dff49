package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/skyarray/device-agent/infrastructure"
	"github.com/skyarray/device-agent/internal/constants"
	"github.com/skyarray/device-agent/internal/environment"
)

var (
	env            environment.Environment
	serviceVersion = "0.0.1"
)

func init() {
	var err error
	if env, err = environment.New(); err != nil {
		log.Fatal().Err(err).Msg("error loading environment")
	}
}

func main() {
	logWriter, err := setupRollingLogFile(env.Device.LogfilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("main")
	}

	log.Output(logWriter)
	if err = setLogLevel(env.Device.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("main")
	}

	log.Info().
		Str("agent version", serviceVersion).
		Str("device", env.Device.DeviceName).
		Str("device kind", env.Device.DeviceKind).
		Str("log path", env.Device.LogfilePath).
		Str("log level", env.Device.LogLevel).
		Msg("main: app started")

	cancelCtx, cancelFunc := signal.NotifyContext(context.Background(), os.Kill, os.Interrupt, syscall.SIGTERM)
	defer cancelFunc()

	kernel, err := infrastructure.Inject(env)
	if err != nil {
		log.Fatal().Err(err).Msg("main")
	}

	log.Info().Msg("main: start initializing app services...")
	if err = initServices(cancelCtx, kernel); err != nil {
		log.Fatal().Err(err).Msg("main")
	}
	log.Info().Msg("main: app services initialized")

	<-cancelCtx.Done()

	log.Info().Msg("main: stopping app...")
	shutdownServices(kernel)
	log.Info().Msg("main: app gracefully stopped")
}

func initServices(ctx context.Context, kernel *infrastructure.Kernel) (err error) {
	// connect to message broker
	log.Info().Msg("initServices: connecting to MQ broker...")
	mqService := kernel.InjectMQService()
	mqService.RegisterHandlers(getMQRoutes(kernel))
	if err = mqService.Connect(); err != nil {
		return fmt.Errorf("initServices: connection to message broker failed")
	}
	log.Info().Msg("initServices: connected to MQ broker")

	if err = mqService.ActivateAllHandlers(); err != nil {
		return fmt.Errorf("initServices: %w", err)
	}

	// push attribute changes to event stream subscribers
	log.Info().Msg("initServices: starting event stream...")
	go kernel.InjectEventStreamService().Start(ctx)

	// start heartbeat reporting
	log.Info().Msg("initServices: starting telemetry reporter...")
	go kernel.InjectTelemetryService().Start(ctx)

	// run device initialization last so the first published states reach
	// every consumer
	log.Info().Msg("initServices: initializing device...")
	if err = kernel.StartDevice(); err != nil {
		return fmt.Errorf("initServices: %w", err)
	}
	log.Info().Msg("initServices: device initialized")

	return nil
}

func shutdownServices(kernel *infrastructure.Kernel) {
	kernel.InjectQueueService().StopTasks()

	if err := kernel.InjectMQService().Close(); err != nil {
		log.Error().Err(err).Msg("shutdownServices: close MQ error")
	}

	if err := kernel.DB.Close(); err != nil {
		log.Error().Err(err).Msg("shutdownServices: close badger error")
	}
}

func setLogLevel(level string) (err error) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("setLogLevel: %w", err)
	}

	zerolog.SetGlobalLevel(parsed)
	return nil
}

func setupRollingLogFile(filename string) (logWriter *lumberjack.Logger, err error) {
	// create log dir if not exists
	if err = os.MkdirAll(filepath.Dir(filename), constants.FilePerm); err != nil {
		return logWriter, fmt.Errorf("setupRollingLogFile: %w", err)
	}

	if _, statErr := os.Stat(filename); statErr != nil {
		if !os.IsNotExist(statErr) {
			return logWriter, fmt.Errorf("setupRollingLogFile: %w", statErr)
		}

		// create new log file
		logFile, err := os.OpenFile(filename, os.O_CREATE, constants.LogFilePerm)
		if err != nil {
			return logWriter, fmt.Errorf("setupRollingLogFile: %w", err)
		}
		defer logFile.Close()
	}

	return &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    15,   // megabytes per log file
		MaxAge:     30,   // store retained log files for 30 days
		MaxBackups: 10,   // store maximum 10 retained log files
		Compress:   true, // compress files via gzip
	}, nil
}
