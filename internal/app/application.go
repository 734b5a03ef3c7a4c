package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"ridscan/internal/analysis"
	"ridscan/internal/capture"
	"ridscan/internal/logging"
	"ridscan/internal/rid"
)

// Application wires the capture source, parser, analyzers, and outputs
// together and drives them until the input drains or a signal arrives.
type Application struct {
	config Config
	logger *logrus.Logger

	parser     *rid.Parser
	anomaly    *analysis.AnomalyDetector
	trajectory *analysis.TrajectoryAnalyzer

	metrics     *Metrics
	store       *SightingStore
	sightingLog *logging.SightingLog

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	frameCount uint64
}

// NewApplication creates an application instance.
func NewApplication(config Config) *Application {
	ctx, cancel := context.WithCancel(context.Background())

	logger := logrus.New()
	if config.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Application{
		config: config,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start initializes all components and runs the pipeline. It returns when
// the input source drains or a termination signal arrives.
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	}).Info("Starting Remote ID scanner")

	if err := app.initializeComponents(); err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		done <- app.processInput()
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.runCleanup()
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.reportStatistics()
	}()

	var runErr error
	select {
	case <-sigChan:
		app.logger.Info("Received shutdown signal")
	case runErr = <-done:
		if runErr != nil {
			app.logger.WithError(runErr).Error("Input processing failed")
		}
	}

	app.shutdown()
	return runErr
}

func (app *Application) initializeComponents() error {
	app.parser = rid.NewParserWithConfig(app.config.ParserConfig())

	if app.config.EnableAnomaly {
		app.anomaly = analysis.NewAnomalyDetector()
	}
	if app.config.EnableTrajectory {
		app.trajectory = analysis.NewTrajectoryAnalyzer()
	}

	app.metrics = NewMetrics()
	if app.config.MetricsAddr != "" {
		go func() {
			if err := app.metrics.Serve(app.config.MetricsAddr); err != nil {
				app.logger.WithError(err).Error("Metrics listener failed")
			}
		}()
	}

	if app.config.DBPath != "" {
		store, err := OpenSightingStore(app.config.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open sighting store: %w", err)
		}
		app.store = store
	}

	if app.config.LogDir != "" {
		sightingLog, err := logging.NewSightingLog(app.config.LogDir, app.config.LogUTC, app.logger)
		if err != nil {
			return fmt.Errorf("failed to open sighting log: %w", err)
		}
		app.sightingLog = sightingLog

		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			sightingLog.Start(app.ctx)
		}()
	}

	app.parser.SetOnNewUAV(func(uav *rid.UAVObject) {
		app.onLifecycleEvent("new", uav)
	})
	app.parser.SetOnUAVUpdate(func(uav *rid.UAVObject) {
		app.onLifecycleEvent("update", uav)
	})
	app.parser.SetOnUAVTimeout(func(uav *rid.UAVObject) {
		app.metrics.timeoutsTotal.Inc()
		app.onLifecycleEvent("timeout", uav)
	})

	return nil
}

// onLifecycleEvent fans a registry event out to the sighting log and store.
func (app *Application) onLifecycleEvent(event string, uav *rid.UAVObject) {
	app.logger.WithFields(logrus.Fields{
		"event":    event,
		"uav_id":   uav.ID,
		"protocol": uav.Protocol.String(),
		"rssi":     uav.RSSI,
		"messages": uav.MessageCount,
	}).Debug("UAV lifecycle event")

	if app.sightingLog != nil {
		ev := &logging.SightingEvent{
			Event:     event,
			Time:      time.Now().UTC().Format(time.RFC3339Nano),
			UAVID:     uav.ID,
			Protocol:  uav.Protocol.String(),
			Transport: uav.Transport.String(),
			RSSI:      uav.RSSI,
			Messages:  uav.MessageCount,
		}
		if uav.Location.Valid {
			ev.Latitude = uav.Location.Latitude
			ev.Longitude = uav.Location.Longitude
			ev.Altitude = uav.Location.AltitudeGeo
		}
		if err := app.sightingLog.Write(ev); err != nil {
			app.logger.WithError(err).Debug("Failed to write sighting log event")
		}
	}

	if app.store != nil {
		if err := app.store.Record(event, uav); err != nil {
			app.logger.WithError(err).Debug("Failed to record sighting")
		}
	}
}

// processInput drains the configured capture source through the parser.
func (app *Application) processInput() error {
	var in io.Reader
	if app.config.Input == "-" || app.config.Input == "" {
		in = os.Stdin
	} else {
		f, err := os.Open(app.config.Input)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	switch app.config.Format {
	case "stream":
		return app.processStream(in)
	default:
		return app.processReplay(in)
	}
}

func (app *Application) processReplay(in io.Reader) error {
	reader := capture.NewReplayReader(in)

	for {
		select {
		case <-app.ctx.Done():
			return nil
		default:
		}

		frame, err := reader.Next()
		if err == io.EOF {
			app.logger.Info("Input drained")
			return nil
		}
		if err != nil {
			app.logger.WithError(err).Warn("Skipping malformed replay line")
			continue
		}

		app.handleFrame(frame)
	}
}

func (app *Application) processStream(in io.Reader) error {
	decoder := capture.NewStreamDecoder(app.logger)
	buf := make([]byte, 4096)

	for {
		select {
		case <-app.ctx.Done():
			return nil
		default:
		}

		n, err := in.Read(buf)
		if n > 0 {
			for _, frame := range decoder.Decode(buf[:n]) {
				app.handleFrame(frame)
			}
		}
		if err == io.EOF {
			app.logger.Info("Input drained")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
	}
}

func (app *Application) handleFrame(frame *rid.RawFrame) {
	app.frameCount++
	app.metrics.framesTotal.Inc()

	result := app.parser.Parse(frame)

	switch {
	case result.Success:
		app.metrics.decodedTotal.WithLabelValues(result.Protocol.String()).Inc()
		app.metrics.activeUAVs.Set(float64(app.parser.ActiveCount()))
	case result.IsRemoteID:
		app.metrics.decodeErrors.Inc()
		app.logger.WithFields(logrus.Fields{
			"error": result.Error,
		}).Debug("Remote ID frame failed to decode")
		return
	default:
		app.metrics.notRemoteID.Inc()
		return
	}

	if app.anomaly != nil {
		for _, a := range app.anomaly.Analyze(&result.UAV, frame.RSSI) {
			app.metrics.anomaliesTotal.WithLabelValues(a.Type.String()).Inc()
			app.logger.WithFields(logrus.Fields{
				"uav_id":     a.UAVID,
				"type":       a.Type.String(),
				"severity":   a.Severity,
				"confidence": fmt.Sprintf("%.2f", a.Confidence),
			}).Warn(a.Description)
		}
	}

	if app.trajectory != nil && result.UAV.ID != "" {
		app.trajectory.AddPosition(result.UAV.ID, &result.UAV.Location)
	}
}

// runCleanup periodically evicts timed-out aircraft.
func (app *Application) runCleanup() {
	ticker := time.NewTicker(DefaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			removed := app.parser.Cleanup()
			if len(removed) > 0 {
				app.logger.WithField("removed", removed).Info("Evicted timed-out UAVs")
				app.metrics.activeUAVs.Set(float64(app.parser.ActiveCount()))
			}
		}
	}
}

// reportStatistics logs pipeline statistics periodically.
func (app *Application) reportStatistics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			fields := logrus.Fields{
				"frames":      app.frameCount,
				"active_uavs": app.parser.ActiveCount(),
			}
			if app.anomaly != nil {
				fields["anomalies"] = app.anomaly.TotalAnomalies()
			}
			app.logger.WithFields(fields).Info("Pipeline statistics")
		}
	}
}

func (app *Application) shutdown() {
	app.logger.Info("Shutting down")
	app.cancel()

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		app.logger.Warn("Shutdown timeout, forcing exit")
	}

	if app.sightingLog != nil {
		if err := app.sightingLog.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close sighting log")
		}
	}
	if app.store != nil {
		if err := app.store.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close sighting store")
		}
	}

	app.logger.Info("Shutdown completed")
}
