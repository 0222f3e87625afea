// Command gecko-engine is a smoke-test / demo harness for the audio
// routing and equalization engine. It replaces the teacher's Wails desktop
// shell (out of scope per spec.md §1): no window, no tray icon, no
// persisted UI state — just enough of a CLI to drive the engine end to end.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/geckoaudio/gecko-engine/internal/config"
	"github.com/geckoaudio/gecko-engine/internal/dsp"
	"github.com/geckoaudio/gecko-engine/internal/engine"
	"github.com/geckoaudio/gecko-engine/internal/logger"
	"github.com/geckoaudio/gecko-engine/internal/output"
	"github.com/geckoaudio/gecko-engine/internal/platform"
)

func main() {
	lowLatency := flag.Bool("low-latency", false, "use the low-latency stream profile instead of the default")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logCfg := logger.DefaultConfig()
	if *debug {
		logCfg.Level = "debug"
	}
	logger.Initialize(logCfg)

	cfg := config.Get()
	logger.Info("starting gecko-engine",
		logger.String("version", cfg.App.Version),
		logger.String("os", runtime.GOOS))

	backend, err := platform.NewDefaultBackend()
	if err != nil {
		logger.Fatal("failed to initialize platform backend", logger.Error(err))
	}
	logger.Info("platform backend ready",
		logger.String("backend", backend.Name()),
		logger.Bool("virtual_devices", backend.SupportsVirtualDevices()),
		logger.Bool("per_app_capture", backend.SupportsPerAppCapture()))

	engCfg := engine.DefaultEngineConfig()
	if *lowLatency {
		engCfg.Stream = engine.LowLatencyConfig()
		engCfg.RingBufferFrames = engCfg.Stream.BufferSize * 4
	}

	sink, err := output.NewOtoSink(engCfg.Stream.SampleRate, engCfg.Stream.Channels)
	if err != nil {
		logger.Fatal("failed to open output sink", logger.Error(err))
	}
	defer sink.Close()

	ctrl, err := engine.NewController(engCfg, sink)
	if err != nil {
		logger.Fatal("failed to construct engine controller", logger.Error(err))
	}

	events := ctrl.Subscribe(32)
	go printEvents(events)

	if err := ctrl.Start(); err != nil {
		logger.Fatal("failed to start engine", logger.Error(err))
	}
	defer ctrl.Stop()

	fmt.Println("gecko-engine running. commands: preset <name>, volume <0-1>, quit")
	runREPL(ctrl)
}

func printEvents(events <-chan engine.Event) {
	for ev := range events {
		switch ev.Kind {
		case engine.EvtError:
			logger.ErrorLog("engine error", logger.String("message", ev.Message))
		case engine.EvtBufferUnderrun:
			logger.Warn("buffer underrun")
		case engine.EvtLevelUpdate:
			logger.Debug("level", logger.Float64("left", float64(ev.Left)), logger.Float64("right", float64(ev.Right)))
		case engine.EvtStreamDiscovered:
			logger.Info("stream discovered", logger.String("app", ev.AppName))
		case engine.EvtStreamRemoved:
			logger.Info("stream removed", logger.String("app", ev.AppName))
		}
	}
}

func runREPL(ctrl *engine.Controller) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "quit", "exit":
			return
		case "preset":
			if len(fields) < 2 {
				fmt.Println("usage: preset <name>")
				continue
			}
			name := strings.Join(fields[1:], " ")
			preset, ok := dsp.PresetByName(name)
			if !ok {
				fmt.Printf("unknown preset %q\n", name)
				continue
			}
			if err := ctrl.UpdateEq(preset.EqConfig()); err != nil {
				logger.ErrorLog("failed to apply preset", logger.Error(err))
			}
		case "volume":
			if len(fields) < 2 {
				fmt.Println("usage: volume <0-1>")
				continue
			}
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				fmt.Println("volume must be a number between 0 and 1")
				continue
			}
			if err := ctrl.SetMasterVolume(v); err != nil {
				logger.ErrorLog("failed to set master volume", logger.Error(err))
			}
		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}
