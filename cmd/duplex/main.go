// ABOUTME: Entry point for the duplex command line tool
// ABOUTME: Subcommands for listing, playback, offline rendering, and self tests
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/openduplex/duplex-go/internal/ui"
	"github.com/openduplex/duplex-go/pkg/device"
	"github.com/openduplex/duplex-go/pkg/device/manager"
	"github.com/openduplex/duplex-go/pkg/device/netdev"
	"github.com/openduplex/duplex-go/pkg/device/nulldev"
	"github.com/openduplex/duplex-go/pkg/device/otodev"
	"github.com/openduplex/duplex-go/pkg/device/wavdev"
	"github.com/openduplex/duplex-go/pkg/devicetest"
	"github.com/openduplex/duplex-go/pkg/source"
	"github.com/openduplex/duplex-go/pkg/unittest"
)

var (
	logFile       = kingpin.Flag("log-file", "Log file path, empty logs to stderr.").Default("").String()
	metricsListen = kingpin.Flag("metrics-listen", "Address to serve Prometheus metrics on, empty disables.").Default("").String()
	stateFile     = kingpin.Flag("state", "Device state YAML, loaded before and saved after a run.").Default("").String()

	listCmd = kingpin.Command("list", "List device types and their devices.")

	toneCmd    = kingpin.Command("tone", "Play a test tone.")
	toneFreq   = toneCmd.Flag("freq", "Tone frequency in Hz.").Default("440").Float64()
	toneAmp    = toneCmd.Flag("amp", "Tone amplitude, 0..1.").Default("0.5").Float64()
	toneDur    = toneCmd.Flag("duration", "How long to play.").Default("2s").Duration()
	toneType   = toneCmd.Flag("type", "Device type to play through.").Default(otodev.TypeName).String()
	toneDevice = toneCmd.Flag("device", "Device name, empty picks the default.").Default("").String()

	playCmd    = kingpin.Command("play", "Play an audio file (wav, mp3, flac, ogg).")
	playPath   = playCmd.Arg("file", "File to play.").Required().String()
	playType   = playCmd.Flag("type", "Device type to play through.").Default(otodev.TypeName).String()
	playDevice = playCmd.Flag("device", "Device name, empty picks the default.").Default("").String()

	renderCmd  = kingpin.Command("render", "Render a tone or an audio file to a WAV file offline.")
	renderOut  = renderCmd.Flag("out", "Output WAV path.").Required().String()
	renderIn   = renderCmd.Flag("in", "Input audio file, renders a tone when empty.").Default("").String()
	renderFreq = renderCmd.Flag("freq", "Tone frequency in Hz.").Default("440").Float64()
	renderDur  = renderCmd.Flag("duration", "Tone duration.").Default("2s").Duration()
	renderRate = renderCmd.Flag("rate", "Output sample rate.").Default("48000").Float64()

	selftestCmd   = kingpin.Command("selftest", "Run the built-in self test suites.")
	selftestAbort = selftestCmd.Flag("abort-on-failure", "Stop each suite at its first failure.").Bool()

	monitorCmd    = kingpin.Command("monitor", "Run the TUI monitor with a test tone.")
	monitorType   = monitorCmd.Flag("type", "Device type to monitor.").Default(nulldev.TypeName).String()
	monitorDevice = monitorCmd.Flag("device", "Device name, empty picks the default.").Default("").String()
	monitorFreq   = monitorCmd.Flag("freq", "Tone frequency in Hz.").Default("440").Float64()
)

func main() {
	kingpin.HelpFlag.Short('h')
	cmd := kingpin.Parse()

	setupLogging(cmd == "monitor")
	registerTypes()

	var err error
	switch cmd {
	case "list":
		err = runList()
	case "tone":
		err = runTone()
	case "play":
		err = runPlay()
	case "render":
		err = runRender()
	case "selftest":
		err = runSelftest()
	case "monitor":
		err = runMonitor()
	}
	if err != nil {
		log.Fatalf("%s failed: %v", cmd, err)
	}
}

// setupLogging routes the standard logger. The monitor owns the terminal,
// so without a log file its logs are discarded.
func setupLogging(tui bool) {
	if *logFile == "" {
		if tui {
			log.SetOutput(io.Discard)
		}
		return
	}
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	if tui {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	}
}

func registerTypes() {
	device.Register(nulldev.NewType(nulldev.Config{Realtime: true}))
	device.Register(otodev.NewType())
	device.Register(netdev.NewType(netdev.CodecPCM))
}

func runList() error {
	for _, t := range device.Types() {
		if err := t.ScanForDevices(); err != nil {
			log.Printf("scan %s: %v", t.TypeName(), err)
		}
		names := t.DeviceNames()
		fmt.Printf("%s (%d devices)\n", t.TypeName(), len(names))
		for i, name := range names {
			marker := " "
			if i == t.DefaultDeviceIndex() {
				marker = "*"
			}
			fmt.Printf("  %s %s\n", marker, name)
		}
	}
	return nil
}

func runTone() error {
	m := manager.New(nil)
	defer m.Close()

	if err := openManaged(m, *toneType, *toneDevice, 0); err != nil {
		return err
	}
	serveMetrics(m)

	tone := source.NewTone(*toneFreq, *toneAmp)
	m.AddCallback(tone)
	if err := m.Start(); err != nil {
		return err
	}

	setup := m.CurrentSetup()
	fmt.Printf("Playing %gHz tone at %gHz for %s\n", *toneFreq, setup.SampleRate, *toneDur)

	select {
	case <-time.After(*toneDur):
	case <-signalChan():
		log.Printf("interrupted")
	}
	m.Stop()
	return saveState(m)
}

func runPlay() error {
	player, err := source.PlayFile(*playPath)
	if err != nil {
		return err
	}
	defer player.Close()

	m := manager.New(nil)
	defer m.Close()

	format := player.Format()
	if err := openManaged(m, *playType, *playDevice, float64(format.SampleRate)); err != nil {
		return err
	}
	serveMetrics(m)

	m.AddCallback(player)
	if err := m.Start(); err != nil {
		return err
	}

	fmt.Printf("Playing %s (%s)\n", *playPath, format)

	select {
	case <-player.Done():
		fmt.Printf("Done, %d frames\n", player.FramesPlayed())
	case <-signalChan():
		log.Printf("interrupted")
	}
	m.Stop()
	return saveState(m)
}

func runRender() error {
	cfg := wavdev.Config{
		Name:       "Offline Render",
		OutputPath: *renderOut,
	}

	rate := *renderRate
	var cb device.Callback
	var done <-chan struct{}

	if *renderIn != "" {
		player, err := source.PlayFile(*renderIn)
		if err != nil {
			return err
		}
		defer player.Close()
		rate = float64(player.Format().SampleRate)
		cb = player
		done = player.Done()
	} else {
		// The device cuts the file at the exact frame count, so the
		// tone itself can run open-ended.
		cfg.OutputFrames = int(renderDur.Seconds() * rate)
		cb = source.NewTone(*renderFreq, 0.5)
	}

	d := wavdev.New(cfg)
	setup := device.Setup{
		OutputChannels: device.Stereo(),
		SampleRate:     rate,
		BufferSize:     d.DefaultBufferSize(),
	}
	if err := d.Open(setup); err != nil {
		return err
	}
	defer d.Close()

	if err := d.Start(cb); err != nil {
		return err
	}
	if done != nil {
		<-done
	} else {
		for d.IsPlaying() {
			time.Sleep(10 * time.Millisecond)
		}
	}
	d.Stop()
	if err := d.LastError(); err != nil {
		return err
	}

	fmt.Printf("Rendered %s at %gHz\n", *renderOut, rate)
	return nil
}

func runSelftest() error {
	unittest.Register(devicetest.NewSuite("null", func() (device.Device, error) {
		return nulldev.New(nulldev.Config{Inputs: 2, Loopback: true}), nil
	}))

	tmp, err := os.MkdirTemp("", "duplex-selftest")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)
	unittest.Register(devicetest.NewSuite("wav render", func() (device.Device, error) {
		return wavdev.New(wavdev.Config{OutputPath: tmp + "/selftest.wav"}), nil
	}))

	r := &unittest.Runner{
		AbortOnFailure: *selftestAbort,
		Log: func(format string, args ...any) {
			fmt.Printf(format+"\n", args...)
		},
	}
	r.RunAll()

	if n := r.Failures(); n > 0 {
		return fmt.Errorf("%d checks failed", n)
	}
	return nil
}

func runMonitor() error {
	m := manager.New(nil)
	defer m.Close()

	if err := openManaged(m, *monitorType, *monitorDevice, 0); err != nil {
		return err
	}
	serveMetrics(m)

	tone := source.NewTone(*monitorFreq, 0.5)
	m.AddCallback(tone)
	if err := m.Start(); err != nil {
		return err
	}

	p, err := ui.Run()
	if err != nil {
		return fmt.Errorf("failed to start TUI: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ui.Watch(ctx, p, m, 100*time.Millisecond)

	if _, err := p.Run(); err != nil {
		return err
	}
	m.Stop()
	return saveState(m)
}

// openManaged points the manager at a device, honouring a state file when
// given. rate zero picks the device's first advertised sample rate.
func openManaged(m *manager.Manager, typeName, deviceName string, rate float64) error {
	if *stateFile != "" {
		err := m.LoadState(*stateFile)
		if err == nil {
			return nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("ignoring state file: %v", err)
		}
	}

	probe, err := device.Create(typeName, deviceName)
	if err != nil {
		return err
	}
	if rate == 0 {
		rates := probe.AvailableSampleRates()
		if len(rates) == 0 {
			return fmt.Errorf("device %q offers no sample rates", probe.Name())
		}
		rate = rates[0]
		for _, r := range rates {
			if r == 48000 {
				rate = r
			}
		}
	}
	setup := device.Setup{
		OutputChannels: device.FirstChannels(len(probe.OutputChannelNames())).Limit(2),
		InputChannels:  0,
		SampleRate:     rate,
		BufferSize:     probe.DefaultBufferSize(),
	}
	probe.Close()

	return m.SetDevice(typeName, deviceName, setup)
}

func saveState(m *manager.Manager) error {
	if *stateFile == "" {
		return nil
	}
	return m.SaveState(*stateFile)
}

// serveMetrics exposes the manager's collector when --metrics-listen is set.
func serveMetrics(m *manager.Manager) {
	if *metricsListen == "" {
		return
	}
	prometheus.MustRegister(manager.NewCollector(m))
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("serving metrics on %s", *metricsListen)
		if err := http.ListenAndServe(*metricsListen, nil); err != nil {
			log.Printf("metrics server: %v", err)
		}
	}()
}

func signalChan() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	return ch
}
