package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/alecthomas/kong"

	"github.com/GoldenFealla/VideoPlayerGo/internal/audio"
	"github.com/GoldenFealla/VideoPlayerGo/internal/conf"
	"github.com/GoldenFealla/VideoPlayerGo/internal/decoder"
	"github.com/GoldenFealla/VideoPlayerGo/internal/logger"
	"github.com/GoldenFealla/VideoPlayerGo/internal/media"
	"github.com/GoldenFealla/VideoPlayerGo/internal/metrics"
	"github.com/GoldenFealla/VideoPlayerGo/internal/widget"
)

var version = "v0.0.0"

var cli struct {
	Version  bool   `help:"print version"`
	Confpath string `name:"conf" default:"player.yml"`
	Input    string `arg:"" help:"file or URL to play"`
}

func main() {
	parser, err := kong.New(&cli,
		kong.Description("Video player "+version),
		kong.UsageOnError(),
		kong.ValueFormatter(func(value *kong.Value) string {
			switch value.Name {
			case "conf":
				return "path to a config file. The default is player.yml."

			default:
				return kong.DefaultHelpValueFormatter(value)
			}
		}))
	if err != nil {
		panic(err)
	}

	_, err = parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if cli.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := run(cli.Confpath, cli.Input); err != nil {
		fmt.Printf("ERR: %s\n", err)
		os.Exit(1)
	}
}

func run(confPath string, input string) error {
	c, found, err := conf.Load(confPath)
	if err != nil {
		return err
	}

	l := &logger.Logger{
		Level:        logger.Level(c.LogLevel),
		Destinations: c.LogDestinations,
		File:         c.LogFile,
	}
	if err := l.Initialize(); err != nil {
		return err
	}
	defer l.Close()

	l.Log(logger.Info, "Video player %s", version)
	if !found {
		l.Log(logger.Warn, "configuration file not found (looked in %s), using defaults", confPath)
	}

	m := metrics.New()
	if c.MetricsAddress != "" {
		srv := &http.Server{
			Addr:              c.MetricsAddress,
			Handler:           m.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				l.Log(logger.Error, "metrics server: %v", err)
			}
		}()
		defer srv.Close()
		l.Log(logger.Info, "metrics listening on %s", c.MetricsAddress)
	}

	in := decoder.NewInput()
	defer in.Close()

	if err := in.Open(input); err != nil {
		return err
	}
	l.Log(logger.Info, "opened %s, duration %v", input, in.Duration())

	out, err := audio.New(c.AudioSampleRate, c.AudioChannels)
	if err != nil {
		return err
	}
	defer out.Close() //nolint:errcheck

	a := app.New()
	w := a.NewWindow("Video player")
	w.Resize(fyne.NewSize(float32(c.WindowWidth), float32(c.WindowHeight)))

	frame := widget.NewVideoFrame(c.WindowWidth, c.WindowHeight)
	w.SetContent(frame.CanvasObject())

	p := media.New(media.Params{
		Demuxer:            in,
		Surface:            frame,
		AudioSink:          out,
		QueueCapacity:      c.QueueCapacity,
		DriftThreshold:     time.Duration(c.DriftThreshold),
		MinSleep:           time.Duration(c.MinSleep),
		MaxSleep:           time.Duration(c.MaxSleep),
		AudioLatencyOffset: time.Duration(c.AudioLatencyOffset),
		Logger:             l,
		Metrics:            m,
	})
	defer p.Release()

	if err := p.Open(); err != nil {
		return err
	}

	if err := p.Play(); err != nil {
		return err
	}

	go func() {
		p.Wait() //nolint:errcheck
		fyne.Do(a.Quit)
	}()

	w.SetOnClosed(func() {
		p.Stop()
		out.Close() //nolint:errcheck
	})
	w.ShowAndRun()

	p.Stop()
	out.Close() //nolint:errcheck

	return p.Wait()
}
