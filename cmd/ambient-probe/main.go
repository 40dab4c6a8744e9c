// ABOUTME: Diagnostic tool for asset decoding and system audio detection
// ABOUTME: "decode" inspects an asset, "listen" prints live volume and decisions
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/ambient-go/internal/backend"
	"github.com/Resonate-Protocol/ambient-go/internal/logging"
	"github.com/Resonate-Protocol/ambient-go/internal/monitor"
	"github.com/Resonate-Protocol/ambient-go/internal/topology"
	"github.com/Resonate-Protocol/ambient-go/internal/version"
	"github.com/Resonate-Protocol/ambient-go/pkg/audio/decode"
	"github.com/rs/zerolog"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  ambient-probe decode [-format ogg|flac|mp3|auto] <file>
  ambient-probe listen [-capture pulse|malgo] [-duration 10s]
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "decode":
		err = runDecode(os.Args[2:])
	case "listen":
		err = runListen(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	format := fs.String("format", "auto", "Container: ogg, flac, mp3 or auto")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		usage()
		return fmt.Errorf("decode needs exactly one file")
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	start := time.Now()
	pcm, err := decode.DecodeAs(decode.Container(*format), data)
	if err != nil {
		return err
	}

	fmt.Printf("File:        %s\n", fs.Arg(0))
	fmt.Printf("Codec:       %s\n", pcm.Format.Codec)
	fmt.Printf("Sample rate: %d Hz\n", pcm.Format.SampleRate)
	fmt.Printf("Channels:    %d\n", pcm.Format.Channels)
	fmt.Printf("Bit depth:   %d\n", pcm.Format.BitDepth)
	fmt.Printf("PCM bytes:   %d\n", pcm.Len())
	fmt.Printf("Duration:    %s\n", pcm.Duration().Round(time.Millisecond))
	fmt.Printf("Decoded in:  %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

// dryRunPlayer records decisions without producing sound
type dryRunPlayer struct {
	log     zerolog.Logger
	playing atomic.Bool
}

func (p *dryRunPlayer) Play() {
	p.playing.Store(true)
	p.log.Info().Msg("decision: play")
}

func (p *dryRunPlayer) Pause() {
	p.playing.Store(false)
	p.log.Info().Msg("decision: pause")
}

func (p *dryRunPlayer) IsPlaying() bool { return p.playing.Load() }

type silent struct{}

func (silent) Active() bool { return false }

func runListen(args []string) error {
	fs := flag.NewFlagSet("listen", flag.ExitOnError)
	capture := fs.String("capture", backend.BackendPulse, "Capture backend: pulse or malgo")
	duration := fs.Duration("duration", 10*time.Second, "How long to listen; 0 runs until interrupted")
	level := fs.String("log-level", "info", "Log level")
	_ = fs.Parse(args)

	logger, err := logging.New(logging.Options{Level: *level, Console: true})
	if err != nil {
		return err
	}
	log := logger.Logger

	b, err := backend.Open(*capture, version.AppName()+"-probe", log)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	mon := monitor.New(&dryRunPlayer{log: log}, silent{}, monitor.DefaultConfig(), log)
	watcher := topology.New(b, mon, topology.DefaultConfig(), log)
	defer func() { _ = watcher.Close() }()

	var wg sync.WaitGroup
	defer wg.Wait()

	wg.Add(2)
	go func() {
		defer wg.Done()
		watcher.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		mon.Run(ctx)
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap := mon.Snapshot()
			status := watcher.Status()
			fmt.Printf("volume=%.4f state=%-13s attached=%-5v source=%s\n",
				snap.Volume, snap.State, status.Attached, status.Source)
		}
	}
}
