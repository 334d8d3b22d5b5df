// Command upmix turns a stereo wav file into a 4, 5, or 5.1-channel
// surround wav by estimating, smoothing, and re-applying a per-frequency
// steering matrix.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/GWBasic/soft-matrix/internal/fft"
	"github.com/GWBasic/soft-matrix/internal/keepawake"
	"github.com/GWBasic/soft-matrix/internal/matrixprofile"
	"github.com/GWBasic/soft-matrix/internal/pipeline"
	"github.com/GWBasic/soft-matrix/internal/upmixer"
	"github.com/GWBasic/soft-matrix/internal/upmixlog"
	"github.com/GWBasic/soft-matrix/internal/wavio"
	"github.com/GWBasic/soft-matrix/internal/windowsize"
)

// gitHash is set at build time with -ldflags; it only ever shows up in the
// help text.
var gitHash = "unknown"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "upmix:", err)
		os.Exit(1)
	}
}

func run() error {
	// Fresh FlagSet each call so tests can invoke run() more than once in
	// the same process without "flag redefined" panics.
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)

	channels := pflag.String("channels", "5.1", `Output channel layout: "4", "5", or "5.1".`)
	matrix := pflag.String("matrix", "default", `Matrix profile: "default", "qs", "horseshoe", "dolby", "rm", or "sq".`)
	lowestHz := pflag.Float64("low", 20, "Lowest frequency to steer, in Hz.")
	threads := pflag.Int("threads", 0, "Cap on worker goroutines. 0 means use every available CPU.")
	keepAwakeFlag := pflag.Bool("keep-awake", false, "Ask the OS not to sleep while upmixing.")
	help := pflag.BoolP("help", "h", false, "Display this help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "upmix %s\n\nUsage: upmix <source.wav> <target.wav> [flags]\n\n", gitHash)
		pflag.PrintDefaults()
	}
	if err := pflag.CommandLine.Parse(os.Args[1:]); err != nil {
		return err
	}

	if *help {
		pflag.Usage()
		return nil
	}

	if pflag.NArg() != 2 {
		pflag.Usage()
		return fmt.Errorf("expected exactly 2 positional arguments, got %d", pflag.NArg())
	}
	sourcePath, targetPath := pflag.Arg(0), pflag.Arg(1)

	if *lowestHz < 1 {
		return fmt.Errorf("--low must be >= 1, got %v", *lowestHz)
	}

	layout, ok := wavio.ParseLayout(*channels)
	if !ok {
		return fmt.Errorf("unrecognised --channels value %q", *channels)
	}

	variant, ok := matrixprofile.ParseVariant(*matrix)
	if !ok {
		return fmt.Errorf("unrecognised --matrix value %q", *matrix)
	}
	profile := matrixprofile.New(variant)

	if layout.HasLFE() && *lowestHz > pipeline.LFEStartHz {
		return fmt.Errorf("--low %v Hz leaves no steerable range below the %v Hz LFE crossover; pick a smaller --low or a --channels value without LFE", *lowestHz, pipeline.LFEStartHz)
	}

	if *threads < 0 {
		return fmt.Errorf("--threads must be >= 0, got %d", *threads)
	}

	source, err := wavio.OpenSource(sourcePath)
	if err != nil {
		return err
	}

	minWindow := windowsize.MinWindow(source.SampleRate, *lowestHz)
	windowSize, err := windowsize.Ideal(minWindow)
	if err != nil {
		return err
	}
	// The averager needs a window and a half of lookahead before it can
	// seed its rolling averages and emit the first frame.
	minSamples := windowSize + windowSize/2 + 1
	if source.NumSamples() < minSamples {
		return fmt.Errorf("%s has %d samples; at least %d are needed for the %d-sample window --low %v Hz requires at %d Hz", sourcePath, source.NumSamples(), minSamples, windowSize, *lowestHz, source.SampleRate)
	}

	if *keepAwakeFlag {
		tok, err := keepawake.Acquire()
		if err != nil {
			return fmt.Errorf("requesting keep-awake: %w", err)
		}
		defer tok.Release()
	}

	plan, err := fft.New(windowSize)
	if err != nil {
		return fmt.Errorf("building fft plan: %w", err)
	}

	needMono := layout.HasCenter() || layout.HasLFE()
	reader := pipeline.NewReader(source, windowSize, needMono, plan, profile)

	sink, err := wavio.NewWriter(targetPath, source.SampleRate, layout, source.NumSamples())
	if err != nil {
		return fmt.Errorf("opening %s for writing: %w", targetPath, err)
	}
	defer sink.Close()

	writer := pipeline.NewPannerWriter(sink, plan, profile, layout, windowSize, source.NumSamples(), source.SampleRate)
	averager := pipeline.NewAverager(windowSize, source.NumSamples(), writer)

	logger := upmixlog.New(source.NumSamples())
	logger.Started(sourcePath)

	u := upmixer.New(reader, averager, writer, logger, *threads)
	if err := u.Run(); err != nil {
		logger.Failed(err)
		return err
	}

	logger.Finished()
	return nil
}
