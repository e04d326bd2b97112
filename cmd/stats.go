package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lepinkainen/brickmass/internal/parts"
	"github.com/lepinkainen/brickmass/internal/stats"
)

// statsOutput is where the summary is printed.
var statsOutput io.Writer = os.Stdout

// StatsCmd represents the stats command
type StatsCmd struct {
	File         string `arg:"" help:"Parts JSON document written by crawl" type:"path"`
	WeightByRank bool   `help:"Weight each part by 1/overall_rank"`
	Bins         int    `help:"Number of histogram bins" default:"50"`
	Image        string `help:"Path of the histogram image" default:"distribution-parts.jpg"`
	YAML         bool   `name:"yaml" help:"Print the summary as YAML"`
}

// Run executes the stats command
func (s *StatsCmd) Run() error {
	pieces, err := parts.NewFileStore(s.File).Load()
	if err != nil {
		return err
	}

	samples := stats.Samples(pieces, s.WeightByRank)
	slog.Debug("Collected samples", "parts", len(pieces), "samples", len(samples))

	summary, err := stats.Compute(samples)
	if errors.Is(err, stats.ErrNoSamples) {
		slog.Warn("No valid sphere diameters found", "file", s.File)
		return nil
	}
	if err != nil {
		return err
	}
	summary.WeightByRank = s.WeightByRank

	if err := stats.WriteHistogramImage(s.Image, stats.NewHistogram(samples, s.Bins), summary); err != nil {
		return err
	}
	slog.Info("Wrote histogram", "path", s.Image, "bins", s.Bins)

	out := stats.Render(summary)
	if s.YAML {
		out, err = stats.MarshalYAML(summary)
		if err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(statsOutput, out)
	return err
}
