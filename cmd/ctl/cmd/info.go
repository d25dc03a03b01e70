package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jpfielding/dicomview.go/pkg/config"
	"github.com/jpfielding/dicomview.go/pkg/raw"
	"github.com/jpfielding/dicomview.go/pkg/source"
	"github.com/spf13/cobra"
)

// NewInfoCmd creates the info cobra command
func NewInfoCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <file>",
		Short: "describe an image and its default window",
		Long:  "Loads a DICOM or sidecar image and prints its descriptor, sample range and default window.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runInfo(cmd.OutOrStdout(), cfg, args[0])
		},
	}
	return cmd
}

func runInfo(out io.Writer, cfg *config.Config, path string) error {
	var img *raw.Image
	if isSidecar(path) {
		var err error
		if img, err = cfg.Loader().ReadSidecar(path); err != nil {
			return fmt.Errorf("load error: %w", err)
		}
	} else {
		ds, err := parseDataset(path)
		if err != nil {
			return err
		}
		printDataset(out, ds)
		if img, err = cfg.Loader().Image(ds); err != nil {
			return fmt.Errorf("load error: %s: %w", path, err)
		}
	}

	fmt.Fprintln(out, "=== Image ===")
	fmt.Fprintf(out, "Description: %s\n", img.Description())
	fmt.Fprintf(out, "Size: %dx%d\n", img.Width(), img.Height())
	fmt.Fprintf(out, "SamplesPerPixel: %d\n", img.SamplesPerPixel())
	fmt.Fprintf(out, "Bits: %d stored / %d allocated, high bit %d\n", img.BitsStored(), img.BitsAllocated(), img.HighBit())
	fmt.Fprintf(out, "Domain: %s\n", img.Domain())
	fmt.Fprintf(out, "Photometric: %s\n", img.Photometric())
	slope, intercept := img.Rescale()
	fmt.Fprintf(out, "Rescale: slope %g, intercept %g\n", slope, intercept)

	view, err := img.Samples()
	if err != nil {
		return err
	}
	lo, hi := view.MinMax()
	fmt.Fprintf(out, "Sample range: min=%d, max=%d\n", lo, hi)
	fmt.Fprintf(out, "Default window: %s\n", img.Window().Default())
	if !img.IsRGB() {
		fmt.Fprintf(out, "Min/max window: %s\n", source.MinMaxWindow(view))
	}
	return nil
}

func parseDataset(path string) (*source.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	ds, err := source.ParseDICOM(f)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return ds, nil
}

// printDataset reports the transfer syntax before any pixel decoding, so unsupported
// files still describe themselves
func printDataset(out io.Writer, ds *source.Dataset) {
	fmt.Fprintf(out, "Total elements: %d\n\n", len(ds.Elements))
	fmt.Fprintln(out, "=== Key Metadata ===")
	modality, _ := ds.Text(source.Modality)
	fmt.Fprintf(out, "Modality: %s\n", modality)
	fmt.Fprintf(out, "TransferSyntax: %s (%s)\n", ds.Syntax, ds.Syntax.Name())
	fmt.Fprintf(out, "Encapsulated: %v\n", ds.Encapsulated)
	if frames, ok := ds.Int(source.NumberOfFrames); ok {
		fmt.Fprintf(out, "NumberOfFrames: %d\n", frames)
	}
	fmt.Fprintln(out)
}

func isSidecar(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// loadImage reads path with the configured default window options
func loadImage(cmd *cobra.Command, path string) (*config.Config, *raw.Image, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	img, err := cfg.Loader().Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load error: %w", err)
	}
	return cfg, img, nil
}
