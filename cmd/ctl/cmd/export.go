package cmd

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/jpfielding/dicomview.go/pkg/source"
	"github.com/spf13/cobra"
)

// NewExportCmd writes an image as a raw sample file plus YAML sidecar
func NewExportCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "export an image to a raw sidecar",
		Long:  "Writes the samples of an image to a raw file (zstd compressed with --zstd) described by a YAML sidecar that 'render' and 'info' can load.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, img, err := loadImage(cmd, args[0])
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".yaml"
			}
			data := strings.TrimSuffix(filepath.Base(out), filepath.Ext(out)) + ".raw"
			if z, _ := cmd.Flags().GetBool("zstd"); z {
				data += ".zst"
			}
			if err := source.WriteSidecar(out, data, img); err != nil {
				return err
			}
			slog.InfoContext(ctx, "exported", slog.String("sidecar", out), slog.String("data", data))
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("out", "o", "", "sidecar path; defaults to the input with a .yaml extension")
	pf.Bool("zstd", false, "zstd compress the sample file")
	return cmd
}
