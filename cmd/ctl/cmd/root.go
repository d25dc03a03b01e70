package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jpfielding/dicomview.go/pkg/config"
	"github.com/jpfielding/dicomview.go/pkg/logging"
	"github.com/jpfielding/dicomview.go/pkg/palette"
	"github.com/spf13/cobra"
)

func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	var logOut io.Closer
	cmd := &cobra.Command{
		Use:          "dicomctl",
		Short:        "a CLI to window, colour and render medical images",
		Long:         "dicomctl loads DICOM or raw sidecar images and renders them through the window/level and palette pipeline",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			level, err := logging.ParseLevel(cfg.Log.Level)
			if err != nil {
				level = slog.LevelInfo
			}
			var w io.Writer = os.Stdout
			if cfg.Log.File != "" {
				rw := logging.RotatingWriter(cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)
				w, logOut = rw, rw
			}
			slog.SetDefault(logging.Logger(w, cfg.Log.JSON, level))
			if err != nil {
				slog.WarnContext(ctx, "Invalid log level, defaulting to INFO", "level", cfg.Log.Level, "error", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logOut != nil {
				logOut.Close()
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd, 0)
		},
	}
	cmd.AddCommand(
		NewVersionCmd(ctx, gitsha),
		NewPalettesCmd(ctx),
		NewInfoCmd(ctx),
		NewRenderCmd(ctx),
		NewLUTCmd(ctx),
		NewCompareCmd(ctx),
		NewExportCmd(ctx),
	)
	pf := cmd.PersistentFlags()
	pf.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	pf.String("log-file", "", "write logs to this file, rotated by size")
	pf.StringP("config", "c", "", "YAML configuration file")
	return cmd
}

// loadConfig reads --config and applies the log flags the user set on top of it
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		cfg.Log.Level = f.Value.String()
	}
	if f := cmd.Flags().Lookup("log-file"); f != nil && f.Changed {
		cfg.Log.File = f.Value.String()
	}
	return cfg, nil
}

func printCommandTree(cmd *cobra.Command, indent int) {
	fmt.Println(strings.Repeat("\t", indent), cmd.Use+":", cmd.Short)
	for _, subCmd := range cmd.Commands() {
		printCommandTree(subCmd, indent+1)
	}
}

func NewVersionCmd(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "git sha for this build",
		Long:  "git sha for this build",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), gitsha)
		},
	}
	return cmd
}

// NewPalettesCmd lists the palette catalog in selection order
func NewPalettesCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "palettes",
		Short: "list the built-in palettes",
		Long:  "list the built-in palettes in selection order with a few sample entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, _ := cmd.Flags().GetBool("samples")
			out := cmd.OutOrStdout()
			for i, e := range palette.Catalog() {
				fmt.Fprintf(out, "%d\t%-10s\t%s\n", i, e.Kind, e.DisplayName)
				if !samples {
					continue
				}
				tbl := palette.For(e.Kind)
				for _, idx := range []int{0, 64, 128, 192, 255} {
					c := tbl[idx]
					fmt.Fprintf(out, "\t%3d -> #%02X%02X%02X\n", idx, c[0], c[1], c[2])
				}
			}
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.Bool("samples", false, "print sample entries of each table")
	return cmd
}
