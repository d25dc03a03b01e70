package cmd

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"

	"github.com/jpfielding/dicomview.go/pkg/convert"
	"github.com/jpfielding/dicomview.go/pkg/palette"
	"github.com/jpfielding/dicomview.go/pkg/raw"
	"github.com/jpfielding/dicomview.go/pkg/realtime"
	"github.com/jpfielding/dicomview.go/pkg/wl"
	"github.com/spf13/cobra"
)

// NewRenderCmd renders a windowed, coloured snapshot to PNG
func NewRenderCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "render an image to PNG",
		Long: "Renders an image with its default or an overridden window and a palette. " +
			"Without a viewport the converter writes the image at native size; with --vw/--vh " +
			"the realtime renderer places it under the view transform.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, img, err := loadImage(cmd, args[0])
			if err != nil {
				return err
			}
			w, err := selectWindow(cmd, img)
			if err != nil {
				return err
			}
			kind, err := selectPalette(cmd, cfg.Viewer.Palette)
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("out")
			vw, _ := cmd.Flags().GetInt("vw")
			vh, _ := cmd.Flags().GetInt("vh")

			var pic image.Image
			if vw > 0 || vh > 0 {
				if vw <= 0 {
					vw = img.Width()
				}
				if vh <= 0 {
					vh = img.Height()
				}
				zoom, _ := cmd.Flags().GetFloat64("zoom")
				rotate, _ := cmd.Flags().GetInt("rotate")
				panX, _ := cmd.Flags().GetFloat64("pan-x")
				panY, _ := cmd.Flags().GetFloat64("pan-y")
				r, err := realtime.NewRenderer(cfg.RendererOptions(slog.Default())...)
				if err != nil {
					return err
				}
				defer r.Close()
				if err := r.SetImage(img); err != nil {
					return err
				}
				r.SetWindowLevel(w)
				r.SetPalette(kind)
				r.SetView(realtime.ViewTransform{Zoom: zoom, PanX: panX, PanY: panY, Quarters: rotate})
				frame, err := r.Render(vw, vh)
				if err != nil {
					return err
				}
				slog.DebugContext(ctx, "rendered", slog.String("mode", r.Mode()), slog.String("view", r.View().String()))
				pic = frame.Image()
			} else {
				buf, err := convert.ToDisplay(img, w, kind)
				if err != nil {
					return err
				}
				slog.DebugContext(ctx, "converted", slog.String("format", buf.Format.String()), slog.String("fingerprint", buf.Fingerprint()))
				pic = buf.Image()
			}
			if err := writePNG(out, pic); err != nil {
				return err
			}
			slog.InfoContext(ctx, "wrote snapshot",
				slog.String("out", out),
				slog.String("window", w.String()),
				slog.String("palette", kind.String()))
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("out", "o", "out.png", "PNG output path")
	addWindowFlags(cmd)
	pf.Int("vw", 0, "viewport width; enables the realtime renderer")
	pf.Int("vh", 0, "viewport height; enables the realtime renderer")
	pf.Float64("zoom", 1, "zoom relative to fit")
	pf.Int("rotate", 0, "clockwise quarter turns")
	pf.Float64("pan-x", 0, "horizontal pan in viewport pixels")
	pf.Float64("pan-y", 0, "vertical pan in viewport pixels")
	return cmd
}

func addWindowFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.Float64("center", 0, "window center (level)")
	pf.Float64("width", 0, "window width")
	pf.String("preset", "", "CT window preset (soft_tissue, bone, lung, brain)")
	pf.Bool("reset", false, "use the image's default window, ignoring overrides")
	pf.StringP("palette", "p", "", "palette name; defaults to the configured palette")
}

// selectWindow applies --preset, then --center/--width, to the image's window state.
// Presets are in rescaled units and are converted to stored units; --center and
// --width are taken as stored values.
// --reset restores the default afterwards.
func selectWindow(cmd *cobra.Command, img *raw.Image) (wl.WindowLevel, error) {
	state := img.Window()
	if name, _ := cmd.Flags().GetString("preset"); name != "" {
		p, err := wl.FindPreset(name)
		if err != nil {
			return wl.WindowLevel{}, err
		}
		slope, intercept := img.Rescale()
		state.Set(p.Window.ToStored(slope, intercept))
	}
	if cmd.Flags().Changed("center") {
		c, _ := cmd.Flags().GetFloat64("center")
		state.SetCenter(c)
	}
	if cmd.Flags().Changed("width") {
		w, _ := cmd.Flags().GetFloat64("width")
		state.SetWidth(w)
	}
	if reset, _ := cmd.Flags().GetBool("reset"); reset {
		state.Reset()
	}
	return state.Current(), nil
}

func selectPalette(cmd *cobra.Command, def palette.Kind) (palette.Kind, error) {
	name, _ := cmd.Flags().GetString("palette")
	if name == "" {
		return def, nil
	}
	return palette.ParseKind(name)
}

func writePNG(path string, pic image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, pic); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return f.Close()
}
