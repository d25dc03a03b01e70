package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jpfielding/dicomview.go/pkg/convert"
	"github.com/jpfielding/dicomview.go/pkg/palette"
	"github.com/jpfielding/dicomview.go/pkg/realtime"
	"github.com/jpfielding/dicomview.go/pkg/util"
	"github.com/spf13/cobra"
)

// NewCompareCmd checks the realtime renderer against the converter for one image
func NewCompareCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <file>",
		Short: "compare realtime frames with converter output",
		Long: "Renders the image at native size through the realtime renderer and through the " +
			"converter for every palette (or --palette), reporting the largest channel difference " +
			"and the fingerprints of both outputs.",
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
			kinds := palette.Kinds()
			if name, _ := cmd.Flags().GetString("palette"); name != "" {
				k, err := palette.ParseKind(name)
				if err != nil {
					return err
				}
				kinds = []palette.Kind{k}
			}
			tolerance, _ := cmd.Flags().GetInt("tolerance")

			r, err := realtime.NewRenderer(cfg.RendererOptions(slog.Default())...)
			if err != nil {
				return err
			}
			defer r.Close()
			if err := r.SetImage(img); err != nil {
				return err
			}
			r.SetWindowLevel(w)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "image %s window %s\n", img, w)
			worst := 0
			for _, k := range kinds {
				buf, err := convert.ToDisplay(img, w, k)
				if err != nil {
					return err
				}
				r.SetPalette(k)
				frame, err := r.Render(img.Width(), img.Height())
				if err != nil {
					return err
				}
				delta := maxDelta(buf, frame)
				worst = max(worst, delta)
				fmt.Fprintf(out, "%-10s mode=%-6s max-delta=%d converter=%s realtime=%s\n",
					k, r.Mode(), delta, buf.Fingerprint(),
					util.ContentUUID(frame.Pix, fmt.Sprintf("%dx%d/rgba", frame.Width, frame.Height)))
			}
			if worst > tolerance {
				return fmt.Errorf("realtime output differs from converter by %d levels (tolerance %d)", worst, tolerance)
			}
			return nil
		},
	}
	addWindowFlags(cmd)
	pf := cmd.PersistentFlags()
	pf.Int("tolerance", 1, "largest accepted channel difference")
	return cmd
}

// maxDelta compares same-sized outputs channel by channel
func maxDelta(buf *convert.DisplayBuffer, frame *realtime.Frame) int {
	worst := 0
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			br, bg, bb := buf.At(x, y)
			fr, fg, fb, _ := frame.At(x, y)
			worst = max(worst, absDiff(br, fr), absDiff(bg, fg), absDiff(bb, fb))
		}
	}
	return worst
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
