package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/jpfielding/dicomview.go/pkg/raw"
	"github.com/jpfielding/dicomview.go/pkg/wl"
	"github.com/spf13/cobra"
)

// NewLUTCmd dumps a window/level lookup table for a sample domain
func NewLUTCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lut",
		Short: "print a window/level lookup table",
		Long:  "Builds the lookup table for a sample domain (u8, u16, s16) and window, and prints every step-th entry as 'raw<TAB>display'.",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("domain")
			domain, err := parseDomain(name)
			if err != nil {
				return err
			}
			w := wl.FullRange(domain.Min(), domain.Max())
			if cmd.Flags().Changed("center") {
				w.Center, _ = cmd.Flags().GetFloat64("center")
			}
			if cmd.Flags().Changed("width") {
				w.Width, _ = cmd.Flags().GetFloat64("width")
			}
			invert, _ := cmd.Flags().GetBool("invert")
			step, _ := cmd.Flags().GetInt("step")
			if step <= 0 {
				return fmt.Errorf("step must be positive: %d", step)
			}

			lut := wl.BuildLUTFor(w, domain.Min(), domain.Max(), invert)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s %s invert=%v entries=%d\n", domain, w, invert, lut.Len())
			for v := lut.Min; v <= lut.Max; v += step {
				fmt.Fprintf(out, "%d\t%d\n", v, lut.Lookup(v))
			}
			if (lut.Max-lut.Min)%step != 0 {
				fmt.Fprintf(out, "%d\t%d\n", lut.Max, lut.Lookup(lut.Max))
			}
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.String("domain", "u8", "sample domain (u8, u16, s16)")
	pf.Float64("center", 0, "window center; defaults to the middle of the domain")
	pf.Float64("width", 0, "window width; defaults to the full domain")
	pf.Bool("invert", false, "invert after windowing, as for MONOCHROME1")
	pf.Int("step", 1, "print every step-th entry")
	return cmd
}

func parseDomain(s string) (raw.Domain, error) {
	for _, d := range []raw.Domain{raw.DomainU8, raw.DomainU16, raw.DomainS16} {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return raw.DomainU8, fmt.Errorf("unknown domain %q", s)
}
