package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/suncare-ops/pog-engine/cmd/pog-cli/ui"
	"github.com/suncare-ops/pog-engine/internal/layout"
)

var (
	layoutStore  string
	layoutSide   int
	layoutFilter string
	layoutWidth  float64
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Render a store's shelf layout",
	Long: `Render the proportional shelf layout for one side of a store's
planogram, top shelf first. Card widths are the computed pixel widths at
the given content width.`,
	RunE: runLayout,
}

func init() {
	layoutCmd.Flags().StringVarP(&layoutStore, "store", "s", "", "store number (required)")
	layoutCmd.Flags().IntVar(&layoutSide, "side", 1, "planogram side")
	layoutCmd.Flags().StringVar(&layoutFilter, "filter", "all", "product filter: all, new, or srp")
	layoutCmd.Flags().Float64Var(&layoutWidth, "width", 800, "content width in pixels")
	layoutCmd.MarkFlagRequired("store")
	rootCmd.AddCommand(layoutCmd)
}

func runLayout(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	state := newState(cfg, newLogger(cfg))
	pg, err := state.SelectStore(ctx, layoutStore)
	if err != nil {
		return err
	}
	if err := state.SetSide(layoutSide); err != nil {
		return err
	}
	if err := state.SetFilter(layout.Filter(layoutFilter)); err != nil {
		return err
	}

	out, err := state.Layout(layoutWidth)
	if err != nil {
		return err
	}

	title := fmt.Sprintf("%s - side %d of %d", pg.Name, out.Side, pg.Sides)
	if out.Endcap {
		title += " (endcap)"
	}
	ui.Header(title)

	for _, shelf := range out.Shelves {
		label := fmt.Sprintf("Shelf %d", shelf.Number)
		if shelf.Label != "" {
			label += " [" + shelf.Label + "]"
		}
		ui.Message("%s  %d products, %d facings, %.1f in, %.2f px/in",
			label, shelf.VisibleCount, shelf.Facings, shelf.WidthIn, shelf.Scale)

		var row strings.Builder
		for _, card := range shelf.Cards {
			if card.Hidden {
				row.WriteString(fmt.Sprintf("  [%s ·hidden· %.0fpx]", card.Product.UPC, card.WidthPx))
				continue
			}
			row.WriteString(fmt.Sprintf("  [%s x%d %.0fpx]", card.Product.UPC, card.Product.Facings, card.WidthPx))
		}
		ui.Message("%s", row.String())
	}
	return nil
}
