package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/suncare-ops/pog-engine/cmd/pog-cli/ui"
	"github.com/suncare-ops/pog-engine/internal/catalog"
	"github.com/suncare-ops/pog-engine/internal/matching"
)

var (
	lookupStore string
	lookupScan  bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <upc-or-name>",
	Short: "Look a product up by UPC or name",
	Long: `Look a product up against a store's planogram. The query is matched
exactly first, then through the UPC redirect table, then fuzzily against
UPCs and product names. --scan switches to the stricter barcode matching
used for camera decodes.`,
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().StringVarP(&lookupStore, "store", "s", "", "store number (required)")
	lookupCmd.Flags().BoolVar(&lookupScan, "scan", false, "treat the query as a scanned barcode")
	lookupCmd.MarkFlagRequired("store")
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	state := newState(cfg, newLogger(cfg))
	if _, err := state.SelectStore(ctx, lookupStore); err != nil {
		return err
	}

	var res matching.Result
	if lookupScan {
		res, err = state.ResolveScan(args[0])
	} else {
		res, err = state.Resolve(ctx, args[0])
	}
	if err != nil {
		return err
	}

	switch res.Kind {
	case matching.KindProduct:
		printProduct(*res.Product)
		if res.Redirect != nil {
			ui.Warn("UPC %s has been replaced by %s", res.Redirect.Old, res.Redirect.New)
		}
	case matching.KindCandidates:
		ui.Message("%d possible matches:", len(res.Candidates))
		printCandidates(res.Candidates)
	case matching.KindRemoved:
		ui.Warn("%s (%s) was removed from this planogram", res.Removed.Name, res.Removed.UPC)
	default:
		ui.Error("no match for %q", args[0])
	}
	return nil
}

func printProduct(p catalog.Product) {
	ui.Header(p.Name)
	rows := [][]string{
		{"UPC", p.UPC},
		{"Side", strconv.Itoa(p.Segment)},
		{"Shelf", strconv.Itoa(p.Shelf)},
		{"Position", strconv.Itoa(p.Position)},
		{"Facings", strconv.Itoa(p.Facings)},
	}
	if p.IsNew {
		rows = append(rows, []string{"New", "yes"})
	}
	if p.SRP {
		rows = append(rows, []string{"SRP", "yes"})
	}
	for _, row := range rows {
		ui.Message("  %-9s %s", row[0], row[1])
	}
}

func printCandidates(candidates []catalog.Product) {
	rows := make([][]string, 0, len(candidates))
	for _, p := range candidates {
		rows = append(rows, []string{
			p.UPC,
			p.Name,
			fmt.Sprintf("%d/%d/%d", p.Segment, p.Shelf, p.Position),
		})
	}
	ui.Table([]string{"UPC", "Name", "Side/Shelf/Pos"}, rows)
}
