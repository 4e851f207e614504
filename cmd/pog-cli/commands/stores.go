package commands

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/suncare-ops/pog-engine/cmd/pog-cli/ui"
	"github.com/suncare-ops/pog-engine/internal/catalog"
)

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "List the store registry",
	RunE:  runStores,
}

func init() {
	rootCmd.AddCommand(storesCmd)
}

func runStores(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := catalog.NewLoader(cfg.Data.Dir, cfg.Data.StoresFile).Stores()
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(reg))
	for id := range reg {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, []string{id, reg[id]})
	}
	ui.Table([]string{"Store", "Planogram"}, rows)
	return nil
}
