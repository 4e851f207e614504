package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/suncare-ops/pog-engine/cmd/pog-cli/ui"
)

var (
	pdfSearchPOG  string
	pdfSearchFile string
)

var pdfSearchCmd = &cobra.Command{
	Use:   "pdf-search <term>",
	Short: "Search a planogram PDF for a term",
	Long: `Open a planogram PDF, extract its text, and list every page and
offset where the term occurs. --pog picks the document by planogram type
from the configured PDF directory; --file opens an explicit path.`,
	Args: cobra.ExactArgs(1),
	RunE: runPDFSearch,
}

func init() {
	pdfSearchCmd.Flags().StringVar(&pdfSearchPOG, "pog", "pallet", "planogram type: pallet or endcap")
	pdfSearchCmd.Flags().StringVar(&pdfSearchFile, "file", "", "explicit PDF path, overrides --pog")
	rootCmd.AddCommand(pdfSearchCmd)
}

func runPDFSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	state := newState(cfg, newLogger(cfg))

	path := pdfSearchFile
	if path == "" {
		path = filepath.Join(cfg.Data.PDFDir, pdfSearchPOG+".pdf")
	}

	s, err := state.PDF().Open(path, "", 800)
	if err != nil {
		return err
	}
	defer state.PDF().Close()

	bar := ui.NewProgressBar(int64(s.TotalPages()), "extracting text")
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(100 * time.Millisecond):
				bar.Set(int64(s.IndexedPages()))
			}
		}
	}()
	s.WaitForIndex(cfg.Viewer.ExtractWait)
	close(done)
	bar.Set(int64(s.IndexedPages()))
	bar.Finish()

	st, err := s.PerformSearch(args[0])
	if err != nil {
		return err
	}
	if st.Total == 0 {
		ui.Warn("no matches for %q in %s", args[0], path)
		return nil
	}

	ui.Success("%d matches for %q", st.Total, args[0])
	rows := make([][]string, 0, st.Total)
	for i, m := range s.Matches() {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d", m.PageNum),
			fmt.Sprintf("%d-%d", m.Start, m.End),
		})
	}
	ui.Table([]string{"#", "Page", "Offset"}, rows)
	return nil
}
