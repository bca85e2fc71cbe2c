package cli

import (
	"fmt"
	"os"

	"github.com/pocketbase/pocketbase"
	"github.com/spf13/cobra"

	"siteforge/collections"
	"siteforge/services"
)

// NewImportCatalogCommand creates the import-catalog command, which loads a
// BoQ template workbook into the boq_catalog collection.
func NewImportCatalogCommand(app *pocketbase.PocketBase) *cobra.Command {
	return &cobra.Command{
		Use:     "import-catalog <workbook.xlsx>",
		Short:   "Load the product catalog from a BoQ template workbook",
		Example: `  siteforge import-catalog "BoQ template.xlsx"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer f.Close()

			entries, stats, err := services.ImportCatalogWorkbook(f)
			if err != nil {
				return err
			}

			collections.Setup(app)
			n, err := collections.SaveCatalog(app, entries)
			if err != nil {
				return err
			}
			renderCatalogStats(cmd.OutOrStdout(), stats, n)
			return nil
		},
	}
}
