package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/andresmejia3/facefit/internal/catalog"
	"github.com/andresmejia3/facefit/internal/utils"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the product catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <catalog.yaml>",
	Short: "Replace the database catalog with the contents of a YAML file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		db := requireDB()
		c, err := catalog.Load(args[0])
		if err != nil {
			utils.Die("Failed to read catalog", err, nil)
		}
		if err := db.SaveCatalog(cmd.Context(), c); err != nil {
			utils.Die("Failed to save catalog", err, nil)
		}
		fmt.Fprintf(os.Stderr, "📦 Imported %d products.\n", len(c.Products))
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the products of the active catalog",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := loadCatalog(cmd.Context(), catalogPath, DB)
		if err != nil {
			utils.Die("Failed to load catalog", err, nil)
		}
		printCatalog(os.Stdout, c)
	},
}

func init() {
	catalogCmd.AddCommand(catalogImportCmd, catalogListCmd)
	rootCmd.AddCommand(catalogCmd)
}

func printCatalog(out io.Writer, c *catalog.Catalog) {
	if len(c.Products) == 0 {
		fmt.Fprintln(out, "No products in catalog.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOLOURWAYS\tSIZES")
	fmt.Fprintln(w, "--\t----\t----------\t-----")

	for _, p := range c.Products {
		colours := make([]string, len(p.Colourways))
		for i, cw := range p.Colourways {
			colours[i] = cw.ID
		}
		sizes := make([]string, 0, len(p.Sizes))
		for k := range p.Sizes {
			sizes = append(sizes, k)
		}
		sort.Strings(sizes)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, orDash(strings.Join(colours, ",")), orDash(strings.Join(sizes, ",")))
	}
	w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
