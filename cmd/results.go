package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/facefit/internal/store"
	"github.com/andresmejia3/facefit/internal/utils"
	"github.com/spf13/cobra"
)

var (
	resultsMode  string
	resultsLimit int
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List logged recommendations, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		runResults(cmd.Context())
	},
}

func init() {
	resultsCmd.Flags().StringVarP(&resultsMode, "mode", "m", "", "Only show one mode (colour, fit)")
	resultsCmd.Flags().IntVarP(&resultsLimit, "limit", "n", 20, "Maximum rows to show (0 for all)")
	rootCmd.AddCommand(resultsCmd)
}

func runResults(ctx context.Context) {
	if resultsMode != "" && resultsMode != store.ModeColour && resultsMode != store.ModeFit {
		utils.Die("Invalid mode", fmt.Errorf("must be %q or %q, got %q", store.ModeColour, store.ModeFit, resultsMode), nil)
	}

	recs, err := requireDB().ListRecommendations(ctx, resultsMode, resultsLimit)
	if err != nil {
		utils.Die("Failed to list recommendations", err, nil)
	}
	printRecommendations(os.Stdout, recs)
}

func printRecommendations(out io.Writer, recs []store.Recommendation) {
	if len(recs) == 0 {
		fmt.Fprintln(out, "No recommendations found in database.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tPRODUCT\tMODE\tRESULT\tCREATED")
	fmt.Fprintln(w, "--\t-------\t----\t------\t-------")

	for _, r := range recs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.ProductID, r.Mode, r.Summary, r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()
}
