package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	apphttp "github.com/spounge-ai/ffproxy/internal/app/http"
)

var lookupRegion string

var lookupCmd = &cobra.Command{
	Use:   "lookup <uid>",
	Short: "Resolve one account and print it as JSON",
	Long: `Resolve one account the same way GET /get does. With --region the lookup
is pinned to that region and no fallback happens.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer deps.Close()

		res, err := deps.Service.Lookup(cmd.Context(), args[0], lookupRegion)
		if err != nil {
			c := deps.Classifier.LogAndSanitize(cmd.Context(), deps.Classifier.Classify(err, "lookup"))
			return fmt.Errorf("%s: %s", c.Kind, c.ClientMessage)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(apphttp.FormatAccount(res.Record, res.EffectiveRegion))
	},
}

func init() {
	lookupCmd.Flags().StringVarP(&lookupRegion, "region", "r", "", "pin the lookup to one region")
	rootCmd.AddCommand(lookupCmd)
}
