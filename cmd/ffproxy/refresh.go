package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Acquire fresh tokens for every configured region",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer deps.Close()

		outcomes := deps.Tokens.RefreshAll(cmd.Context())

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "REGION\tRESULT\tEXPIRES")
		failed := 0
		for _, o := range outcomes {
			if o.Err != nil {
				failed++
				fmt.Fprintf(w, "%s\t%s\t-\n", o.Region, deps.Classifier.Classify(o.Err, "refresh").Kind)
				continue
			}
			fmt.Fprintf(w, "%s\tok\t%s\n", o.Region, o.ExpiresAt.Format(time.RFC3339))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if len(outcomes) > 0 && failed == len(outcomes) {
			return errors.New("no region could be refreshed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
