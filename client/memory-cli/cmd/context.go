package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

type contextResponse struct {
	Context      string `json:"context"`
	SessionCount int    `json:"sessionCount"`
	LoadedCount  *int   `json:"loadedCount"`
}

func newContextCmd(opts *options) *cobra.Command {
	var coupleID string
	cmd := &cobra.Command{
		Use:   "context [user-id]",
		Short: "Print the context block the user's next session starts with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]string{"userId": args[0]}
			if coupleID != "" {
				payload["coupleId"] = coupleID
			}

			var resp contextResponse
			if err := postJSON(opts, "/api/v1/memory/context", payload, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if resp.SessionCount == 0 {
				fmt.Fprintln(out, "No analyzed sessions.")
				return nil
			}
			loaded := resp.SessionCount
			if resp.LoadedCount != nil {
				loaded = *resp.LoadedCount
			}
			fmt.Fprintf(out, "Sessions: %d (loaded %d)\n\n%s\n", resp.SessionCount, loaded, resp.Context)
			return nil
		},
	}
	cmd.Flags().StringVar(&coupleID, "couple", "", "couple id, includes the couple's joint sessions")
	return cmd
}
