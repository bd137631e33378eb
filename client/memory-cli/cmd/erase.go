package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

type eraseResponse struct {
	Success        bool   `json:"success"`
	Deleted        string `json:"deleted"`
	ConsentRevoked bool   `json:"consentRevoked"`
}

func newEraseCmd(opts *options) *cobra.Command {
	var scope string
	var confirmed bool
	cmd := &cobra.Command{
		Use:   "erase [user-id]",
		Short: "Erase a user's memory",
		Long: `Erase resets memory by scope:
  personal  the user's own memory
  shared    the couple's joint memory, which the partner loses as well
  all       both, and memory consent is revoked`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("erasing memory cannot be undone, pass --yes to confirm")
			}

			var resp eraseResponse
			payload := map[string]string{"userId": args[0], "deleteType": scope}
			if err := postJSON(opts, "/api/v1/memory/erase", payload, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Erased: %s\n", resp.Deleted)
			if resp.ConsentRevoked {
				fmt.Fprintln(out, "Memory consent revoked.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "personal, shared or all")
	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm the erase")
	_ = cmd.MarkFlagRequired("scope")
	return cmd
}
