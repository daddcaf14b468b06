package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopql/shopql-go/internal/config"
)

var scopesCmd = &cobra.Command{
	Use:   "scopes",
	Short: "List the access scopes granted to the app",
	RunE:  runScopes,
}

func init() {
	rootCmd.AddCommand(scopesCmd)

	scopesCmd.Flags().Duration("timeout", time.Minute, "Deadline for the call including retries")
}

func runScopes(cmd *cobra.Command, args []string) error {
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}

	client, err := newClient(config.Get())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	scopes, err := client.CurrentScopes(ctx)
	if err != nil {
		return err
	}

	for _, scope := range scopes {
		fmt.Println(scope)
	}
	return nil
}
