package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	shopql "github.com/shopql/shopql-go"
	"github.com/shopql/shopql-go/internal/config"
	"github.com/shopql/shopql-go/internal/observability"
	"github.com/shopql/shopql-go/internal/output"
)

var queryCmd = &cobra.Command{
	Use:   "query <shopifyql>",
	Short: "Run a ShopifyQL query",
	Long:  "Run a ShopifyQL query and render the tabular result.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().String("output", "table", "Output format: table, json, markdown")
	queryCmd.Flags().Duration("timeout", 2*time.Minute, "Deadline for the whole call including retries")
}

func runQuery(cmd *cobra.Command, args []string) error {
	queryText := strings.TrimSpace(strings.Join(args, " "))
	if queryText == "" {
		return fmt.Errorf("query text is required")
	}

	formatValue, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return err
	}

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

	session := client.Session()
	defer session.Close() // nolint:errcheck // scope teardown, best-effort

	started := time.Now()
	data, err := client.Query(ctx, queryText)
	if err != nil {
		return err
	}

	observability.CLILogger.Debug("query finished",
		zap.Int("rows", len(data.Rows)),
		zap.Duration("elapsed", time.Since(started)))

	rendered, err := output.NewFormatter(format).FormatTable(data)
	if err != nil {
		return err
	}

	fmt.Println(rendered)
	return nil
}

// newClient builds a client from the loaded configuration.
func newClient(cfg config.Config) (*shopql.Client, error) {
	if cfg.Shop == "" {
		return nil, fmt.Errorf("shop is required (flag --shop, env SHOPQL_SHOP, or config file)")
	}
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("access token is required (flag --token, env SHOPQL_ACCESS_TOKEN, or config file)")
	}

	return shopql.New(cfg.Shop, cfg.AccessToken,
		shopql.WithVersion(cfg.Version),
		shopql.WithTimeout(cfg.ConnectTimeout),
		shopql.WithMaxRetries(cfg.MaxRetries),
		shopql.WithPoolSize(cfg.PoolMaxSize),
		shopql.WithRateLimit(cfg.RateLimit),
		shopql.WithLogger(observability.CLILogger),
	)
}
