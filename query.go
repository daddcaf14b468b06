package shopql

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

const shopifyQLDocument = `
query ($q: String!) {
    shopifyqlQuery(query: $q) {
        tableData { columns { name dataType displayName } rows }
        parseErrors
    }
}`

const accessScopesDocument = `
query AccessScopeList {
    currentAppInstallation {
        accessScopes {
            handle
        }
    }
}`

type shopifyQLData struct {
	ShopifyQLQuery struct {
		TableData   *TableData `json:"tableData"`
		ParseErrors []string   `json:"parseErrors"`
	} `json:"shopifyqlQuery"`
}

type accessScopesData struct {
	CurrentAppInstallation struct {
		AccessScopes []struct {
			Handle string `json:"handle"`
		} `json:"accessScopes"`
	} `json:"currentAppInstallation"`
}

// Query executes a ShopifyQL query and returns the raw table data. A
// well-formed response that carries no table structure fails with a
// *MalformedResponseError, annotated with the currently granted scopes when
// they can be fetched; this is never retried.
func (c *Client) Query(ctx context.Context, query string) (*TableData, error) {
	data, err := c.GraphQL(ctx, shopifyQLDocument, map[string]any{"q": query})
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || string(data) == "null" {
		return nil, c.noTableData(ctx, "empty response from the query endpoint")
	}

	var parsed shopifyQLData
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &MalformedResponseError{Message: "unexpected response shape: " + err.Error()}
	}

	td := parsed.ShopifyQLQuery.TableData
	if td == nil || len(td.Columns) == 0 {
		return nil, c.noTableData(ctx, "server returned no valid table data")
	}
	return td, nil
}

// noTableData builds the fatal "no valid table data" error, best-effort
// enriched with the granted scopes, the usual culprit.
func (c *Client) noTableData(ctx context.Context, msg string) error {
	scopes, err := c.CurrentScopes(ctx)
	if err != nil {
		c.logger.Debug("scope lookup for diagnostics failed", zap.Error(err))
	}
	return &MalformedResponseError{Message: msg + ", " + scopesHint, Scopes: scopes}
}

// CurrentScopes returns the access scopes granted to the app.
func (c *Client) CurrentScopes(ctx context.Context) ([]string, error) {
	data, err := c.GraphQL(ctx, accessScopesDocument, nil)
	if err != nil {
		return nil, err
	}

	var parsed accessScopesData
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &MalformedResponseError{Message: "unexpected access scope response: " + err.Error()}
	}

	scopes := make([]string, 0, len(parsed.CurrentAppInstallation.AccessScopes))
	for _, s := range parsed.CurrentAppInstallation.AccessScopes {
		scopes = append(scopes, s.Handle)
	}
	return scopes, nil
}

// QueryRecords runs a query through the default records projection.
func (c *Client) QueryRecords(ctx context.Context, query string) ([]Record, error) {
	return Query[[]Record](ctx, c, query, RecordsProjector{})
}

// QueryFrame runs a query through the columnar frame projection.
func (c *Client) QueryFrame(ctx context.Context, query string) (*Frame, error) {
	return Query[*Frame](ctx, c, query, FrameProjector{})
}

// Query executes a ShopifyQL query and projects the result with p.
func Query[T any](ctx context.Context, c *Client, query string, p Projector[T]) (T, error) {
	var zero T

	td, err := c.Query(ctx, query)
	if err != nil {
		return zero, err
	}
	return p.Project(td)
}
