package ibkr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/wonny/stockrank/pkg/httputil"
	"github.com/wonny/stockrank/pkg/logger"
	"github.com/wonny/stockrank/pkg/metrics"
)

const (
	positionsPageSize = 100
	snapshotBatchSize = 100
	maxPositionPages  = 50
)

// Client talks to the Interactive Brokers Client Portal gateway
// ⭐ SSOT: IBKR API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	baseURL    string
	logger     *logger.Logger
	metrics    *metrics.Registry
}

// NewClient creates a new IBKR API client
func NewClient(baseURL string, httpClient *httputil.Client, log *logger.Logger, m *metrics.Registry) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     log.WithComponent("ibkr"),
		metrics:    m,
	}
}

// get issues a GET against the gateway and maps failures to *APIError
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, dest interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	err := c.httpClient.GetJSON(ctx, u, dest)

	var statusErr *httputil.StatusError
	switch {
	case err == nil:
		c.metrics.RecordBrokerRequest(endpoint, http.StatusOK)
		return nil
	case errors.As(err, &statusErr):
		c.metrics.RecordBrokerRequest(endpoint, statusErr.StatusCode)
		return &APIError{
			Endpoint:   endpoint,
			StatusCode: statusErr.StatusCode,
			Message:    statusErr.Body,
		}
	default:
		c.metrics.RecordBrokerRequest(endpoint, 0)
		return fmt.Errorf("ibkr %s: %w", endpoint, err)
	}
}

// Positions returns every position of the account, following pagination
func (c *Client) Positions(ctx context.Context, accountID string) ([]Position, error) {
	var positions []Position

	for page := 0; page < maxPositionPages; page++ {
		var batch []Position
		path := fmt.Sprintf("/portfolio/%s/positions/%d", url.PathEscape(accountID), page)
		if err := c.get(ctx, "positions", path, nil, &batch); err != nil {
			return nil, fmt.Errorf("fetch positions page %d: %w", page, err)
		}

		positions = append(positions, batch...)
		if len(batch) < positionsPageSize {
			break
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"account":   accountID,
		"positions": len(positions),
	}).Debug("Fetched portfolio positions")

	return positions, nil
}

// Snapshot returns the market data snapshot of the given contracts.
// The gateway answers the first request for a contract with empty fields,
// so every batch is requested twice.
func (c *Client) Snapshot(ctx context.Context, conids []ContractID) (map[ContractID]Snapshot, error) {
	result := make(map[ContractID]Snapshot, len(conids))

	for start := 0; start < len(conids); start += snapshotBatchSize {
		end := start + snapshotBatchSize
		if end > len(conids) {
			end = len(conids)
		}

		ids := make([]string, 0, end-start)
		for _, id := range conids[start:end] {
			ids = append(ids, id.String())
		}
		query := url.Values{
			"conids": {strings.Join(ids, ",")},
			"fields": {snapshotFields},
		}

		// preflight
		var ignored []map[string]interface{}
		if err := c.get(ctx, "snapshot", "/iserver/marketdata/snapshot", query, &ignored); err != nil {
			return nil, fmt.Errorf("snapshot preflight: %w", err)
		}

		var rows []map[string]interface{}
		if err := c.get(ctx, "snapshot", "/iserver/marketdata/snapshot", query, &rows); err != nil {
			return nil, fmt.Errorf("fetch snapshot: %w", err)
		}

		for _, row := range rows {
			if snap, ok := parseSnapshot(row); ok {
				result[snap.Conid] = snap
			}
		}
	}

	return result, nil
}

type historyResponse struct {
	Symbol string `json:"symbol"`
	Data   []Bar  `json:"data"`
}

// History returns the historical bars of a contract, oldest first.
// period and bar use the gateway notation, e.g. "1y" and "1d".
func (c *Client) History(ctx context.Context, conid ContractID, period, bar string) ([]Bar, error) {
	query := url.Values{
		"conid":  {conid.String()},
		"period": {period},
		"bar":    {bar},
	}

	var resp historyResponse
	if err := c.get(ctx, "history", "/iserver/marketdata/history", query, &resp); err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", conid, err)
	}

	return resp.Data, nil
}
