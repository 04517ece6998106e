// Package blockscout reads bridge transfer summaries from a Blockscout
// instance's optimism endpoints.
package blockscout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Summary is one transfer as reported by the indexer. Hash is the transaction
// on the origin chain; CounterpartHash the one on the destination chain, if any.
type Summary struct {
	Hash            common.Hash
	CounterpartHash *common.Hash
	Status          string
}

type ClientOpts struct {
	// BaseURL points at the optimism API, e.g. https://explorer/api/v2/optimism
	BaseURL  string
	Timeout  time.Duration
	MaxPages int
	Logger   *slog.Logger
	HTTP     *http.Client
}

type Client struct {
	baseURL  string
	maxPages int
	http     *http.Client
	logger   *slog.Logger
}

func NewClient(opts ClientOpts) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("indexer base url is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("failed to parse indexer base url: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	if opts.HTTP == nil {
		opts.HTTP = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		maxPages: opts.MaxPages,
		http:     opts.HTTP,
		logger:   opts.Logger,
	}, nil
}

type item struct {
	L1TxHash string `json:"l1_tx_hash"`
	L2TxHash string `json:"l2_tx_hash"`
	Status   string `json:"status"`
}

type page struct {
	Items          []item                     `json:"items"`
	NextPageParams map[string]json.RawMessage `json:"next_page_params"`
}

// Deposits returns deposits keyed by their L1 transaction.
func (c *Client) Deposits(ctx context.Context) ([]Summary, error) {
	items, err := c.list(ctx, "deposits")
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(items))
	for _, it := range items {
		hash, ok := parseHash(it.L1TxHash)
		if !ok {
			c.logger.Warn("dropping deposit with malformed hash", "l1_tx_hash", it.L1TxHash)
			continue
		}
		s := Summary{Hash: hash, Status: it.Status}
		if l2, ok := parseHash(it.L2TxHash); ok {
			s.CounterpartHash = &l2
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// Withdrawals returns withdrawals keyed by their L2 transaction.
func (c *Client) Withdrawals(ctx context.Context) ([]Summary, error) {
	items, err := c.list(ctx, "withdrawals")
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(items))
	for _, it := range items {
		hash, ok := parseHash(it.L2TxHash)
		if !ok {
			c.logger.Warn("dropping withdrawal with malformed hash", "l2_tx_hash", it.L2TxHash)
			continue
		}
		s := Summary{Hash: hash, Status: it.Status}
		if l1, ok := parseHash(it.L1TxHash); ok {
			s.CounterpartHash = &l1
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func (c *Client) list(ctx context.Context, resource string) ([]item, error) {
	var (
		items  []item
		params url.Values
	)

	for n := 0; n < c.maxPages; n++ {
		p, err := c.get(ctx, resource, params)
		if err != nil {
			return nil, err
		}
		items = append(items, p.Items...)

		if len(p.NextPageParams) == 0 {
			break
		}
		params, err = pageParams(p.NextPageParams)
		if err != nil {
			return nil, fmt.Errorf("failed to read next_page_params: %w", err)
		}
	}

	return items, nil
}

func (c *Client) get(ctx context.Context, resource string, params url.Values) (*page, error) {
	u := c.baseURL + "/" + resource
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", resource, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: unexpected status %d", resource, resp.StatusCode)
	}

	var p page
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", resource, err)
	}
	if p.Items == nil {
		return nil, fmt.Errorf("failed to parse %s response: missing items", resource)
	}

	return &p, nil
}

// pageParams turns next_page_params into query values, keeping numbers exact.
func pageParams(raw map[string]json.RawMessage) (url.Values, error) {
	values := url.Values{}
	for k, v := range raw {
		dec := json.NewDecoder(bytes.NewReader(v))
		dec.UseNumber()

		var val interface{}
		if err := dec.Decode(&val); err != nil {
			return nil, err
		}
		switch x := val.(type) {
		case nil:
			continue
		case string:
			values.Set(k, x)
		case json.Number:
			values.Set(k, x.String())
		case bool:
			values.Set(k, fmt.Sprint(x))
		default:
			return nil, fmt.Errorf("unsupported value for %s", k)
		}
	}
	return values, nil
}

func parseHash(s string) (common.Hash, bool) {
	if len(s) != 66 || !strings.HasPrefix(s, "0x") {
		return common.Hash{}, false
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, false
	}
	return common.BytesToHash(b), true
}
