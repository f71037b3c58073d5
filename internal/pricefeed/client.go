package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloud-mining-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/time/rate"
)

// ErrUnavailable is returned whenever a live quote cannot be produced: offline
// mode, throttling, transport failure or an unusable response.
var ErrUnavailable = errors.New("price source unavailable")

// coinIds maps ticker symbols to CoinGecko coin ids.
var coinIds = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"XRP":  "ripple",
	"DOGE": "dogecoin",
}

// Client fetches USD quotes from the CoinGecko simple price API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	offline    bool
	now        func() time.Time
}

func NewClient(cfg models.PriceConfig) (*Client, error) {
	httpClient, err := createCustomHttpClient(cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}
	return NewClientWithHTTP(httpClient, cfg), nil
}

// NewClientWithHTTP builds a client around an existing *http.Client.
func NewClientWithHTTP(httpClient *http.Client, cfg models.PriceConfig) *Client {
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		offline:    cfg.Offline,
		now:        time.Now,
	}
}

func createCustomHttpClient(timeout time.Duration) (*http.Client, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	tr := &http.Transport{
		ResponseHeaderTimeout: timeout,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   5 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, err
	}

	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

// Quote returns the live quote for one symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	quotes, err := c.Quotes(ctx, []string{symbol})
	if err != nil {
		return models.Quote{}, err
	}
	return quotes[0], nil
}

// Quotes fetches several symbols in one request. Either every symbol is
// quoted or ErrUnavailable is returned.
func (c *Client) Quotes(ctx context.Context, symbols []string) ([]models.Quote, error) {
	if c.offline {
		return nil, fmt.Errorf("%w: offline mode", ErrUnavailable)
	}
	if len(symbols) == 0 {
		return nil, nil
	}

	ids := make([]string, len(symbols))
	for i, symbol := range symbols {
		id, ok := coinIds[strings.ToUpper(symbol)]
		if !ok {
			return nil, fmt.Errorf("%w: unsupported symbol %s", ErrUnavailable, symbol)
		}
		ids[i] = id
	}

	if !c.limiter.Allow() {
		zap.L().Debug("Price request throttled", zap.Strings("symbols", symbols))
		return nil, fmt.Errorf("%w: rate limited", ErrUnavailable)
	}

	body, err := c.get(ctx, ids)
	if err != nil {
		zap.L().Warn("Price request failed", zap.Strings("symbols", symbols), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	fetchedAt := c.now()
	quotes := make([]models.Quote, len(symbols))
	for i, symbol := range symbols {
		price := gjson.GetBytes(body, ids[i]+".usd")
		if !price.Exists() || price.Type != gjson.Number {
			return nil, fmt.Errorf("%w: no price for %s", ErrUnavailable, symbol)
		}
		value, err := decimal.NewFromString(price.Raw)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed price for %s", ErrUnavailable, symbol)
		}

		change := decimal.Zero
		if raw := gjson.GetBytes(body, ids[i]+".usd_24h_change"); raw.Type == gjson.Number {
			if parsed, err := decimal.NewFromString(raw.Raw); err == nil {
				change = parsed.Round(2)
			}
		}

		quotes[i] = models.Quote{
			Symbol:        strings.ToUpper(symbol),
			Price:         value,
			ChangePercent: change,
			Source:        models.QuoteSourceLive,
			FetchedAt:     fetchedAt,
		}
	}
	return quotes, nil
}

func (c *Client) get(ctx context.Context, ids []string) ([]byte, error) {
	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", "usd")
	query.Set("include_24hr_change", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/simple/price?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Debug("Failed to close price response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid json response")
	}
	return body, nil
}
