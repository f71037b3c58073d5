package pricefeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"cloud-mining-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, ratePerMinute int) (*Client, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	client := NewClientWithHTTP(server.Client(), models.PriceConfig{
		BaseURL:       server.URL,
		RatePerMinute: ratePerMinute,
	})
	return client, server.Close
}

func TestQuotes_ParsesLiveResponse(t *testing.T) {
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("ids"); got != "bitcoin,ethereum" {
			t.Errorf("unexpected ids: %s", got)
		}
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":65001.25,"usd_24h_change":1.23456},"ethereum":{"usd":3400}}`))
	}, 60)
	defer cleanup()

	quotes, err := client.Quotes(context.Background(), []string{"btc", "ETH"})
	if err != nil {
		t.Fatalf("Quotes failed: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("Expected 2 quotes, got %d", len(quotes))
	}
	if quotes[0].Symbol != "BTC" || !quotes[0].Price.Equal(decimal.RequireFromString("65001.25")) {
		t.Errorf("Unexpected BTC quote: %+v", quotes[0])
	}
	if !quotes[0].ChangePercent.Equal(decimal.RequireFromString("1.23")) {
		t.Errorf("Expected change rounded to 1.23, got %s", quotes[0].ChangePercent)
	}
	if !quotes[1].ChangePercent.IsZero() || quotes[1].Source != models.QuoteSourceLive {
		t.Errorf("Unexpected ETH quote: %+v", quotes[1])
	}
}

func TestQuote_UnavailableCases(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		symbol  string
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			symbol: "BTC",
		},
		{
			name: "missing coin",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{}`))
			},
			symbol: "BTC",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			},
			symbol: "BTC",
		},
		{
			name: "unsupported symbol",
			handler: func(w http.ResponseWriter, r *http.Request) {
				t.Errorf("unsupported symbol should not reach the server")
			},
			symbol: "LTC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, cleanup := newTestClient(t, tt.handler, 60)
			defer cleanup()

			_, err := client.Quote(context.Background(), tt.symbol)
			if !errors.Is(err, ErrUnavailable) {
				t.Errorf("Expected ErrUnavailable, got %v", err)
			}
		})
	}
}

func TestQuote_RateLimited(t *testing.T) {
	var calls int32
	client, cleanup := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":1}}`))
	}, 1)
	defer cleanup()

	if _, err := client.Quote(context.Background(), "BTC"); err != nil {
		t.Fatalf("First quote failed: %v", err)
	}
	if _, err := client.Quote(context.Background(), "BTC"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected throttled call to be unavailable, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Expected exactly 1 upstream call, got %d", calls)
	}
}

func TestQuote_Offline(t *testing.T) {
	client := NewClientWithHTTP(http.DefaultClient, models.PriceConfig{Offline: true})
	if _, err := client.Quote(context.Background(), "BTC"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable in offline mode, got %v", err)
	}
}

func TestFallbackQuote(t *testing.T) {
	q, ok := FallbackQuote("btc")
	if !ok {
		t.Fatal("Expected fallback for BTC")
	}
	if !q.Price.Equal(decimal.NewFromInt(64230)) || !q.ChangePercent.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("Unexpected BTC fallback: %+v", q)
	}
	if q.Source != models.QuoteSourceFallback {
		t.Errorf("Expected fallback source, got %s", q.Source)
	}
	if sol, _ := FallbackQuote("SOL"); !sol.ChangePercent.IsNegative() {
		t.Errorf("Expected negative SOL change, got %s", sol.ChangePercent)
	}
	if _, ok := FallbackQuote("LTC"); ok {
		t.Error("Expected no fallback for LTC")
	}
}
