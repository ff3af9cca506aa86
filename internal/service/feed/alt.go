package feed

import (
	"context"
	"fmt"
	"time"

	"SignalGate/internal/domain/models"
	drepo "SignalGate/internal/domain/repository"
	"SignalGate/internal/service/ratelimit"
	xhttp "SignalGate/pkg/http"
)

// AltClient queries an independent REST candle endpoint. It is deliberately a
// different transport and vendor path than the live WebSocket feed so the
// reconciler's ground truth stays uncorrelated with the watcher's view.
type AltClient struct {
	baseURL string
	apiKey  string
	source  string
	client  *xhttp.Client
	limiter *ratelimit.Limiter
	// callsPerSec budgets requests per asset against the vendor quota.
	callsPerSec float64
}

// NewAltClient creates the alternate-feed client.
func NewAltClient(baseURL, apiKey string, timeout time.Duration, callsPerSec float64) drepo.AltPriceFeed {
	return &AltClient{
		baseURL:     baseURL,
		apiKey:      apiKey,
		source:      "alt-rest",
		client:      xhttp.NewClient(xhttp.WithTimeout(timeout)),
		limiter:     ratelimit.New(),
		callsPerSec: callsPerSec,
	}
}

func (c *AltClient) Source() string { return c.source }

type altCandleResponse struct {
	Symbol string  `json:"symbol"`
	T      int64   `json:"t"` // bucket open, unix seconds
	O      float64 `json:"o"`
	H      float64 `json:"h"`
	L      float64 `json:"l"`
	C      float64 `json:"c"`
	V      float64 `json:"v"`
}

// LatestCandle fetches the most recent closed candle for the asset.
func (c *AltClient) LatestCandle(ctx context.Context, asset string) (*models.Candle, error) {
	if !c.limiter.Allow("candle:"+asset, c.callsPerSec, c.callsPerSec) {
		return nil, fmt.Errorf("alt feed rate limited for %s", asset)
	}

	var resp altCandleResponse
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/candles/latest",
		QueryParams: map[string][]string{
			"symbol": {asset},
		},
		Headers: map[string]string{"X-Api-Key": c.apiKey},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("alt feed candle %s: %w", asset, err)
	}
	if resp.T == 0 {
		return nil, fmt.Errorf("alt feed returned empty candle for %s", asset)
	}

	return &models.Candle{
		Asset:  asset,
		Bucket: time.Unix(resp.T, 0).UTC(),
		Open:   resp.O,
		High:   resp.H,
		Low:    resp.L,
		Close:  resp.C,
		Volume: resp.V,
	}, nil
}
