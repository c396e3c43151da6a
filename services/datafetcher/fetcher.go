package datafetcher

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// DataFetcher retrieves index price history from the Yahoo Finance chart API
type DataFetcher struct {
	baseURL    string
	httpClient *http.Client
}

// NewDataFetcher creates a new data fetcher instance
func NewDataFetcher() *DataFetcher {
	return &DataFetcher{
		baseURL: "https://query1.finance.yahoo.com",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// YahooChartResponse represents the v8 chart API response structure
type YahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string `json:"symbol"`
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchCloseSeries fetches daily closing prices for a symbol covering the
// last lookbackDays calendar days, oldest first. Null data points (market
// holidays, sessions without a close yet) are skipped. Fewer than two usable
// points is not an error here; the caller decides what insufficient data
// means for its tick.
func (df *DataFetcher) FetchCloseSeries(symbol string, lookbackDays int) ([]decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=%dd&interval=1d",
		df.baseURL, url.PathEscape(symbol), lookbackDays)

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build chart request: %w", err)
	}
	// Yahoo rejects requests without a user agent
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; market-monitor/1.0)")

	resp, err := df.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chart request failed for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("chart request for %s returned status %d: %s", symbol, resp.StatusCode, string(body))
	}

	var chart YahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("failed to decode chart response for %s: %w", symbol, err)
	}

	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s (%s)",
			symbol, chart.Chart.Error.Description, chart.Chart.Error.Code)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart response for %s contains no quote data", symbol)
	}

	raw := chart.Chart.Result[0].Indicators.Quote[0].Close
	closes := make([]decimal.Decimal, 0, len(raw))
	for _, c := range raw {
		if c == nil {
			continue
		}
		closes = append(closes, decimal.NewFromFloat(*c))
	}
	return closes, nil
}
