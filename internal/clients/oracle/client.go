// Package oracle calls the external fund-scoring service.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// UserProfile is the profile subset the oracle scores against
type UserProfile struct {
	RiskProfile        string  `json:"risk_profile"`
	InvestmentGoal     string  `json:"investment_goal"`
	BudgetType         string  `json:"budget_type"`
	InvestmentHorizon  int     `json:"investment_horizon"`
	ExpenseRatioLimit  float64 `json:"expense_ratio_limit"`
	DividendPreference bool    `json:"dividend_preference"`
}

// FeatureVector is one fund as the oracle sees it. Every field is populated;
// defaults are applied before the call.
type FeatureVector struct {
	FundID       string  `json:"fund_id"`
	Return1M     float64 `json:"return_1m"`
	Return3M     float64 `json:"return_3m"`
	Return6M     float64 `json:"return_6m"`
	Return1Y     float64 `json:"return_1y"`
	Volatility   float64 `json:"volatility"`
	ExpenseRatio float64 `json:"expense_ratio"`
	AUM          float64 `json:"aum"`
	RiskRating   float64 `json:"risk_rating"`
}

// Request is the POST /recommend body
type Request struct {
	Funds       []FeatureVector `json:"funds"`
	UserProfile UserProfile     `json:"user_profile"`
	TopK        int             `json:"top_k"`
}

// FundRef is a fund id that arrives as either a JSON string or number
type FundRef string

// UnmarshalJSON accepts "42" and 42
func (f *FundRef) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FundRef(s)
		return nil
	}
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return fmt.Errorf("fund_id must be a string or number, got %s", raw)
	}
	*f = FundRef(raw)
	return nil
}

// Ranked is one scored fund in oracle order
type Ranked struct {
	FundID FundRef `json:"fund_id"`
	Reason string  `json:"reason"`
	Score  float64 `json:"score"`
}

// Client is the oracle HTTP client
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates an oracle client; every call is bounded by timeout
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "oracle").Logger(),
	}
}

// Recommend posts the request and returns the oracle's ranking as received.
// Non-2xx responses, transport failures and undecodable bodies are errors.
func (c *Client) Recommend(ctx context.Context, request Request) ([]Ranked, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal oracle request: %w", err)
	}

	url := c.baseURL + "/recommend"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oracle request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	var ranked []Ranked
	if err := json.NewDecoder(resp.Body).Decode(&ranked); err != nil {
		return nil, fmt.Errorf("failed to decode oracle response: %w", err)
	}

	c.log.Debug().
		Int("funds", len(request.Funds)).
		Int("returned", len(ranked)).
		Dur("duration", time.Since(start)).
		Msg("Oracle responded")

	return ranked, nil
}
