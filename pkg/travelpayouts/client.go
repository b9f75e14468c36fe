package travelpayouts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrMissingToken is returned when a request is attempted without a token.
var ErrMissingToken = errors.New("travelpayouts: missing API token")

// APIError reports a non-2xx status or an unsuccessful envelope.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("travelpayouts error (status %d): %s", e.StatusCode, e.Message)
}

type Options struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	UserAgent string
}

type Client struct {
	http  *resty.Client
	token string
}

func NewClient(opts Options) *Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if opts.UserAgent != "" {
		client.SetHeader("user-agent", opts.UserAgent)
	}
	client.SetHeader("accept", "application/json")
	client.SetHeader(TokenHeader, opts.Token)

	return &Client{http: client, token: opts.Token}
}

// Query selects the prices of one route.
type Query struct {
	Origin           string
	Destination      string
	Currency         string
	Limit            int
	Sorting          Sorting
	ShowToAffiliates bool
}

func (q Query) params() (map[string]string, error) {
	if q.Origin == "" || q.Destination == "" {
		return nil, errors.New("origin and destination are required")
	}
	sorting := q.Sorting
	if sorting == "" {
		sorting = SortByPrice
	}
	if !sorting.IsValid() {
		return nil, fmt.Errorf("invalid sorting: %s", sorting)
	}
	if q.Limit < 0 || q.Limit > MaxLimit {
		return nil, fmt.Errorf("limit %d out of range [0, %d]", q.Limit, MaxLimit)
	}

	params := map[string]string{
		"origin":             q.Origin,
		"destination":        q.Destination,
		"sorting":            validSortings[sorting].APIValue,
		"show_to_affiliates": strconv.FormatBool(q.ShowToAffiliates),
	}
	if q.Currency != "" {
		params["currency"] = strings.ToLower(q.Currency)
	}
	if q.Limit > 0 {
		params["limit"] = strconv.Itoa(q.Limit)
	}
	return params, nil
}

// LatestPrices fetches the latest prices found for a route.
func (c *Client) LatestPrices(ctx context.Context, q Query) ([]Price, error) {
	if c.token == "" {
		return nil, ErrMissingToken
	}
	params, err := q.params()
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(LatestPricesPath)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}

	// Check HTTP status code
	if res.IsError() {
		return nil, &APIError{StatusCode: res.StatusCode(), Message: errorMessage(res.Body())}
	}

	var envelope Response
	if err := json.Unmarshal(res.Body(), &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !envelope.Success {
		msg := envelope.Error
		if msg == "" {
			msg = "request was not successful"
		}
		return nil, &APIError{StatusCode: res.StatusCode(), Message: msg}
	}

	var prices []Price
	if len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		if err := json.Unmarshal(envelope.Data, &prices); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
	}

	currency := strings.ToUpper(envelope.Currency)
	if currency == "" {
		currency = strings.ToUpper(q.Currency)
	}
	for i := range prices {
		prices[i].Currency = currency
	}
	return prices, nil
}

// errorMessage extracts the "error" field of a JSON body, falling back to
// the raw body.
func errorMessage(body []byte) string {
	var envelope Response
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return msg
}
