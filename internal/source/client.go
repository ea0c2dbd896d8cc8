// Package source ingests daily draw results into the draw store.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"drawcast/internal/draw"
	"drawcast/internal/metrics"
)

// ErrNoResults is returned when the feed has nothing published for a date.
var ErrNoResults = errors.New("no results published")

type result struct {
	Tier string `json:"tier"`
	Code string `json:"code"`
}

type dayResponse struct {
	Date    string   `json:"date"`
	Results []result `json:"results"`
}

// Client fetches published results from the REST feed.
type Client struct {
	base    string
	rest    *resty.Client
	limiter *rate.Limiter
	metrics *metrics.MetricsWrapper
}

// NewClient builds a client for base. ratePerSec <= 0 disables limiting.
func NewClient(base string, timeout time.Duration, ratePerSec float64, m *metrics.MetricsWrapper) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second)
	}
	r.SetHeader("Accept", "application/json")

	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}

	return &Client{
		base:    strings.TrimRight(base, "/"),
		rest:    r,
		limiter: rate.NewLimiter(limit, 1),
		metrics: m,
	}
}

// FetchDay returns the events published for date. Entries with unknown tiers
// are dropped; codes are passed through unchanged so malformed outcomes
// reach the store as published.
func (c *Client) FetchDay(ctx context.Context, date time.Time) ([]draw.Event, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()
	body := &dayResponse{}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("date", date.Format(draw.DateLayout)).
		SetResult(body).
		Get(c.base + "/draws")
	if c.metrics != nil {
		c.metrics.FetchLatency().Observe(time.Since(start).Seconds())
	}
	if err != nil {
		c.fetchError()
		return nil, fmt.Errorf("fetch %s: %w", draw.Key(date), err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, ErrNoResults
	case resp.IsError():
		c.fetchError()
		return nil, fmt.Errorf("fetch %s: status %d", draw.Key(date), resp.StatusCode())
	}

	if len(body.Results) == 0 {
		return nil, ErrNoResults
	}

	day := draw.Truncate(date)
	events := make([]draw.Event, 0, len(body.Results))
	for _, r := range body.Results {
		tier, ok := draw.ParseTier(r.Tier)
		if !ok {
			log.Warn().Str("date", draw.Key(day)).Str("tier", r.Tier).Msg("Skipping result with unknown tier")
			continue
		}
		events = append(events, draw.Event{Date: day, Tier: tier, Code: strings.TrimSpace(r.Code)})
	}
	return events, nil
}

func (c *Client) fetchError() {
	if c.metrics != nil {
		c.metrics.FetchErrors().Inc()
	}
}
