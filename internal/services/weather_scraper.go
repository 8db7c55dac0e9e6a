package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"breeze/internal/infrastructure/errors"
)

const DefaultWeatherURL = "https://wttr.in"

// WeatherLookup describes the current weather at a location in a few words
type WeatherLookup interface {
	Describe(ctx context.Context, location string) (string, error)
}

// WeatherScraper reads the one-line text report from wttr.in
type WeatherScraper struct {
	collector *colly.Collector
	baseURL   string
}

// NewWeatherScraper uses DefaultWeatherURL when baseURL is empty
func NewWeatherScraper(baseURL string, timeout time.Duration) *WeatherScraper {
	if baseURL == "" {
		baseURL = DefaultWeatherURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	c := colly.NewCollector(
		colly.UserAgent("curl/8.0 breeze"),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(timeout)
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 2,
		Delay:       200 * time.Millisecond,
	})

	return &WeatherScraper{collector: c, baseURL: strings.TrimRight(baseURL, "/")}
}

// Describe returns something like "Light rain +18°C"
func (ws *WeatherScraper) Describe(ctx context.Context, location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", errors.HandleValidationError("WeatherLookup", "location", location, "location is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// handlers registered on a clone do not pile up across lookups
	c := ws.collector.Clone()

	var report string
	var scrapeErr error
	c.OnResponse(func(r *colly.Response) {
		report = strings.TrimSpace(string(r.Body))
	})
	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})

	target := fmt.Sprintf("%s/%s?format=%s", ws.baseURL, url.PathEscape(location), url.QueryEscape("%C %t"))
	if err := c.Visit(target); err != nil {
		return "", errors.HandleUpstreamError("WeatherLookup", "wttr.in", err)
	}
	c.Wait()

	if scrapeErr != nil {
		return "", errors.HandleUpstreamError("WeatherLookup", "wttr.in", scrapeErr)
	}
	if report == "" || strings.HasPrefix(strings.ToLower(report), "unknown location") {
		return "", errors.HandleNotFound("WeatherLookup", "location", location)
	}
	return report, nil
}
