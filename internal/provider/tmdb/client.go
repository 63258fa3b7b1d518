// Package tmdb implements provider.Provider against The Movie Database v3 API.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"

	"github.com/sakif/movieku/internal/apperror"
	"github.com/sakif/movieku/internal/metrics"
	"github.com/sakif/movieku/internal/provider"
)

const breakerName = "tmdb"

var _ provider.Provider = (*Client)(nil)

// Client talks to TMDB over HTTP. Every call goes through a circuit breaker
// so a provider outage fails fast instead of stacking up 10s timeouts.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[struct{}]
	logger  *slog.Logger
}

// New builds a client from cfg. Zero fields fall back to DefaultConfig.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = def.BreakerCooldown
	}

	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("tmdb: invalid base url %q: %w", cfg.BaseURL, err)
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	apiKey := cfg.APIKey
	if cfg.ReadAccessToken != "" {
		// v4 read access tokens are plain bearer tokens that never expire.
		httpClient.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{
				AccessToken: cfg.ReadAccessToken,
				TokenType:   "Bearer",
			}),
			Base: http.DefaultTransport,
		}
		apiKey = ""
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
		logger:  logger,
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	c.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		// A 404 is a correct answer, and a caller hanging up says nothing
		// about TMDB's health.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, apperror.ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return c, nil
}

func (c *Client) MovieDetails(ctx context.Context, id int64) (*provider.MovieDetails, error) {
	var d provider.MovieDetails
	if err := c.get(ctx, "movie_details", movieEndpoint(id, ""), nil, &d); err != nil {
		return nil, err
	}
	if d.Genres == nil {
		d.Genres = []provider.Genre{}
	}
	return &d, nil
}

func (c *Client) Search(ctx context.Context, query string, page int) (*provider.ResultPage, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(max(page, 1)))

	var res provider.ResultPage
	if err := c.get(ctx, "search", "/search/movie", q, &res); err != nil {
		return nil, err
	}
	normalisePage(&res)
	return &res, nil
}

func (c *Client) ListByCategory(ctx context.Context, category provider.Category, page int) (*provider.ResultPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(max(page, 1)))

	var res provider.ResultPage
	if err := c.get(ctx, "list_"+string(category), "/movie/"+string(category), q, &res); err != nil {
		return nil, err
	}
	normalisePage(&res)
	return &res, nil
}

func (c *Client) Credits(ctx context.Context, id int64) (*provider.Credits, error) {
	var cr provider.Credits
	if err := c.get(ctx, "credits", movieEndpoint(id, "/credits"), nil, &cr); err != nil {
		return nil, err
	}
	if cr.Cast == nil {
		cr.Cast = []provider.CastMember{}
	}
	if cr.Crew == nil {
		cr.Crew = []provider.CrewMember{}
	}
	return &cr, nil
}

func (c *Client) Videos(ctx context.Context, id int64) ([]provider.Video, error) {
	var res struct {
		Results []provider.Video `json:"results"`
	}
	if err := c.get(ctx, "videos", movieEndpoint(id, "/videos"), nil, &res); err != nil {
		return nil, err
	}
	if res.Results == nil {
		res.Results = []provider.Video{}
	}
	return res.Results, nil
}

// Images returns English and language-neutral artwork only.
func (c *Client) Images(ctx context.Context, id int64) (*provider.Images, error) {
	q := url.Values{}
	q.Set("include_image_language", "en,null")

	var img provider.Images
	if err := c.get(ctx, "images", movieEndpoint(id, "/images"), q, &img); err != nil {
		return nil, err
	}
	if img.Backdrops == nil {
		img.Backdrops = []provider.Image{}
	}
	if img.Posters == nil {
		img.Posters = []provider.Image{}
	}
	return &img, nil
}

// get runs one GET through the breaker and decodes the body into out.
// endpoint is the metrics label.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	start := time.Now()

	_, err := c.cb.Execute(func() (struct{}, error) {
		return struct{}{}, c.do(ctx, path, query, out)
	})

	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "rejected"
		err = apperror.Upstream("metadata provider is temporarily unavailable", err)
	case errors.Is(err, apperror.ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "failure"
	}
	metrics.RecordProviderCall(endpoint, outcome, time.Since(start))

	if outcome == "failure" || outcome == "rejected" {
		c.logger.Error("metadata provider call failed",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
	}
	return err
}

func (c *Client) do(ctx context.Context, path string, query url.Values, out any) error {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("tmdb: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperror.Upstream("metadata provider is unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &apperror.AppError{
			Err:     apperror.ErrNotFound,
			Message: "title not found at metadata provider",
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperror.Upstream(
			fmt.Sprintf("metadata provider returned status %d", resp.StatusCode),
			errors.New(statusMessage(resp.Body)),
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.Upstream("metadata provider sent an unreadable response", err)
	}
	return nil
}

// statusMessage extracts TMDB's {"status_message": "..."} error body, if any.
func statusMessage(body io.Reader) string {
	var e struct {
		StatusMessage string `json:"status_message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(body, 4096))
	if json.Unmarshal(raw, &e) == nil && e.StatusMessage != "" {
		return "tmdb: " + e.StatusMessage
	}
	return "tmdb: " + strings.TrimSpace(string(raw))
}

func movieEndpoint(id int64, suffix string) string {
	return "/movie/" + strconv.FormatInt(id, 10) + suffix
}

func normalisePage(p *provider.ResultPage) {
	if p.Results == nil {
		p.Results = []provider.MovieSummary{}
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
