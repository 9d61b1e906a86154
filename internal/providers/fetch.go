package providers

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/panekit/panekit/internal/domain/content"
	"github.com/panekit/panekit/internal/infrastructure/config"
	"github.com/panekit/panekit/internal/infrastructure/resilience"
	"github.com/panekit/panekit/internal/shared/types"
)

// MaxFetchBody caps proxied response bodies handed back to view scripts.
const MaxFetchBody = 1 * 1024 * 1024

// Fetch proxies outbound HTTPS requests for view scripts. Views have no
// network access of their own; everything goes through this provider, which
// enforces https-only targets, a shared rate limit, retry with backoff, and
// a circuit breaker around the remote host pool.
type Fetch struct {
	client  *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// NewFetch creates a fetch provider from the host fetch configuration.
func NewFetch(cfg config.FetchConfig) *Fetch {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.Logger = nil

	client := resty.New()
	client.
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(30*time.Second).
		SetHeader("User-Agent", "PaneHost-Fetch/1.0")
	client.SetTransport(retryClient.HTTPClient.Transport)

	breaker := resilience.New("fetch-external", resilience.Settings{
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 10 ||
				(counts.Requests >= 20 && float64(counts.TotalFailures)/float64(counts.Requests) > 0.7)
		},
	})

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(rps)
	}

	return &Fetch{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		breaker: breaker,
	}
}

// Definition returns service metadata
func (f *Fetch) Definition() types.Service {
	return types.Service{
		ID:          "fetch",
		Name:        "Fetch Service",
		Description: "Proxied HTTPS fetch for view scripts",
		Category:    types.CategoryFetch,
		Capabilities: []string{
			"https_get",
			"https_head",
		},
		Tools: []types.Tool{
			{
				ID:          "fetch.get",
				Name:        "HTTPS GET",
				Description: "Fetch an https URL and return status, headers, and body",
				Parameters: []types.Parameter{
					{Name: "url", Type: "string", Description: "Target https URL", Required: true},
					{Name: "headers", Type: "object", Description: "Extra request headers", Required: false},
				},
				Returns: "object",
			},
			{
				ID:          "fetch.head",
				Name:        "HTTPS HEAD",
				Description: "Fetch response headers for an https URL",
				Parameters: []types.Parameter{
					{Name: "url", Type: "string", Description: "Target https URL", Required: true},
				},
				Returns: "object",
			},
		},
	}
}

// Execute runs a fetch tool
func (f *Fetch) Execute(ctx context.Context, toolID string, params map[string]interface{}, viewCtx *types.Context) (*types.Result, error) {
	url, err := GetString(params, "url", true)
	if err != nil {
		return Failure(err.Error())
	}
	if !strings.HasPrefix(strings.ToLower(url), "https://") {
		return Failure("only https URLs are allowed")
	}
	if err := checkTarget(ctx, url); err != nil {
		return Failure(err.Error())
	}

	if f.breaker.State() == resilience.StateOpen {
		return Failure("fetch unavailable: too many recent failures")
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return Failure(fmt.Sprintf("rate limit: %v", err))
	}

	switch toolID {
	case "fetch.get":
		return f.get(ctx, url, GetStringMap(params, "headers"))
	case "fetch.head":
		return f.head(ctx, url)
	default:
		return Failure(fmt.Sprintf("unknown tool: %s", toolID))
	}
}

func (f *Fetch) get(ctx context.Context, url string, headers map[string]string) (*types.Result, error) {
	resp, err := f.do(func() (*resty.Response, error) {
		req := f.client.R().SetContext(ctx)
		for k, v := range headers {
			req.SetHeader(k, v)
		}
		return req.Get(url)
	})
	if err != nil {
		return Failure(err.Error())
	}

	body := resp.Body()
	truncated := false
	if len(body) > MaxFetchBody {
		body = body[:MaxFetchBody]
		truncated = true
	}

	return Success(map[string]interface{}{
		"status":    resp.StatusCode(),
		"headers":   flattenHeaders(resp),
		"body":      decodeBody(resp.Header().Get("Content-Type"), body),
		"size":      len(body),
		"truncated": truncated,
		"time_ms":   resp.Time().Milliseconds(),
	})
}

func (f *Fetch) head(ctx context.Context, url string) (*types.Result, error) {
	resp, err := f.do(func() (*resty.Response, error) {
		return f.client.R().SetContext(ctx).Head(url)
	})
	if err != nil {
		return Failure(err.Error())
	}

	return Success(map[string]interface{}{
		"status":  resp.StatusCode(),
		"headers": flattenHeaders(resp),
		"time_ms": resp.Time().Milliseconds(),
	})
}

// do routes the request through the circuit breaker so a failing remote trips
// quickly instead of stalling every calling script.
func (f *Fetch) do(fn func() (*resty.Response, error)) (*resty.Response, error) {
	result, err := f.breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	if err == resilience.ErrCircuitOpen {
		return nil, fmt.Errorf("fetch unavailable: circuit breaker open")
	}
	if err != nil {
		return nil, err
	}
	return result.(*resty.Response), nil
}

// BreakerState exposes the circuit state for the stats endpoint.
func (f *Fetch) BreakerState() resilience.State {
	return f.breaker.State()
}

// checkTarget rejects URLs whose host resolves to a loopback, private, or
// link-local address. View scripts must not reach the host's internal
// network or cloud metadata endpoints through the proxy.
func checkTarget(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %v", err)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("url has no host")
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("cannot resolve %s: %v", host, err)
	}
	for _, addr := range addrs {
		ip := addr.IP
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
			ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return fmt.Errorf("%s resolves to a restricted address", host)
		}
	}
	return nil
}

// decodeBody converts textual bodies to UTF-8. Binary payloads pass through
// untouched.
func decodeBody(contentType string, body []byte) string {
	ct := strings.ToLower(contentType)
	textual := strings.HasPrefix(ct, "text/") ||
		strings.Contains(ct, "json") ||
		strings.Contains(ct, "xml") ||
		strings.Contains(ct, "html")
	if !textual {
		return string(body)
	}
	decoded, err := content.Decode(body)
	if err != nil {
		return string(body)
	}
	return decoded
}

func flattenHeaders(resp *resty.Response) map[string]string {
	headers := make(map[string]string)
	for k, v := range resp.Header() {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return headers
}
