package geo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"login-guard/internal/config"
	"login-guard/internal/metrics"
	"login-guard/internal/models"
)

const (
	breakerName = "geo-api"
	maxBodySize = 512

	// undefinedBody is what ipapi answers for addresses it cannot place.
	undefinedBody = "Undefined"
)

// errThrottled means the local rate limit refused the call. The address is
// left unresolved instead of queueing behind other events' lookups.
var errThrottled = errors.New("geo lookup throttled")

// errNoLocation means the API answered but had no city for the address.
// The breaker counts it as a healthy call.
var errNoLocation = errors.New("no location for address")

// Resolver maps an IP address to a city name through an ipapi.co style API
// (GET <base>/<ip>/city, plain-text body). Calls are never retried.
type Resolver struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[string]
	group      singleflight.Group
	logger     *zap.Logger
}

func NewResolver(cfg config.GeoConfig, logger *zap.Logger) *Resolver {
	r := &Resolver{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: newLimiter(cfg.RatePerSecond, cfg.Burst),
		logger:  logger.Named("geo"),
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	r.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errNoLocation)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return r
}

// Resolve returns the city for ip. Any error wraps models.ErrResolution and
// means the address is unresolved; callers substitute their own marker.
func (r *Resolver) Resolve(ctx context.Context, ip string) (string, error) {
	addr, err := publicAddress(ip)
	if err != nil {
		metrics.GeoLookups.WithLabelValues("rejected").Inc()
		return "", fmt.Errorf("%w: %v", models.ErrResolution, err)
	}

	key := addr.String()
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		return r.lookup(ctx, key)
	})
	if err != nil {
		metrics.GeoLookups.WithLabelValues("unresolved").Inc()
		r.logger.Debug("Location lookup failed", zap.String("ip", key), zap.Error(err))
		return "", fmt.Errorf("%w: %v", models.ErrResolution, err)
	}

	metrics.GeoLookups.WithLabelValues("resolved").Inc()
	return v.(string), nil
}

func (r *Resolver) lookup(ctx context.Context, ip string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if !r.limiter.Allow() {
		metrics.GeoLookups.WithLabelValues("throttled").Inc()
		return "", errThrottled
	}

	return r.breaker.Execute(func() (string, error) {
		start := time.Now()
		defer func() {
			metrics.GeoLookupDuration.Observe(time.Since(start).Seconds())
		}()
		return r.fetch(ctx, ip)
	})
}

func (r *Resolver) fetch(ctx context.Context, ip string) (string, error) {
	url := fmt.Sprintf("%s/%s/city", r.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "login-guard/1.0")
	req.Header.Set("Accept", "text/plain")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	city := strings.TrimSpace(string(body))
	if city == "" || strings.EqualFold(city, undefinedBody) {
		return "", errNoLocation
	}
	return city, nil
}

// newLimiter returns an unlimited limiter unless a positive rate is set.
func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
