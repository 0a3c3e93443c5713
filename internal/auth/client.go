package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/logging"
	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/SophiChat/client/internal/types"
	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	endpointToken   = "/token"
	endpointProfile = "/user/info"

	userAgent = "SophiChat/1.0"
)

// Authenticator is the contract the session orchestrator depends on
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
	Profile(ctx context.Context, token string) (*types.UserProfile, error)
}

// Options configures a Client
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	RetryWait  time.Duration
	RateLimit  float64
	Burst      int
	Logger     *logging.Logger
	Metrics    *monitoring.Metrics
}

// Client talks to the token and profile endpoints
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Access string `json:"access"`
}

// New creates an auth client with retries, rate limiting and a circuit breaker
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RetryCount < 0 {
		opts.RetryCount = 0
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 500 * time.Millisecond
	}

	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil

	restyClient := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(4*opts.RetryWait).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetTransport(retryClient.HTTPClient.Transport).
		AddRetryCondition(shouldRetry).
		OnBeforeRequest(propagateTrace)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = int(opts.RateLimit) + 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("auth")

	breaker := resilience.New("auth", resilience.Settings{
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var authErr *Error
			if errors.As(err, &authErr) {
				return authErr.IsClientError()
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		resty:   restyClient,
		limiter: limiter,
		breaker: breaker,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// propagateTrace forwards the bridge request trace to the auth service
func propagateTrace(_ *resty.Client, r *resty.Request) error {
	tracing.InjectTraceContext(r.Context(), r.Header)
	return nil
}

// shouldRetry retries transport errors and 5xx only; rejected credentials are final
func shouldRetry(resp *resty.Response, err error) bool {
	if resp != nil && resp.StatusCode() >= 400 && resp.StatusCode() < 500 {
		return false
	}
	var raw *http.Response
	ctx := context.Background()
	if resp != nil {
		raw = resp.RawResponse
		if resp.Request != nil {
			ctx = resp.Request.Context()
		}
	}
	retry, _ := retryablehttp.DefaultRetryPolicy(ctx, raw, err)
	return retry
}

// Login exchanges credentials for a bearer token
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var result tokenResponse
	_, err := c.do(ctx, endpointToken, func() (*resty.Response, error) {
		return c.resty.R().
			SetContext(ctx).
			SetBody(loginRequest{Username: username, Password: password}).
			SetResult(&result).
			Post(endpointToken)
	})
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(result.Access) == "" {
		return "", &Error{
			Kind:     KindFailure,
			Endpoint: endpointToken,
			Message:  ErrMissingToken.Error(),
			Err:      ErrMissingToken,
		}
	}

	c.logger.Info("Login succeeded", zap.String("username", username))
	return result.Access, nil
}

// Profile fetches the user object for a token
func (c *Client) Profile(ctx context.Context, token string) (*types.UserProfile, error) {
	resp, err := c.do(ctx, endpointProfile, func() (*resty.Response, error) {
		return c.resty.R().
			SetContext(ctx).
			SetAuthToken(token).
			Get(endpointProfile)
	})
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := sonic.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, &Error{
			Kind:       KindFailure,
			Endpoint:   endpointProfile,
			StatusCode: resp.StatusCode(),
			Message:    "invalid profile response",
			Err:        err,
		}
	}
	return profileFromMap(raw), nil
}

func (c *Client) do(ctx context.Context, endpoint string, call func() (*resty.Response, error)) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, unavailable(endpoint, err)
	}

	start := time.Now()
	resp, err := resilience.Do(c.breaker, func() (*resty.Response, error) {
		resp, err := call()
		if err != nil {
			return nil, unavailable(endpoint, err)
		}
		if resp.IsError() {
			return resp, statusError(endpoint, resp.StatusCode(), resp.Body())
		}
		return resp, nil
	})

	status := "error"
	if resp != nil {
		status = strconv.Itoa(resp.StatusCode())
	} else if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		status = "circuit_open"
		err = unavailable(endpoint, err)
	}
	c.metrics.RecordAuthRequest(endpoint, status, time.Since(start))

	if err != nil {
		c.logger.Debug("Auth request failed",
			zap.String("endpoint", endpoint),
			zap.String("status", status),
			zap.Error(err))
		return nil, err
	}
	return resp, nil
}

func profileFromMap(raw map[string]interface{}) *types.UserProfile {
	profile := &types.UserProfile{Extra: make(map[string]interface{})}
	for key, value := range raw {
		switch key {
		case "id":
			profile.ID = scalar(value)
		case "username":
			profile.Username = scalar(value)
		case "email":
			profile.Email = scalar(value)
		case "name":
			profile.Name = scalar(value)
		default:
			profile.Extra[key] = value
		}
	}
	if len(profile.Extra) == 0 {
		profile.Extra = nil
	}
	return profile
}

func scalar(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		s, _ := sonic.ConfigStd.MarshalToString(t)
		return s
	}
}
