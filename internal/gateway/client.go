package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
)

const (
	tracerName  = "github.com/utafrali/storefront/internal/gateway"
	serviceName = "storefront-api"
	maxBodySize = 4 << 20
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_gateway_requests_total",
			Help: "Total number of storefront backend calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_gateway_request_duration_seconds",
			Help:    "Storefront backend call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Call outcomes recorded in metrics.
const (
	outcomeSuccess   = "success"
	outcomeRejected  = "rejected"
	outcomeHTTPError = "http_error"
	outcomeTransport = "transport_error"
	outcomeDecode    = "decode_error"
)

// HTTPDoer abstracts HTTP request execution so the gateways can work with
// either a plain HTTP client or a circuit-breaker-wrapped client.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// HeaderSource supplies the identity headers for each kind of request.
type HeaderSource interface {
	AuthHeaders(ctx context.Context) (http.Header, error)
	SessionHeaders(ctx context.Context) (http.Header, error)
	CartHeaders(ctx context.Context) (http.Header, error)
	SyncHeaders(ctx context.Context) (http.Header, error)
}

// CircuitOpenFallback is the fallback used when the backend breaker is open.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("the store is temporarily unavailable, please try again shortly")
}

// Response is a decoded 2xx response in the storefront envelope
// {success, message?, code?, data?}.
type Response struct {
	Status  int
	Message string
	Code    string
	Data    json.RawMessage
	// Raw is the whole body, for endpoints that answer outside data.
	Raw json.RawMessage
}

// HasData reports whether the response carried a non-null data member.
func (r *Response) HasData() bool {
	d := bytes.TrimSpace(r.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

// Client performs JSON calls against the storefront backend. It never
// retries; every failure is logged and returned once.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	headers    HeaderSource
	logger     *slog.Logger
}

// NewClient creates a backend client rooted at baseURL.
func NewClient(baseURL string, httpClient HTTPDoer, headers HeaderSource, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		headers:    headers,
		logger:     logger,
	}
}

// call sends body as JSON to path and decodes the envelope. Non-2xx
// responses become AppErrors via ParseResponseError; a 2xx body with
// success=false becomes an AppError carrying the backend message.
func (c *Client) call(ctx context.Context, op, method, path string, headers http.Header, body any) (resp *Response, err error) {
	start := time.Now()
	outcome := outcomeSuccess

	ctx, span := otel.Tracer(tracerName).Start(ctx, "gateway."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("storefront.operation", op),
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer func() {
		requestsTotal.WithLabelValues(op, outcome).Inc()
		requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
	}()

	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", op, err)
	}
	for k, v := range headers {
		httpReq.Header[k] = append([]string(nil), v...)
	}

	httpResp, err := c.httpClient.Do(ctx, httpReq)
	if err != nil {
		outcome = outcomeTransport
		c.logger.ErrorContext(ctx, "storefront backend call failed",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("call %s: %w", op, err)
	}
	defer httpResp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", httpResp.StatusCode))

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		outcome = outcomeHTTPError
		err = httpclient.ParseResponseError(httpResp, serviceName)
		c.logger.ErrorContext(ctx, "storefront backend returned an error",
			slog.String("operation", op),
			slog.Int("status", httpResp.StatusCode),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		outcome = outcomeTransport
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}

	var env struct {
		Success *bool           `json:"success"`
		Message string          `json:"message"`
		Code    string          `json:"code"`
		Data    json.RawMessage `json:"data"`
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			outcome = outcomeDecode
			return nil, fmt.Errorf("decode %s response: %w", op, err)
		}
	}

	if env.Success != nil && !*env.Success {
		outcome = outcomeRejected
		code := env.Code
		if code == "" {
			code = "REQUEST_REJECTED"
		}
		err = &apperrors.AppError{
			Code:    code,
			Message: env.Message,
			Status:  httpResp.StatusCode,
			Err:     fmt.Errorf("%s rejected %s: %w", serviceName, op, apperrors.ErrUpstream),
		}
		c.logger.WarnContext(ctx, "storefront backend rejected request",
			slog.String("operation", op),
			slog.String("message", env.Message),
		)
		return nil, err
	}

	c.logger.DebugContext(ctx, "storefront backend call succeeded",
		slog.String("operation", op),
		slog.Int("status", httpResp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	return &Response{
		Status:  httpResp.StatusCode,
		Message: env.Message,
		Code:    env.Code,
		Data:    env.Data,
		Raw:     raw,
	}, nil
}
