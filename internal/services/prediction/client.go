package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"HeartForm/internal/domain/models"
	svcmetrics "HeartForm/internal/service/metrics"
	xhttp "HeartForm/pkg/http"
	"HeartForm/pkg/logger"
)

const (
	DefaultBaseURL = "http://127.0.0.1:8000"
	PredictPath    = "/predict_heart_disease/"
	EnvBackendURL  = "BACKEND_URL"
)

// ErrorKind says which step of a prediction request failed.
type ErrorKind string

const (
	KindHTTP      ErrorKind = "http"
	KindTransport ErrorKind = "transport"
	KindDecode    ErrorKind = "decode"
)

// PredictionError is returned by HTTPPredictor. Message is what the user
// sees and is never empty.
type PredictionError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *PredictionError) Error() string { return e.Message }

func (e *PredictionError) Unwrap() error { return e.Err }

// ResolveBaseURL picks the backend address: the configured value, then the
// BACKEND_URL environment variable, then the local default.
func ResolveBaseURL(configured string) string {
	u := strings.TrimSpace(configured)
	if u == "" {
		u = strings.TrimSpace(os.Getenv(EnvBackendURL))
	}
	if u == "" {
		u = DefaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

// HTTPPredictor calls the remote heart disease model over HTTP.
type HTTPPredictor struct {
	baseURL string
	client  *xhttp.Client
	log     *logger.Logger
}

type Option func(*HTTPPredictor)

// WithTimeout bounds each request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *HTTPPredictor) { p.client = xhttp.NewClient(xhttp.WithTimeout(d)) }
}

func WithClient(c *xhttp.Client) Option {
	return func(p *HTTPPredictor) {
		if c != nil {
			p.client = c
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(p *HTTPPredictor) {
		if l != nil {
			p.log = l
		}
	}
}

// NewHTTPPredictor creates a predictor for baseURL, resolved with ResolveBaseURL.
func NewHTTPPredictor(baseURL string, opts ...Option) *HTTPPredictor {
	p := &HTTPPredictor{
		baseURL: ResolveBaseURL(baseURL),
		client:  xhttp.NewClient(),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	svcmetrics.Register()
	return p
}

// BaseURL returns the resolved service address.
func (p *HTTPPredictor) BaseURL() string { return p.baseURL }

// Endpoint returns the full prediction URL.
func (p *HTTPPredictor) Endpoint() string { return p.baseURL + PredictPath }

// Predict posts form as JSON and decodes the service's answer.
func (p *HTTPPredictor) Predict(ctx context.Context, form models.FormState) (models.PredictionResult, error) {
	start := time.Now()
	out, err := p.predict(ctx, form)
	observe(time.Since(start), err)
	return out, err
}

func observe(d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		kind, status := "unknown", "0"
		var pe *PredictionError
		if errors.As(err, &pe) {
			kind, status = string(pe.Kind), strconv.Itoa(pe.Status)
		}
		svcmetrics.PredictorErrors.WithLabelValues(kind, status).Inc()
	}
	svcmetrics.PredictorLatency.WithLabelValues(outcome).Observe(d.Seconds())
}

func (p *HTTPPredictor) predict(ctx context.Context, form models.FormState) (models.PredictionResult, error) {
	var out models.PredictionResult

	err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     p.Endpoint(),
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    form,
	}, &out)
	if err == nil {
		return out, nil
	}

	var se *xhttp.StatusError
	var de *xhttp.DecodeError
	switch {
	case errors.As(err, &se):
		msg := detailMessage(se.Body)
		p.log.Debug("prediction rejected",
			logger.Int("status", se.StatusCode),
			logger.String("detail", msg))
		return models.PredictionResult{}, &PredictionError{Kind: KindHTTP, Status: se.StatusCode, Message: msg, Err: err}
	case errors.As(err, &de):
		return models.PredictionResult{}, &PredictionError{Kind: KindDecode, Message: de.Err.Error(), Err: err}
	default:
		return models.PredictionResult{}, transportError(err)
	}
}

func transportError(err error) *PredictionError {
	cause := err
	if inner := errors.Unwrap(err); inner != nil {
		cause = inner
	}
	msg := cause.Error()
	if msg == "" {
		msg = models.FallbackFetchMessage
	}
	return &PredictionError{Kind: KindTransport, Message: msg, Err: err}
}

// detailMessage extracts the user message from a non-2xx body. A string
// detail is used as-is and FastAPI validation lists are joined. A body that
// is not JSON yields the parse error.
func detailMessage(body []byte) string {
	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return err.Error()
	}
	obj, ok := payload.(map[string]interface{})
	if !ok {
		return models.FallbackStatusMessage
	}

	switch d := obj["detail"].(type) {
	case string:
		if d != "" {
			return d
		}
	case []interface{}:
		var msgs []string
		for _, item := range d {
			switch v := item.(type) {
			case string:
				msgs = append(msgs, v)
			case map[string]interface{}:
				if m, ok := v["msg"].(string); ok && m != "" {
					msgs = append(msgs, m)
				}
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	case float64:
		if d != 0 {
			return fmt.Sprint(d)
		}
	case bool:
		if d {
			return "true"
		}
	}
	return models.FallbackStatusMessage
}
