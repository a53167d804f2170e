package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"truthlens/internal/platform/metrics"
	"truthlens/internal/platform/tracer"
	"truthlens/internal/verify/backend"
	"truthlens/internal/verify/models"
	dErrors "truthlens/pkg/domain-errors"
	"truthlens/pkg/platform/circuit"
	"truthlens/pkg/requestcontext"
)

// Client-facing messages for each failure class.
const (
	MsgBackendRejected    = "Backend verification failed"
	MsgBackendUnavailable = "Backend service unavailable"
	DetailUnreachable     = "Could not reach the backend service"
	MsgBackendTimeout     = "Backend service timed out"
	MsgBadGateway         = "Backend returned an invalid response"
	MsgGatewayFault       = "Gateway processing error"
	DetailCircuitOpen     = "Backend marked unavailable after repeated failures; retry shortly"
)

// Backend forwards one request to the analysis service.
type Backend interface {
	Analyze(ctx context.Context, req *models.VerificationRequest) (*models.Result, error)
}

// Service relays verification requests to the backend and translates
// outcomes into domain errors.
type Service struct {
	backend Backend
	logger  *slog.Logger
	timeout time.Duration
	breaker *circuit.Breaker
	metrics *metrics.Metrics
	tracer  tracer.Tracer
}

// Option configures the Service.
type Option func(*Service)

// WithTimeout bounds each backend call. Zero leaves only the caller's deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

// WithBreaker fails fast while the backend is considered down.
func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		s.breaker = b
	}
}

// WithMetrics records backend latency and circuit state.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the tracer; the default is a no-op tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New creates a verify service.
func New(b Backend, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		backend: b,
		logger:  logger,
		tracer:  tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify validates req, forwards it once and returns the backend's verdict.
// Every request is forwarded; nothing is cached or deduplicated.
func (s *Service) Verify(ctx context.Context, req *models.VerificationRequest) (*models.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if s.breaker != nil && !s.breaker.Allow() {
		s.metrics.ObserveBackendCall(metrics.OutcomeCircuitOpen, 0)
		return nil, &dErrors.Error{
			Code:    dErrors.CodeBackendUnreachable,
			Message: MsgBackendUnavailable,
			Details: DetailCircuitOpen,
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ctx, span := s.tracer.Start(ctx, "backend.analyze",
		tracer.Bool("has_text", req.HasText()),
		tracer.Bool("has_image", req.HasImage()),
	)

	start := time.Now()
	result, err := s.backend.Analyze(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		s.recordBreaker(ctx, err)
		domainErr := translate(err, s.timeout)
		s.metrics.ObserveBackendCall(Outcome(domainErr), elapsed)
		span.End(err)
		return nil, domainErr
	}

	s.recordBreaker(ctx, nil)
	s.metrics.ObserveBackendCall(metrics.OutcomeSuccess, elapsed)
	span.SetAttributes(tracer.Int("status_code", result.StatusCode))
	span.End(nil)
	return result, nil
}

func (s *Service) recordBreaker(ctx context.Context, err error) {
	if s.breaker == nil {
		return
	}

	if err != nil {
		var be *backend.Error
		if !errors.As(err, &be) || be.Category == backend.CategoryCanceled {
			return
		}
		if be.CountsAsOutage() {
			open, change := s.breaker.RecordFailure()
			s.metrics.SetCircuitOpen(open)
			if change.Opened {
				s.logger.WarnContext(ctx, "backend circuit opened",
					"breaker", s.breaker.Name(),
					"request_id", requestcontext.RequestID(ctx),
				)
			}
			return
		}
	}

	closed, change := s.breaker.RecordSuccess()
	s.metrics.SetCircuitOpen(!closed)
	if change.Closed {
		s.logger.InfoContext(ctx, "backend circuit closed",
			"breaker", s.breaker.Name(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

// translate maps backend failures onto the relay's domain error taxonomy.
func translate(err error, timeout time.Duration) error {
	var be *backend.Error
	if !errors.As(err, &be) {
		return &dErrors.Error{Code: dErrors.CodeInternal, Message: MsgGatewayFault, Details: err.Error(), Err: err}
	}

	switch be.Category {
	case backend.CategoryRejected:
		return &dErrors.Error{
			Code:           dErrors.CodeBackendRejected,
			Message:        rejectionMessage(be.Body),
			Details:        embedBody(be.Body),
			UpstreamStatus: be.StatusCode,
			Err:            err,
		}
	case backend.CategoryUnreachable:
		return &dErrors.Error{Code: dErrors.CodeBackendUnreachable, Message: MsgBackendUnavailable, Details: DetailUnreachable, Err: err}
	case backend.CategoryTimeout:
		detail := "No response from the backend service before the deadline"
		if timeout > 0 {
			detail = fmt.Sprintf("No response from the backend service within %s", timeout)
		}
		return &dErrors.Error{Code: dErrors.CodeBackendTimeout, Message: MsgBackendTimeout, Details: detail, Err: err}
	case backend.CategoryContract:
		return &dErrors.Error{Code: dErrors.CodeBadGateway, Message: MsgBadGateway, Details: string(be.Body), Err: err}
	default:
		return &dErrors.Error{Code: dErrors.CodeInternal, Message: MsgGatewayFault, Details: err.Error(), Err: err}
	}
}

// rejectionMessage prefers the backend's own "error" string.
func rejectionMessage(body []byte) string {
	var envelope struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if msg, ok := envelope.Error.(string); ok && msg != "" {
			return msg
		}
	}
	return MsgBackendRejected
}

// embedBody keeps a JSON body as structured JSON inside the envelope and
// falls back to the raw text otherwise.
func embedBody(body []byte) any {
	if len(body) > 0 && json.Valid(body) {
		return json.RawMessage(body)
	}
	return string(body)
}

// Outcome labels an error for metrics.
func Outcome(err error) string {
	var domainErr *dErrors.Error
	if err == nil {
		return metrics.OutcomeSuccess
	}
	if !errors.As(err, &domainErr) {
		return metrics.OutcomeFault
	}
	switch domainErr.Code {
	case dErrors.CodeInvalidRequest, dErrors.CodePayloadTooLarge:
		return metrics.OutcomeInvalid
	case dErrors.CodeBackendRejected:
		return metrics.OutcomeRejected
	case dErrors.CodeBackendUnreachable:
		return metrics.OutcomeUnreachable
	case dErrors.CodeBackendTimeout:
		return metrics.OutcomeTimeout
	case dErrors.CodeBadGateway:
		return metrics.OutcomeBadGateway
	default:
		return metrics.OutcomeFault
	}
}
