package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"truthlens/internal/platform/metrics"
	"truthlens/internal/verify/backend"
	"truthlens/internal/verify/models"
	"truthlens/internal/verify/service/mocks"
	dErrors "truthlens/pkg/domain-errors"
	"truthlens/pkg/platform/circuit"
	fixtures "truthlens/pkg/testutil"
)

type ServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	backend *mocks.MockBackend
	breaker *circuit.Breaker
	metrics *metrics.Metrics
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.backend = mocks.NewMockBackend(s.ctrl)
	s.breaker = circuit.New("analysis-backend", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1), circuit.WithCooldown(time.Hour))
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = New(s.backend, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithBreaker(s.breaker),
		WithMetrics(s.metrics),
		WithTimeout(time.Second),
	)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) domainError(err error) *dErrors.Error {
	var domainErr *dErrors.Error
	s.Require().True(errors.As(err, &domainErr), "expected domain error, got %v", err)
	return domainErr
}

func (s *ServiceSuite) TestVerifyRejectsEmptyRequestWithoutForwarding() {
	_, err := s.service.Verify(context.Background(), &models.VerificationRequest{})

	domainErr := s.domainError(err)
	s.Equal(dErrors.CodeInvalidRequest, domainErr.Code)
	s.Equal(models.MsgNoInput, domainErr.Message)
}

func (s *ServiceSuite) TestVerifySuccessReturnsBodyUnchanged() {
	raw := []byte(`{"Verdict":"FALSE","Confidence":"87%"}`)
	req := &models.VerificationRequest{Text: "the moon is cheese"}
	s.backend.EXPECT().Analyze(gomock.Any(), req).DoAndReturn(
		func(ctx context.Context, _ *models.VerificationRequest) (*models.Result, error) {
			_, hasDeadline := ctx.Deadline()
			s.True(hasDeadline)
			return &models.Result{StatusCode: http.StatusOK, Body: raw}, nil
		})

	result, err := s.service.Verify(context.Background(), req)

	s.Require().NoError(err)
	s.Equal(raw, result.Body)
	s.Equal(1, testutil.CollectAndCount(s.metrics.BackendLatency))
}

func (s *ServiceSuite) TestVerifyTranslatesRejection() {
	s.Run("uses backend error string", func() {
		s.backend.EXPECT().Analyze(gomock.Any(), gomock.Any()).Return(nil,
			&backend.Error{Category: backend.CategoryRejected, StatusCode: http.StatusNotFound, Body: []byte(`{"error":"not supported"}`)})

		_, err := s.service.Verify(context.Background(), &models.VerificationRequest{Text: "x"})

		domainErr := s.domainError(err)
		s.Equal(dErrors.CodeBackendRejected, domainErr.Code)
		s.Equal("not supported", domainErr.Message)
		s.Equal(http.StatusNotFound, domainErr.UpstreamStatus)
		s.Equal(json.RawMessage(`{"error":"not supported"}`), domainErr.Details)
	})

	s.Run("falls back when error field is missing", func() {
		s.backend.EXPECT().Analyze(gomock.Any(), gomock.Any()).Return(nil,
			&backend.Error{Category: backend.CategoryRejected, StatusCode: http.StatusInternalServerError, Body: []byte(`{"trace":"x"}`)})

		_, err := s.service.Verify(context.Background(), &models.VerificationRequest{Text: "x"})

		domainErr := s.domainError(err)
		s.Equal(MsgBackendRejected, domainErr.Message)
		s.Equal(http.StatusInternalServerError, domainErr.UpstreamStatus)
	})

	s.Run("non-string error field and non-JSON body", func() {
		s.backend.EXPECT().Analyze(gomock.Any(), gomock.Any()).Return(nil,
			&backend.Error{Category: backend.CategoryRejected, StatusCode: http.StatusBadGateway, Body: []byte("upstream exploded")})

		_, err := s.service.Verify(context.Background(), &models.VerificationRequest{Text: "x"})

		domainErr := s.domainError(err)
		s.Equal(MsgBackendRejected, domainErr.Message)
		s.Equal("upstream exploded", domainErr.Details)
	})

	s.False(s.breaker.IsOpen())
}

func (s *ServiceSuite) TestVerifyTranslatesTransportFailures() {
	tests := []struct {
		name     string
		category backend.Category
		code     dErrors.Code
		message  string
	}{
		{"unreachable", backend.CategoryUnreachable, dErrors.CodeBackendUnreachable, MsgBackendUnavailable},
		{"timeout", backend.CategoryTimeout, dErrors.CodeBackendTimeout, MsgBackendTimeout},
		{"contract violation", backend.CategoryContract, dErrors.CodeBadGateway, MsgBadGateway},
		{"encoding", backend.CategoryEncoding, dErrors.CodeInternal, MsgGatewayFault},
		{"canceled", backend.CategoryCanceled, dErrors.CodeInternal, MsgGatewayFault},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.breaker.Reset()
			s.backend.EXPECT().Analyze(gomock.Any(), gomock.Any()).Return(nil,
				&backend.Error{Category: tt.category, Body: []byte("<html>"), Err: errors.New("cause")})

			_, err := s.service.Verify(context.Background(), &models.VerificationRequest{Text: "x"})

			domainErr := s.domainError(err)
			s.Equal(tt.code, domainErr.Code)
			s.Equal(tt.message, domainErr.Message)
		})
	}
}

func (s *ServiceSuite) TestVerifyUnreachableDetails() {
	s.backend.EXPECT().Analyze(gomock.Any(), gomock.Any()).Return(nil,
		&backend.Error{Category: backend.CategoryUnreachable, Err: errors.New("connection refused")})

	_, err := s.service.Verify(context.Background(), &models.VerificationRequest{Text: "x"})

	s.Equal(DetailUnreachable, s.domainError(err).Details)
}

func (s *ServiceSuite) TestVerifyWrapsUnclassifiedErrors() {
	s.backend.EXPECT().Analyze(gomock.Any(), gomock.Any()).Return(nil, errors.New("boom"))

	_, err := s.service.Verify(context.Background(), &models.VerificationRequest{Text: "x"})

	domainErr := s.domainError(err)
	s.Equal(dErrors.CodeInternal, domainErr.Code)
	s.Equal("boom", domainErr.Details)
}

func (s *ServiceSuite) TestBreakerOpensAfterConsecutiveOutages() {
	s.backend.EXPECT().Analyze(gomock.Any(), gomock.Any()).Times(2).Return(nil,
		&backend.Error{Category: backend.CategoryUnreachable, Err: errors.New("refused")})

	for range 2 {
		_, err := s.service.Verify(context.Background(), &models.VerificationRequest{Text: "x"})
		s.True(dErrors.HasCode(err, dErrors.CodeBackendUnreachable))
	}
	s.True(s.breaker.IsOpen())
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.BackendCircuit))

	// Short-circuited: the backend mock expects no further calls.
	_, err := s.service.Verify(context.Background(), &models.VerificationRequest{Text: "x"})
	domainErr := s.domainError(err)
	s.Equal(dErrors.CodeBackendUnreachable, domainErr.Code)
	s.Equal(DetailCircuitOpen, domainErr.Details)
}

func (s *ServiceSuite) TestBreakerIgnoresRejections() {
	s.backend.EXPECT().Analyze(gomock.Any(), gomock.Any()).Times(3).Return(nil,
		&backend.Error{Category: backend.CategoryRejected, StatusCode: http.StatusUnprocessableEntity})

	for range 3 {
		_, _ = s.service.Verify(context.Background(), &models.VerificationRequest{Text: "x"})
	}
	s.False(s.breaker.IsOpen())
}

func TestBreakerClosesAfterProbeSucceeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockBackend := mocks.NewMockBackend(ctrl)
	now := time.Unix(0, 0)
	breaker := circuit.New("analysis-backend",
		circuit.WithFailureThreshold(1),
		circuit.WithSuccessThreshold(1),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	svc := New(mockBackend, slog.New(slog.NewTextHandler(io.Discard, nil)), WithBreaker(breaker))

	gomock.InOrder(
		mockBackend.EXPECT().Analyze(gomock.Any(), gomock.Any()).Return(nil, &backend.Error{Category: backend.CategoryTimeout}),
		mockBackend.EXPECT().Analyze(gomock.Any(), gomock.Any()).Return(&models.Result{StatusCode: http.StatusOK, Body: []byte(`{}`)}, nil),
	)

	_, err := svc.Verify(context.Background(), &models.VerificationRequest{Text: "x"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBackendTimeout))
	assert.True(t, breaker.IsOpen())

	now = now.Add(2 * time.Minute)
	_, err = svc.Verify(context.Background(), &models.VerificationRequest{Text: "x"})
	assert.NoError(t, err)
	assert.False(t, breaker.IsOpen())
}

func TestVerifyForwardsEveryIdenticalRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockBackend := mocks.NewMockBackend(ctrl)
	var calls atomic.Int64
	mockBackend.EXPECT().Analyze(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(
		func(context.Context, *models.VerificationRequest) (*models.Result, error) {
			calls.Add(1)
			return &models.Result{StatusCode: http.StatusOK, Body: []byte(`{"Verdict":"TRUE"}`)}, nil
		})
	svc := New(mockBackend, slog.New(slog.NewTextHandler(io.Discard, nil)))

	result := fixtures.RunConcurrent(20, func(int) error {
		_, err := svc.Verify(context.Background(), &models.VerificationRequest{Text: "same claim"})
		return err
	})

	assert.Equal(t, int32(20), result.Successes)
	assert.Equal(t, int64(20), calls.Load())
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, metrics.OutcomeSuccess, Outcome(nil))
	assert.Equal(t, metrics.OutcomeFault, Outcome(errors.New("x")))
	assert.Equal(t, metrics.OutcomeInvalid, Outcome(dErrors.New(dErrors.CodePayloadTooLarge, "big")))
	assert.Equal(t, metrics.OutcomeRejected, Outcome(dErrors.New(dErrors.CodeBackendRejected, "r")))
	assert.Equal(t, metrics.OutcomeTimeout, Outcome(dErrors.New(dErrors.CodeBackendTimeout, "t")))
	assert.Equal(t, metrics.OutcomeBadGateway, Outcome(dErrors.New(dErrors.CodeBadGateway, "b")))
}
