package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobdam/service-billing/internal/config"
	"github.com/jobdam/service-billing/internal/domain"
	"github.com/jobdam/service-billing/internal/metrics"
)

// ReadyRequest carries the fields for the gateway's payment-ready call.
type ReadyRequest struct {
	OrderID  string
	UserID   string
	ItemName string
	Amount   int64
}

// ReadyResponse is the gateway's response to a ready call.
type ReadyResponse struct {
	TID                   string `json:"tid"`
	NextRedirectPCURL     string `json:"next_redirect_pc_url"`
	NextRedirectMobileURL string `json:"next_redirect_mobile_url"`
	AndroidAppScheme      string `json:"android_app_scheme"`
	IOSAppScheme          string `json:"ios_app_scheme"`
	CreatedAt             string `json:"created_at"`
}

// KakaoPayAdapter is the Anti-Corruption Layer for the KakaoPay two-step
// ready/approve protocol. It holds no local state; persistence happens in
// the application layer before and after these calls.
type KakaoPayAdapter interface {
	Ready(ctx context.Context, req ReadyRequest) (*ReadyResponse, error)
	Approve(ctx context.Context, tid, orderID, userID, pgToken string) (map[string]interface{}, error)
}

// HTTPKakaoPayAdapter implements KakaoPayAdapter over an injected HTTP
// client so tests can point it at a double.
type HTTPKakaoPayAdapter struct {
	client *http.Client
	cfg    config.KakaoPayConfig
	logger *zap.Logger
}

// NewHTTPKakaoPayAdapter creates a KakaoPay adapter. A nil client falls back
// to http.DefaultClient.
func NewHTTPKakaoPayAdapter(client *http.Client, cfg config.KakaoPayConfig, logger *zap.Logger) *HTTPKakaoPayAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPKakaoPayAdapter{client: client, cfg: cfg, logger: logger}
}

// Ready performs the payment-ready call and returns the transaction id plus
// the redirect URLs the user must follow to authorize the payment.
func (a *HTTPKakaoPayAdapter) Ready(ctx context.Context, req ReadyRequest) (*ReadyResponse, error) {
	params := url.Values{}
	params.Set("cid", a.cfg.CID)
	params.Set("partner_order_id", req.OrderID)
	params.Set("partner_user_id", req.UserID)
	params.Set("item_name", req.ItemName)
	params.Set("quantity", "1")
	params.Set("total_amount", strconv.FormatInt(req.Amount, 10))
	params.Set("vat_amount", "0")
	params.Set("tax_free_amount", "0")
	params.Set("approval_url", a.cfg.SuccessURL)
	params.Set("fail_url", a.cfg.FailURL)
	params.Set("cancel_url", a.cfg.CancelURL)

	var resp ReadyResponse
	if err := a.post(ctx, "ready", "/v1/payment/ready", params, &resp); err != nil {
		return nil, err
	}

	a.logger.Info("kakaopay ready succeeded",
		zap.String("order_id", req.OrderID),
		zap.String("tid", resp.TID),
	)
	return &resp, nil
}

// Approve performs the payment-approve call with the token the user's
// out-of-band authorization produced.
func (a *HTTPKakaoPayAdapter) Approve(ctx context.Context, tid, orderID, userID, pgToken string) (map[string]interface{}, error) {
	params := url.Values{}
	params.Set("cid", a.cfg.CID)
	params.Set("tid", tid)
	params.Set("partner_order_id", orderID)
	params.Set("partner_user_id", userID)
	params.Set("pg_token", pgToken)

	var resp map[string]interface{}
	if err := a.post(ctx, "approve", "/v1/payment/approve", params, &resp); err != nil {
		return nil, err
	}

	a.logger.Info("kakaopay approve succeeded",
		zap.String("order_id", orderID),
		zap.String("tid", tid),
	)
	return resp, nil
}

// post sends one form-encoded gateway request and decodes the JSON response.
// Provider error bodies are logged but never reach the returned error.
func (a *HTTPKakaoPayAdapter) post(ctx context.Context, op, path string, params url.Values, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	start := time.Now()
	outcome := "error"
	defer func() {
		metrics.GatewayRequests.WithLabelValues(op, outcome).Inc()
		metrics.GatewayRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+path, strings.NewReader(params.Encode()))
	if err != nil {
		return domain.NewGatewayError(fmt.Sprintf("failed to build %s request", op), err)
	}
	httpReq.Header.Set("Authorization", a.cfg.AuthorizationHeader())
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
			a.logger.Error("kakaopay call timed out", zap.String("operation", op))
			return domain.NewGatewayTimeout(op)
		}
		a.logger.Error("kakaopay call failed", zap.String("operation", op), zap.Error(err))
		return domain.NewGatewayError(fmt.Sprintf("payment gateway %s call failed", op), err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return domain.NewGatewayError(fmt.Sprintf("failed to read %s response", op), err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		a.logger.Error("kakaopay returned error status",
			zap.String("operation", op),
			zap.Int("status", httpResp.StatusCode),
			zap.ByteString("body", body),
		)
		return domain.NewGatewayError(fmt.Sprintf("payment gateway %s returned status %d", op, httpResp.StatusCode), nil)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return domain.NewGatewayError(fmt.Sprintf("failed to decode %s response", op), err)
	}

	outcome = "success"
	return nil
}

// MockKakaoPayAdapter simulates the gateway for development without a
// merchant account.
type MockKakaoPayAdapter struct {
	logger *zap.Logger
}

// NewMockKakaoPayAdapter creates a mock gateway adapter.
func NewMockKakaoPayAdapter(logger *zap.Logger) *MockKakaoPayAdapter {
	return &MockKakaoPayAdapter{logger: logger}
}

// Ready simulates a ready call and returns a mock transaction id.
func (m *MockKakaoPayAdapter) Ready(ctx context.Context, req ReadyRequest) (*ReadyResponse, error) {
	tid := fmt.Sprintf("T_mock_%s", uuid.New().String()[:8])
	m.logger.Info("[MOCK KAKAOPAY] ready",
		zap.String("order_id", req.OrderID),
		zap.String("tid", tid),
		zap.Int64("total_amount", req.Amount),
	)
	return &ReadyResponse{
		TID:                   tid,
		NextRedirectPCURL:     "https://mock.kakaopay.local/redirect/pc",
		NextRedirectMobileURL: "https://mock.kakaopay.local/redirect/mobile",
		CreatedAt:             time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// Approve simulates an approve call.
func (m *MockKakaoPayAdapter) Approve(ctx context.Context, tid, orderID, userID, pgToken string) (map[string]interface{}, error) {
	m.logger.Info("[MOCK KAKAOPAY] approve",
		zap.String("order_id", orderID),
		zap.String("tid", tid),
	)
	return map[string]interface{}{
		"aid":              fmt.Sprintf("A_mock_%s", uuid.New().String()[:8]),
		"tid":              tid,
		"partner_order_id": orderID,
		"partner_user_id":  userID,
		"approved_at":      time.Now().UTC().Format(time.RFC3339),
	}, nil
}
