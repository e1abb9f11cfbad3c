//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	paymentgrpc "github.com/vibast-solutions/ms-go-lesson-payments/app/grpc"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/provider"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	defaultHTTPBase      = "http://localhost:48081"
	defaultGRPCAddr      = "localhost:49091"
	defaultWebhookSecret = "whsec_e2e"
)

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(baseURL string) *httpClient {
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpClient) doJSON(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	return c.do(t, method, path, body, callerAPIKey(), nil)
}

func (c *httpClient) doJSONWithAPIKey(t *testing.T, method, path string, body any, apiKey string) (*http.Response, []byte) {
	return c.do(t, method, path, body, apiKey, nil)
}

// postWebhook sends the raw payload exactly as signed.
func (c *httpClient) postWebhook(t *testing.T, kind, payload, signature string) (*http.Response, []byte) {
	headers := map[string]string{"X-Provider-Signature": signature}
	return c.do(t, http.MethodPost, "/webhooks/providers/"+provider.StarsCode+"/"+kind, json.RawMessage(payload), callerAPIKey(), headers)
}

func (c *httpClient) do(t *testing.T, method, path string, body any, apiKey string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	reqBody := bytes.NewReader(nil)
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal failed: %v", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", fmt.Sprintf("e2e-http-%d", time.Now().UnixNano()))
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response failed: %v", err)
	}

	return resp, bodyBytes
}

func waitForHTTP(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		req, _ := http.NewRequest(http.MethodGet, baseURL+"/health", nil)
		req.Header.Set("X-Request-ID", fmt.Sprintf("wait-http-%d", time.Now().UnixNano()))
		req.Header.Set("X-API-Key", callerAPIKey())
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("http service not ready at %s", baseURL)
}

func waitForGRPC(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("grpc service not ready at %s", addr)
}

func withGRPCHeaders(apiKey string) grpc.DialOption {
	return grpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-request-id", fmt.Sprintf("e2e-grpc-%d", time.Now().UnixNano()))
		if apiKey != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, "x-api-key", apiKey)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	})
}

func dialGRPC(t *testing.T, addr string, opts ...grpc.DialOption) *grpc.ClientConn {
	t.Helper()
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		t.Fatalf("grpc dial failed: %v", err)
	}
	return conn
}

func grpcContextWithHeaders(apiKey, requestID string) context.Context {
	ctx := context.Background()
	if requestID != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-request-id", requestID)
	}
	if apiKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-api-key", apiKey)
	}
	return ctx
}

func TestLessonPaymentsE2E(t *testing.T) {
	httpBase := envOrDefault("LESSON_PAYMENTS_HTTP_URL", defaultHTTPBase)
	grpcAddr := envOrDefault("LESSON_PAYMENTS_GRPC_ADDR", defaultGRPCAddr)
	webhookSecret := envOrDefault("PROVIDER_WEBHOOK_SECRET", defaultWebhookSecret)

	if err := waitForHTTP(httpBase, 30*time.Second); err != nil {
		t.Fatalf("http not ready: %v", err)
	}
	if err := waitForGRPC(grpcAddr, 30*time.Second); err != nil {
		t.Fatalf("grpc not ready: %v", err)
	}

	client := newHTTPClient(httpBase)

	conn := dialGRPC(t, grpcAddr, withGRPCHeaders(callerAPIKey()))
	defer conn.Close()
	grpcClient := paymentgrpc.NewPaymentsServiceClient(conn)

	rawConn := dialGRPC(t, grpcAddr)
	defer rawConn.Close()
	rawGRPCClient := paymentgrpc.NewPaymentsServiceClient(rawConn)

	t.Run("HTTPMissingRequestID", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, httpBase+"/health", nil)
		if err != nil {
			t.Fatalf("new request failed: %v", err)
		}
		req.Header.Set("X-API-Key", callerAPIKey())
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for missing x-request-id, got %d", resp.StatusCode)
		}
	})

	t.Run("HTTPUnauthorizedMissingAPIKey", func(t *testing.T) {
		resp, _ := client.doJSONWithAPIKey(t, http.MethodGet, "/health", nil, "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401 for missing x-api-key, got %d", resp.StatusCode)
		}
	})

	t.Run("HTTPForbiddenInsufficientAccess", func(t *testing.T) {
		resp, _ := client.doJSONWithAPIKey(t, http.MethodGet, "/health", nil, noAccessAPIKey())
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("expected 403 for insufficient access, got %d", resp.StatusCode)
		}
	})

	t.Run("GRPCMissingRequestID", func(t *testing.T) {
		_, err := rawGRPCClient.GetPurchase(context.Background(), &types.GetPurchaseRequest{Id: 1})
		if status.Code(err) != codes.InvalidArgument {
			t.Fatalf("expected InvalidArgument for missing x-request-id, got %v", err)
		}
	})

	t.Run("GRPCUnauthorizedMissingAPIKey", func(t *testing.T) {
		ctx := grpcContextWithHeaders("", fmt.Sprintf("e2e-grpc-no-auth-%d", time.Now().UnixNano()))
		_, err := rawGRPCClient.GetPurchase(ctx, &types.GetPurchaseRequest{Id: 1})
		if status.Code(err) != codes.Unauthenticated {
			t.Fatalf("expected Unauthenticated, got %v", err)
		}
	})

	t.Run("GRPCForbiddenInsufficientAccess", func(t *testing.T) {
		ctx := grpcContextWithHeaders(noAccessAPIKey(), fmt.Sprintf("e2e-grpc-forbidden-%d", time.Now().UnixNano()))
		_, err := rawGRPCClient.GetPurchase(ctx, &types.GetPurchaseRequest{Id: 1})
		if status.Code(err) != codes.PermissionDenied {
			t.Fatalf("expected PermissionDenied, got %v", err)
		}
	})

	t.Run("HTTPValidationCreatePurchase", func(t *testing.T) {
		resp, _ := client.doJSON(t, http.MethodPost, "/purchases", map[string]any{})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for invalid intent, got %d", resp.StatusCode)
		}
	})

	t.Run("GRPCValidationCreatePurchase", func(t *testing.T) {
		_, err := grpcClient.CreatePurchaseIntent(context.Background(), &types.CreatePurchaseIntentRequest{})
		if status.Code(err) != codes.InvalidArgument {
			t.Fatalf("expected InvalidArgument, got %v", err)
		}
	})

	t.Run("HTTPUnknownItemNotPurchasable", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodPost, "/purchases", map[string]any{
			"buyer_id":  "e2e-buyer",
			"item_id":   999999999,
			"item_type": "lesson",
		})
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("HTTPGetPurchaseNotFound", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodGet, "/purchases/"+strconv.FormatUint(999999999, 10), nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("GRPCGetPurchaseNotFound", func(t *testing.T) {
		_, err := grpcClient.GetPurchase(context.Background(), &types.GetPurchaseRequest{Id: 999999999})
		if status.Code(err) != codes.NotFound {
			t.Fatalf("expected NotFound, got %v", err)
		}
	})

	t.Run("HTTPListPurchases", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodGet, "/purchases?buyer_id=e2e-buyer&limit=10&offset=0", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}
		var payload types.ListPurchasesResponse
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal list purchases failed: %v body=%s", err, string(body))
		}
	})

	t.Run("WebhookBadSignatureRejected", func(t *testing.T) {
		payload := `{"type":"pre_checkout","invoice_payload":"pay_e2e_missing","total_amount":10,"currency":"XTR"}`
		resp, body := client.postWebhook(t, "precheck", payload, provider.SignPayload([]byte(payload), "wrong-secret", time.Now()))
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("WebhookUnknownPaymentFlagged", func(t *testing.T) {
		payload := fmt.Sprintf(`{"type":"completed","invoice_payload":"pay_e2e_%d","total_amount":10,"currency":"XTR","provider_payment_charge_id":"ch_e2e"}`, time.Now().UnixNano())
		resp, body := client.postWebhook(t, "completed", payload, provider.SignPayload([]byte(payload), webhookSecret, time.Now()))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}
		var outcome types.NotificationResponse
		if err := json.Unmarshal(body, &outcome); err != nil {
			t.Fatalf("unmarshal outcome failed: %v body=%s", err, string(body))
		}
		if !outcome.Flagged {
			t.Fatalf("expected flagged outcome, got %+v", outcome)
		}
	})

	promoCode := fmt.Sprintf("E2E%d", time.Now().UnixNano()%1000000)

	t.Run("HTTPCreateAndValidatePromoCode", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodPost, "/promocodes", map[string]any{
			"code":             promoCode,
			"discount_percent": 20,
			"max_uses":         5,
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d body=%s", resp.StatusCode, string(body))
		}

		resp, body = client.doJSON(t, http.MethodPost, "/promocodes/validate", map[string]any{"code": promoCode})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}
		var validation types.ValidatePromoCodeResponse
		if err := json.Unmarshal(body, &validation); err != nil {
			t.Fatalf("unmarshal validation failed: %v body=%s", err, string(body))
		}
		if !validation.Valid {
			t.Fatalf("expected valid promo code, got %+v", validation)
		}
	})

	t.Run("HTTPCreatePromoCodeConflict", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodPost, "/promocodes", map[string]any{
			"code":             promoCode,
			"discount_percent": 10,
		})
		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("expected 409, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("GRPCValidateUnknownPromoCode", func(t *testing.T) {
		res, err := grpcClient.ValidatePromoCode(context.Background(), &types.ValidatePromoCodeRequest{Code: "NOPE-E2E"})
		if err != nil {
			t.Fatalf("grpc validate failed: %v", err)
		}
		if res.Valid || res.Reason == "" {
			t.Fatalf("expected invalid code with reason, got %+v", res)
		}
	})

	t.Run("HTTPBalance", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodGet, "/finance/balance", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("GRPCMonthlyRevenue", func(t *testing.T) {
		now := time.Now().UTC()
		res, err := grpcClient.MonthlyRevenue(context.Background(), &types.MonthlyRevenueRequest{Year: int32(now.Year()), Month: int32(now.Month())})
		if err != nil {
			t.Fatalf("grpc monthly revenue failed: %v", err)
		}
		if res.Count < 0 || res.Gross < 0 {
			t.Fatalf("unexpected revenue: %+v", res)
		}
	})

	t.Run("HTTPRevenueReport", func(t *testing.T) {
		today := time.Now().UTC().Format(types.DateLayout)
		resp, body := client.doJSON(t, http.MethodGet, "/finance/report?from="+today+"&to="+today, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}
		if !bytes.HasPrefix(body, []byte("PK")) {
			t.Fatal("expected xlsx workbook")
		}
	})

	t.Run("HTTPWithdrawOverBalanceRejected", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodPost, "/withdrawals", map[string]any{"amount": 50000})
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d body=%s", resp.StatusCode, string(body))
		}
	})

	lessonID := os.Getenv("LESSON_PAYMENTS_E2E_LESSON_ID")
	if lessonID == "" {
		t.Log("LESSON_PAYMENTS_E2E_LESSON_ID not set, skipping purchase flow")
		return
	}

	t.Run("HTTPPurchaseFlow", func(t *testing.T) {
		itemID, err := strconv.ParseUint(lessonID, 10, 64)
		if err != nil {
			t.Fatalf("invalid lesson id: %v", err)
		}
		buyer := fmt.Sprintf("e2e-buyer-%d", time.Now().UnixNano())

		resp, body := client.doJSON(t, http.MethodPost, "/purchases", map[string]any{
			"buyer_id":  buyer,
			"item_id":   itemID,
			"item_type": "lesson",
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d body=%s", resp.StatusCode, string(body))
		}
		var intent types.CreatePurchaseIntentResponse
		if err := json.Unmarshal(body, &intent); err != nil {
			t.Fatalf("unmarshal intent failed: %v body=%s", err, string(body))
		}

		resp, body = client.doJSON(t, http.MethodPost, "/purchases", map[string]any{
			"buyer_id":  buyer,
			"item_id":   itemID,
			"item_type": "lesson",
		})
		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("expected 409 for a second active intent, got %d body=%s", resp.StatusCode, string(body))
		}

		precheck := fmt.Sprintf(`{"type":"pre_checkout","invoice_payload":%q,"total_amount":%d,"currency":"XTR"}`, intent.ExternalPaymentId, intent.FinalAmount)
		resp, body = client.postWebhook(t, "precheck", precheck, provider.SignPayload([]byte(precheck), webhookSecret, time.Now()))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("pre-check expected 200, got %d body=%s", resp.StatusCode, string(body))
		}

		completed := fmt.Sprintf(`{"type":"completed","invoice_payload":%q,"total_amount":%d,"currency":"XTR","provider_payment_charge_id":"ch_%d"}`, intent.ExternalPaymentId, intent.FinalAmount, time.Now().UnixNano())
		for attempt := 0; attempt < 2; attempt++ {
			resp, body = client.postWebhook(t, "completed", completed, provider.SignPayload([]byte(completed), webhookSecret, time.Now()))
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("completion attempt %d expected 200, got %d body=%s", attempt, resp.StatusCode, string(body))
			}
		}

		purchase, err := grpcClient.GetPurchase(context.Background(), &types.GetPurchaseRequest{Id: intent.PurchaseId})
		if err != nil {
			t.Fatalf("grpc get purchase failed: %v", err)
		}
		if purchase.Purchase.State != "COMPLETED" {
			t.Fatalf("expected COMPLETED, got %s", purchase.Purchase.State)
		}

		resp, body = client.doJSON(t, http.MethodGet, "/audit/purchase/"+strconv.FormatUint(intent.PurchaseId, 10), nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}
		var entries types.ListAuditEntriesResponse
		if err := json.Unmarshal(body, &entries); err != nil {
			t.Fatalf("unmarshal audit failed: %v body=%s", err, string(body))
		}
		if len(entries.Entries) != 3 {
			t.Fatalf("expected create, pre-check and completion entries, got %d", len(entries.Entries))
		}
	})
}
