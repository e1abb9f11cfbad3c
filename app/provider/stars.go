package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-lesson-payments/config"
)

const StarsCode = "stars"

type StarsProvider struct {
	cfg config.ProviderConfig
	now func() time.Time
}

func NewStarsProvider(cfg config.ProviderConfig) *StarsProvider {
	return &StarsProvider{cfg: cfg, now: time.Now}
}

func (p *StarsProvider) Code() string {
	return StarsCode
}

func (p *StarsProvider) BuildInvoice(input *InvoiceInput) (*Invoice, error) {
	if input == nil || strings.TrimSpace(input.ExternalPaymentID) == "" {
		return nil, fmt.Errorf("%w: external payment id is required", ErrMalformedPayload)
	}
	if input.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrMalformedPayload)
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = p.cfg.Currency
	}

	return &Invoice{
		Provider:    StarsCode,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Currency:    currency,
		Amount:      input.Amount,
		Payload:     input.ExternalPaymentID,
	}, nil
}

type starsNotification struct {
	Type             string `json:"type"`
	Payload          string `json:"invoice_payload"`
	TotalAmount      int64  `json:"total_amount"`
	Currency         string `json:"currency"`
	ProviderChargeID string `json:"provider_payment_charge_id"`
	Status           string `json:"status"`
	Error            string `json:"error"`
}

func (p *StarsProvider) VerifyAndParseNotification(_ context.Context, payload []byte, signature string) (*Notification, error) {
	if !verifySignature(payload, signature, p.cfg.WebhookSecret, int64(p.cfg.SignatureTolerance/time.Second), p.now()) {
		return nil, ErrInvalidSignature
	}

	var raw starsNotification
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	externalPaymentID := strings.TrimSpace(raw.Payload)
	if externalPaymentID == "" {
		return nil, fmt.Errorf("%w: invoice_payload is empty", ErrMalformedPayload)
	}

	notification := &Notification{
		ExternalPaymentID: externalPaymentID,
		Amount:            raw.TotalAmount,
		Currency:          strings.ToUpper(strings.TrimSpace(raw.Currency)),
	}
	if chargeID := strings.TrimSpace(raw.ProviderChargeID); chargeID != "" {
		notification.ProviderChargeID = &chargeID
	}

	switch NotificationKind(strings.ToLower(strings.TrimSpace(raw.Type))) {
	case NotificationPreCheck:
		notification.Kind = NotificationPreCheck
	case NotificationCompleted:
		notification.Kind = NotificationCompleted
		switch strings.ToLower(strings.TrimSpace(raw.Status)) {
		case "", "succeeded", "success", "paid":
			notification.Success = true
		default:
			notification.FailureReason = strings.TrimSpace(raw.Error)
			if notification.FailureReason == "" {
				notification.FailureReason = strings.ToLower(strings.TrimSpace(raw.Status))
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNotification, raw.Type)
	}

	return notification, nil
}

// SignPayload returns a signature header value accepted by VerifyAndParseNotification.
func SignPayload(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return "t=" + ts + ",v1=" + hex.EncodeToString(computeSignature(ts, payload, secret))
}

func computeSignature(ts string, payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(ts + "." + string(payload)))
	return mac.Sum(nil)
}

func verifySignature(payload []byte, signatureHeader string, secret string, toleranceSeconds int64, now time.Time) bool {
	signatureHeader = strings.TrimSpace(signatureHeader)
	if signatureHeader == "" || strings.TrimSpace(secret) == "" {
		return false
	}

	var ts string
	v1 := make([]string, 0, 1)
	for _, part := range strings.Split(signatureHeader, ",") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "t=") {
			ts = strings.TrimSpace(strings.TrimPrefix(part, "t="))
		}
		if strings.HasPrefix(part, "v1=") {
			v1 = append(v1, strings.TrimSpace(strings.TrimPrefix(part, "v1=")))
		}
	}
	if ts == "" || len(v1) == 0 {
		return false
	}

	tsUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	if toleranceSeconds > 0 {
		nowUnix := now.Unix()
		if nowUnix-tsUnix > toleranceSeconds || tsUnix-nowUnix > toleranceSeconds {
			return false
		}
	}

	expected := computeSignature(ts, payload, secret)
	for _, sig := range v1 {
		candidate, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(candidate, expected) {
			return true
		}
	}
	return false
}
