package types

import (
	"errors"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
)

const providerSignatureHeader = "X-Provider-Signature"

func NewProviderNotificationRequestFromContext(ctx echo.Context, kind string) (*ProviderNotificationRequest, error) {
	rawBody, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}

	return &ProviderNotificationRequest{
		RequestId: strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID)),
		Provider:  strings.ToLower(strings.TrimSpace(ctx.Param("provider"))),
		Kind:      kind,
		Signature: strings.TrimSpace(ctx.Request().Header.Get(providerSignatureHeader)),
		Payload:   string(rawBody),
	}, nil
}

func (r *ProviderNotificationRequest) Validate() error {
	if strings.TrimSpace(r.GetProvider()) == "" {
		return errors.New("provider is required")
	}
	if strings.TrimSpace(r.GetSignature()) == "" {
		return errors.New("provider signature is required")
	}
	if strings.TrimSpace(r.GetPayload()) == "" {
		return errors.New("payload is required")
	}
	return nil
}

func (r *PreCheckRequest) Validate() error {
	if strings.TrimSpace(r.GetExternalPaymentId()) == "" {
		return errors.New("external_payment_id is required")
	}
	if r.GetReportedAmount() < 0 {
		return errors.New("reported_amount must be >= 0")
	}
	return nil
}

func (r *CompleteRequest) Validate() error {
	if strings.TrimSpace(r.GetExternalPaymentId()) == "" {
		return errors.New("external_payment_id is required")
	}
	return nil
}
