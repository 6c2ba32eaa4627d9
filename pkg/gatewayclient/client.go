/**
 * @description
 * This package provides a client for the external payment gateway API. It
 * encapsulates the logic for making authenticated HTTP requests to the
 * gateway's verification endpoint and parsing responses into the shape the
 * reconciliation workflow consumes.
 *
 * @dependencies
 * - context, encoding/json, fmt, io, net/http, time: Standard Go libraries.
 */
package gatewayclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a client for the payment gateway API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new payment gateway client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// VerificationResult is the workflow-facing view of a gateway verification.
type VerificationResult struct {
	Reference string
	Verified  bool
	Status    string
	Amount    int64
	Metadata  map[string]interface{}
	Redeemed  bool
	Reason    string
}

// verifyResponse is the raw wire shape of the gateway verification endpoint.
type verifyResponse struct {
	Data struct {
		Reference string                 `json:"reference"`
		Status    string                 `json:"status"`
		Amount    int64                  `json:"amount"`
		Metadata  map[string]interface{} `json:"metadata"`
		Redeemed  bool                   `json:"redeemed"`
		Reason    string                 `json:"reason"`
	} `json:"data"`
}

// ErrorResponse represents an error from the gateway API.
type ErrorResponse struct {
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Status string `json:"status"`
	} `json:"errors"`
}

func (e *ErrorResponse) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("gateway api error: %s - %s", e.Errors[0].Title, e.Errors[0].Detail)
	}
	return "unknown gateway api error"
}

// VerifyPayment asks the gateway whether a payment reference settled, and for
// the settled amount and charge-time metadata. An unknown reference comes back
// as an unverified result rather than an error, so callers can distinguish
// "gateway said no" from "gateway unreachable".
func (c *Client) VerifyPayment(ctx context.Context, reference string) (*VerificationResult, error) {
	endpoint := c.BaseURL + "/api/v1/payments/verify/" + url.PathEscape(strings.TrimSpace(reference))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create verification request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute verification request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read verification response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return &VerificationResult{
			Reference: reference,
			Verified:  false,
			Reason:    "payment reference not found at gateway",
		}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			log.Printf("level=warn component=gateway_client op=verify_payment reference=%s status=%d msg=\"non-2xx response (unparsable error body)\"", reference, resp.StatusCode)
			return nil, fmt.Errorf("failed to decode error response (status %d)", resp.StatusCode)
		}
		log.Printf("level=warn component=gateway_client op=verify_payment reference=%s status=%d title=%q detail=%q", reference, resp.StatusCode, firstErrorTitle(errResp), firstErrorDetail(errResp))
		return nil, &errResp
	}

	var successResp verifyResponse
	if err := json.Unmarshal(bodyBytes, &successResp); err != nil {
		return nil, fmt.Errorf("failed to decode verification response: %w", err)
	}

	result := &VerificationResult{
		Reference: successResp.Data.Reference,
		Status:    normalizeGatewayStatus(successResp.Data.Status),
		Amount:    successResp.Data.Amount,
		Metadata:  successResp.Data.Metadata,
		Redeemed:  successResp.Data.Redeemed,
		Reason:    successResp.Data.Reason,
	}
	if result.Reference == "" {
		result.Reference = reference
	}
	result.Verified = result.Status == "confirmed"
	if !result.Verified && result.Reason == "" {
		result.Reason = fmt.Sprintf("payment status is %q", successResp.Data.Status)
	}
	return result, nil
}

func normalizeGatewayStatus(status string) string {
	switch strings.TrimSpace(strings.ToLower(status)) {
	case "successful", "success", "confirmed", "completed", "paid":
		return "confirmed"
	case "failed", "failure", "declined":
		return "failed"
	case "initiated", "processing", "pending":
		return "pending"
	default:
		return strings.TrimSpace(strings.ToLower(status))
	}
}

func firstErrorTitle(resp ErrorResponse) string {
	if len(resp.Errors) == 0 {
		return ""
	}
	return resp.Errors[0].Title
}

func firstErrorDetail(resp ErrorResponse) string {
	if len(resp.Errors) == 0 {
		return ""
	}
	return resp.Errors[0].Detail
}
