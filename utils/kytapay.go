package utils

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Kytapay hosted-checkout client. The gateway accepts an externally
// supplied invoice id (we pass the public order id), an amount in major
// currency units and a callback URL, and answers with a hosted payment
// page URL.

func getKytapayConfig() (baseURL, clientKey, clientSecret, callbackURL string, err error) {
	baseURL = os.Getenv("KYTAPAY_BASE_URL")
	clientKey = os.Getenv("KYTAPAY_CLIENT_KEY")
	clientSecret = os.Getenv("KYTAPAY_CLIENT_SECRET")
	callbackURL = os.Getenv("KYTAPAY_CALLBACK_URL")

	if baseURL == "" {
		baseURL = "https://api.kytapay.com"
	}
	if clientKey == "" || clientSecret == "" || callbackURL == "" {
		return "", "", "", "", fmt.Errorf("KYTAPAY_CLIENT_KEY, KYTAPAY_CLIENT_SECRET and KYTAPAY_CALLBACK_URL are required")
	}
	return baseURL, clientKey, clientSecret, callbackURL, nil
}

// PaymentsConfigured reports whether the gateway integration has its
// configuration present. Used by the health endpoint; never exposes values.
func PaymentsConfigured() bool {
	return os.Getenv("KYTAPAY_CLIENT_KEY") != "" &&
		os.Getenv("KYTAPAY_CLIENT_SECRET") != "" &&
		os.Getenv("KYTAPAY_CALLBACK_URL") != ""
}

func kytapayTimestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z07:00")
}

// createSymmetricSignature signs a request body for the gateway.
// StringToSign: METHOD:RELATIVE_PATH:BODY_HASH:TIMESTAMP, HMAC-SHA512 with
// the client secret, Base64-encoded.
func createSymmetricSignature(method, path string, body []byte, timestamp, clientSecret string) string {
	bodyHash := sha256.Sum256(body)
	bodyHashHex := strings.ToLower(hex.EncodeToString(bodyHash[:]))
	stringToSign := method + ":" + path + ":" + bodyHashHex + ":" + timestamp
	mac := hmac.New(sha512.New, []byte(clientSecret))
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyCallbackSignature checks the X-SIGNATURE header of a gateway
// callback against the raw body. Same scheme as outgoing requests, with the
// callback path as the signed path.
func VerifyCallbackSignature(body []byte, timestamp, signature string) bool {
	secret := os.Getenv("KYTAPAY_CLIENT_SECRET")
	if secret == "" || signature == "" {
		return false
	}
	expected := createSymmetricSignature(http.MethodPost, "/v1/callback/payments", body, timestamp, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// KytapayCheckoutResponse from POST /v2/checkouts
type KytapayCheckoutResponse struct {
	ResponseCode    string `json:"response_code"`
	ResponseMessage string `json:"response_message"`
	Checkout        struct {
		InvoiceID  string `json:"invoice_id"`
		PaymentURL string `json:"payment_url"`
		ExpiredAt  string `json:"expired_at"`
	} `json:"checkout"`
}

// CreateKytapayCheckout creates a hosted checkout for the given invoice id
// and returns the payment page URL. amount is in major currency units.
func CreateKytapayCheckout(ctx context.Context, client *http.Client, invoiceID string, amount float64, currency, description, customerEmail string) (*KytapayCheckoutResponse, error) {
	baseURL, clientKey, clientSecret, callbackURL, err := getKytapayConfig()
	if err != nil {
		return nil, err
	}

	path := "/v2/checkouts"
	url := strings.TrimRight(baseURL, "/") + path

	payload := map[string]interface{}{
		"invoice_id":   invoiceID,
		"amount":       fmt.Sprintf("%.2f", amount),
		"currency":     currency,
		"description":  description,
		"callback_url": callbackURL,
	}
	if customerEmail != "" {
		payload["customer_email"] = customerEmail
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	timestamp := kytapayTimestamp()
	sig := createSymmetricSignature(http.MethodPost, path, body, timestamp, clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-TIMESTAMP", timestamp)
	req.Header.Set("X-CLIENT-KEY", clientKey)
	req.Header.Set("X-SIGNATURE", sig)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	var out KytapayCheckoutResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("parse checkout response: %w (body: %s)", err, string(respBody))
	}
	if out.ResponseCode != "2000000" {
		return nil, fmt.Errorf("gateway %s: %s", out.ResponseCode, out.ResponseMessage)
	}
	if out.Checkout.PaymentURL == "" {
		return nil, fmt.Errorf("gateway returned empty payment URL")
	}
	return &out, nil
}

// IsKytapaySuccessStatus reports whether a callback status string means the
// invoice was paid.
func IsKytapaySuccessStatus(status string) bool {
	s := strings.ToUpper(strings.TrimSpace(status))
	return s == "PAID" || s == "SUCCESS" || s == "SETTLED"
}
