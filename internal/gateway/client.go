// internal/gateway/client.go
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

const expirationLayout = "2006-01-02T15:04:05.000-07:00"

// Client talks to the payment gateway's REST API using the platform's own
// credentials. Split payments are submitted on behalf of establishments via
// the application_fee field; the establishment's collector id is stored for
// reference only.
type Client struct {
	baseURL           string
	accessToken       string
	oauthClientID     string
	oauthClientSecret string
	oauthRedirectURI  string
	http              *http.Client
}

func NewClient(baseURL, accessToken, clientID, clientSecret, redirectURI string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL:           baseURL,
		accessToken:       accessToken,
		oauthClientID:     clientID,
		oauthClientSecret: clientSecret,
		oauthRedirectURI:  redirectURI,
		http:              &http.Client{Timeout: timeout},
	}
}

// CreatePayment submits a split payment. The idempotency key makes client
// retries after timeouts safe against double charging.
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest, idempotencyKey string) (*Payment, error) {
	body := map[string]interface{}{
		"transaction_amount": req.Amount,
		"description":        req.Description,
		"application_fee":    req.ApplicationFee,
		"payer":              req.Payer,
		"metadata":           req.Metadata,
	}

	switch m := req.Method.(type) {
	case Pix:
		body["payment_method_id"] = m.MethodID()
		if m.ExpiresAt != nil {
			body["date_of_expiration"] = m.ExpiresAt.Format(expirationLayout)
		}
	case Card:
		body["payment_method_id"] = m.MethodID()
		body["token"] = m.Token
		body["installments"] = m.Installments
		if m.IssuerID != "" {
			body["issuer_id"] = m.IssuerID
		}
	case Boleto:
		body["payment_method_id"] = m.MethodID()
		if m.ExpiresAt != nil {
			body["date_of_expiration"] = m.ExpiresAt.Format(expirationLayout)
		}
	default:
		return nil, fmt.Errorf("unsupported payment method %T", req.Method)
	}

	headers := map[string]string{"X-Idempotency-Key": idempotencyKey}
	raw, err := c.doJSON(ctx, http.MethodPost, "/v1/payments", c.accessToken, headers, body)
	if err != nil {
		return nil, err
	}
	return parsePayment(raw)
}

// GetPayment fetches the canonical payment object. Reconciliation always
// trusts this over webhook bodies.
func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	raw, err := c.doJSON(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), c.accessToken, nil, nil)
	if err != nil {
		return nil, err
	}
	return parsePayment(raw)
}

// RefundPayment refunds a card or boleto payment. A nil amount requests a
// full refund.
func (c *Client) RefundPayment(ctx context.Context, paymentID string, amount *float64, idempotencyKey string) (*Refund, error) {
	var body interface{}
	if amount != nil {
		body = map[string]interface{}{"amount": *amount}
	} else {
		body = map[string]interface{}{}
	}
	headers := map[string]string{"X-Idempotency-Key": idempotencyKey}
	raw, err := c.doJSON(ctx, http.MethodPost, "/v1/payments/"+url.PathEscape(paymentID)+"/refunds", c.accessToken, headers, body)
	if err != nil {
		return nil, err
	}
	var out Refund
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, transportError(fmt.Errorf("invalid refund response: %w", err))
	}
	return &out, nil
}

// RefundPixPayment refunds a PIX payment. The gateway contract for PIX
// refunds differs from card/boleto: full refunds post an empty body and the
// idempotency header is mandatory. The path is kept separate end to end so
// the contracts never merge.
func (c *Client) RefundPixPayment(ctx context.Context, paymentID string, amount *float64, idempotencyKey string) (*Refund, error) {
	headers := map[string]string{"X-Idempotency-Key": idempotencyKey}
	var body interface{}
	if amount != nil {
		body = map[string]interface{}{"amount": *amount}
	}
	raw, err := c.doJSON(ctx, http.MethodPost, "/v1/payments/"+url.PathEscape(paymentID)+"/refunds", c.accessToken, headers, body)
	if err != nil {
		return nil, err
	}
	var out Refund
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, transportError(fmt.Errorf("invalid refund response: %w", err))
	}
	return &out, nil
}

// ExchangeCode trades an authorization code for establishment tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	body := map[string]interface{}{
		"grant_type":    "authorization_code",
		"client_id":     c.oauthClientID,
		"client_secret": c.oauthClientSecret,
		"code":          code,
		"redirect_uri":  c.oauthRedirectURI,
	}
	raw, err := c.doJSON(ctx, http.MethodPost, "/oauth/token", "", nil, body)
	if err != nil {
		return nil, err
	}
	var out TokenResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, transportError(fmt.Errorf("invalid token response: %w", err))
	}
	return &out, nil
}

// RefreshToken exchanges a refresh token for a fresh pair. The gateway may
// omit refresh_token when it does not rotate; callers keep the old one then.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	body := map[string]interface{}{
		"grant_type":    "refresh_token",
		"client_id":     c.oauthClientID,
		"client_secret": c.oauthClientSecret,
		"refresh_token": refreshToken,
	}
	raw, err := c.doJSON(ctx, http.MethodPost, "/oauth/token", "", nil, body)
	if err != nil {
		return nil, err
	}
	var out TokenResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, transportError(fmt.Errorf("invalid token response: %w", err))
	}
	return &out, nil
}

// CurrentUser calls the gateway "who am I" endpoint with the given token.
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*UserInfo, error) {
	raw, err := c.doJSON(ctx, http.MethodGet, "/users/me", accessToken, nil, nil)
	if err != nil {
		return nil, err
	}
	var out UserInfo
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, transportError(fmt.Errorf("invalid user response: %w", err))
	}
	return &out, nil
}

// AuthorizationURL builds the marketplace OAuth consent URL for the given
// state value.
func (c *Client) AuthorizationURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.oauthClientID)
	q.Set("response_type", "code")
	q.Set("platform_id", "mp")
	q.Set("state", state)
	q.Set("redirect_uri", c.oauthRedirectURI)
	return c.baseURL + "/authorization?" + q.Encode()
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, headers map[string]string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		msg := eb.Message
		if msg == "" {
			msg = string(raw)
		}
		gerr := statusError(resp.StatusCode, eb.Error, msg)
		logrus.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
		}).Warn("Gateway request failed")
		return nil, gerr
	}

	return raw, nil
}

func parsePayment(raw []byte) (*Payment, error) {
	var rp rawPayment
	if err := json.Unmarshal(raw, &rp); err != nil {
		return nil, transportError(fmt.Errorf("invalid payment response: %w", err))
	}
	p := rp.Payment
	p.ID = rp.RawID.String()
	return &p, nil
}
