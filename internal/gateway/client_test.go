// internal/gateway/client_test.go
package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(srv.URL, "platform-token", "client-id", "client-secret", "https://levaja.test/callback", 5*time.Second)
	return client, srv
}

func TestCreatePixPaymentRequest(t *testing.T) {
	var captured map[string]interface{}
	var idempotencyKey, auth string

	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payments", r.URL.Path)
		idempotencyKey = r.Header.Get("X-Idempotency-Key")
		auth = r.Header.Get("Authorization")

		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 12345, "status": "pending", "transaction_amount": 100.0,
			"point_of_interaction": {"transaction_data": {"qr_code": "000201...", "qr_code_base64": "iVBOR..."}}}`))
	})
	defer srv.Close()

	expires := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)
	payment, err := client.CreatePayment(context.Background(), PaymentRequest{
		Amount:         100.00,
		Description:    "Pedido 42",
		Payer:          Payer{Email: "buyer@example.com"},
		Method:         Pix{ExpiresAt: &expires},
		ApplicationFee: 12.00,
		Metadata:       Metadata{EstablishmentID: "est-1", OrderID: "order-1"},
	}, "key-abc")
	require.NoError(t, err)

	assert.Equal(t, "key-abc", idempotencyKey)
	assert.Equal(t, "Bearer platform-token", auth)

	assert.Equal(t, "pix", captured["payment_method_id"])
	assert.Equal(t, 100.0, captured["transaction_amount"])
	assert.Equal(t, 12.0, captured["application_fee"])
	assert.Equal(t, "2026-08-28T15:00:00.000+00:00", captured["date_of_expiration"])
	meta := captured["metadata"].(map[string]interface{})
	assert.Equal(t, "est-1", meta["store_id"])

	// the numeric id is normalized to a string
	assert.Equal(t, "12345", payment.ID)
	assert.Equal(t, "000201...", payment.PointOfInteraction.TransactionData.QRCode)
}

func TestCreateCardPaymentRequest(t *testing.T) {
	var captured map[string]interface{}
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)
		w.Write([]byte(`{"id": 2, "status": "approved"}`))
	})
	defer srv.Close()

	_, err := client.CreatePayment(context.Background(), PaymentRequest{
		Amount: 80.00,
		Payer:  Payer{Email: "buyer@example.com"},
		Method: Card{Token: "tok_1", Installments: 3, Brand: "visa"},
	}, "key")
	require.NoError(t, err)

	assert.Equal(t, "visa", captured["payment_method_id"])
	assert.Equal(t, "tok_1", captured["token"])
	assert.Equal(t, 3.0, captured["installments"])
}

func TestGetPaymentErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusTooManyRequests, true},
		{http.StatusNotFound, false},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
	}

	for _, tc := range tests {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(`{"message": "nope", "error": "some_error"}`))
		})

		_, err := client.GetPayment(context.Background(), "1")
		require.Error(t, err)

		var gerr *Error
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, tc.status, gerr.StatusCode)
		assert.Equal(t, tc.retryable, gerr.Retryable, "status %d", tc.status)
		assert.Equal(t, "nope", gerr.Message)
		srv.Close()
	}
}

func TestTransportErrorIsRetryable(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", "tok", "", "", "", time.Second)
	_, err := client.GetPayment(context.Background(), "1")
	assert.True(t, IsRetryable(err))
}

func TestRefundPaymentBodies(t *testing.T) {
	var captured string
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/77/refunds", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		captured = string(body)
		w.Write([]byte(`{"id": 9, "payment_id": 77, "status": "approved"}`))
	})
	defer srv.Close()

	// card/boleto full refund posts an empty JSON object
	_, err := client.RefundPayment(context.Background(), "77", nil, "key-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, captured)

	amount := 25.50
	refund, err := client.RefundPayment(context.Background(), "77", &amount, "key-2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount": 25.5}`, captured)
	assert.Equal(t, "9", refund.ID.String())
}

func TestRefundPixPaymentFullRefundHasEmptyBody(t *testing.T) {
	var captured []byte
	var key string
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		key = r.Header.Get("X-Idempotency-Key")
		w.Write([]byte(`{"id": 10, "status": "approved"}`))
	})
	defer srv.Close()

	_, err := client.RefundPixPayment(context.Background(), "88", nil, "pix-key")
	require.NoError(t, err)
	assert.Empty(t, captured)
	assert.Equal(t, "pix-key", key)

	amount := 10.00
	_, err = client.RefundPixPayment(context.Background(), "88", &amount, "pix-key-2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount": 10}`, string(captured))
}

func TestExchangeCodeBody(t *testing.T) {
	var captured map[string]interface{}
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/token", r.URL.Path)
		// token endpoint is unauthenticated; credentials ride in the body
		assert.Empty(t, r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)
		w.Write([]byte(`{"access_token": "at", "refresh_token": "rt", "expires_in": 21600, "user_id": 555}`))
	})
	defer srv.Close()

	tokens, err := client.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", captured["grant_type"])
	assert.Equal(t, "the-code", captured["code"])
	assert.Equal(t, "client-id", captured["client_id"])
	assert.Equal(t, "https://levaja.test/callback", captured["redirect_uri"])

	assert.Equal(t, "at", tokens.AccessToken)
	assert.Equal(t, int64(555), tokens.CollectorID)
}

func TestRefreshTokenBody(t *testing.T) {
	var captured map[string]interface{}
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)
		// rotation omitted: no refresh_token in the response
		w.Write([]byte(`{"access_token": "at2", "expires_in": 21600}`))
	})
	defer srv.Close()

	tokens, err := client.RefreshToken(context.Background(), "old-refresh")
	require.NoError(t, err)

	assert.Equal(t, "refresh_token", captured["grant_type"])
	assert.Equal(t, "old-refresh", captured["refresh_token"])
	assert.Empty(t, tokens.RefreshToken)
}

func TestAuthorizationURL(t *testing.T) {
	client := NewClient("https://auth.gateway.test", "", "client-id", "secret", "https://levaja.test/callback", 0)
	u := client.AuthorizationURL("est-1:nonce")

	assert.Contains(t, u, "https://auth.gateway.test/authorization?")
	assert.Contains(t, u, "client_id=client-id")
	assert.Contains(t, u, "response_type=code")
	assert.Contains(t, u, "state=est-1%3Anonce")
}

func TestParseEventClassification(t *testing.T) {
	var event WebhookEvent
	event.Type = "payment"
	event.Data.ID = json.Number("101")
	pe, ok := event.ParseEvent().(PaymentEvent)
	require.True(t, ok)
	assert.Equal(t, "101", pe.PaymentID)

	event.Type = "refund"
	_, ok = event.ParseEvent().(RefundEvent)
	assert.True(t, ok)

	event.Type = "plan"
	ue, ok := event.ParseEvent().(UnknownEvent)
	require.True(t, ok)
	assert.Equal(t, "plan", ue.Type)
}
