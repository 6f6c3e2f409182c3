package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/paypadi/wallet-backend/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient("sk_test_secret", WithBaseURL(server.URL))
	require.NoError(t, err)
	return client, server
}

func TestNewClientRequiresSecretKey(t *testing.T) {
	_, err := NewClient("  ")
	assert.Error(t, err)
}

func TestInitializeTransaction(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(150_000), body["amount"])
		assert.Equal(t, "topup-ref-1", body["reference"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]any{
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code":       "abc123",
				"reference":         "topup-ref-1",
			},
		})
	})

	resp, err := client.InitializeTransaction(context.Background(), InitializeRequest{
		Email:       "user@example.com",
		AmountMinor: 150_000,
		Reference:   "topup-ref-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc123", resp.AuthorizationURL)
	assert.Equal(t, "topup-ref-1", resp.Reference)
}

func TestInitializeTransactionValidatesInput(t *testing.T) {
	client, err := NewClient("sk_test_secret")
	require.NoError(t, err)

	_, err = client.InitializeTransaction(context.Background(), InitializeRequest{AmountMinor: 100, Reference: "r"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = client.InitializeTransaction(context.Background(), InitializeRequest{Email: "a@b.c", Reference: "r"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = client.InitializeTransaction(context.Background(), InitializeRequest{Email: "a@b.c", AmountMinor: 100})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestVerifyTransaction(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/transaction/verify/topup-ref-1", r.URL.Path)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": map[string]any{
				"status":           "success",
				"reference":        "topup-ref-1",
				"amount":           150_000,
				"gateway_response": "Successful",
			},
		})
	})

	resp, err := client.VerifyTransaction(context.Background(), "topup-ref-1")
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, int64(150_000), resp.AmountMinor)
}

func TestCreateTransferDefaultsSource(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "balance", body["source"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": map[string]any{
				"transfer_code": "TRF_xyz",
				"status":        "pending",
				"reference":     "wd-ref-1",
			},
		})
	})

	resp, err := client.CreateTransfer(context.Background(), TransferRequest{
		AmountMinor: 50_000,
		Recipient:   "RCP_abc",
		Reference:   "wd-ref-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "TRF_xyz", resp.TransferCode)
	assert.Equal(t, "pending", resp.Status)
}

func TestClientErrorsSurfaceAsRejections(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":false,"message":"Invalid key"}`))
	})

	_, err := client.VerifyTransaction(context.Background(), "ref")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeProviderRejected))
}

func TestServerErrorsSurfaceAsDependencyErrors(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream timeout`))
	})

	_, err := client.VerifyTransaction(context.Background(), "ref")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestRejectedEnvelopeSurfacesMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  false,
			"message": "Insufficient balance",
		})
	})

	_, err := client.CreateTransfer(context.Background(), TransferRequest{
		AmountMinor: 100,
		Recipient:   "RCP_abc",
		Reference:   "ref",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeProviderRejected))
	assert.Contains(t, err.Error(), "paystack")
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "sk_test_secret"
	body := []byte(`{"event":"charge.success"}`)

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifyWebhookSignature(secret, body, signature))
	assert.False(t, VerifyWebhookSignature(secret, body, "deadbeef"))
	assert.False(t, VerifyWebhookSignature(secret, []byte(`tampered`), signature))
	assert.False(t, VerifyWebhookSignature("", body, signature))
	assert.False(t, VerifyWebhookSignature(secret, body, ""))
}
