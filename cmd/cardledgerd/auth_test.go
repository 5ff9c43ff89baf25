package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"cardledger/crypto"
)

const testSecret = "test-shared-secret"

func signedLoginBody(t *testing.T, key *crypto.PrivateKey) []byte {
	t.Helper()
	addr := key.PubKey().Address()
	sig, err := key.Sign(loginDigest(addr))
	require.NoError(t, err)
	body, err := json.Marshal(loginRequest{Address: addr.String(), Signature: hex.EncodeToString(sig)})
	require.NoError(t, err)
	return body
}

func TestLoginHandlerIssuesTokenForValidSignature(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(signedLoginBody(t, key)))
	rec := httptest.NewRecorder()

	loginHandler(testSecret)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp loginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)

	claims := &callerClaims{}
	parsed, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	require.Equal(t, key.PubKey().Address().String(), claims.Address)
}

func TestLoginHandlerRejectsSignatureFromWrongKey(t *testing.T) {
	claimed, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	signer, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	addr := claimed.PubKey().Address()
	sig, err := signer.Sign(loginDigest(addr))
	require.NoError(t, err)
	body, err := json.Marshal(loginRequest{Address: addr.String(), Signature: hex.EncodeToString(sig)})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	loginHandler(testSecret)(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginHandlerRejectsMalformedSignatureHex(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	addr := key.PubKey().Address()
	body, err := json.Marshal(loginRequest{Address: addr.String(), Signature: "not-hex"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	loginHandler(testSecret)(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginHandlerRejectsMalformedAddress(t *testing.T) {
	body, err := json.Marshal(loginRequest{Address: "not-an-address", Signature: hex.EncodeToString([]byte{1, 2, 3})})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	loginHandler(testSecret)(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequireAuthRejectsMissingBearerToken(t *testing.T) {
	var reached bool
	handler := requireAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/apy", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, reached)
}

func TestRequireAuthAcceptsTokenIssuedByLoginHandler(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	loginReq := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(signedLoginBody(t, key)))
	loginRec := httptest.NewRecorder()
	loginHandler(testSecret)(loginRec, loginReq)
	require.Equal(t, http.StatusOK, loginRec.Code)
	var loginResp loginResponse
	require.NoError(t, json.NewDecoder(loginRec.Body).Decode(&loginResp))

	var gotAddr [20]byte
	handler := requireAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAddr = callerFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/apy", nil)
	req.Header.Set("Authorization", "Bearer "+loginResp.Token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var wantAddr [20]byte
	copy(wantAddr[:], key.PubKey().Address().Bytes())
	require.Equal(t, wantAddr, gotAddr)
}

func TestRequireAuthRejectsTokenSignedWithDifferentSecret(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	loginReq := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(signedLoginBody(t, key)))
	loginRec := httptest.NewRecorder()
	loginHandler("a-different-secret")(loginRec, loginReq)
	var loginResp loginResponse
	require.NoError(t, json.NewDecoder(loginRec.Body).Decode(&loginResp))

	handler := requireAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/apy", nil)
	req.Header.Set("Authorization", "Bearer "+loginResp.Token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
