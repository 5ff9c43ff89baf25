package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"cardledger/crypto"
)

func withEndpoint(t *testing.T, url string) {
	t.Helper()
	prev := apiEndpoint
	apiEndpoint = url
	t.Cleanup(func() { apiEndpoint = prev })
}

func TestLoginReturnsTokenOnSuccess(t *testing.T) {
	var gotAddr string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Address   string `json:"address"`
			Signature string `json:"signature"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotAddr = body.Address
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "minted-token"})
	}))
	defer srv.Close()
	withEndpoint(t, srv.URL)

	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	token, err := login(key)
	require.NoError(t, err)
	require.Equal(t, "minted-token", token)
	require.Equal(t, key.PubKey().Address().String(), gotAddr)
}

func TestLoginReturnsErrorOnRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	withEndpoint(t, srv.URL)

	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	_, err = login(key)
	require.Error(t, err)
}

func TestLoginReturnsErrorWhenServerUnreachable(t *testing.T) {
	withEndpoint(t, "http://127.0.0.1:0")

	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	_, err = login(key)
	require.Error(t, err)
}

func TestLoginDigestIsDeterministicPerAddress(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	addr := key.PubKey().Address()

	require.Equal(t, loginDigest(addr), loginDigest(addr))

	other, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	require.NotEqual(t, loginDigest(addr), loginDigest(other.PubKey().Address()))
}
