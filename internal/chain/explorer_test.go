package chain

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifiedSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api", r.URL.Path)
		assert.Equal(t, "contract", r.URL.Query().Get("module"))
		assert.Equal(t, "getsourcecode", r.URL.Query().Get("action"))
		assert.Equal(t, "0xabc", r.URL.Query().Get("address"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"1","message":"OK","result":[{"SourceCode":"pragma solidity ^0.8.0; contract T {}","ContractName":"T"}]}`))
	}))
	defer srv.Close()

	e := newExplorerClient()
	source, verified, err := e.VerifiedSource(context.Background(), srv.URL, "key", "0xabc")
	require.NoError(t, err)
	assert.True(t, verified)
	assert.Contains(t, source, "pragma solidity")
}

func TestVerifiedSourceUnverified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"0","message":"NOTOK","result":[]}`))
	}))
	defer srv.Close()

	e := newExplorerClient()
	source, verified, err := e.VerifiedSource(context.Background(), srv.URL, "", "0xabc")
	require.NoError(t, err)
	assert.False(t, verified)
	assert.Empty(t, source)
}

func TestVerifiedSourceServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := newExplorerClient()
	_, verified, err := e.VerifiedSource(context.Background(), srv.URL, "", "0xabc")
	assert.Error(t, err)
	assert.False(t, verified)
}
