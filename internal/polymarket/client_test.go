package polymarket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetActiveMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("active"))
		assert.Equal(t, "false", r.URL.Query().Get("closed"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "volume", r.URL.Query().Get("order"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": "m1", "question": "Q1", "outcomePrices": "[\"0.6\",\"0.4\"]", "volumeNum": 100},
			{"id": "m2", "question": "Q2", "outcomePrices": ["0.3","0.7"]}
		]`))
	}))
	defer srv.Close()

	client := NewClientWithBase(srv.URL)
	markets, err := client.GetActiveMarkets(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, markets, 2)
	assert.Equal(t, "m1", markets[0].ID)
	assert.Equal(t, 100.0, markets[0].VolumeNum)
}

func TestGetActiveMarketsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClientWithBase(srv.URL)
	_, err := client.GetActiveMarkets(context.Background(), 10)
	assert.Error(t, err)
}

func TestGetMarket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/m1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "m1", "question": "Q1"}`))
	}))
	defer srv.Close()

	client := NewClientWithBase(srv.URL)
	market, err := client.GetMarket(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", market.ID)
	assert.Equal(t, "Q1", market.Question)
}
