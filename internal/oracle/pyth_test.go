package oracle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ravenmarkets/raven-engine/pkg/types"
	"go.uber.org/zap"
)

const testFeedID = "0xdeadbeef"

func newHermesServer(t *testing.T, handler http.HandlerFunc) *PythClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewPythClient(&PythConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		Logger:  zap.NewNop(),
	})
}

func TestGetPrice(t *testing.T) {
	var gotPath, gotQuery string
	client := newHermesServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"parsed":[{"id":"deadbeef","price":{"price":"6923012345678","conf":"2100000000","expo":-8,"publish_time":1735689600}}]}`))
	})

	price, err := client.GetPrice(context.Background(), testFeedID)
	if err != nil {
		t.Fatalf("GetPrice() error = %v", err)
	}

	if gotPath != "/v2/updates/price/latest" {
		t.Errorf("path = %s", gotPath)
	}
	if gotQuery != "ids[]=0xdeadbeef&parsed=true" {
		t.Errorf("query = %s", gotQuery)
	}

	if price.FeedID != testFeedID {
		t.Errorf("feed id = %s", price.FeedID)
	}
	if price.Price != 6923012345678 {
		t.Errorf("price = %d", price.Price)
	}
	if price.Confidence != 2100000000 {
		t.Errorf("confidence = %d", price.Confidence)
	}
	if price.Exponent != -8 {
		t.Errorf("exponent = %d", price.Exponent)
	}
	if !price.PublishedAt.Equal(time.Unix(1735689600, 0)) {
		t.Errorf("published at = %v", price.PublishedAt)
	}
}

func TestGetPrice_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:   "not_found",
			status: http.StatusNotFound, body: `{}`,
			wantErr: types.ErrPriceNotFound,
		},
		{
			name:   "server_error",
			status: http.StatusInternalServerError, body: `{}`,
			wantErr: types.ErrOracle,
		},
		{
			name:   "empty_parsed",
			status: http.StatusOK, body: `{"parsed":[]}`,
			wantErr: types.ErrPriceNotFound,
		},
		{
			name:   "malformed_json",
			status: http.StatusOK, body: `{"parsed":`,
			wantErr: types.ErrOracle,
		},
		{
			name:   "unparseable_price",
			status: http.StatusOK,
			body:   `{"parsed":[{"id":"x","price":{"price":"not-a-number","conf":"1","expo":0,"publish_time":1}}]}`,
			wantErr: types.ErrOracle,
		},
		{
			name:   "negative_confidence",
			status: http.StatusOK,
			body:   `{"parsed":[{"id":"x","price":{"price":"100","conf":"-5","expo":0,"publish_time":1}}]}`,
			wantErr: types.ErrOracle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newHermesServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.GetPrice(context.Background(), testFeedID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("GetPrice() error = %v, want %v", err, tt.wantErr)
			}
			// Every oracle failure must be retryable.
			if !types.Retryable(err) {
				t.Errorf("error not retryable: %v", err)
			}
		})
	}
}

func TestGetPrice_NetworkError(t *testing.T) {
	client := NewPythClient(&PythConfig{
		BaseURL: "http://127.0.0.1:1",
		Timeout: time.Second,
		Logger:  zap.NewNop(),
	})

	_, err := client.GetPrice(context.Background(), testFeedID)
	if !errors.Is(err, types.ErrOracle) {
		t.Errorf("GetPrice() error = %v, want %v", err, types.ErrOracle)
	}
}
