package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastClientPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: time.Microsecond, Multiplier: 1}
}

func newTestService(t *testing.T, depthHandler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/model", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/depth", depthHandler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientNotReadyBeforeLoad(t *testing.T) {
	c := NewClient(ClientConfig{Endpoint: "http://invalid/depth", ModelURL: "http://invalid/model"}, nil)

	_, err := c.EstimateDepth(context.Background(), []byte("img"))
	var notReady *ModelNotReadyError
	if !errors.As(err, &notReady) {
		t.Fatalf("error = %v, want ModelNotReadyError", err)
	}
}

func TestClientLoadRetries(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/model", func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewClient(ClientConfig{
		Endpoint: srv.URL + "/depth",
		ModelURL: srv.URL + "/model",
		Policy:   fastClientPolicy(),
	}, nil)

	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !c.Ready() {
		t.Error("client not ready after successful load")
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("model endpoint hit %d times, want 3", got)
	}
}

func TestClientEstimateDepthNormalizes(t *testing.T) {
	srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		// Raw model output outside [0,1]; the client must rescale.
		json.NewEncoder(w).Encode(map[string]any{
			"width":  2,
			"height": 2,
			"values": []float64{10, 20, 30, 50},
		})
	})

	c := NewClient(ClientConfig{
		Endpoint: srv.URL + "/depth",
		ModelURL: srv.URL + "/model",
		Policy:   fastClientPolicy(),
	}, nil)
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	field, err := c.EstimateDepth(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("EstimateDepth: %v", err)
	}

	want := []float64{0, 0.25, 0.5, 1}
	for i, v := range want {
		if got := field.Values[i]; got != v {
			t.Errorf("value %d = %v, want %v", i, got, v)
		}
	}
}

func TestClientEstimateDepthServiceError(t *testing.T) {
	srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	})

	c := NewClient(ClientConfig{
		Endpoint: srv.URL + "/depth",
		ModelURL: srv.URL + "/model",
		Policy:   fastClientPolicy(),
	}, nil)
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, err := c.EstimateDepth(context.Background(), []byte("img")); err == nil {
		t.Error("service error not surfaced")
	}
}

func TestNormalizeConstantGrid(t *testing.T) {
	values := []float64{7, 7, 7}
	normalize(values)
	for i, v := range values {
		if v != 0 {
			t.Errorf("value %d = %v, want 0", i, v)
		}
	}
}
