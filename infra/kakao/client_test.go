package kakao

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cleanbear/dispatch/core/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Options{
		APIKey:            "test-key",
		BaseURL:           srv.URL,
		GeocodeBaseURL:    srv.URL,
		RequestsPerSecond: 1000,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestTravelMinutes(t *testing.T) {
	var gotAuth, gotOrigin, gotDest string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/directions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotOrigin = r.URL.Query().Get("origin")
		gotDest = r.URL.Query().Get("destination")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"routes":[{"result_code":0,"result_msg":"ok","summary":{"distance":9296,"duration":1290}}]}`))
	})

	got, err := c.TravelMinutes(context.Background(),
		model.Coordinate{Lat: 37.5, Lng: 127.0},
		model.Coordinate{Lat: 37.6, Lng: 127.1})
	if err != nil {
		t.Fatalf("TravelMinutes: %v", err)
	}
	if got != 1290.0/60.0 {
		t.Fatalf("expected 21.5 minutes, got %v", got)
	}
	if gotAuth != "KakaoAK test-key" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	// longitude first
	if gotOrigin != "127,37.5" {
		t.Fatalf("unexpected origin %q", gotOrigin)
	}
	if gotDest != "127.1,37.6" {
		t.Fatalf("unexpected destination %q", gotDest)
	}
}

func TestTravelMinutesRouteNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"routes":[{"result_code":104,"result_msg":"no route","summary":{}}]}`))
	})
	_, err := c.TravelMinutes(context.Background(), model.Coordinate{Lat: 37.5, Lng: 127.0}, model.Coordinate{Lat: 37.6, Lng: 127.1})
	if err == nil || !strings.Contains(err.Error(), "result 104") {
		t.Fatalf("expected result code error, got %v", err)
	}
}

func TestTravelMinutesHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})
	_, err := c.TravelMinutes(context.Background(), model.Coordinate{Lat: 37.5, Lng: 127.0}, model.Coordinate{Lat: 37.6, Lng: 127.1})
	if err == nil || !strings.Contains(err.Error(), "status 429") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestGeocode(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/local/search/address" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("query")
		_, _ = w.Write([]byte(`{"documents":[{"x":"127.423084","y":"37.078956"}]}`))
	})

	got, err := c.Geocode(context.Background(), "서울 강남구 테헤란로 1")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if got.Lat != 37.078956 || got.Lng != 127.423084 {
		t.Fatalf("unexpected coordinate %+v", got)
	}
	if gotQuery != "서울 강남구 테헤란로 1" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
}

func TestGeocodeNoMatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"documents":[]}`))
	})
	_, err := c.Geocode(context.Background(), "nowhere")
	if err == nil || !strings.Contains(err.Error(), "no match") {
		t.Fatalf("expected no match error, got %v", err)
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
