package maps

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
)

func TestClientReverseGeocodeRequest(t *testing.T) {
	respBody := `{"status":"OK","results":[{"place_id":"place_123","formatted_address":"12 MG Road, Bengaluru","address_components":[{"long_name":"Ashok Nagar","short_name":"Ashok Nagar","types":["sublocality_level_1","sublocality"]},{"long_name":"Bengaluru","short_name":"Bengaluru","types":["locality"]}]}]}`

	var capturedURL string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("test-key", WithBaseURL("http://maps.test/"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	place, err := client.ReverseGeocode(context.Background(), LatLng{Latitude: 12.9716, Longitude: 77.5946})
	if err != nil {
		t.Fatalf("reverse geocode: %v", err)
	}
	if !strings.HasPrefix(capturedURL, "http://maps.test/maps/api/geocode/json?") {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if !strings.Contains(capturedURL, "latlng=12.971600%2C77.594600") || !strings.Contains(capturedURL, "key=test-key") {
		t.Fatalf("query missing latlng or key: %q", capturedURL)
	}
	if place.PlaceID != "place_123" {
		t.Fatalf("unexpected place %+v", place)
	}
	if place.Name() != "Ashok Nagar" {
		t.Fatalf("unexpected name %q", place.Name())
	}
}

func TestClientReverseGeocodeZeroResults(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"status":"ZERO_RESULTS","results":[]}`)),
			Header:     http.Header{},
		}, nil
	})
	client, err := NewClient("k", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.ReverseGeocode(context.Background(), LatLng{Latitude: 0, Longitude: 0})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClientReverseGeocodeRejectsBadCoordinates(t *testing.T) {
	client, err := NewClient("k")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.ReverseGeocode(context.Background(), LatLng{Latitude: 91}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestPlaceNameFallsBackToFormattedAddress(t *testing.T) {
	p := Place{FormattedAddress: "Somewhere"}
	if p.Name() != "Somewhere" {
		t.Fatalf("unexpected name %q", p.Name())
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected missing key error")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
