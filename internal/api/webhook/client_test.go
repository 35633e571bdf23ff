package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langchou/evroute/internal/models"
)

func TestPlanTrip_RequestBody(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/webhook/plan", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"route": {}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "webhook/plan", "/webhook/stations", time.Second)
	trip := models.TripRequest{
		Origin:             "37.7749,-122.4194",
		Destination:        "37.3382,-121.8863",
		CurrentSOC:         80,
		BatteryCapacityKWh: 75,
		MinSOC:             20,
		TargetSOC:          80,
	}
	body, err := c.PlanTrip(context.Background(), "tok", trip)
	require.NoError(t, err)
	assert.JSONEq(t, `{"route": {}}`, string(body))

	assert.Equal(t, map[string]any{
		"origin":               "37.7749,-122.4194",
		"destination":          "37.3382,-121.8863",
		"current_soc":          80.0,
		"battery_capacity_kwh": 75.0,
		"min_soc":              20.0,
		"target_soc":           80.0,
		"amenity_preferences":  []any{},
	}, got)
}

func TestNearbyStations_RadiusDefaults(t *testing.T) {
	var got NearbyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/webhook/stations", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "/webhook/plan", "/webhook/stations", time.Second)

	_, err := c.NearbyStations(context.Background(), "", 19.07, 72.87, 0)
	require.NoError(t, err)
	assert.Equal(t, NearbyRequest{Latitude: 19.07, Longitude: 72.87, RadiusKm: DefaultRadiusKm}, got)

	_, err = c.NearbyStations(context.Background(), "", 19.07, 72.87, 500)
	require.NoError(t, err)
	assert.Equal(t, float64(MaxRadiusKm), got.RadiusKm)
}

func TestPost_StatusError(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
			w.Write([]byte(`{"message": "workflow failed"}`))
		}))

		c := NewClient(srv.URL, "/p", "/s", time.Second)
		_, err := c.PlanTrip(context.Background(), "", models.TripRequest{})
		srv.Close()

		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, code, se.StatusCode)
		assert.Equal(t, code, StatusCode(err))
		assert.Contains(t, se.Body, "workflow failed")
	}
}

func TestPost_EmptyBodyIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "/p", "/s", time.Second)
	body, err := c.PlanTrip(context.Background(), "", models.TripRequest{})
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestPost_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, "/p", "/s", time.Second)
	_, err := c.NearbyStations(context.Background(), "", 1, 2, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, 0, StatusCode(err))
}

func TestPost_BodyTooLarge(t *testing.T) {
	old := maxBodySize
	maxBodySize = 16
	defer func() { maxBodySize = old }()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"route": {"polyline": "abcdefghijklmnop"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "/p", "/s", time.Second)
	_, err := c.PlanTrip(context.Background(), "", models.TripRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
	assert.NotErrorIs(t, err, ErrTransport)

	// 恰好等于上限时正常返回
	maxBodySize = len(`{"route": {}}`)
	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"route": {}}`))
	}))
	defer srv2.Close()
	body, err := NewClient(srv2.URL, "/p", "/s", time.Second).PlanTrip(context.Background(), "", models.TripRequest{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"route": {}}`, string(body))
}
