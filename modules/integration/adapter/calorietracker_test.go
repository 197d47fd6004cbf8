package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"healthtrack-api/core/config"
	"healthtrack-api/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCalorieTracker(baseURL string) *CalorieTracker {
	return NewCalorieTracker(config.CalorieTrackerConfig{
		ClientID:     "ct-id",
		ClientSecret: "ct-secret",
		BaseURL:      baseURL,
	}, "https://app.example/cb")
}

func TestCalorieTrackerAuthorizationURL(t *testing.T) {
	c := newTestCalorieTracker("https://calorietracker.example")

	u := c.AuthorizationURL("the-state")
	assert.Contains(t, u, "https://calorietracker.example/oauth/authorize")
	assert.Contains(t, u, "state=the-state")
	assert.Contains(t, u, "client_id=ct-id")
}

func TestCalorieTrackerExchangeCode(t *testing.T) {
	var gotCode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/token" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		require.NoError(t, r.ParseForm())
		gotCode = r.FormValue("code")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"ct-at","token_type":"Bearer","refresh_token":"ct-rt","expires_in":3600,"scope":"metrics:read"}`))
	}))
	defer srv.Close()

	c := newTestCalorieTracker(srv.URL)
	creds, err := c.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)

	assert.Equal(t, "the-code", gotCode)
	assert.Equal(t, "ct-at", creds.AccessToken)
	assert.Equal(t, "ct-rt", creds.RefreshToken)
	assert.Equal(t, "metrics:read", creds.Scope)
	assert.WithinDuration(t, time.Now().Add(time.Hour), creds.ExpiresAt, time.Minute)
}

func TestCalorieTrackerExchangeCodeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	c := newTestCalorieTracker(srv.URL)
	_, err := c.ExchangeCode(context.Background(), "spent-code")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidRequest))
}

func TestCalorieTrackerExchangeCodeOutage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestCalorieTracker(srv.URL)
	_, err := c.ExchangeCode(context.Background(), "any-code")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrProviderUnavailable))
}

func TestCalorieTrackerFetchCopiesFields(t *testing.T) {
	const body = `[
		{"date":"2025-06-13","steps":9000,"weight_kg":74.2,"calories_burned":2100,"exercise_minutes":40,"sleep_minutes":400,"heart_rate_avg":70,"resting_heart_rate":52,"distance_km":6.5,"active_minutes":55},
		{"date":"2025-06-14","steps":4000}
	]`

	var gotStart, gotEnd string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStart = r.URL.Query().Get("start")
		gotEnd = r.URL.Query().Get("end")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := newTestCalorieTracker(srv.URL)
	start := time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)

	records, err := c.FetchHealthData(context.Background(), &Credentials{AccessToken: "tok"}, start, end)
	require.NoError(t, err)

	assert.Equal(t, "2025-06-13", gotStart)
	assert.Equal(t, "2025-06-14", gotEnd)
	require.Len(t, records, 2)

	full := records[0]
	assert.Equal(t, "2025-06-13", full.Date.Format("2006-01-02"))
	require.NotNil(t, full.Steps)
	assert.Equal(t, 9000, *full.Steps)
	require.NotNil(t, full.WeightKg)
	assert.InDelta(t, 74.2, *full.WeightKg, 0.001)
	require.NotNil(t, full.SleepMinutes)
	assert.Equal(t, 400, *full.SleepMinutes)
	require.NotNil(t, full.DistanceKm)
	assert.InDelta(t, 6.5, *full.DistanceKm, 0.001)

	sparse := records[1]
	require.NotNil(t, sparse.Steps)
	assert.Equal(t, 4000, *sparse.Steps)
	assert.Nil(t, sparse.WeightKg)
	assert.Nil(t, sparse.SleepMinutes)
	assert.JSONEq(t, `{"date":"2025-06-14","steps":4000}`, string(sparse.Raw))
}

func TestCalorieTrackerFetchSkipsMalformedItems(t *testing.T) {
	const body = `[
		{"date":"not a date","steps":1},
		{"date":"2025-06-13","steps":9000}
	]`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := newTestCalorieTracker(srv.URL)
	records, err := c.FetchHealthData(context.Background(), &Credentials{AccessToken: "tok"},
		time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC), time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "2025-06-13", records[0].Date.Format("2006-01-02"))
}

func TestCalorieTrackerFetchMalformedList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := newTestCalorieTracker(srv.URL)
	_, err := c.FetchHealthData(context.Background(), &Credentials{AccessToken: "tok"},
		time.Now().AddDate(0, 0, -7), time.Now())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrProviderUnavailable))
}

func TestCalorieTrackerRevokeAccess(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestCalorieTracker(srv.URL)
	require.NoError(t, c.RevokeAccess(context.Background(), &Credentials{AccessToken: "tok"}))
	assert.Equal(t, "/oauth/revoke", path)
}
