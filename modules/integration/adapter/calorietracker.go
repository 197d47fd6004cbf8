package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"healthtrack-api/core/config"
	"healthtrack-api/core/errors"
	"healthtrack-api/modules/integration/entity"

	"golang.org/x/oauth2"
)

// CalorieTracker talks to the calorie-tracker service. Its API already
// returns one object per day in near-canonical shape, so mapping is mostly a
// field-for-field copy. The base URL is configurable because the service
// runs self-hosted deployments.
type CalorieTracker struct {
	oauth   *oauth2.Config
	httpc   *http.Client
	baseURL string
}

func NewCalorieTracker(cfg config.CalorieTrackerConfig, redirectURI string) *CalorieTracker {
	base := strings.TrimRight(cfg.BaseURL, "/")
	return &CalorieTracker{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  base + "/oauth/authorize",
				TokenURL: base + "/oauth/token",
			},
			RedirectURL: redirectURI,
			Scopes:      []string{"metrics:read"},
		},
		httpc:   newHTTPClient(),
		baseURL: base,
	}
}

func (c *CalorieTracker) Provider() entity.Provider {
	return entity.ProviderCalorieTracker
}

func (c *CalorieTracker) AuthorizationURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

func (c *CalorieTracker) ExchangeCode(ctx context.Context, code string) (*Credentials, error) {
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, exchangeErr(c.Provider(), err)
	}
	return credentialsFromToken(tok), nil
}

func (c *CalorieTracker) RefreshToken(ctx context.Context, refreshToken string) (*Credentials, error) {
	src := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, refreshErr(c.Provider(), err)
	}
	return credentialsFromToken(tok), nil
}

type calorieTrackerDay struct {
	Date             string   `json:"date"`
	Steps            *int     `json:"steps"`
	WeightKg         *float64 `json:"weight_kg"`
	CaloriesBurned   *float64 `json:"calories_burned"`
	ExerciseMinutes  *int     `json:"exercise_minutes"`
	SleepMinutes     *int     `json:"sleep_minutes"`
	HeartRateAvg     *int     `json:"heart_rate_avg"`
	RestingHeartRate *int     `json:"resting_heart_rate"`
	DistanceKm       *float64 `json:"distance_km"`
	ActiveMinutes    *int     `json:"active_minutes"`
}

func (c *CalorieTracker) FetchHealthData(ctx context.Context, creds *Credentials, start, end time.Time) ([]DailyHealthData, error) {
	u := fmt.Sprintf("%s/v1/users/me/daily?start=%s&end=%s",
		c.baseURL, start.Format("2006-01-02"), end.Format("2006-01-02"))

	body, status, err := apiGet(ctx, c.httpc, u, creds.AccessToken)
	if err != nil {
		return nil, fetchTransportErr(c.Provider(), err)
	}
	if status != http.StatusOK {
		return nil, fetchStatusErr(c.Provider(), status, body)
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, errors.NewAppError(errors.ErrProviderUnavailable,
			"calorietracker returned a malformed daily list", err)
	}

	out := make([]DailyHealthData, 0, len(raws))
	for _, raw := range raws {
		var day calorieTrackerDay
		if err := json.Unmarshal(raw, &day); err != nil {
			continue
		}
		date, err := time.Parse("2006-01-02", day.Date)
		if err != nil {
			continue
		}
		out = append(out, DailyHealthData{
			Date:             date,
			Provider:         c.Provider(),
			Steps:            day.Steps,
			WeightKg:         day.WeightKg,
			CaloriesBurned:   day.CaloriesBurned,
			ExerciseMinutes:  day.ExerciseMinutes,
			SleepMinutes:     day.SleepMinutes,
			HeartRateAvg:     day.HeartRateAvg,
			RestingHeartRate: day.RestingHeartRate,
			DistanceKm:       day.DistanceKm,
			ActiveMinutes:    day.ActiveMinutes,
			Raw:              raw,
		})
	}
	return out, nil
}

func (c *CalorieTracker) RevokeAccess(ctx context.Context, creds *Credentials) error {
	form := url.Values{"token": {creds.AccessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/revoke", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.oauth.ClientID, c.oauth.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fetchTransportErr(c.Provider(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fetchStatusErr(c.Provider(), resp.StatusCode, body)
	}
	return nil
}
