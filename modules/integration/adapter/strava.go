package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"healthtrack-api/core/config"
	"healthtrack-api/core/errors"
	"healthtrack-api/modules/integration/entity"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	stravaAPIBase        = "https://www.strava.com/api/v3"
	stravaDeauthorizeURL = "https://www.strava.com/oauth/deauthorize"

	// Strava expects its comma-joined scope string as a single value.
	stravaScope = "read,activity:read_all"
)

// Strava maps Strava activities onto daily records: distance, moving time
// and heart rate aggregated per local calendar day. Strava has no step or
// sleep data, so those fields stay absent.
type Strava struct {
	oauth       *oauth2.Config
	httpc       *http.Client
	apiBase     string
	deauthorize string
}

func NewStrava(creds config.ProviderCredentials, redirectURI string) *Strava {
	return &Strava{
		oauth: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint:     endpoints.Strava,
			RedirectURL:  redirectURI,
			Scopes:       []string{stravaScope},
		},
		httpc:       newHTTPClient(),
		apiBase:     stravaAPIBase,
		deauthorize: stravaDeauthorizeURL,
	}
}

func (s *Strava) Provider() entity.Provider {
	return entity.ProviderStrava
}

func (s *Strava) AuthorizationURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

func (s *Strava) ExchangeCode(ctx context.Context, code string) (*Credentials, error) {
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, exchangeErr(s.Provider(), err)
	}
	return credentialsFromToken(tok), nil
}

func (s *Strava) RefreshToken(ctx context.Context, refreshToken string) (*Credentials, error) {
	src := s.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, refreshErr(s.Provider(), err)
	}
	return credentialsFromToken(tok), nil
}

type stravaActivity struct {
	ID               int64   `json:"id"`
	Type             string  `json:"type"`
	StartDateLocal   string  `json:"start_date_local"`
	Distance         float64 `json:"distance"`
	MovingTime       int     `json:"moving_time"`
	AverageHeartrate float64 `json:"average_heartrate"`
	Calories         float64 `json:"calories"`
}

func (s *Strava) FetchHealthData(ctx context.Context, creds *Credentials, start, end time.Time) ([]DailyHealthData, error) {
	type dayAgg struct {
		distanceM float64
		movingSec int
		calories  float64
		hrSum     float64
		hrCount   int
		raw       []json.RawMessage
	}
	days := make(map[string]*dayAgg)

	const perPage = 200
	for page := 1; ; page++ {
		u := fmt.Sprintf("%s/athlete/activities?after=%d&before=%d&per_page=%d&page=%d",
			s.apiBase, start.Unix(), end.Unix(), perPage, page)
		body, status, err := apiGet(ctx, s.httpc, u, creds.AccessToken)
		if err != nil {
			return nil, fetchTransportErr(s.Provider(), err)
		}
		if status != http.StatusOK {
			return nil, fetchStatusErr(s.Provider(), status, body)
		}

		var raws []json.RawMessage
		if err := json.Unmarshal(body, &raws); err != nil {
			return nil, errors.NewAppError(errors.ErrProviderUnavailable,
				"strava returned a malformed activity list", err)
		}

		for _, raw := range raws {
			var act stravaActivity
			if err := json.Unmarshal(raw, &act); err != nil {
				continue
			}
			startedAt, err := time.Parse(time.RFC3339, act.StartDateLocal)
			if err != nil {
				continue
			}
			key := startedAt.Format("2006-01-02")
			agg := days[key]
			if agg == nil {
				agg = &dayAgg{}
				days[key] = agg
			}
			agg.distanceM += act.Distance
			agg.movingSec += act.MovingTime
			agg.calories += act.Calories
			if act.AverageHeartrate > 0 {
				agg.hrSum += act.AverageHeartrate
				agg.hrCount++
			}
			agg.raw = append(agg.raw, raw)
		}

		if len(raws) < perPage {
			break
		}
	}

	out := make([]DailyHealthData, 0, len(days))
	for key, agg := range days {
		date, err := time.Parse("2006-01-02", key)
		if err != nil {
			continue
		}
		rec := DailyHealthData{Date: date, Provider: s.Provider()}

		minutes := agg.movingSec / 60
		rec.ExerciseMinutes = &minutes
		km := agg.distanceM / 1000
		rec.DistanceKm = &km
		if agg.calories > 0 {
			cal := agg.calories
			rec.CaloriesBurned = &cal
		}
		if agg.hrCount > 0 {
			hr := int(math.Round(agg.hrSum / float64(agg.hrCount)))
			rec.HeartRateAvg = &hr
		}
		rec.Raw, _ = json.Marshal(agg.raw)

		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Strava) RevokeAccess(ctx context.Context, creds *Credentials) error {
	form := url.Values{"access_token": {creds.AccessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.deauthorize, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return fetchTransportErr(s.Provider(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fetchStatusErr(s.Provider(), resp.StatusCode, body)
	}
	return nil
}
