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
	"healthtrack-api/modules/integration/entity"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	fitbitAPIBase   = "https://api.fitbit.com"
	fitbitRevokeURL = "https://api.fitbit.com/oauth2/revoke"
)

var fitbitScopes = []string{"activity", "heartrate", "sleep"}

// Fitbit reads the daily activity summary plus the sleep log, one API day at
// a time. Days whose summary is all zeros are treated as "no data" and
// omitted.
type Fitbit struct {
	oauth     *oauth2.Config
	httpc     *http.Client
	apiBase   string
	revokeURL string
}

func NewFitbit(creds config.ProviderCredentials, redirectURI string) *Fitbit {
	return &Fitbit{
		oauth: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint:     endpoints.Fitbit,
			RedirectURL:  redirectURI,
			Scopes:       fitbitScopes,
		},
		httpc:     newHTTPClient(),
		apiBase:   fitbitAPIBase,
		revokeURL: fitbitRevokeURL,
	}
}

func (f *Fitbit) Provider() entity.Provider {
	return entity.ProviderFitbit
}

func (f *Fitbit) AuthorizationURL(state string) string {
	return f.oauth.AuthCodeURL(state)
}

func (f *Fitbit) ExchangeCode(ctx context.Context, code string) (*Credentials, error) {
	tok, err := f.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, exchangeErr(f.Provider(), err)
	}
	return credentialsFromToken(tok), nil
}

func (f *Fitbit) RefreshToken(ctx context.Context, refreshToken string) (*Credentials, error) {
	src := f.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, refreshErr(f.Provider(), err)
	}
	return credentialsFromToken(tok), nil
}

type fitbitActivitySummary struct {
	Summary struct {
		Steps               int     `json:"steps"`
		CaloriesOut         float64 `json:"caloriesOut"`
		RestingHeartRate    int     `json:"restingHeartRate"`
		FairlyActiveMinutes int     `json:"fairlyActiveMinutes"`
		VeryActiveMinutes   int     `json:"veryActiveMinutes"`
		Distances           []struct {
			Activity string  `json:"activity"`
			Distance float64 `json:"distance"`
		} `json:"distances"`
	} `json:"summary"`
}

type fitbitSleepSummary struct {
	Summary struct {
		TotalMinutesAsleep int `json:"totalMinutesAsleep"`
	} `json:"summary"`
}

func (f *Fitbit) FetchHealthData(ctx context.Context, creds *Credentials, start, end time.Time) ([]DailyHealthData, error) {
	var out []DailyHealthData

	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	for ; !day.After(last); day = day.AddDate(0, 0, 1) {
		dateStr := day.Format("2006-01-02")

		actURL := fmt.Sprintf("%s/1/user/-/activities/date/%s.json", f.apiBase, dateStr)
		actBody, status, err := apiGet(ctx, f.httpc, actURL, creds.AccessToken)
		if err != nil {
			return nil, fetchTransportErr(f.Provider(), err)
		}
		if status != http.StatusOK {
			return nil, fetchStatusErr(f.Provider(), status, actBody)
		}

		var act fitbitActivitySummary
		if err := json.Unmarshal(actBody, &act); err != nil {
			return nil, fetchStatusErr(f.Provider(), status, actBody)
		}

		sleepMinutes, sleepBody, err := f.fetchSleep(ctx, creds, dateStr)
		if err != nil {
			return nil, err
		}

		sum := act.Summary
		if sum.Steps == 0 && sum.CaloriesOut == 0 && sleepMinutes == 0 {
			continue
		}

		rec := DailyHealthData{Date: day, Provider: f.Provider()}
		steps := sum.Steps
		rec.Steps = &steps
		if sum.CaloriesOut > 0 {
			cal := sum.CaloriesOut
			rec.CaloriesBurned = &cal
		}
		if sum.RestingHeartRate > 0 {
			rhr := sum.RestingHeartRate
			rec.RestingHeartRate = &rhr
		}
		if active := sum.FairlyActiveMinutes + sum.VeryActiveMinutes; active > 0 {
			rec.ActiveMinutes = &active
		}
		for _, d := range sum.Distances {
			if d.Activity == "total" && d.Distance > 0 {
				km := d.Distance
				rec.DistanceKm = &km
				break
			}
		}
		if sleepMinutes > 0 {
			sm := sleepMinutes
			rec.SleepMinutes = &sm
		}

		rec.Raw, _ = json.Marshal(map[string]json.RawMessage{
			"activity": actBody,
			"sleep":    sleepBody,
		})

		out = append(out, rec)
	}

	return out, nil
}

// fetchSleep tolerates a 403: users who declined the sleep scope still get
// their activity data synced. A 401 means the token itself is bad.
func (f *Fitbit) fetchSleep(ctx context.Context, creds *Credentials, dateStr string) (int, json.RawMessage, error) {
	u := fmt.Sprintf("%s/1.2/user/-/sleep/date/%s.json", f.apiBase, dateStr)
	body, status, err := apiGet(ctx, f.httpc, u, creds.AccessToken)
	if err != nil {
		return 0, nil, fetchTransportErr(f.Provider(), err)
	}
	switch {
	case status == http.StatusOK:
	case status == http.StatusUnauthorized:
		return 0, nil, fetchStatusErr(f.Provider(), status, body)
	default:
		return 0, nil, nil
	}

	var sleep fitbitSleepSummary
	if err := json.Unmarshal(body, &sleep); err != nil {
		return 0, nil, nil
	}
	return sleep.Summary.TotalMinutesAsleep, body, nil
}

func (f *Fitbit) RevokeAccess(ctx context.Context, creds *Credentials) error {
	form := url.Values{"token": {creds.AccessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(f.oauth.ClientID, f.oauth.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.httpc.Do(req)
	if err != nil {
		return fetchTransportErr(f.Provider(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fetchStatusErr(f.Provider(), resp.StatusCode, body)
	}
	return nil
}
