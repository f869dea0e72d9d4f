// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/landscape-engine/pkg/types"
)

func study(id, status string) string {
	return fmt.Sprintf(`{"protocolSection":{"identificationModule":{"nctId":%q,"briefTitle":"Study %s"},"statusModule":{"overallStatus":%q}}}`, id, id, status)
}

func newTrialsClient(baseURL string, maxResults, pageSz int) *ClinicalTrialsClient {
	cfg := types.TrialsConfig{SourceConfig: types.SourceConfig{Enabled: true, BaseURL: baseURL, MaxResults: maxResults, PageSize: pageSz}}
	return NewClinicalTrialsClient(cfg, types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "test"}, nil)
}

func TestClinicalTrialsFetchPages(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/studies", r.URL.Path)
		assert.Equal(t, "(keytruda OR pembrolizumab)", r.URL.Query().Get("query.term"))
		assert.Equal(t, "melanoma", r.URL.Query().Get("query.cond"))
		assert.Equal(t, "test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		switch n {
		case 1:
			assert.Equal(t, "2", r.URL.Query().Get("pageSize"))
			assert.Empty(t, r.URL.Query().Get("pageToken"))
			fmt.Fprintf(w, `{"studies":[%s,%s],"nextPageToken":"tok2"}`, study("NCT1", "RECRUITING"), study("NCT2", "COMPLETED"))
		case 2:
			assert.Equal(t, "tok2", r.URL.Query().Get("pageToken"))
			assert.Equal(t, "1", r.URL.Query().Get("pageSize"))
			fmt.Fprintf(w, `{"studies":[%s],"nextPageToken":"tok3"}`, study("NCT3", "ACTIVE_NOT_RECRUITING"))
		default:
			t.Errorf("unexpected request %d", n)
		}
	}))
	defer ts.Close()

	c := newTrialsClient(ts.URL, 3, 2)
	req := types.ResearchRequest{Topic: "Keytruda", Keywords: []string{"keytruda", "pembrolizumab"}, Indication: "melanoma"}
	records, err := c.Fetch(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, types.SourceTrials, records[0].Source)
	assert.Equal(t, "NCT3", digString(records[2].Payload, "protocolSection", "identificationModule", "nctId"))
}

func TestClinicalTrialsFetchStopsWithoutToken(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprintf(w, `{"studies":[%s]}`, study("NCT1", "RECRUITING"))
	}))
	defer ts.Close()

	records, err := newTrialsClient(ts.URL, 100, 100).Fetch(context.Background(), types.ResearchRequest{Keywords: []string{"x"}})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClinicalTrialsFetchFailure(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) }},
		{"malformed body", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, `{"studies":[`) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			records, err := newTrialsClient(ts.URL, 10, 10).Fetch(context.Background(), types.ResearchRequest{Keywords: []string{"x"}})
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrSourceUnavailable)
			assert.Empty(t, records)
		})
	}
}

func TestClinicalTrialsFetchTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()

	c := newTrialsClient(ts.URL, 10, 10)
	c.HTTP.Timeout = 50 * time.Millisecond
	records, err := c.Fetch(context.Background(), types.ResearchRequest{Keywords: []string{"x"}})
	assert.ErrorIs(t, err, types.ErrSourceUnavailable)
	assert.Empty(t, records)
}

func TestClinicalTrialsPartialFailureKeepsEarlierPages(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			fmt.Fprintf(w, `{"studies":[%s],"nextPageToken":"t"}`, study("NCT1", "RECRUITING"))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	records, err := newTrialsClient(ts.URL, 10, 1).Fetch(context.Background(), types.ResearchRequest{Keywords: []string{"x"}})
	assert.ErrorIs(t, err, types.ErrSourceUnavailable)
	assert.Len(t, records, 1)
}

func TestFilterActive(t *testing.T) {
	mk := func(status string) RawRecord {
		payload := map[string]any{}
		if status != "" {
			payload["protocolSection"] = map[string]any{"statusModule": map[string]any{"overallStatus": status}}
		}
		return RawRecord{Source: types.SourceTrials, Payload: payload}
	}
	in := []RawRecord{
		mk("RECRUITING"),
		mk("COMPLETED"),
		mk("ACTIVE_NOT_RECRUITING"),
		mk("Enrolling by invitation"),
		mk("TERMINATED"),
		mk(""),
		mk("NOT_YET_RECRUITING"),
	}
	out := FilterActive(in)
	var statuses []string
	for _, r := range out {
		statuses = append(statuses, digString(r.Payload, "protocolSection", "statusModule", "overallStatus"))
	}
	assert.Equal(t, []string{"RECRUITING", "ACTIVE_NOT_RECRUITING", "Enrolling by invitation", "NOT_YET_RECRUITING"}, statuses)
}

func TestClinicalTrialsNarrow(t *testing.T) {
	in := []RawRecord{{Payload: map[string]any{}}}
	c := newTrialsClient("", 1, 1)
	assert.Len(t, c.Narrow(in), 1)

	c.Config.ActiveOnly = true
	assert.Empty(t, c.Narrow(in))
}
