//go:build integration

// Package integration contains integration tests for casetrend.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags integration ./integration
package integration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seriesOutput mirrors the JSON shape of 'casetrend series --output json'.
type seriesOutput struct {
	Snapshots int `json:"snapshots"`
	Series    []struct {
		Region    string `json:"region"`
		Synthetic bool   `json:"synthetic"`
		LastCount int    `json:"last_count"`
		Points    []struct {
			Count int `json:"count"`
		} `json:"points"`
	} `json:"series"`
}

// trendOutput mirrors the JSON shape of 'casetrend trend --output json'.
type trendOutput struct {
	Trends []struct {
		Fit struct {
			Region string  `json:"region"`
			Rate   float64 `json:"rate"`
		} `json:"fit"`
		DoublingDays *float64 `json:"doubling_days"`
	} `json:"trends"`
	Excluded []string `json:"excluded"`
}

// TestFetchSeriesTrendVerification fetches every fixture page from a local
// server and checks the merged series and fits against the page tables.
func TestFetchSeriesTrendVerification(t *testing.T) {
	srv := newPageServer(t)
	workDir := t.TempDir()
	env := []string{
		"CASETREND_URL=" + srv.URL,
		"CASETREND_DATA_DIR=" + filepath.Join(workDir, "data"),
		"CASETREND_AUDIT_DIR=" + filepath.Join(workDir, "raw"),
		"CASETREND_COLOR=no",
	}

	for i := range fixturePages {
		out, err := runCommand(t, workDir, env, "fetch")
		require.NoError(t, err)
		assert.Contains(t, out, "obtained data for", "fetch %d should store a new snapshot", i)
	}
	out, err := runCommand(t, workDir, env, "fetch")
	require.NoError(t, err)
	assert.Contains(t, out, "already stored", "the last page is served again")

	raw, err := os.ReadDir(filepath.Join(workDir, "raw"))
	require.NoError(t, err)
	assert.Len(t, raw, len(fixturePages)+1, "every fetch keeps the raw page")

	t.Run("series", func(t *testing.T) {
		out, err := runCommand(t, workDir, env, "series", "--output", "json")
		require.NoError(t, err)

		var result seriesOutput
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, len(fixturePages), result.Snapshots)

		last := make(map[string]int)
		for _, s := range result.Series {
			assert.Len(t, s.Points, len(fixturePages), "region %s", s.Region)
			last[s.Region] = s.LastCount
		}
		assert.Equal(t, 26140, last["Bayern"])
		assert.Equal(t, 430, last["Bremen"])
		assert.Equal(t, 46245, last["Gesamt"], "the synthesized total matches the published one")
	})

	t.Run("trend", func(t *testing.T) {
		out, err := runCommand(t, workDir, env, "trend", "--output", "json", "--min-count", "1000", "--points", "0")
		require.NoError(t, err)

		var result trendOutput
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, []string{"Bremen"}, result.Excluded)
		require.Len(t, result.Trends, 3)
		for _, tr := range result.Trends {
			assert.Greater(t, tr.Fit.Rate, 0.05, "region %s grows", tr.Fit.Region)
			assert.Less(t, tr.Fit.Rate, 0.15, "region %s grows", tr.Fit.Region)
			require.NotNil(t, tr.DoublingDays)
		}
	})

	t.Run("store list", func(t *testing.T) {
		out, err := runCommand(t, workDir, env, "store", "list", "--output", "csv")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, len(fixturePages)+1, "header plus one row per snapshot")
		assert.Contains(t, lines[1], "2020-04-04-09-15")
		assert.Contains(t, lines[3], "2020-04-06-09-15")
	})

	t.Run("plot", func(t *testing.T) {
		chart := filepath.Join(workDir, "chart.png")
		_, err := runCommand(t, workDir, env, "plot", "--output-file", chart)
		require.NoError(t, err)
		info, err := os.Stat(chart)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	})
}

// TestDecodeVerification decodes a saved page without touching any store.
func TestDecodeVerification(t *testing.T) {
	page, err := filepath.Abs(fixturePages[0])
	require.NoError(t, err)
	workDir := t.TempDir()

	out, err := runCommand(t, workDir, nil, "decode", page, "--layout", "auto")
	require.NoError(t, err)
	assert.Contains(t, out, "# 2020-04-04-09-15")
	assert.Contains(t, out, "Bayern\t21711")
	assert.NotContains(t, out, "Gesamt\t", "the total row is not a region")

	_, err = os.Stat(filepath.Join(workDir, "data"))
	assert.True(t, os.IsNotExist(err), "decode without --store must not create the data directory")
}
