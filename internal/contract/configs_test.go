package contract

import (
	"testing"
	"time"

	"github.com/huangsam/casetrend/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validInput mirrors the flag defaults of the CLI.
func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		URL:          schema.DefaultSourceURL,
		Timeout:      "30s",
		Layout:       schema.DefaultLayoutName,
		DataDir:      "data",
		StoreBackend: "file",
		Output:       "text",
		Precision:    DefaultPrecision,
		Color:        "yes",
		LogLevel:     "info",
		MinCount:     schema.DefaultMinCount,
		Points:       schema.DefaultPoints,
		Extend:       schema.DefaultExtend,
		TotalLabel:   schema.DefaultTotalLabel,
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError string
	}{
		{name: "valid defaults", mutate: func(*ConfigRawInput) {}},
		{name: "auto layout", mutate: func(in *ConfigRawInput) { in.Layout = "AUTO" }},
		{name: "unknown layout", mutate: func(in *ConfigRawInput) { in.Layout = "v9" }, expectError: "unknown layout"},
		{name: "invalid output", mutate: func(in *ConfigRawInput) { in.Output = "xml" }, expectError: "invalid output format"},
		{name: "invalid precision", mutate: func(in *ConfigRawInput) { in.Precision = 0 }, expectError: "precision"},
		{name: "invalid color", mutate: func(in *ConfigRawInput) { in.Color = "maybe" }, expectError: "--color"},
		{name: "invalid log level", mutate: func(in *ConfigRawInput) { in.LogLevel = "loud" }, expectError: "log level"},
		{name: "bad url scheme", mutate: func(in *ConfigRawInput) { in.URL = "ftp://example.org/x" }, expectError: "scheme"},
		{name: "bad timeout", mutate: func(in *ConfigRawInput) { in.Timeout = "soon" }, expectError: "timeout"},
		{name: "negative timeout", mutate: func(in *ConfigRawInput) { in.Timeout = "-1s" }, expectError: "positive"},
		{name: "invalid backend", mutate: func(in *ConfigRawInput) { in.StoreBackend = "redis" }, expectError: "invalid store backend"},
		{name: "mysql needs connection", mutate: func(in *ConfigRawInput) { in.StoreBackend = "mysql" }, expectError: "store-db-connect"},
		{name: "zero points omits curves", mutate: func(in *ConfigRawInput) { in.Points = 0 }},
		{name: "negative points", mutate: func(in *ConfigRawInput) { in.Points = -1 }, expectError: "points"},
		{name: "negative extend", mutate: func(in *ConfigRawInput) { in.Extend = -0.1 }, expectError: "extend"},
		{name: "negative min-count", mutate: func(in *ConfigRawInput) { in.MinCount = -1 }, expectError: "min-count"},
		{name: "bad start", mutate: func(in *ConfigRawInput) { in.Start = "yesterday" }, expectError: "invalid start"},
		{
			name: "start after end",
			mutate: func(in *ConfigRawInput) {
				in.Start = "2020-04-01"
				in.End = "2020-03-01"
			},
			expectError: "cannot be after",
		},
		{
			name: "invalid custom layout",
			mutate: func(in *ConfigRawInput) {
				in.Layouts = []schema.Layout{{Name: "broken", Stride: 2, NameOffset: 0, CountOffset: 5}}
			},
			expectError: "invalid layouts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestProcessAndValidateCustomLayoutName(t *testing.T) {
	input := validInput()
	input.Layouts = []schema.Layout{{Name: "Mai2020", Stride: 5, CountOffset: 1}}
	input.Layout = "Mai2020"

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))
	l, err := cfg.Layouts.Lookup(cfg.LayoutName)
	require.NoError(t, err)
	assert.Equal(t, "Mai2020", l.Name)
	assert.Equal(t, 5, l.Stride)
}

func TestProcessAndValidatePopulatesConfig(t *testing.T) {
	input := validInput()
	input.Output = "JSON"
	input.Region = "Bayern, Berlin ,"
	input.Start = "2020-03-01"
	input.Layouts = []schema.Layout{{Name: "v4", Stride: 5, CountOffset: 2}}
	input.Layout = "v4"
	input.LogLevel = "debug"

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.Equal(t, schema.JSONOut, cfg.Output)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, []schema.Region{"Bayern", "Berlin"}, cfg.Regions)
	assert.Equal(t, time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), cfg.StartTime)
	assert.True(t, cfg.EndTime.IsZero())
	assert.Equal(t, "v4", cfg.LayoutName)
	assert.Equal(t, schema.DefaultTableMarker, cfg.Layouts["v4"].TableMarker, "markers are defaulted")
	assert.Contains(t, cfg.Layouts, "v1", "built-in layouts stay registered")
	assert.Equal(t, schema.Region("Gesamt"), cfg.TotalLabel)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	assert.True(t, cfg.UseColors)
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		backend schema.StoreBackend
		connStr string
		valid   bool
	}{
		{schema.FileBackend, "", true},
		{schema.SQLiteBackend, "", true},
		{schema.MySQLBackend, "user:pass@tcp(localhost:3306)/casetrend", true},
		{schema.MySQLBackend, "user:pass@localhost/casetrend", false},
		{schema.PostgreSQLBackend, "host=localhost user=postgres dbname=casetrend", true},
		{schema.PostgreSQLBackend, "host=localhost user=postgres", false},
		{schema.PostgreSQLBackend, "", false},
	}
	for _, tt := range tests {
		err := ValidateDatabaseConnectionString(tt.backend, tt.connStr)
		if tt.valid {
			assert.NoError(t, err, "%s %q", tt.backend, tt.connStr)
		} else {
			assert.Error(t, err, "%s %q", tt.backend, tt.connStr)
		}
	}
}

func TestConfigInWindow(t *testing.T) {
	cfg := DefaultConfig()
	ts := time.Date(2020, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.True(t, cfg.InWindow(ts), "unbounded window")

	cfg.StartTime = time.Date(2020, 3, 16, 0, 0, 0, 0, time.UTC)
	assert.False(t, cfg.InWindow(ts))

	cfg.StartTime = time.Time{}
	cfg.EndTime = time.Date(2020, 3, 14, 0, 0, 0, 0, time.UTC)
	assert.False(t, cfg.InWindow(ts))
}

func TestConfigClone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Regions = []schema.Region{"Bayern"}
	clone := cfg.Clone()
	clone.Regions[0] = "Berlin"
	clone.Layouts["v9"] = schema.Layout{Name: "v9"}

	assert.Equal(t, schema.Region("Bayern"), cfg.Regions[0])
	assert.NotContains(t, cfg.Layouts, "v9")
	assert.NotContains(t, schema.KnownLayouts, "v9")
}

func TestProcessProfilingConfig(t *testing.T) {
	var profile ProfileConfig
	require.NoError(t, ProcessProfilingConfig(&profile, ""))
	assert.False(t, profile.Enabled)
	require.NoError(t, ProcessProfilingConfig(&profile, "casetrend"))
	assert.True(t, profile.Enabled)
	assert.Equal(t, "casetrend", profile.Prefix)
}

func TestApplyTimeRange(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, ApplyTimeRange(cfg, "2020-03-01", "2020-04-01T12:00:00Z"))
	assert.Equal(t, time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), cfg.StartTime)
	assert.Equal(t, time.Date(2020, 4, 1, 12, 0, 0, 0, time.UTC), cfg.EndTime)

	require.NoError(t, ApplyTimeRange(cfg, "", ""))
	assert.True(t, cfg.StartTime.IsZero())
	assert.True(t, cfg.EndTime.IsZero())

	err := ApplyTimeRange(cfg, "2020-04-02", "2020-04-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be after")

	err = ApplyTimeRange(cfg, "yesterday", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid start date")
}
