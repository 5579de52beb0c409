package contract

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/casetrend/schema"
	"github.com/rs/zerolog"
)

// Default values for configuration.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "casetrend/1.0 (+https://github.com/huangsam/casetrend)"
	DefaultDataDir   = "data"
	DefaultPrecision = 2
	MaxPrecision     = 6
	MaxPoints        = 100000
	MaxExtend        = 10.0
)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// DateFormat is accepted for --start and --end alongside DateTimeFormat.
const DateFormat = "2006-01-02"

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// Config holds the runtime configuration.
// This struct remains the "final, validated" config.
type Config struct {
	SourceURL string
	Timeout   time.Duration
	UserAgent string

	LayoutName string // A registered layout or schema.AutoLayout
	Layouts    schema.LayoutRegistry

	DataDir  string
	AuditDir string // Empty disables raw audit copies

	StoreBackend   schema.StoreBackend
	StoreDBConnect string // Please use env var as this is plaintext

	Output     schema.OutputMode
	OutputFile string
	Precision  int
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool

	Regions    []schema.Region // Empty keeps every region
	StartTime  time.Time       // Zero means unbounded
	EndTime    time.Time       // Zero means unbounded
	MinCount   int
	Points     int
	Extend     float64
	TotalLabel schema.Region

	LogLevel zerolog.Level
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	URL            string `mapstructure:"url"`
	Timeout        string `mapstructure:"timeout"`
	UserAgent      string `mapstructure:"user-agent"`
	Layout         string `mapstructure:"layout"`
	DataDir        string `mapstructure:"data-dir"`
	AuditDir       string `mapstructure:"audit-dir"`
	StoreBackend   string `mapstructure:"store-backend"`
	StoreDBConnect string `mapstructure:"store-db-connect"`
	Output         string `mapstructure:"output"`
	OutputFile     string `mapstructure:"output-file"`
	Precision      int    `mapstructure:"precision"`
	Width          int    `mapstructure:"width"`
	Color          string `mapstructure:"color"`
	LogLevel       string `mapstructure:"log-level"`

	// --- Fields shared by series, trend and plot ---
	Region     string  `mapstructure:"region"`
	Start      string  `mapstructure:"start"`
	End        string  `mapstructure:"end"`
	MinCount   int     `mapstructure:"min-count"`
	Points     int     `mapstructure:"points"`
	Extend     float64 `mapstructure:"extend"`
	TotalLabel string  `mapstructure:"total-label"`

	// --- Custom layouts from config file ---
	Layouts []schema.Layout `mapstructure:"layouts"`
}

// DefaultConfig returns a validated config built from the flag defaults.
func DefaultConfig() *Config {
	reg, _ := schema.NewLayoutRegistry()
	return &Config{
		SourceURL:    schema.DefaultSourceURL,
		Timeout:      DefaultTimeout,
		UserAgent:    DefaultUserAgent,
		LayoutName:   schema.DefaultLayoutName,
		Layouts:      reg,
		DataDir:      DefaultDataDir,
		StoreBackend: schema.FileBackend,
		Output:       schema.TextOut,
		Precision:    DefaultPrecision,
		UseColors:    true,
		MinCount:     schema.DefaultMinCount,
		Points:       schema.DefaultPoints,
		Extend:       schema.DefaultExtend,
		TotalLabel:   schema.DefaultTotalLabel,
		LogLevel:     zerolog.InfoLevel,
	}
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Regions != nil {
		clone.Regions = slices.Clone(c.Regions)
	}
	if c.Layouts != nil {
		clone.Layouts = make(schema.LayoutRegistry, len(c.Layouts))
		for name, l := range c.Layouts {
			clone.Layouts[name] = l
		}
	}
	return &clone
}

// InWindow reports whether ts lies inside the configured start/end window.
func (c *Config) InWindow(ts time.Time) bool {
	if !c.StartTime.IsZero() && ts.Before(c.StartTime) {
		return false
	}
	if !c.EndTime.IsZero() && ts.After(c.EndTime) {
		return false
	}
	return true
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processSource(cfg, input); err != nil {
		return err
	}
	if err := processLayouts(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processTimeRange(cfg, input, time.Now()); err != nil {
		return err
	}
	if err := processSeriesInputs(cfg, input); err != nil {
		return err
	}
	return nil
}

// validateSimpleInputs processes and validates the output related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.AuditDir = strings.TrimSpace(input.AuditDir)

	if input.Width < 0 {
		return fmt.Errorf("width cannot be negative (received %d)", input.Width)
	}
	cfg.Width = input.Width

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Precision < 1 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 1 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}

	level := zerolog.InfoLevel
	if input.LogLevel != "" {
		level, err = zerolog.ParseLevel(strings.ToLower(input.LogLevel))
		if err != nil {
			return fmt.Errorf("invalid log level '%s': %w", input.LogLevel, err)
		}
	}
	cfg.LogLevel = level

	return nil
}

// processSource validates the fetch settings.
func processSource(cfg *Config, input *ConfigRawInput) error {
	raw := strings.TrimSpace(input.URL)
	if raw == "" {
		raw = schema.DefaultSourceURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url '%s': %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url '%s'. scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url '%s'. host is missing", raw)
	}
	cfg.SourceURL = raw

	cfg.Timeout = DefaultTimeout
	if input.Timeout != "" {
		timeout, err := time.ParseDuration(input.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout '%s': %w", input.Timeout, err)
		}
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive (received %s)", input.Timeout)
		}
		cfg.Timeout = timeout
	}

	cfg.UserAgent = strings.TrimSpace(input.UserAgent)
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return nil
}

// processLayouts builds the layout registry and resolves the pinned layout.
func processLayouts(cfg *Config, input *ConfigRawInput) error {
	reg, err := schema.NewLayoutRegistry(input.Layouts...)
	if err != nil {
		return fmt.Errorf("invalid layouts: %w", err)
	}
	cfg.Layouts = reg

	name := schema.NormalizeLayoutName(input.Layout)
	if name == "" {
		name = schema.DefaultLayoutName
	}
	if name != schema.AutoLayout {
		if _, err := reg.Lookup(name); err != nil {
			return err
		}
	}
	cfg.LayoutName = name
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.StoreBackend, connStr string) error {
	switch backend {
	case schema.FileBackend, schema.SQLiteBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("store-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("store-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates the snapshot store configuration.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	backend := strings.ToLower(strings.TrimSpace(input.StoreBackend))
	if backend == "" {
		backend = string(schema.FileBackend)
	}
	cfg.StoreBackend = schema.StoreBackend(backend)
	if _, ok := schema.ValidStoreBackends[cfg.StoreBackend]; !ok {
		return fmt.Errorf("invalid store backend '%s'. must be file, sqlite, mysql, postgresql", input.StoreBackend)
	}
	cfg.StoreDBConnect = input.StoreDBConnect
	if err := ValidateDatabaseConnectionString(cfg.StoreBackend, cfg.StoreDBConnect); err != nil {
		return err
	}

	cfg.DataDir = strings.TrimSpace(input.DataDir)
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}
	return nil
}

// processTimeRange parses the optional series window. Both ends accept an
// absolute date or an "N [units] ago" expression relative to now.
func processTimeRange(cfg *Config, input *ConfigRawInput, now time.Time) error {
	cfg.StartTime = time.Time{}
	cfg.EndTime = time.Time{}

	if input.Start != "" {
		t, err := parseWindowTime(input.Start, now)
		if err != nil {
			return fmt.Errorf("invalid start date format for '%s'. Expected %s, %s or 'N [units] ago'", input.Start, DateFormat, DateTimeFormat)
		}
		cfg.StartTime = t
	}
	if input.End != "" {
		t, err := parseWindowTime(input.End, now)
		if err != nil {
			return fmt.Errorf("invalid end date format for '%s'. Expected %s, %s or 'N [units] ago'", input.End, DateFormat, DateTimeFormat)
		}
		cfg.EndTime = t
	}

	if !cfg.StartTime.IsZero() && !cfg.EndTime.IsZero() && cfg.StartTime.After(cfg.EndTime) {
		return fmt.Errorf("start time (%s) cannot be after end time (%s)", cfg.StartTime.Format(DateTimeFormat), cfg.EndTime.Format(DateTimeFormat))
	}
	return nil
}

// ApplyTimeRange parses start and end the way --start and --end are parsed
// and replaces the window of cfg.
func ApplyTimeRange(cfg *Config, start, end string) error {
	return processTimeRange(cfg, &ConfigRawInput{Start: start, End: end}, time.Now())
}

func parseWindowTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateTimeFormat, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(DateFormat, s); err == nil {
		return t, nil
	}
	return ParseRelativeTime(s, now)
}

// processSeriesInputs validates the aggregation and fit parameters.
func processSeriesInputs(cfg *Config, input *ConfigRawInput) error {
	regions, err := ParseRegions(input.Region)
	if err != nil {
		return fmt.Errorf("invalid --region value: %w", err)
	}
	cfg.Regions = regions

	if input.MinCount < 0 {
		return fmt.Errorf("min-count cannot be negative (received %d)", input.MinCount)
	}
	cfg.MinCount = input.MinCount

	if input.Points < 0 || input.Points > MaxPoints {
		return fmt.Errorf("points must be between 0 and %d (received %d)", MaxPoints, input.Points)
	}
	cfg.Points = input.Points

	if input.Extend < 0 || input.Extend > MaxExtend {
		return fmt.Errorf("extend must be between 0 and %.0f (received %g)", MaxExtend, input.Extend)
	}
	cfg.Extend = input.Extend

	label := input.TotalLabel
	if strings.TrimSpace(label) == "" {
		label = schema.DefaultTotalLabel
	}
	total, err := schema.NewRegion(label)
	if err != nil {
		return fmt.Errorf("invalid total label: %w", err)
	}
	cfg.TotalLabel = total
	return nil
}

// ParseRegions splits a comma separated region list and normalizes every entry.
func ParseRegions(s string) ([]schema.Region, error) {
	var out []schema.Region
	for part := range strings.SplitSeq(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		r, err := schema.NewRegion(part)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}
