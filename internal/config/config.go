package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Processing contains pipeline pacing and volume settings.
type Processing struct {
	AudioFormat            string `toml:"audio_format"`
	AudioQuality           string `toml:"audio_quality"`
	RateLimitSeconds       int    `toml:"rate_limit_seconds"`
	MaxMeetingsPerRun      int    `toml:"max_meetings_per_run"`
	MaxResultsPerSource    int    `toml:"max_results_per_source"`
	LookbackDays           int    `toml:"lookback_days"`
	DownloadTimeoutSeconds int    `toml:"download_timeout_seconds"`
}

// Deepgram contains configuration for the transcription service.
type Deepgram struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Anthropic contains configuration for the analysis service.
type Anthropic struct {
	APIKey             string `toml:"api_key"`
	BaseURL            string `toml:"base_url"`
	Model              string `toml:"model"`
	MaxTokens          int    `toml:"max_tokens"`
	MaxTranscriptChars int    `toml:"max_transcript_chars"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
}

// Legistar contains connection settings for the Legistar Web API.
type Legistar struct {
	BaseURL         string `toml:"base_url"`
	PageSize        int    `toml:"page_size"`
	RateLimitMillis int    `toml:"rate_limit_millis"`
}

// Keywords contains the discovery filter and relevance scoring word lists.
type Keywords struct {
	MeetingTitles []string `toml:"meeting_titles"`
	Housing       []string `toml:"housing"`
}

// Jurisdiction describes one monitored municipality and its source sites.
// A source is enabled for the jurisdiction when its identifier is set.
type Jurisdiction struct {
	YouTubeURL     string   `toml:"youtube_url"`
	GranicusSite   string   `toml:"granicus_site"`
	LegistarClient string   `toml:"legistar_client"`
	MeetingBodies  []string `toml:"meeting_bodies"`
	LookbackDays   int      `toml:"lookback_days"`
	MaxResults     int      `toml:"max_results"`
}

// Config encapsulates all configuration values for the monitor.
type Config struct {
	Paths         Paths                   `toml:"paths"`
	Logging       Logging                 `toml:"logging"`
	Processing    Processing              `toml:"processing"`
	Deepgram      Deepgram                `toml:"deepgram"`
	Anthropic     Anthropic               `toml:"anthropic"`
	Legistar      Legistar                `toml:"legistar"`
	Keywords      Keywords                `toml:"keywords"`
	Jurisdictions map[string]Jurisdiction `toml:"jurisdictions"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/hpm/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("hpm.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	dataDir, err := expandPath(c.Paths.DataDir)
	if err != nil {
		return err
	}
	c.Paths.DataDir = dataDir

	logDir, err := expandPath(c.Paths.LogDir)
	if err != nil {
		return err
	}
	c.Paths.LogDir = logDir

	return nil
}

// EnsureDirectories creates the data layout required for a pipeline run.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.AudioDir(), c.TranscriptDir(), c.AnalysisDir(), c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the meeting collection file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "meetings.json")
}

// RunLogPath returns the location of the run-history database.
func (c *Config) RunLogPath() string {
	return filepath.Join(c.Paths.DataDir, "runs.db")
}

// AudioDir returns the directory for downloaded audio artifacts.
func (c *Config) AudioDir() string {
	return filepath.Join(c.Paths.DataDir, "audio")
}

// TranscriptDir returns the directory for transcript artifacts.
func (c *Config) TranscriptDir() string {
	return filepath.Join(c.Paths.DataDir, "transcripts")
}

// AnalysisDir returns the directory for analysis and summary artifacts.
func (c *Config) AnalysisDir() string {
	return filepath.Join(c.Paths.DataDir, "analysis")
}

// DeepgramAPIKey returns the configured key, falling back to the
// DEEPGRAM_API_KEY environment variable.
func (c *Config) DeepgramAPIKey() string {
	if key := strings.TrimSpace(c.Deepgram.APIKey); key != "" {
		return key
	}
	return strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY"))
}

// AnthropicAPIKey returns the configured key, falling back to the
// ANTHROPIC_API_KEY environment variable.
func (c *Config) AnthropicAPIKey() string {
	if key := strings.TrimSpace(c.Anthropic.APIKey); key != "" {
		return key
	}
	return strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
}

// LookbackDays returns the effective lookback window for a jurisdiction.
func (c *Config) LookbackDays(j Jurisdiction) int {
	if j.LookbackDays > 0 {
		return j.LookbackDays
	}
	return c.Processing.LookbackDays
}

// MaxResults returns the effective per-source result cap for a jurisdiction.
func (c *Config) MaxResults(j Jurisdiction) int {
	if j.MaxResults > 0 {
		return j.MaxResults
	}
	return c.Processing.MaxResultsPerSource
}

// JurisdictionNames returns the configured jurisdiction keys sorted
// alphabetically for deterministic iteration.
func (c *Config) JurisdictionNames() []string {
	names := make([]string, 0, len(c.Jurisdictions))
	for name := range c.Jurisdictions {
		names = append(names, name)
	}
	sortStrings(names)
	return names
}

func sortStrings(values []string) {
	for i := 1; i < len(values); i++ {
		for j := i; j > 0 && values[j] < values[j-1]; j-- {
			values[j], values[j-1] = values[j-1], values[j]
		}
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
