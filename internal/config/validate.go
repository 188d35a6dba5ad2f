package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for values that would make a run
// impossible or nonsensical. Error messages name the offending key so the
// operator can fix the file directly.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateProcessing(); err != nil {
		return err
	}
	if err := c.validateServices(); err != nil {
		return err
	}
	return c.validateJurisdictions()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return fmt.Errorf("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return fmt.Errorf("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateProcessing() error {
	if c.Processing.RateLimitSeconds < 0 {
		return fmt.Errorf("processing.rate_limit_seconds must not be negative, got %d", c.Processing.RateLimitSeconds)
	}
	if c.Processing.MaxMeetingsPerRun <= 0 {
		return fmt.Errorf("processing.max_meetings_per_run must be positive, got %d", c.Processing.MaxMeetingsPerRun)
	}
	if c.Processing.MaxResultsPerSource <= 0 {
		return fmt.Errorf("processing.max_results_per_source must be positive, got %d", c.Processing.MaxResultsPerSource)
	}
	if c.Processing.LookbackDays <= 0 {
		return fmt.Errorf("processing.lookback_days must be positive, got %d", c.Processing.LookbackDays)
	}
	if c.Processing.DownloadTimeoutSeconds <= 0 {
		return fmt.Errorf("processing.download_timeout_seconds must be positive, got %d", c.Processing.DownloadTimeoutSeconds)
	}
	if strings.TrimSpace(c.Processing.AudioFormat) == "" {
		return fmt.Errorf("processing.audio_format must be set")
	}
	return nil
}

func (c *Config) validateServices() error {
	if strings.TrimSpace(c.Deepgram.BaseURL) == "" {
		return fmt.Errorf("deepgram.base_url must be set")
	}
	if c.Deepgram.TimeoutSeconds <= 0 {
		return fmt.Errorf("deepgram.timeout_seconds must be positive, got %d", c.Deepgram.TimeoutSeconds)
	}
	if strings.TrimSpace(c.Anthropic.BaseURL) == "" {
		return fmt.Errorf("anthropic.base_url must be set")
	}
	if strings.TrimSpace(c.Anthropic.Model) == "" {
		return fmt.Errorf("anthropic.model must be set")
	}
	if c.Anthropic.MaxTokens <= 0 {
		return fmt.Errorf("anthropic.max_tokens must be positive, got %d", c.Anthropic.MaxTokens)
	}
	if c.Anthropic.MaxTranscriptChars <= 0 {
		return fmt.Errorf("anthropic.max_transcript_chars must be positive, got %d", c.Anthropic.MaxTranscriptChars)
	}
	if c.Anthropic.TimeoutSeconds <= 0 {
		return fmt.Errorf("anthropic.timeout_seconds must be positive, got %d", c.Anthropic.TimeoutSeconds)
	}
	if strings.TrimSpace(c.Legistar.BaseURL) == "" {
		return fmt.Errorf("legistar.base_url must be set")
	}
	if c.Legistar.PageSize <= 0 {
		return fmt.Errorf("legistar.page_size must be positive, got %d", c.Legistar.PageSize)
	}
	return nil
}

func (c *Config) validateJurisdictions() error {
	if len(c.Jurisdictions) == 0 {
		return fmt.Errorf("at least one [jurisdictions.<name>] table must be configured")
	}
	for name, j := range c.Jurisdictions {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("jurisdiction names must not be blank")
		}
		if j.YouTubeURL == "" && j.GranicusSite == "" && j.LegistarClient == "" {
			return fmt.Errorf("jurisdiction %q must configure at least one of youtube_url, granicus_site, legistar_client", name)
		}
		if j.LookbackDays < 0 {
			return fmt.Errorf("jurisdiction %q lookback_days must not be negative, got %d", name, j.LookbackDays)
		}
		if j.MaxResults < 0 {
			return fmt.Errorf("jurisdiction %q max_results must not be negative, got %d", name, j.MaxResults)
		}
	}
	return nil
}
