package config

const (
	defaultDataDir = "~/.local/share/hpm"
	defaultLogDir  = "~/.local/share/hpm/logs"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultAudioFormat            = "mp3"
	defaultAudioQuality           = "128K"
	defaultRateLimitSeconds       = 5
	defaultMaxMeetingsPerRun      = 20
	defaultMaxResultsPerSource    = 50
	defaultLookbackDays           = 90
	defaultDownloadTimeoutSeconds = 600

	defaultDeepgramBaseURL        = "https://api.deepgram.com/v1/listen"
	defaultDeepgramModel          = "nova-2"
	defaultDeepgramTimeoutSeconds = 600

	defaultAnthropicBaseURL        = "https://api.anthropic.com/v1/messages"
	defaultAnthropicModel          = "claude-sonnet-4-20250514"
	defaultAnthropicMaxTokens      = 8192
	defaultMaxTranscriptChars      = 50000
	defaultAnthropicTimeoutSeconds = 120

	defaultLegistarBaseURL         = "https://webapi.legistar.com/v1"
	defaultLegistarPageSize        = 1000
	defaultLegistarRateLimitMillis = 250
)

func defaultMeetingTitleKeywords() []string {
	return []string{
		"city council",
		"council meeting",
		"planning board",
		"planning commission",
		"zoning",
		"board of adjustment",
		"housing authority",
		"urban renewal",
		"community development",
		"land use",
	}
}

func defaultHousingKeywords() []string {
	return []string{
		"housing",
		"affordable housing",
		"zoning",
		"rezoning",
		"development",
		"density",
		"apartments",
		"multifamily",
		"adu",
		"accessory dwelling",
		"homeless",
		"rent",
		"landlord",
		"tenant",
		"eviction",
		"subdivision",
		"planned unit development",
		"inclusionary",
		"land use",
		"variance",
		"permit",
		"construction",
	}
}

func defaultJurisdictions() map[string]Jurisdiction {
	return map[string]Jurisdiction{
		"Denver": {
			YouTubeURL:     "https://www.youtube.com/@Denver8TV/videos",
			GranicusSite:   "denver.granicus.com",
			LegistarClient: "denver",
			MeetingBodies:  []string{"City Council", "Planning Board", "Land Use, Transportation & Infrastructure Committee"},
		},
		"Aurora": {
			GranicusSite:  "auroracity.granicus.com",
			MeetingBodies: []string{"City Council", "Planning Commission"},
		},
		"Lakewood": {
			GranicusSite:  "lakewoodco.granicus.com",
			MeetingBodies: []string{"City Council", "Planning Commission"},
		},
		"Boulder": {
			YouTubeURL:    "https://www.youtube.com/@bouldercolorado/videos",
			MeetingBodies: []string{"City Council", "Planning Board"},
		},
	}
}

// Default returns the baseline configuration applied before any file values.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Processing: Processing{
			AudioFormat:            defaultAudioFormat,
			AudioQuality:           defaultAudioQuality,
			RateLimitSeconds:       defaultRateLimitSeconds,
			MaxMeetingsPerRun:      defaultMaxMeetingsPerRun,
			MaxResultsPerSource:    defaultMaxResultsPerSource,
			LookbackDays:           defaultLookbackDays,
			DownloadTimeoutSeconds: defaultDownloadTimeoutSeconds,
		},
		Deepgram: Deepgram{
			BaseURL:        defaultDeepgramBaseURL,
			Model:          defaultDeepgramModel,
			TimeoutSeconds: defaultDeepgramTimeoutSeconds,
		},
		Anthropic: Anthropic{
			BaseURL:            defaultAnthropicBaseURL,
			Model:              defaultAnthropicModel,
			MaxTokens:          defaultAnthropicMaxTokens,
			MaxTranscriptChars: defaultMaxTranscriptChars,
			TimeoutSeconds:     defaultAnthropicTimeoutSeconds,
		},
		Legistar: Legistar{
			BaseURL:         defaultLegistarBaseURL,
			PageSize:        defaultLegistarPageSize,
			RateLimitMillis: defaultLegistarRateLimitMillis,
		},
		Keywords: Keywords{
			MeetingTitles: defaultMeetingTitleKeywords(),
			Housing:       defaultHousingKeywords(),
		},
		Jurisdictions: defaultJurisdictions(),
	}
}
