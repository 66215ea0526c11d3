package config

import (
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "schemacrawl"

	// DefaultMaxPages is the maximum number of fetch attempts per site.
	DefaultMaxPages = 100

	// DefaultMaxDepth is the maximum number of link hops from the seed.
	DefaultMaxDepth = 3

	// DefaultDelay is the pause between requests to the same site.
	DefaultDelay = 1 * time.Second

	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies the crawler in HTTP requests so that site
	// operators can recognize its traffic.
	DefaultUserAgent = "schemacrawl/1.0 (+https://github.com/nao1215/schemacrawl)"

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultOutputDir is where annotations are written.
	DefaultOutputDir = "./schemas"

	// DefaultBatchSize is the number of sites crawled concurrently.
	DefaultBatchSize = 5

	// DefaultAIProvider enables AI generation when an API key is available.
	DefaultAIProvider = AIProviderOpenAI

	// DefaultAIModel is the chat model used to generate annotations.
	DefaultAIModel = "gpt-4o-mini"

	// DefaultAIRequestsPerMinute caps calls to the AI provider.
	DefaultAIRequestsPerMinute = 60

	// DefaultAIMaxContentBytes limits how much page text is sent to the model.
	DefaultAIMaxContentBytes = 16 * 1024

	// DefaultVocabularyURL is the schema.org vocabulary in JSON-LD.
	DefaultVocabularyURL = "https://schema.org/version/latest/schemaorg-current-https.jsonld"
)

// Output formats for stored annotations.
const (
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

// AI providers.
const (
	// AIProviderOpenAI uses an OpenAI compatible chat completion API.
	AIProviderOpenAI = "openai"

	// AIProviderNone disables AI generation; only embedded annotations are used.
	AIProviderNone = "none"
)

// Config holds all configuration options for schemacrawl.
// It is built from defaults, then the config file, then the environment,
// then CLI flags, and passed through the application explicitly.
//
// The struct is flat. The file format has sections, and ApplyFile maps
// them onto these fields.
type Config struct {
	// Targets are the seed URLs to crawl. Each seed is an independent crawl.
	Targets []string

	// MaxPages is the maximum number of fetch attempts per site, failures included.
	MaxPages int

	// MaxDepth is the maximum number of link hops from the seed.
	// 0 means only the seed page.
	MaxDepth int

	// Delay is the minimum time between the end of one request and the start
	// of the next against the same site.
	Delay time.Duration

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// UserAgent is sent with every crawl request.
	UserAgent string

	// FollowRedirects makes the crawler follow HTTP redirects.
	FollowRedirects bool

	// RespectRobotsTxt makes the crawler honor robots.txt.
	RespectRobotsTxt bool

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// Proxy is an optional SOCKS5 proxy address in host:port form.
	Proxy string

	// OutputDir is the root directory for stored annotations.
	OutputDir string

	// OutputFormat is the file format of stored annotations: json or yaml.
	OutputFormat string

	// ValidOnly stores only annotations that pass validation.
	ValidOnly bool

	// BatchSize is the number of sites crawled concurrently.
	BatchSize int

	// AIProvider selects the annotation generator used when a page has no
	// embedded JSON-LD: "openai" or "none".
	AIProvider string

	// AIModel is the model name passed to the provider.
	AIModel string

	// AIBaseURL overrides the provider endpoint, e.g. for a local
	// OpenAI compatible server. Empty uses the provider default.
	AIBaseURL string

	// OpenAIAPIKey authenticates AI requests. It is only read from the
	// environment or the OS keyring, never from the config file.
	OpenAIAPIKey string

	// AIRequestsPerMinute caps calls to the AI provider.
	AIRequestsPerMinute int

	// AIMaxContentBytes limits how much page text is sent to the model.
	AIMaxContentBytes int

	// VocabularyURL is where the schema.org vocabulary is downloaded from.
	VocabularyURL string

	// VocabularyCacheFile is the local copy of the vocabulary.
	VocabularyCacheFile string

	// DBDir is the directory of the crawl history database.
	DBDir string

	// SaveToDB records crawl runs in the history database.
	SaveToDB bool

	// Verbose enables debug logging.
	Verbose bool

	// JSONReport prints the crawl summary as JSON.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints the crawl summary as Markdown.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the summary to a file instead of stdout.
	ReportFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, .schemacrawl is searched in the current and home directories.
	ConfigFilePath string

	// SiteConfigs holds per-site settings loaded from the config file.
	SiteConfigs *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxPages:            DefaultMaxPages,
		MaxDepth:            DefaultMaxDepth,
		Delay:               DefaultDelay,
		Timeout:             DefaultTimeout,
		UserAgent:           DefaultUserAgent,
		FollowRedirects:     true,
		RespectRobotsTxt:    true,
		MaxBodySize:         DefaultMaxBodySize,
		OutputDir:           DefaultOutputDir,
		OutputFormat:        OutputFormatJSON,
		BatchSize:           DefaultBatchSize,
		AIProvider:          DefaultAIProvider,
		AIModel:             DefaultAIModel,
		AIRequestsPerMinute: DefaultAIRequestsPerMinute,
		AIMaxContentBytes:   DefaultAIMaxContentBytes,
		VocabularyURL:       DefaultVocabularyURL,
		VocabularyCacheFile: filepath.Join(XDGCacheDir(), "schemaorg-current-https.jsonld"),
		DBDir:               XDGDataDir(),
		SaveToDB:            true,
	}
}

// XDGDataDir returns the XDG data directory for schemacrawl.
// On Linux: ~/.local/share/schemacrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for schemacrawl.
// On Linux: ~/.config/schemacrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for schemacrawl.
// On Linux: ~/.cache/schemacrawl
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// AIEnabled reports whether AI generation can be used.
func (c *Config) AIEnabled() bool {
	return c.AIProvider == AIProviderOpenAI && c.OpenAIAPIKey != ""
}

// Validate checks if the configuration is valid.
// It returns the first error found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if !slices.Contains([]string{OutputFormatJSON, OutputFormatYAML}, c.OutputFormat) {
		return ErrInvalidOutputFormat
	}
	if !slices.Contains([]string{AIProviderOpenAI, AIProviderNone}, c.AIProvider) {
		return ErrInvalidAIProvider
	}
	if c.AIRequestsPerMinute <= 0 {
		return ErrInvalidAIRate
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
