package config

import (
	"maps"
	"strings"
	"time"
)

// SiteConfig holds settings for a single host.
// This allows customizing crawl behavior per website.
type SiteConfig struct {
	// Cookie is an HTTP cookie to use when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global max depth for this site. 0 crawls only
	// the seed. If nil, the global MaxDepth is used.
	Depth *int `yaml:"depth,omitempty"`

	// MaxPages overrides the global page budget for this site.
	// If zero, the global MaxPages is used.
	MaxPages int `yaml:"maxPages,omitempty"`

	// Delay overrides the global delay for this site.
	Delay *time.Duration `yaml:"delay,omitempty"`

	// IgnorePatterns are URL path patterns to skip during crawling.
	// Patterns are matched against the URL path using glob syntax.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL path patterns to follow during crawling.
	// If specified, only URLs matching these patterns are crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// CrawlSection is the "crawl" section of the config file.
// Nil pointers mean "not set" so that explicit false and zero values win.
type CrawlSection struct {
	MaxPages         *int           `yaml:"maxPages,omitempty"`
	MaxDepth         *int           `yaml:"maxDepth,omitempty"`
	Delay            *time.Duration `yaml:"delay,omitempty"`
	Timeout          *time.Duration `yaml:"timeout,omitempty"`
	UserAgent        string         `yaml:"userAgent,omitempty"`
	FollowRedirects  *bool          `yaml:"followRedirects,omitempty"`
	RespectRobotsTxt *bool          `yaml:"respectRobotsTxt,omitempty"`
	MaxBodySize      *int64         `yaml:"maxBodySize,omitempty"`
	Proxy            string         `yaml:"proxy,omitempty"`
	BatchSize        *int           `yaml:"batchSize,omitempty"`
}

// StorageSection is the "storage" section of the config file.
type StorageSection struct {
	OutputDir string `yaml:"outputDir,omitempty"`
	Format    string `yaml:"format,omitempty"`
	ValidOnly *bool  `yaml:"validOnly,omitempty"`
	DBDir     string `yaml:"dbDir,omitempty"`
	SaveToDB  *bool  `yaml:"saveToDB,omitempty"`
}

// AISection is the "ai" section of the config file.
// API keys are deliberately absent; see Config.OpenAIAPIKey.
type AISection struct {
	Provider          string `yaml:"provider,omitempty"`
	Model             string `yaml:"model,omitempty"`
	BaseURL           string `yaml:"baseURL,omitempty"`
	RequestsPerMinute *int   `yaml:"requestsPerMinute,omitempty"`
	MaxContentBytes   *int   `yaml:"maxContentBytes,omitempty"`
}

// File represents the structure of the .schemacrawl configuration file.
type File struct {
	// Crawl holds global crawl settings.
	Crawl CrawlSection `yaml:"crawl,omitempty"`

	// Storage holds output settings.
	Storage StorageSection `yaml:"storage,omitempty"`

	// AI holds annotation generation settings.
	AI AISection `yaml:"ai,omitempty"`

	// Sites maps host names (with port, if any) to site-specific settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a host.
// It merges the site-specific configuration with defaults. Host lookup is
// case-insensitive.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if cf.Defaults.Headers != nil {
		result.Headers = maps.Clone(cf.Defaults.Headers)
	}

	siteConfig, ok := cf.Sites[host]
	if !ok {
		for name, sc := range cf.Sites {
			if strings.EqualFold(name, host) {
				siteConfig, ok = sc, true
				break
			}
		}
	}
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.Depth != nil {
		result.Depth = siteConfig.Depth
	}
	if siteConfig.MaxPages != 0 {
		result.MaxPages = siteConfig.MaxPages
	}
	if siteConfig.Delay != nil {
		result.Delay = siteConfig.Delay
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		maps.Copy(result.Headers, siteConfig.Headers)
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}

	return result
}

// ApplyFile copies the global sections of f onto c and keeps f for
// per-site lookups. Unset file values leave c unchanged.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.SiteConfigs = f

	cr := f.Crawl
	if cr.MaxPages != nil {
		c.MaxPages = *cr.MaxPages
	}
	if cr.MaxDepth != nil {
		c.MaxDepth = *cr.MaxDepth
	}
	if cr.Delay != nil {
		c.Delay = *cr.Delay
	}
	if cr.Timeout != nil {
		c.Timeout = *cr.Timeout
	}
	if cr.UserAgent != "" {
		c.UserAgent = cr.UserAgent
	}
	if cr.FollowRedirects != nil {
		c.FollowRedirects = *cr.FollowRedirects
	}
	if cr.RespectRobotsTxt != nil {
		c.RespectRobotsTxt = *cr.RespectRobotsTxt
	}
	if cr.MaxBodySize != nil {
		c.MaxBodySize = *cr.MaxBodySize
	}
	if cr.Proxy != "" {
		c.Proxy = cr.Proxy
	}
	if cr.BatchSize != nil {
		c.BatchSize = *cr.BatchSize
	}

	st := f.Storage
	if st.OutputDir != "" {
		c.OutputDir = st.OutputDir
	}
	if st.Format != "" {
		c.OutputFormat = strings.ToLower(st.Format)
	}
	if st.ValidOnly != nil {
		c.ValidOnly = *st.ValidOnly
	}
	if st.DBDir != "" {
		c.DBDir = st.DBDir
	}
	if st.SaveToDB != nil {
		c.SaveToDB = *st.SaveToDB
	}

	ai := f.AI
	if ai.Provider != "" {
		c.AIProvider = strings.ToLower(ai.Provider)
	}
	if ai.Model != "" {
		c.AIModel = ai.Model
	}
	if ai.BaseURL != "" {
		c.AIBaseURL = ai.BaseURL
	}
	if ai.RequestsPerMinute != nil {
		c.AIRequestsPerMinute = *ai.RequestsPerMinute
	}
	if ai.MaxContentBytes != nil {
		c.AIMaxContentBytes = *ai.MaxContentBytes
	}
}

// Site returns the merged site settings for host.
// Without a config file it returns the zero SiteConfig.
func (c *Config) Site(host string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	return c.SiteConfigs.GetSiteConfig(host)
}
