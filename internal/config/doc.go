// Package config defines schemacrawl's configuration and how it is layered:
// defaults, then the YAML file (.schemacrawl), then environment variables,
// then command line flags. It also resolves per-site settings such as
// cookies, headers and path patterns.
package config
