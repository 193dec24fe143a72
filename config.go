package main

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

const defaultFetchTimeout = 15 * time.Second

// Config is the runtime configuration of crsw.
type Config struct {
	Listen       string
	GCPProject   string
	GCPRegion    string
	GeminiModel  string
	FetchTimeout time.Duration
	Labels       Labels
}

// hclConfigFile is the layout of a crsw.hcl file. Every block is optional.
type hclConfigFile struct {
	Server *struct {
		Listen string `hcl:"listen,optional"`
	} `hcl:"server,block"`
	Gemini *struct {
		Project string `hcl:"project,optional"`
		Region  string `hcl:"region,optional"`
		Model   string `hcl:"model,optional"`
	} `hcl:"gemini,block"`
	Fetch *struct {
		TimeoutSeconds int `hcl:"timeout_seconds,optional"`
	} `hcl:"fetch,block"`
	Labels *Labels `hcl:"labels,block"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Listen:       ":8080",
		GCPRegion:    defaultRegion,
		GeminiModel:  defaultModel,
		FetchTimeout: defaultFetchTimeout,
		Labels:       DefaultLabels(),
	}
}

// LoadConfig reads path (if not empty) on top of the defaults, then applies
// the PORT, GCP_PROJECT_ID and GCP_REGION environment variables.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		src, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if cfg, err = ParseConfig(src, path); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

// ParseConfig decodes HCL source on top of the defaults.
func ParseConfig(src []byte, filename string) (Config, error) {
	cfg := DefaultConfig()

	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return cfg, fmt.Errorf("failed to parse config %s: %w", filename, diags)
	}
	var file hclConfigFile
	if diags := gohcl.DecodeBody(f.Body, nil, &file); diags.HasErrors() {
		return cfg, fmt.Errorf("failed to decode config %s: %w", filename, diags)
	}

	if file.Server != nil && file.Server.Listen != "" {
		cfg.Listen = file.Server.Listen
	}
	if g := file.Gemini; g != nil {
		cfg.GCPProject = g.Project
		if g.Region != "" {
			cfg.GCPRegion = g.Region
		}
		if g.Model != "" {
			cfg.GeminiModel = g.Model
		}
	}
	if file.Fetch != nil {
		if file.Fetch.TimeoutSeconds < 0 {
			return cfg, fmt.Errorf("config %s: %w", filename, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Invalid fetch timeout",
				Detail:   "timeout_seconds must not be negative.",
			}})
		}
		if file.Fetch.TimeoutSeconds > 0 {
			cfg.FetchTimeout = time.Duration(file.Fetch.TimeoutSeconds) * time.Second
		}
	}
	if file.Labels != nil {
		cfg.Labels = file.Labels.withDefaults()
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if port := getenv("PORT"); port != "" {
		c.Listen = ":" + port
	}
	if p := getenv("GCP_PROJECT_ID"); p != "" {
		c.GCPProject = p
	}
	if r := getenv("GCP_REGION"); r != "" {
		c.GCPRegion = r
	}
}
