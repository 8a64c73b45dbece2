// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: deepseek-api-key, openalex-api-key,
// semantic-scholar-api-key, contact-email, unpaywall-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/claim-engine/pkg/types"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Apply fills credential fields of cfg from loaded secrets. Values already
// set in the config (from the config file or environment) take precedence.
func Apply(cfg *types.PipelineConfig, secrets map[string]string) {
	setIfEmpty := func(dst *string, key string) {
		if *dst == "" {
			*dst = secrets[key]
		}
	}

	setIfEmpty(&cfg.Claims.APIKey, "deepseek-api-key")
	setIfEmpty(&cfg.Research.APIKey, "deepseek-api-key")
	setIfEmpty(&cfg.Sources.OpenAlexAPIKey, "openalex-api-key")
	setIfEmpty(&cfg.Sources.SemanticScholarAPIKey, "semantic-scholar-api-key")
	setIfEmpty(&cfg.Sources.ContactEmail, "contact-email")
	setIfEmpty(&cfg.Enrich.UnpaywallEmail, "unpaywall-email")

	// Unpaywall accepts any contact address; fall back to the shared one.
	if cfg.Enrich.UnpaywallEmail == "" {
		cfg.Enrich.UnpaywallEmail = cfg.Sources.ContactEmail
	}
}
