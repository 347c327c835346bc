package app

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/relayworks/jirabot/internal/auth/provider"
)

// providerFile is the optional YAML override for provider endpoints. Used for
// self-hosted test providers and staging tenants; production runs on the
// built-in Atlassian defaults.
type providerFile struct {
	Provider struct {
		AuthURL      string   `yaml:"auth_url"`
		TokenURL     string   `yaml:"token_url"`
		ResourcesURL string   `yaml:"resources_url"`
		RevokeURL    string   `yaml:"revoke_url"`
		Scopes       []string `yaml:"scopes"`
	} `yaml:"provider"`
}

// applyProviderFile overlays endpoint overrides from path onto cfg. A missing
// path is a no-op.
func applyProviderFile(cfg *provider.Config, path string) error {
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading provider file %s: %w", path, err)
	}

	var pf providerFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return fmt.Errorf("parsing provider file %s: %w", path, err)
	}

	if pf.Provider.AuthURL != "" {
		cfg.AuthURL = pf.Provider.AuthURL
	}
	if pf.Provider.TokenURL != "" {
		cfg.TokenURL = pf.Provider.TokenURL
	}
	if pf.Provider.ResourcesURL != "" {
		cfg.ResourcesURL = pf.Provider.ResourcesURL
	}
	if pf.Provider.RevokeURL != "" {
		cfg.RevokeURL = pf.Provider.RevokeURL
	}
	if len(pf.Provider.Scopes) > 0 {
		cfg.Scopes = pf.Provider.Scopes
	}
	return nil
}
