package jobconf

import (
	"net/http"
	"strings"

	"github.com/spf13/viper"

	"github.com/nonibytes/esextract/esextract/engine/elastic"
)

// EnvPrefix is the prefix of environment overrides, e.g. ESX_PASSWORD.
const EnvPrefix = "ESX"

// Connection keys understood by Resolve. Flags bound to the same keys take
// precedence over the environment, which takes precedence over the file.
const (
	KeyEndpoints = "endpoints"
	KeyUsername  = "username"
	KeyPassword  = "password"
	KeyAPIKey    = "api_key"
	KeyCloudID   = "cloud_id"
)

// NewViper returns a viper instance reading ESX_* variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Resolve merges the file's connection section with v and returns the
// client configuration.
func (c Connection) Resolve(v *viper.Viper) elastic.Config {
	v.SetDefault(KeyEndpoints, c.Endpoints)
	v.SetDefault(KeyUsername, c.Username)
	v.SetDefault(KeyPassword, c.Password)
	v.SetDefault(KeyAPIKey, c.APIKey)
	v.SetDefault(KeyCloudID, c.CloudID)

	cfg := elastic.Config{
		Addresses: splitList(v.GetStringSlice(KeyEndpoints)),
		Username:  v.GetString(KeyUsername),
		Password:  v.GetString(KeyPassword),
		APIKey:    v.GetString(KeyAPIKey),
		CloudID:   v.GetString(KeyCloudID),
	}
	if len(c.Headers) > 0 {
		cfg.Header = http.Header{}
		for k, val := range c.Headers {
			cfg.Header.Set(k, val)
		}
	}
	return cfg
}

// splitList also splits comma-separated entries, the usual shape of an
// environment variable.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
