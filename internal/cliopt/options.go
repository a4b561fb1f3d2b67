package cliopt

import (
	"io"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nonibytes/esextract/internal/jobconf"
)

// GlobalOptions are parsed once at the CLI root and passed to subcommands.
//
// NOTE: This is a separate package to avoid import cycles between the root
// command and per-command code.
type GlobalOptions struct {
	JobFile   string
	LogLevel  string
	LogFormat string
	Format    string
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		LogLevel:  "info",
		LogFormat: "text",
		Format:    "yaml",
	}
}

func BindGlobalFlags(fs *pflag.FlagSet, g *GlobalOptions) {
	fs.StringVarP(&g.JobFile, "job", "j", g.JobFile, "job file (YAML or JSON)")
	fs.StringVar(&g.LogLevel, "log-level", g.LogLevel, "log level: debug|info|warn|error")
	fs.StringVar(&g.LogFormat, "log-format", g.LogFormat, "log format: text|json")
	fs.StringVarP(&g.Format, "format", "f", g.Format, "output format: yaml|json")
}

// BindConnectionFlags adds the connection overrides and binds them to v.
func BindConnectionFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	fs.StringSlice(jobconf.KeyEndpoints, nil, "cluster endpoints (env ESX_ENDPOINTS)")
	fs.String(jobconf.KeyUsername, "", "basic auth user (env ESX_USERNAME)")
	fs.String(jobconf.KeyPassword, "", "basic auth password (env ESX_PASSWORD)")
	fs.String("api-key", "", "API key (env ESX_API_KEY)")
	fs.String("cloud-id", "", "Elastic Cloud id (env ESX_CLOUD_ID)")
	for key, flag := range map[string]string{
		jobconf.KeyEndpoints: jobconf.KeyEndpoints,
		jobconf.KeyUsername:  jobconf.KeyUsername,
		jobconf.KeyPassword:  jobconf.KeyPassword,
		jobconf.KeyAPIKey:    "api-key",
		jobconf.KeyCloudID:   "cloud-id",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return err
		}
	}
	return nil
}

// Env is what every subcommand receives.
type Env struct {
	G     *GlobalOptions
	Viper *viper.Viper
	Out   io.Writer
	Err   io.Writer
}
