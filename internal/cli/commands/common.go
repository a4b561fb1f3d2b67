package commands

import (
	"errors"
	"log/slog"

	"github.com/nonibytes/esextract/esextract"
	"github.com/nonibytes/esextract/esextract/engine"
	"github.com/nonibytes/esextract/esextract/engine/elastic"
	"github.com/nonibytes/esextract/internal/cliopt"
	"github.com/nonibytes/esextract/internal/jobconf"
	"github.com/nonibytes/esextract/internal/logging"
)

func loadJob(env *cliopt.Env) (*jobconf.File, esextract.Job, error) {
	if env.G.JobFile == "" {
		return nil, esextract.Job{}, errors.New("missing --job")
	}
	f, err := jobconf.Load(env.G.JobFile)
	if err != nil {
		return nil, esextract.Job{}, err
	}
	job, err := f.Job()
	if err != nil {
		return nil, esextract.Job{}, err
	}
	return f, job, nil
}

func newLogger(env *cliopt.Env) (*slog.Logger, error) {
	return logging.New(logging.Config{
		Level:  env.Viper.GetString("log.level"),
		Format: env.Viper.GetString("log.format"),
	}, env.Err)
}

func connector(env *cliopt.Env, f *jobconf.File) engine.Connector {
	return elastic.Connector(f.Connection.Resolve(env.Viper))
}
