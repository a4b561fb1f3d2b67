package commands

import (
	"github.com/spf13/cobra"

	"github.com/nonibytes/esextract/esextract"
	"github.com/nonibytes/esextract/esextract/flatten"
	"github.com/nonibytes/esextract/internal/cliopt"
	"github.com/nonibytes/esextract/internal/cliutil"
)

type schemaColumn struct {
	Name    string `json:"name" yaml:"name"`
	Default any    `json:"default" yaml:"default"`
}

type schemaOut struct {
	Index    string         `json:"index" yaml:"index"`
	NameCase string         `json:"nameCase" yaml:"nameCase"`
	Columns  []schemaColumn `json:"columns" yaml:"columns"`
}

func NewSchemaCmd(env *cliopt.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the output columns of the job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, job, err := loadJob(env)
			if err != nil {
				return err
			}
			flat, err := job.Task.Table.Flattener()
			if err != nil {
				return err
			}
			out := schemaOut{Index: job.Task.Index, NameCase: string(job.Task.Table.NameCase)}
			if out.NameCase == "" {
				out.NameCase = string(flatten.CaseNormal)
			}
			seed := flat.Seed()
			for _, name := range flat.OutputNames() {
				if name == job.Task.Table.DeleteFilterKey {
					continue
				}
				v, _ := seed.Get(name)
				out.Columns = append(out.Columns, schemaColumn{Name: name, Default: v.Interface()})
			}
			if job.Task.ContainsID {
				out.Columns = append(out.Columns, schemaColumn{Name: esextract.IDColumn})
			}
			return cliutil.Print(env.Out, env.G.Format, out)
		},
	}
}
