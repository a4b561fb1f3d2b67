package commands

import (
	"github.com/spf13/cobra"

	"github.com/nonibytes/esextract/esextract"
	"github.com/nonibytes/esextract/internal/cliopt"
	"github.com/nonibytes/esextract/internal/cliutil"
)

type checkResult struct {
	Index   string `json:"index" yaml:"index"`
	Tasks   int    `json:"tasks" yaml:"tasks"`
	Columns int    `json:"columns" yaml:"columns"`
	Filter  string `json:"filter" yaml:"filter"`
	Exists  *bool  `json:"exists,omitempty" yaml:"exists,omitempty"`
}

func NewCheckCmd(env *cliopt.Env) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the job file and check that the index exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, job, err := loadJob(env)
			if err != nil {
				return err
			}
			names, err := job.Task.OutputNames()
			if err != nil {
				return err
			}
			res := checkResult{
				Index:   job.Task.Index,
				Tasks:   len(job.Split()),
				Columns: len(names),
				Filter:  "ok",
			}
			if job.Task.Table.Filter == "" {
				res.Filter = "none"
			}
			if err := job.Task.CheckFilter(); err != nil {
				if !esextract.IsKind(err, esextract.ErrFilter) {
					return err
				}
				res.Filter = err.Error()
			}
			if !offline {
				if err := esextract.CheckIndex(cmd.Context(), connector(env, f), job.Task.Index); err != nil {
					return err
				}
				ok := true
				res.Exists = &ok
			}
			return cliutil.Print(env.Out, env.G.Format, res)
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "skip the index existence check")
	return cmd
}
