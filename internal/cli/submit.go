package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/imagebuilder/internal/scenefile"
	"github.com/me/imagebuilder/pkg/model"
)

func newSubmitCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "submit <scene-file>",
		Short: "Submit every scene in a file to the server",
		Long:  "Parses a YAML, JSON or HCL scene file and submits one render job per scene.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := scenefile.Load(args[0])
			if err != nil {
				return err
			}
			if len(specs) == 0 {
				return fmt.Errorf("%s: no scenes", args[0])
			}
			out := cmd.OutOrStdout()

			if dryRun {
				fmt.Fprintf(out, "Dry-run: %d scene(s) in %s are valid\n", len(specs), args[0])
				for _, spec := range specs {
					fmt.Fprintf(out, "  - %s\n", spec.Name)
				}
				fmt.Fprintln(out, "No jobs submitted.")
				return nil
			}

			for _, spec := range specs {
				resp, err := client.Post("/api/v1/jobs/", spec)
				if err != nil {
					return fmt.Errorf("submit %s: %w", spec.Name, err)
				}
				var job model.Job
				if err := json.Unmarshal(resp.Data, &job); err != nil {
					return fmt.Errorf("parse response: %w", err)
				}
				fmt.Fprintf(out, "Job submitted: %s (%s)\n", job.ID, job.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the scene file without submitting")
	return cmd
}
