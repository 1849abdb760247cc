package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/imagebuilder/pkg/model"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <job_id>",
		Short: "Check the status of a render job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/jobs/" + args[0])
			if err != nil {
				return fmt.Errorf("get job: %w", err)
			}

			var job model.Job
			if err := json.Unmarshal(resp.Data, &job); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job: %s\n", job.ID)
			fmt.Fprintf(out, "  Name:        %s\n", job.Name)
			fmt.Fprintf(out, "  State:       %s\n", job.State)
			if job.Rootless {
				fmt.Fprintf(out, "  Scene:       none\n")
			}
			fmt.Fprintf(out, "  Steps:       %d\n", job.Steps)
			fmt.Fprintf(out, "  Preemptions: %d\n", job.Preemptions)
			if job.ImageSize > 0 {
				fmt.Fprintf(out, "  Image:       %s\n", humanize.Bytes(uint64(job.ImageSize)))
			}
			if job.Location != "" {
				fmt.Fprintf(out, "  Location:    %s\n", job.Location)
			}
			fmt.Fprintf(out, "  Created:     %s\n", job.CreatedAt.Format(time.RFC3339))
			if job.CompletedAt != nil {
				fmt.Fprintf(out, "  Completed:   %s (%s)\n", job.CompletedAt.Format(time.RFC3339),
					humanize.RelTime(job.CreatedAt, *job.CompletedAt, "after submit", "before submit"))
			}
			return nil
		},
	}
}
