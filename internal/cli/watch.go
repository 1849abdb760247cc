package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/imagebuilder/pkg/model"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <job_id>",
		Short: "Follow a render job until it completes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Stream("/api/v1/sse/jobs/" + args[0])
			if err != nil {
				return fmt.Errorf("watch job: %w", err)
			}
			defer resp.Body.Close()
			return followEvents(resp.Body, cmd.OutOrStdout())
		},
	}
}

// followEvents prints one line per server-sent job event and returns once
// the stream carries a "complete" event or ends.
func followEvents(r io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)

	var event string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			var job model.Job
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &job); err != nil {
				return fmt.Errorf("parse %s event: %w", event, err)
			}
			fmt.Fprintf(out, "%-8s  %-10s  steps=%d  preemptions=%d\n", event, job.State, job.Steps, job.Preemptions)
			if event == "complete" {
				return nil
			}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	return nil
}
