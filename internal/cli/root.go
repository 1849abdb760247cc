package cli

import (
	"log/slog"
	"os"

	"github.com/me/imagebuilder/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagServer    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking IMAGEBUILDER_SERVER first.
func defaultServer() string {
	if s := os.Getenv("IMAGEBUILDER_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// NewRootCmd creates the root cobra command for the imagebuilder CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "imagebuilder",
		Short: "Render scenes to PNG images in deadline-bounded slices",
		Long: "imagebuilder renders scene descriptions to PNG images, either in-process " +
			"or by submitting them to an imagebuilder server.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)
			client = NewClient(flagServer, logger)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "Server URL (or IMAGEBUILDER_SERVER env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRenderCmd(),
		newSubmitCmd(),
		newStatusCmd(),
		newListCmd(),
		newWatchCmd(),
		newFetchCmd(),
	)

	return root
}
