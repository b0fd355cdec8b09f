package commands

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/IamJasonBian/allocation-crawler-service/internal/config"
	"github.com/IamJasonBian/allocation-crawler-service/pkg/tracker"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "appcoord",
	Short: "Appcoord - job-application coordination engine",
	Long: `Appcoord tracks job postings discovered from external job boards and
coordinates automated application agents that apply to them.

State lives in a shared Redis store: boards, jobs, and runs are hashes with
denormalized index sets, and a per-job apply lock guarantees no two agents
apply to the same job concurrently.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	// Silence Cobra's default error and usage printing
	// printer.Error() already prints formatted errors to stderr
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to appcoord.yml")
}

// newTrackerClient loads the config file and opens a tracker client against
// the configured Redis server. The caller must Close() the client.
func newTrackerClient() (*tracker.Client, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	client, err := tracker.NewClient(&redis.Options{Addr: cfg.RedisAddr}, tracker.Config{
		Namespace: cfg.Namespace,
		LockTTL:   cfg.LockTTL(),
		Classify:  cfg.Rules().Tags,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracker client: %w", err)
	}
	return client, cfg, nil
}
