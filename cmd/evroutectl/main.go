// evroutectl 调试工具：直接调用 webhook 和地理编码服务并输出归一化结果
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/langchou/evroute/internal/config"
)

var (
	cfg *config.Config

	webhookURL   string
	planPath     string
	stationsPath string
	timeout      time.Duration
	rawOutput    bool
)

var rootCmd = &cobra.Command{
	Use:           "evroutectl",
	Short:         "Inspect the trip planning and station webhooks",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&webhookURL, "webhook-url", cfg.WebhookBaseURL, "webhook base URL")
	flags.StringVar(&planPath, "plan-path", cfg.WebhookPlanPath, "trip planning webhook path")
	flags.StringVar(&stationsPath, "stations-path", cfg.WebhookStationsPath, "nearby stations webhook path")
	flags.DurationVar(&timeout, "timeout", cfg.WebhookTimeout, "request timeout")
	flags.BoolVar(&rawOutput, "raw", false, "print the upstream response without normalizing it")

	rootCmd.AddCommand(planCmd, stationsCmd, geocodeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
