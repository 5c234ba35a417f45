// internal/cli/root.go
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sizieks/parsers/internal/app"
	"github.com/sizieks/parsers/internal/config"
	"github.com/sizieks/parsers/internal/ui"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "parsers",
	Short:   "Extraction pipelines for dynamically rendered marketplace pages",
	Long:    `Parsers runs handler pipelines against live or saved pages, materializing lazily loaded content and planning the follow-up fetches the data implies.`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.Error("error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("json", false, "Emit logs as JSON")
	rootCmd.PersistentFlags().String("proxy", "", "Proxy server for browser traffic")
	rootCmd.PersistentFlags().String("queue", "", "Path to the local continuation queue")
	rootCmd.PersistentFlags().String("timeout", "", "Navigation and materialization timeout (e.g. 45s)")
	rootCmd.PersistentFlags().Bool("headful", false, "Run the browser with a visible window")

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Lazily initialize the application before running commands (avoid starting app for -h/help)
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if GetApp() != nil {
			return nil
		}

		cfg, err := config.Load(cmd.Root())
		if err != nil {
			return err
		}

		appCtx, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		SetApp(cmd, appCtx)
		return nil
	}

	// Ensure app is closed after command runs
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		appCtx := GetApp()
		if appCtx == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), appCtx.Config.NavigationTimeout)
		defer cancel()
		if err := appCtx.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("Shutdown error")
		}
		SetApp(cmd, nil)
	}
}

// printKV renders an aligned, dimmed key/value block.
func printKV(pairs [][2]string) {
	width := 0
	for _, p := range pairs {
		if len(p[0]) > width {
			width = len(p[0])
		}
	}
	for _, p := range pairs {
		padding := strings.Repeat(" ", width-len(p[0])+2)
		fmt.Printf("  %s%s%s%s%s\n", ui.ColorCyan, p[0], ui.ColorReset, padding, p[1])
	}
}
