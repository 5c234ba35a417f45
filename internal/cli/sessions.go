// internal/cli/sessions.go
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sizieks/parsers/internal/auth"
	"github.com/sizieks/parsers/internal/ui"
	urlutil "github.com/sizieks/parsers/internal/utils/url"
)

var (
	captureURL          string
	captureWaitSelector string
	captureTimeout      time.Duration
	importFile          string
)

// sessionsCmd represents the sessions command
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved cookie sets",
	Long: `List, capture, import and delete saved cookie sets.

Cookie sets are stored securely in your OS keyring (with a file fallback
for CI and containers) and are injected into the browser before a unit
of work navigates.`,
	Example: `  # List all saved cookie sets
  parsers sessions list

  # Log in manually in a visible browser and capture the cookies
  parsers sessions capture seller --url=https://seller.ozon.ru

  # Import cookies exported from the browser's DevTools
  parsers sessions import seller --file=cookies.json

  # Delete a cookie set
  parsers sessions delete seller`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved cookie sets",
	RunE:  runSessionsList,
}

var sessionsCaptureCmd = &cobra.Command{
	Use:   "capture <name>",
	Short: "Capture cookies after a manual login in a visible browser",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsCapture,
}

var sessionsImportCmd = &cobra.Command{
	Use:   "import <name>",
	Short: "Import a DevTools-style cookie JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsImport,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved cookie set",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsCaptureCmd)
	sessionsCmd.AddCommand(sessionsImportCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)

	sessionsCaptureCmd.Flags().StringVar(&captureURL, "url", "", "Login page to open (required)")
	sessionsCaptureCmd.Flags().StringVar(&captureWaitSelector, "wait-for", "", "CSS selector that appears once login completes")
	sessionsCaptureCmd.Flags().DurationVar(&captureTimeout, "timeout", 5*time.Minute, "Give up after this long")
	sessionsCaptureCmd.MarkFlagRequired("url")

	sessionsImportCmd.Flags().StringVar(&importFile, "file", "", "Path to the cookie JSON file (required)")
	sessionsImportCmd.MarkFlagRequired("file")
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	sessions, err := auth.ListSessions()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("\nNo saved cookie sets found.")
		fmt.Println("\nCreate one with:")
		fmt.Println("  parsers sessions capture <name> --url=<login-url>")
		fmt.Println()
		return nil
	}

	fmt.Printf("\n%s (%d)\n\n", ui.Bold("Saved cookie sets"), len(sessions))
	for _, name := range sessions {
		session, err := auth.LoadSession(name)
		if err != nil {
			fmt.Printf("  %s  %s\n\n", name, ui.Error(err.Error()))
			continue
		}

		pairs := [][2]string{
			{name, fmt.Sprintf("%d cookie(s)", len(session.Cookies))},
			{"created", session.CreatedAt.Format(time.RFC1123)},
		}
		if session.URL != "" {
			pairs = append(pairs, [2]string{"url", session.URL})
		}
		if !session.ExpiresAt.IsZero() {
			if time.Now().After(session.ExpiresAt) {
				pairs = append(pairs, [2]string{"status", ui.Error("expired")})
			} else {
				pairs = append(pairs, [2]string{"expires", session.ExpiresAt.Format(time.RFC1123)})
			}
		}
		printKV(pairs)
		fmt.Println()
	}
	return nil
}

func runSessionsCapture(cmd *cobra.Command, args []string) error {
	if err := urlutil.ValidateURL(captureURL); err != nil {
		return err
	}

	session, err := auth.InteractiveCapture(auth.CaptureOptions{
		SessionName:  args[0],
		URL:          captureURL,
		WaitSelector: captureWaitSelector,
		Timeout:      captureTimeout,
		ChromePath:   GetApp().Config.ChromePath,
	})
	if err != nil {
		return fmt.Errorf("capture failed: %w", err)
	}

	if err := auth.SaveSessionWithManifest(session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Printf("\n%s Captured %d cookie(s) as '%s'.\n\n", ui.Success("✓"), len(session.Cookies), session.Name)
	return nil
}

func runSessionsImport(cmd *cobra.Command, args []string) error {
	session, err := auth.ImportFromFile(args[0], importFile)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if err := auth.SaveSessionWithManifest(session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Printf("\n%s Imported %d cookie(s) as '%s'.\n\n", ui.Success("✓"), len(session.Cookies), session.Name)
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	name := args[0]

	fmt.Printf("\nDelete cookie set '%s'? [y/N]: ", name)
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "y" && confirm != "Y" {
		fmt.Println("Cancelled.")
		return nil
	}

	if err := auth.DeleteSessionWithManifest(name); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	fmt.Printf("\n%s Cookie set '%s' deleted.\n\n", ui.Success("✓"), name)
	return nil
}
