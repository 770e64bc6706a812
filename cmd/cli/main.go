// Command storewatch-cli talks to a running storewatch API.
//
//	storewatch-cli status
//	storewatch-cli check --api-key adm_x
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamed0406/storewatch/internal/domain"
)

type globalFlags struct {
	apiBase string
	apiKey  string
	timeout time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:          "storewatch-cli",
		Short:        "Inspect and trigger store listing checks",
		SilenceUsage: true,
	}

	defBase := os.Getenv("API_BASE")
	if defBase == "" {
		defBase = "http://localhost:3000"
	}
	root.PersistentFlags().StringVar(&flags.apiBase, "api", defBase, "API base URL (env API_BASE)")
	root.PersistentFlags().StringVar(&flags.apiKey, "api-key", os.Getenv("API_KEY"), "admin key for /check (env API_KEY)")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", 60*time.Second, "request timeout")

	root.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show the last persisted listing status",
			RunE: func(cmd *cobra.Command, args []string) error {
				return fetchStatus(cmd.OutOrStdout(), flags, "/status")
			},
		},
		&cobra.Command{
			Use:   "check",
			Short: "Run a check cycle now and show the result",
			RunE: func(cmd *cobra.Command, args []string) error {
				return fetchStatus(cmd.OutOrStdout(), flags, "/check")
			},
		},
	)
	return root
}

func fetchStatus(out io.Writer, f *globalFlags, path string) error {
	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(f.apiBase, "/")+path, nil)
	if err != nil {
		return err
	}
	if f.apiKey != "" {
		req.Header.Set("X-API-Key", f.apiKey)
	}

	resp, err := (&http.Client{Timeout: f.timeout}).Do(req)
	if err != nil {
		return fmt.Errorf("contacting API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("API returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var st domain.AppStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}
	printStatus(out, st)
	return nil
}

func printStatus(out io.Writer, st domain.AppStatus) {
	mark := func(ok bool) string {
		if ok {
			return "✔ listed"
		}
		return "✖ not listed"
	}
	fmt.Fprintf(out, "Google Play: %s\n", mark(st.GooglePlay))
	fmt.Fprintf(out, "App Store:   %s\n", mark(st.AppStore))
	if st.LastCheckedAt.IsZero() {
		fmt.Fprintln(out, "Last check:  never")
	} else {
		fmt.Fprintf(out, "Last check:  %s\n", st.LastCheckedAt.Format(time.RFC3339))
	}
	if st.LastNotifiedAt != nil {
		fmt.Fprintf(out, "Last alert:  %s\n", st.LastNotifiedAt.Format(time.RFC3339))
	}
}
