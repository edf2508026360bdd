// pawradarctl is the operator CLI for a running pawradar instance: manual
// sweeps, forced re-enqueues, queue stats, and VAPID key generation.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pawradar/pawradar/internal/push"
)

var (
	addr  string
	token string
)

func main() {
	root := &cobra.Command{
		Use:           "pawradarctl",
		Short:         "Operate a running pawradar alert engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&addr, "addr", envOr("PAWRADAR_ADDR", "http://localhost:8080"), "engine base URL")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("PAWRADAR_ADMIN_TOKEN"), "operator bearer token")

	root.AddCommand(sweepCmd(), enqueueCmd(), statsCmd(), vapidCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func sweepCmd() *cobra.Command {
	var (
		batchLimit    int
		retryAge      time.Duration
		retentionDays int
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one dispatch pass plus retention",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{
				"batch_limit":       batchLimit,
				"retry_age_seconds": int64(retryAge.Seconds()),
				"retention_days":    retentionDays,
			}
			return call("POST", "/api/admin/sweep", body)
		},
	}
	cmd.Flags().IntVar(&batchLimit, "batch-limit", 0, "entries per pass (0 = server default)")
	cmd.Flags().DurationVar(&retryAge, "retry-age", 0, "minimum pending age to retry (0 = server default)")
	cmd.Flags().IntVar(&retentionDays, "retention-days", 0, "retention window in days (0 = server default)")
	return cmd
}

func enqueueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue <report-id>",
		Short: "Force re-enqueue of a stored report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("POST", "/api/admin/reports/"+args[0]+"/enqueue", nil)
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue state counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("GET", "/api/admin/stats", nil)
		},
	}
}

func vapidCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vapid",
		Short: "Generate a VAPID key pair for web push",
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := push.GenerateVAPIDKeys()
			if err != nil {
				return err
			}
			fmt.Printf("PAWRADAR_VAPID_PUBLIC_KEY=%s\nPAWRADAR_VAPID_PRIVATE_KEY=%s\n", pub, priv)
			return nil
		},
	}
}

func call(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, addr+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("call engine: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("engine returned %d: %s", resp.StatusCode, bytes.TrimSpace(out))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, out, "", "  "); err != nil {
		fmt.Println(string(out))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
