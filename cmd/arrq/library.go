package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Library series",
}

var seriesAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a series with its episodes",
	Long: `Adds a series and its episodes to the library.

Examples:
  arrq series add "Andor" -e S01E01 -e "S01E02=Part II"`,
	Args: cobra.ExactArgs(1),
	RunE: runSeriesAdd,
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Deferred releases",
}

var pendingAddCmd = &cobra.Command{
	Use:   "add <release-title>",
	Short: "Defer a release until its release time",
	Args:  cobra.ExactArgs(1),
	RunE:  runPendingAdd,
}

var importedCmd = &cobra.Command{
	Use:   "imported <client> <download-id>",
	Short: "Report a download as imported",
	Args:  cobra.ExactArgs(2),
	RunE:  runImported,
}

func init() {
	rootCmd.AddCommand(seriesCmd)
	seriesAddCmd.Flags().StringArrayP("episode", "e", nil, "Episode as SxxEyy, optionally followed by =title")
	seriesCmd.AddCommand(seriesAddCmd)

	rootCmd.AddCommand(pendingCmd)
	pendingAddCmd.Flags().String("url", "", "Download URL")
	pendingAddCmd.Flags().String("indexer", "", "Indexer name")
	pendingAddCmd.Flags().String("protocol", "usenet", "usenet or torrent")
	pendingAddCmd.Flags().Int64("size", 0, "Size in bytes")
	pendingAddCmd.Flags().String("reason", "delay", "delay, downloadClientUnavailable or fallback")
	pendingAddCmd.Flags().Duration("delay", 0, "Release after this delay")
	pendingCmd.AddCommand(pendingAddCmd)

	rootCmd.AddCommand(importedCmd)
}

// parseEpisode parses "S01E02" or "S01E02=Title".
func parseEpisode(s string) (AddEpisodeRequest, error) {
	code, title, _ := strings.Cut(s, "=")
	var ep AddEpisodeRequest
	if _, err := fmt.Sscanf(strings.ToUpper(strings.TrimSpace(code)), "S%dE%d", &ep.Season, &ep.Number); err != nil {
		return ep, fmt.Errorf("invalid episode %q, want SxxEyy", s)
	}
	ep.Title = strings.TrimSpace(title)
	return ep, nil
}

func runSeriesAdd(cmd *cobra.Command, args []string) error {
	specs, _ := cmd.Flags().GetStringArray("episode")
	req := AddSeriesRequest{Title: args[0], Episodes: make([]AddEpisodeRequest, 0, len(specs))}
	for _, s := range specs {
		ep, err := parseEpisode(s)
		if err != nil {
			return err
		}
		req.Episodes = append(req.Episodes, ep)
	}

	client := NewClient(serverURL)
	series, err := client.AddSeries(req)
	if err != nil {
		return fmt.Errorf("add series failed: %w", err)
	}
	if jsonOutput {
		printJSON(series)
		return nil
	}
	fmt.Printf("Added series %d: %s (%d episodes)\n", series.ID, series.Title, len(req.Episodes))
	return nil
}

func runPendingAdd(cmd *cobra.Command, args []string) error {
	req := AddPendingRequest{Title: args[0]}
	req.DownloadURL, _ = cmd.Flags().GetString("url")
	req.Indexer, _ = cmd.Flags().GetString("indexer")
	req.Protocol, _ = cmd.Flags().GetString("protocol")
	req.Size, _ = cmd.Flags().GetInt64("size")
	req.Reason, _ = cmd.Flags().GetString("reason")
	if delay, _ := cmd.Flags().GetDuration("delay"); delay > 0 {
		at := time.Now().UTC().Add(delay)
		req.ReleaseAt = &at
	}

	client := NewClient(serverURL)
	rel, err := client.AddPending(req)
	if err != nil {
		return fmt.Errorf("add pending failed: %w", err)
	}
	if jsonOutput {
		printJSON(rel)
		return nil
	}
	fmt.Printf("Pending release %d: %s (%s, due %s)\n", rel.ID, rel.Title, rel.Reason, rel.ReleaseAt.Local().Format(time.DateTime))
	return nil
}

func runImported(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	if err := client.MarkImported(args[0], args[1]); err != nil {
		return fmt.Errorf("report import failed: %w", err)
	}
	fmt.Printf("Reported %s/%s as imported\n", args[0], args[1])
	return nil
}
