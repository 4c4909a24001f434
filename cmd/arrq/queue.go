package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmunix/arrq/internal/queue"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show the download queue",
	Long: `Show tracked downloads and pending releases, sorted and paged.

Sort keys: timeleft, estimatedCompletionTime, added, protocol, indexer,
downloadClient, quality, status, title, episode, episode.title,
episode.airDateUtc, language, languages, progress, size, series.sortTitle.

Examples:
  arrq queue                                  # First page, shortest time left first
  arrq queue --sort timeleft --desc           # Longest time left first
  arrq queue --status downloading,failed -a   # Include downloads with no series`,
	RunE: runQueueCmd,
}

var queueRmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Remove queue items",
	Long: `Removes one or more queue items.

By default the download is also removed from its client. Use --keep to leave
it there, --blocklist to reject the release, --skip-redownload to not search
again, and --change-category to move it to the client's post-import category.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQueueRm,
}

var queueGrabCmd = &cobra.Command{
	Use:   "grab <id>",
	Short: "Grab a pending release now",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueGrab,
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.Flags().IntP("page", "p", 1, "Page number")
	queueCmd.Flags().Int("page-size", 0, "Items per page (server default when 0)")
	queueCmd.Flags().StringP("sort", "s", "", "Sort key")
	queueCmd.Flags().Bool("desc", false, "Sort descending")
	queueCmd.Flags().StringSlice("status", nil, "Only show these statuses")
	queueCmd.Flags().Int64Slice("series", nil, "Only show these series ids")
	queueCmd.Flags().String("protocol", "", "Only show usenet or torrent items")
	queueCmd.Flags().BoolP("all", "a", false, "Include downloads not matched to a series")

	queueRmCmd.Flags().Bool("keep", false, "Leave the download in its client")
	queueRmCmd.Flags().BoolP("blocklist", "b", false, "Blocklist the release")
	queueRmCmd.Flags().Bool("skip-redownload", false, "Do not search for a replacement")
	queueRmCmd.Flags().Bool("change-category", false, "Move the download to the post-import category")
	queueCmd.AddCommand(queueRmCmd)
	queueCmd.AddCommand(queueGrabCmd)
}

func runQueueCmd(cmd *cobra.Command, args []string) error {
	opts := QueueOptions{}
	opts.Page, _ = cmd.Flags().GetInt("page")
	opts.PageSize, _ = cmd.Flags().GetInt("page-size")
	opts.SortKey, _ = cmd.Flags().GetString("sort")
	if desc, _ := cmd.Flags().GetBool("desc"); desc {
		opts.SortDirection = "descending"
	}
	opts.Statuses, _ = cmd.Flags().GetStringSlice("status")
	opts.SeriesIDs, _ = cmd.Flags().GetInt64Slice("series")
	opts.Protocol, _ = cmd.Flags().GetString("protocol")
	opts.IncludeAll, _ = cmd.Flags().GetBool("all")

	client := NewClient(serverURL)
	page, err := client.Queue(opts)
	if err != nil {
		return fmt.Errorf("queue fetch failed: %w", err)
	}

	if jsonOutput {
		printJSON(page)
		return nil
	}

	printQueue(page)
	return nil
}

func printQueue(p *queue.Page) {
	if len(p.Records) == 0 {
		fmt.Println("Queue is empty")
		return
	}

	fmt.Printf("Queue (%d, page %d):\n\n", p.TotalRecords, p.Page)
	fmt.Printf("  %-11s %-26s %-44s %-9s %s\n", "ID", "STATUS", "RELEASE", "PROGRESS", "TIME LEFT")
	fmt.Println("  " + strings.Repeat("-", 104))

	for i := range p.Records {
		item := &p.Records[i]
		progress := "-"
		if item.Size > 0 {
			progress = fmt.Sprintf("%.0f%%", item.Progress())
		}
		left := "-"
		if item.TimeLeft != nil {
			left = formatDuration(*item.TimeLeft)
		}
		fmt.Printf("  %-11d %-26s %-44s %-9s %s\n", item.ID, item.Status, truncate(item.Title, 44), progress, left)
	}
}

func parseQueueIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, a := range args {
		id, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid ID %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func runQueueRm(cmd *cobra.Command, args []string) error {
	ids, err := parseQueueIDs(args)
	if err != nil {
		return err
	}

	keep, _ := cmd.Flags().GetBool("keep")
	opts := RemoveOptions{RemoveFromClient: !keep}
	opts.Blocklist, _ = cmd.Flags().GetBool("blocklist")
	opts.SkipRedownload, _ = cmd.Flags().GetBool("skip-redownload")
	opts.ChangeCategory, _ = cmd.Flags().GetBool("change-category")

	client := NewClient(serverURL)
	if len(ids) == 1 {
		if err := client.RemoveQueueItem(ids[0], opts); err != nil {
			return fmt.Errorf("remove failed: %w", err)
		}
		if jsonOutput {
			printJSON(BulkRemoveResponse{Removed: 1})
			return nil
		}
		fmt.Printf("Removed queue item %d\n", ids[0])
		return nil
	}

	resp, err := client.RemoveQueueItems(ids, opts)
	if err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	if jsonOutput {
		printJSON(resp)
		return nil
	}
	fmt.Printf("Removed %d of %d queue items\n", resp.Removed, len(ids))
	for _, e := range resp.Errors {
		fmt.Printf("  - %s\n", e)
	}
	return nil
}

func runQueueGrab(cmd *cobra.Command, args []string) error {
	ids, err := parseQueueIDs(args)
	if err != nil {
		return err
	}

	client := NewClient(serverURL)
	if err := client.GrabPending(ids[0]); err != nil {
		return fmt.Errorf("grab failed: %w", err)
	}
	fmt.Printf("Grabbed pending release %d\n", ids[0])
	return nil
}
