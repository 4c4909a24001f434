package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var blocklistCmd = &cobra.Command{
	Use:   "blocklist",
	Short: "Show rejected releases",
	RunE:  runBlocklistCmd,
}

var blocklistRmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Remove blocklist entries",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBlocklistRm,
}

func init() {
	rootCmd.AddCommand(blocklistCmd)
	blocklistCmd.Flags().IntP("page", "p", 1, "Page number")
	blocklistCmd.Flags().Int("page-size", 20, "Entries per page")
	blocklistCmd.AddCommand(blocklistRmCmd)
}

func runBlocklistCmd(cmd *cobra.Command, args []string) error {
	page, _ := cmd.Flags().GetInt("page")
	pageSize, _ := cmd.Flags().GetInt("page-size")

	client := NewClient(serverURL)
	resp, err := client.Blocklist(page, pageSize)
	if err != nil {
		return fmt.Errorf("blocklist fetch failed: %w", err)
	}

	if jsonOutput {
		printJSON(resp)
		return nil
	}

	if len(resp.Records) == 0 {
		fmt.Println("Blocklist is empty")
		return nil
	}

	fmt.Printf("Blocklist (%d, page %d):\n\n", resp.TotalRecords, resp.Page)
	fmt.Printf("  %-6s %-44s %-8s %-14s %s\n", "ID", "RELEASE", "PROTO", "QUALITY", "ADDED")
	fmt.Println("  " + strings.Repeat("-", 88))
	for _, e := range resp.Records {
		fmt.Printf("  %-6d %-44s %-8s %-14s %s\n",
			e.ID, truncate(e.SourceTitle, 44), e.Protocol, e.Quality.Quality.Name, formatTimeAgo(e.Date))
	}
	return nil
}

func runBlocklistRm(cmd *cobra.Command, args []string) error {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ID %q", a)
		}
		ids = append(ids, id)
	}

	client := NewClient(serverURL)
	if len(ids) == 1 {
		if err := client.DeleteBlocklist(ids[0]); err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}
		fmt.Printf("Removed blocklist entry %d\n", ids[0])
		return nil
	}

	n, err := client.DeleteBlocklistMany(ids)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	fmt.Printf("Removed %d blocklist entries\n", n)
	return nil
}
