package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

type ChangeRow struct {
	Property string `json:"property"`
	Old      string `json:"old"`
	New      string `json:"new"`
}

type RecordRow struct {
	RecordID   string      `json:"record_id"`
	EntityType string      `json:"entity_type"`
	EntityID   string      `json:"entity_id"`
	Action     string      `json:"action"`
	Actor      string      `json:"actor"`
	Timestamp  string      `json:"ts"`
	Changes    []ChangeRow `json:"changes,omitempty"`
	Children   []RecordRow `json:"children,omitempty"`
}

type RecordListResponse struct {
	Records    []RecordRow `json:"records"`
	NextCursor string      `json:"next_cursor"`
}

var (
	flagEntityType string
	flagEntityID   string
	flagActions    []string
	flagLimit      int
	flagCursor     string
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Audit record commands",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit records, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL)

		q := url.Values{}
		if flagEntityType != "" {
			q.Set("entity_type", flagEntityType)
		}
		if flagEntityID != "" {
			q.Set("entity_id", flagEntityID)
		}
		for _, a := range flagActions {
			q.Add("action", a)
		}
		if flagLimit > 0 {
			q.Set("limit", fmt.Sprint(flagLimit))
		}
		if flagCursor != "" {
			q.Set("cursor", flagCursor)
		}
		path := "/v1/records"
		if len(q) > 0 {
			path += "?" + q.Encode()
		}

		var resp RecordListResponse
		if err := client.Get(path, &resp); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printResult(resp.Records)
		if resp.NextCursor != "" && output == "table" {
			fmt.Printf("\nNext cursor: %s\n", resp.NextCursor)
		}
	},
}

var recordsGetCmd = &cobra.Command{
	Use:   "get <record-id>",
	Short: "Get one audit record with its children",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewClient(apiURL)

		var resp RecordRow
		if err := client.Get("/v1/records/"+args[0], &resp); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printResult(resp)
	},
}

func init() {
	recordsListCmd.Flags().StringVar(&flagEntityType, "entity-type", "", "Filter by entity type")
	recordsListCmd.Flags().StringVar(&flagEntityID, "entity-id", "", "Filter by entity id")
	recordsListCmd.Flags().StringSliceVar(&flagActions, "action", nil, "Filter by action (CREATED, UPDATED, DELETED); repeatable")
	recordsListCmd.Flags().IntVar(&flagLimit, "limit", 0, "Page size")
	recordsListCmd.Flags().StringVar(&flagCursor, "cursor", "", "Pagination cursor from a previous page")

	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsGetCmd)
	rootCmd.AddCommand(recordsCmd)
}
