package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
)

func printResult(v interface{}) {
	if output == "json" {
		json.NewEncoder(os.Stdout).Encode(v)
		return
	}
	printTable(v)
}

func printTable(v interface{}) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	switch data := v.(type) {
	case []RecordRow:
		if len(data) == 0 {
			fmt.Println("No records found.")
			return
		}
		fmt.Fprintln(w, "RECORD ID\tACTION\tENTITY TYPE\tENTITY ID\tACTOR\tCHANGES\tTS")
		for _, rec := range data {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
				rec.RecordID[:8], rec.Action, truncate(rec.EntityType, 40), rec.EntityID,
				rec.Actor, len(rec.Changes), rec.Timestamp)
		}
	case RecordRow:
		fmt.Fprintf(w, "Record ID:\t%s\n", data.RecordID)
		fmt.Fprintf(w, "Entity Type:\t%s\n", data.EntityType)
		fmt.Fprintf(w, "Entity ID:\t%s\n", data.EntityID)
		fmt.Fprintf(w, "Action:\t%s\n", data.Action)
		fmt.Fprintf(w, "Actor:\t%s\n", data.Actor)
		fmt.Fprintf(w, "Timestamp:\t%s\n", data.Timestamp)
		for _, c := range data.Changes {
			fmt.Fprintf(w, "Change:\t%s: %q -> %q\n", c.Property, c.Old, c.New)
		}
		for _, child := range data.Children {
			fmt.Fprintf(w, "Child:\t%s %s %s\n", child.RecordID, child.Action, child.EntityID)
		}
	default:
		json.NewEncoder(os.Stdout).Encode(v)
	}
	w.Flush()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
