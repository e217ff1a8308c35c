package main

import (
	"fmt"
	"io"
	"strconv"

	"chat-relay/runtime"

	"github.com/olekukonko/tablewriter"
)

// printReport renders what the pool workers did before shutdown.
func printReport(w io.Writer, stats []runtime.WorkerStats, restarts, censored uint64) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Worker", "Completed", "Panicked", "Terminates"})
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	var completed, panicked uint64
	for _, s := range stats {
		completed += s.Completed
		panicked += s.Panicked
		table.Append([]string{
			strconv.Itoa(s.ID),
			strconv.FormatUint(s.Completed, 10),
			strconv.FormatUint(s.Panicked, 10),
			strconv.FormatUint(s.Terminates, 10),
		})
	}
	table.SetFooter([]string{"Total", strconv.FormatUint(completed, 10), strconv.FormatUint(panicked, 10), ""})
	table.Render()

	fmt.Fprintf(w, "Supervised restarts: %d\n", restarts)
	fmt.Fprintf(w, "Censored messages: %d\n", censored)
}
