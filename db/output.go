package db

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// PrintMaxRulesLength max length the rules column can have when printing as table
const PrintMaxRulesLength = 65

var (
	labelColor = color.New(color.FgBlue).SprintFunc()
	valueColor = color.New(color.FgCyan).SprintFunc()

	statusColors = map[ScanStatus]func(a ...interface{}) string{
		ScanStatusQueued:   color.New(color.FgYellow).SprintFunc(),
		ScanStatusPending:  color.New(color.FgCyan).SprintFunc(),
		ScanStatusFinished: color.New(color.FgGreen).SprintFunc(),
		ScanStatusFailed:   color.New(color.FgRed).SprintFunc(),
	}
)

func colorizeStatus(status ScanStatus) string {
	if paint, ok := statusColors[status]; ok {
		return paint(string(status))
	}
	return string(status)
}

// PrintScanTable prints a list of scans as a table
func PrintScanTable(records []*Scan) {
	var tableData [][]string
	for _, record := range records {
		rules := strings.Join(record.RuleNames(), ", ")
		if len(rules) > PrintMaxRulesLength {
			rules = rules[0:PrintMaxRulesLength] + "..."
		}
		score := "-"
		if record.Score != nil {
			score = strconv.FormatInt(*record.Score, 10)
		}
		tableData = append(tableData, []string{
			record.ScanID.String(),
			record.Name,
			record.Version,
			colorizeStatus(record.Status),
			score,
			record.QueuedAt.Format(time.RFC3339),
			rules,
		})
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Scan ID", "Name", "Version", "Status", "Score", "Queued At", "Rules"})
	table.SetBorder(true)
	table.AppendBulk(tableData)
	table.Render()
}

// PrintScan prints a single scan with its full lifecycle detail
func PrintScan(scan Scan) {
	var sb strings.Builder

	sb.WriteString(labelColor("Package: ") + scan.Name + "@" + scan.Version + "\n")
	sb.WriteString(labelColor("Scan ID: ") + scan.ScanID.String() + "\n")
	sb.WriteString(labelColor("Status: ") + colorizeStatus(scan.Status) + "\n")

	sb.WriteString(labelColor("Timeline:"))
	sb.WriteString("\n- " + valueColor("Queued: ") + formatActorTime(&scan.QueuedAt, &scan.QueuedBy))
	sb.WriteString("\n- " + valueColor("Pending: ") + formatActorTime(scan.PendingAt, scan.PendingBy))
	sb.WriteString("\n- " + valueColor("Finished: ") + formatActorTime(scan.FinishedAt, scan.FinishedBy))
	sb.WriteString("\n- " + valueColor("Reported: ") + formatActorTime(scan.ReportedAt, scan.ReportedBy))
	sb.WriteString("\n")

	if scan.Score != nil {
		sb.WriteString(labelColor("Score: ") + strconv.FormatInt(*scan.Score, 10) + "\n")
	}
	if scan.InspectorURL != nil {
		sb.WriteString(labelColor("Inspector URL: ") + *scan.InspectorURL + "\n")
	}
	if scan.CommitHash != nil {
		sb.WriteString(labelColor("Rules commit: ") + *scan.CommitHash + "\n")
	}
	if scan.FailReason != nil {
		sb.WriteString(labelColor("Fail reason: ") + *scan.FailReason + "\n")
	}
	if len(scan.Rules) > 0 {
		sb.WriteString(labelColor("Rules matched:"))
		for _, rule := range scan.Rules {
			sb.WriteString("\n- " + rule.Name)
		}
		sb.WriteString("\n")
	}
	if len(scan.DownloadURLs) > 0 {
		sb.WriteString(labelColor("Distributions:"))
		for _, downloadURL := range scan.DownloadURLs {
			sb.WriteString("\n- " + downloadURL.URL)
		}
		sb.WriteString("\n")
	}

	fmt.Print(sb.String())
}

func formatActorTime(at *time.Time, by *string) string {
	if at == nil {
		return "-"
	}
	formatted := at.Format(time.RFC3339)
	if by != nil && *by != "" {
		formatted += " by " + *by
	}
	return formatted
}

// PrintStats prints scan statistics as a table
func PrintStats(stats ScanStats) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Ingested", "Average Scan Time", "Failed"})
	table.SetBorder(true)
	table.Append([]string{
		strconv.FormatInt(stats.Ingested, 10),
		fmt.Sprintf("%.2fs", stats.AverageScanTime),
		strconv.FormatInt(stats.Failed, 10),
	})
	table.Render()
}
