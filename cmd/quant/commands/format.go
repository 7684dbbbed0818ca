package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/wonny/vnquant/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a formatted command header
func PrintHeader(title string, details ...string) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	if len(details) > 0 {
		PrintSeparator()
		for _, d := range details {
			fmt.Printf("  %s\n", d)
		}
	}
	PrintSeparator()
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// progressPrinter returns a ProgressFunc that redraws one stderr line
func progressPrinter(tag string) contracts.ProgressFunc {
	return func(done, total int, message string) {
		fmt.Fprintf(os.Stderr, "\r[%s] %d/%d %-8s", tag, done, total, message)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}

// price formats a VND price with thousands separators
func price(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}

// volume formats a share count with thousands separators
func volume(v int64) string {
	return humanize.Comma(v)
}

// optional formats a nullable indicator
func optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

// age formats a timestamp relative to now ("3 days ago")
func age(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

// sizeMB formats a size in megabytes
func sizeMB(mb float64) string {
	return humanize.Bytes(uint64(mb * 1024 * 1024))
}

// printScanReport prints the ranked results of a scan
func printScanReport(report *contracts.ScanReport) {
	widths := []int{4, 6, 12, 7, 7, 7, 10, 14, 8}
	PrintTableHeader([]string{"#", "종목", "가격", "종합", "기술", "기본", "신호", "추세", "RSI"}, widths)
	for i, r := range report.Results {
		PrintTableRow([]string{
			fmt.Sprintf("%d", i+1),
			r.Symbol,
			price(r.Price),
			fmt.Sprintf("%.1f", r.OverallScore),
			fmt.Sprintf("%.1f", r.TechnicalScore),
			fmt.Sprintf("%.1f", r.FundamentalScore),
			r.Signal,
			r.Trend,
			optional(r.RSI, "%.1f"),
		}, widths)
	}

	PrintSeparator()
	fmt.Printf("  스캔 %d종목: 성공 %d, 실패 %d, 제외 %d (%s)\n",
		report.Total, report.Succeeded, report.Failed, report.Skipped, report.Duration.Round(time.Millisecond))
	for symbol, reason := range report.Failures {
		fmt.Printf("   • %s: %s\n", symbol, reason)
	}
}
