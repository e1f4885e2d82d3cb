package notifier

import (
	"fmt"
	"html"
	"strings"

	"VCPSentinel/internal/model"
)

// Usage is the reply to /start and /help.
const Usage = `👋 <b>TW VCP scanner</b> is ready.

/now : scan today's close
/YYMMDD : scan a past session, e.g. /250314
/YYMMDD CODE : explain one stock, e.g. /250314 2330
/diag CODE [YYMMDD] : same, today if no date`

// ResultFileName names the symbol list for a scan date in YYYY-MM-DD form.
func ResultFileName(scanDate string) string {
	return fmt.Sprintf("TW_VCP_%s.txt", strings.ReplaceAll(scanDate, "-", ""))
}

// ResultFile is the symbol list, one per line.
func ResultFile(res *model.ScanResult) []byte {
	return []byte(strings.Join(res.Symbols, "\n"))
}

// FormatScanCaption is the caption sent with the result file.
func FormatScanCaption(res *model.ScanResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ <b>%s scan complete</b>\n", res.ScanDate)
	fmt.Fprintf(&b, "%d of %d symbols qualified\n", len(res.Symbols), res.UniverseSize)
	b.WriteString("Criteria: rising SMA-60, volume contraction, tight range")
	if res.BatchesFailed > 0 {
		fmt.Fprintf(&b, "\n⚠️ %d batch(es) could not be downloaded", res.BatchesFailed)
	}
	return b.String()
}

// FormatEmptyScan is sent instead of a file when nothing qualified.
func FormatEmptyScan(res *model.ScanResult) string {
	msg := fmt.Sprintf("📅 <b>%s scan report</b>\n❌ No symbols match the VCP pattern.", res.ScanDate)
	if res.BatchesFailed > 0 {
		msg += fmt.Sprintf("\n⚠️ %d batch(es) could not be downloaded", res.BatchesFailed)
	}
	return msg
}

// FormatScanAck acknowledges a scan request before it runs.
func FormatScanAck(scanDate string, today bool) string {
	if today {
		return "🚀 Scanning today's market, this takes a few minutes..."
	}
	return fmt.Sprintf("⏳ Scanning %s, this takes a few minutes...", scanDate)
}

// FormatDiagnostic escapes a plain-text diagnostic report for HTML delivery.
func FormatDiagnostic(res *model.DiagnosticResult) string {
	return html.EscapeString(res.Report)
}

// FormatError reports a failed request.
func FormatError(action string, err error) string {
	return fmt.Sprintf("❌ %s failed: %s", action, html.EscapeString(err.Error()))
}
