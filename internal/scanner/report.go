package scanner

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"VCPSentinel/internal/model"
	"VCPSentinel/internal/strategy"
)

const rule = "--------------------"

func mark(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}

func pct(f float64) string { return fmt.Sprintf("%.2f%%", f*100) }

func shares(f float64) string { return humanize.Comma(int64(f + 0.5)) }

// RenderReport writes one section per criterion in the fixed order trend,
// tightness, volume, liquidity. The output depends only on its arguments.
func RenderReport(symbol, date string, v *model.Verdict, cfg strategy.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 VCP diagnostic: %s\n📅 Date: %s\n%s\n", symbol, date, rule)

	sections := []struct {
		name  model.CriterionName
		title string
		body  func(*strings.Builder, model.CriterionResult, strategy.Config)
	}{
		{model.CriterionTrend, fmt.Sprintf("Trend (SMA-%d)", cfg.SMAPeriod), writeTrend},
		{model.CriterionTightness, "Tightness", writeTightness},
		{model.CriterionVolume, "Volume contraction", writeVolume},
		{model.CriterionLiquidity, "Liquidity", writeLiquidity},
	}
	for i, sec := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "🔹 %s\n", sec.title)
		c, ok := v.Criterion(sec.name)
		switch {
		case !ok:
			b.WriteString("   ⏭ not evaluated\n")
		case c.Insufficient:
			fmt.Fprintf(&b, "   ❌ %s\n", c.Explanation)
		default:
			sec.body(&b, c, cfg)
		}
	}

	b.WriteString(rule + "\n")
	if v.Pass {
		b.WriteString("Overall: ✅ PASS")
	} else {
		b.WriteString("Overall: ❌ FAIL")
	}
	return b.String()
}

func writeTrend(b *strings.Builder, c model.CriterionResult, cfg strategy.Config) {
	d := c.Trend
	if d.AboveSMA {
		fmt.Fprintf(b, "   ✅ Close %.2f above SMA %.2f\n", d.Close, d.SMA)
	} else {
		fmt.Fprintf(b, "   ❌ Close %.2f not above SMA %.2f\n", d.Close, d.SMA)
	}
	if d.SlopeUp {
		fmt.Fprintf(b, "   ✅ SMA rising (%.2f vs %.2f %d sessions ago)\n", d.SMA, d.SMAPrev, cfg.SlopeLag)
	} else {
		fmt.Fprintf(b, "   ❌ SMA not rising (%.2f vs %.2f %d sessions ago)\n", d.SMA, d.SMAPrev, cfg.SlopeLag)
	}
}

func writeTightness(b *strings.Builder, c model.CriterionResult, cfg strategy.Config) {
	d := c.Tightness
	if d.Reset {
		fmt.Fprintf(b, "   ℹ️ Gap reset: %s overnight gap on %s, window starts there (%d sessions)\n",
			pct(d.Gap.Magnitude), d.Gap.Date.Format(DateLayout), d.WindowLen)
		fmt.Fprintf(b, "   ℹ️ Allowance %s (gap rounded up to a whole percent)\n", pct(d.Threshold))
	} else {
		fmt.Fprintf(b, "   ℹ️ No gap above %s in the last %d sessions\n", pct(cfg.GapThreshold), cfg.LookbackDays)
		fmt.Fprintf(b, "   ℹ️ Allowance %s (default)\n", pct(d.Threshold))
	}
	if d.TooShort {
		fmt.Fprintf(b, "   ❌ Only %d sessions since the gap, need %d to confirm\n", d.WindowLen, cfg.MinTightSessions)
		return
	}
	fmt.Fprintf(b, "   ℹ️ Close range over %d sessions: %s (high %.2f, low %.2f)\n",
		d.WindowLen, pct(d.RangePct), d.WindowHigh, d.WindowLow)
	if c.Passed {
		fmt.Fprintf(b, "   ✅ Range %s within %s\n", pct(d.RangePct), pct(d.Threshold))
	} else {
		fmt.Fprintf(b, "   ❌ Range %s exceeds %s\n", pct(d.RangePct), pct(d.Threshold))
	}
}

func writeVolume(b *strings.Builder, c model.CriterionResult, cfg strategy.Config) {
	d := c.Volume
	rel := "below"
	if !c.Passed {
		rel = "not below"
	}
	fmt.Fprintf(b, "   %s %d-day avg %s %s %d-day avg %s\n", mark(c.Passed),
		cfg.ShortVolumeDays, shares(d.ShortAvg), rel, cfg.LongVolumeDays, shares(d.LongAvg))
}

func writeLiquidity(b *strings.Builder, c model.CriterionResult, cfg strategy.Config) {
	fmt.Fprintf(b, "   %s %d-day avg %s vs floor %s shares\n", mark(c.Passed),
		cfg.ShortVolumeDays, shares(c.Observed), shares(c.Threshold))
}
