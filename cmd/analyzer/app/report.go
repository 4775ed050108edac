package app

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"

	"github.com/roman-kulish/sensorlog/internal/sensorlog"
	"github.com/roman-kulish/sensorlog/internal/stats"
	"github.com/roman-kulish/sensorlog/internal/storage"
)

const reportWidth = 60

var (
	doubleRule = strings.Repeat("=", reportWidth)
	singleRule = strings.Repeat("-", 50)
)

// ReportWriter prints human readable analysis results. Styling follows the terminal
// capabilities of the destination and is dropped entirely for plain writers.
type ReportWriter struct {
	w io.Writer

	heading lipgloss.Style
	define  lipgloss.Style
	comment lipgloss.Style
	warning lipgloss.Style
}

func NewReportWriter(w io.Writer, color bool) *ReportWriter {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}

	return &ReportWriter{
		w:       w,
		heading: r.NewStyle().Bold(true),
		define:  r.NewStyle().Foreground(lipgloss.Color("10")),
		comment: r.NewStyle().Faint(true),
		warning: r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
	}
}

func (rw *ReportWriter) printf(format string, a ...any) {
	_, _ = fmt.Fprintf(rw.w, format, a...)
}

func (rw *ReportWriter) println(s string) {
	_, _ = fmt.Fprintln(rw.w, s)
}

// Banner prints the application title
func (rw *ReportWriter) Banner() {
	rw.println(rw.heading.Render("Reality Clock Sensor Data Analyzer"))
	rw.println(doubleRule)
}

// Summary prints the statistics and the recommended firmware constants. Sections of
// columns without values are left out.
func (rw *ReportWriter) Summary(s *stats.Summary) {
	rw.printf("\n%s\n%s\n%s\n\n", doubleRule, rw.heading.Render("SENSOR DATA ANALYSIS"), doubleRule)

	seconds := s.Duration.Seconds()
	rw.printf("Total Samples: %s\n", humanize.Comma(int64(s.TotalSamples)))
	rw.printf("Duration: %.0f seconds (%.1f minutes)\n\n", seconds, seconds/60)

	rw.println(rw.heading.Render("RSSI STATISTICS (dBm):"))
	rw.println(singleRule)
	for _, band := range stats.Bands {
		st, ok := s.Stats(band.Column)
		if !ok {
			continue
		}
		rw.printf("%-12s Avg: %7.2f  Std: %5.2f  Range: [%.1f, %.1f]\n", band.Name, st.Mean, st.StdDev, st.Min, st.Max)
	}
	rw.println("")

	if st, ok := s.Stats(sensorlog.ColumnTemperature); ok {
		rw.printf("Temperature: Avg: %.1f°C  Std: %.2f°C\n", st.Mean, st.StdDev)
	}
	if st, ok := s.Stats(sensorlog.ColumnVoltage); ok {
		rw.printf("Battery:     Avg: %.3fV\n", st.Mean)
	}
	if st, ok := s.Stats(sensorlog.ColumnMatch); ok {
		rw.printf("Match:       Avg: %.2f%%  Range: [%.2f, %.2f]\n", st.Mean, st.Min, st.Max)
	}
	rw.println("")

	if st, ok := s.Stats(sensorlog.ColumnPhi); ok && s.Phi != nil {
		rw.println(rw.heading.Render("PHI ANALYSIS:"))
		rw.println(singleRule)
		rw.printf("PHI Average:  %.6f\n", st.Mean)
		rw.printf("PHI Std Dev:  %.6f\n", st.StdDev)
		rw.printf("PHI Range:    [%.6f, %.6f]\n", st.Min, st.Max)
		rw.printf("Variation:    %s\n", formatPercent(s.Phi.Variation))
		rw.println("")
	}

	rw.constants(s)

	if s.LowSampleCount {
		rw.printf("\n%s\n", rw.warning.Render(fmt.Sprintf("WARNING: Only %d samples collected.", s.TotalSamples)))
		rw.printf("For accurate analysis, collect at least %d-%d samples (5-10 minutes).\n", stats.MinimumSampleCount, 2*stats.MinimumSampleCount)
	}
}

func (rw *ReportWriter) constants(s *stats.Summary) {
	rw.println(rw.heading.Render("RECOMMENDED CONSTANTS:"))
	rw.println(doubleRule)

	if len(s.Bands) > 0 {
		rw.printf("\n%s\n", rw.comment.Render("/* Real sensor base values (from collected data) */"))
		for _, b := range s.Bands {
			rw.println(rw.define.Render(fmt.Sprintf("#define BASE_%s  %.1ff  /* Avg RSSI at %s */", b.Key, b.Baseline, b.Name)))
		}

		rw.printf("\n%s\n", rw.comment.Render("/* Variance for each band */"))
		for _, b := range s.Bands {
			rw.println(rw.define.Render(fmt.Sprintf("#define VAR_%s   %.1ff  /* 2-sigma variation */", b.Key, b.Variance)))
		}
	}

	if s.Phi != nil {
		rw.printf("\n%s\n", rw.comment.Render("/* PHI baseline (use this as the 'home' dimension baseline) */"))
		rw.println(rw.define.Render(fmt.Sprintf("#define PHI_BASELINE     %.6ff", s.Phi.Baseline)))
		rw.println(rw.define.Render(fmt.Sprintf("#define PHI_TOLERANCE    %.6ff  /* 2-sigma for HOME threshold */", s.Phi.Tolerance)))

		rw.printf("\n%s\n", rw.comment.Render("/* Recommended thresholds based on variance */"))
		rw.println(rw.define.Render(fmt.Sprintf("#define HOME_THRESHOLD     %.1ff", s.Phi.Thresholds.Home)))
		rw.println(rw.define.Render(fmt.Sprintf("#define STABLE_THRESHOLD   %.1ff", s.Phi.Thresholds.Stable)))
		rw.println(rw.define.Render(fmt.Sprintf("#define UNSTABLE_THRESHOLD %.1ff", s.Phi.Thresholds.Unstable)))
	}

	rw.printf("\n%s\n", doubleRule)
}

// Sessions prints the archived retrievals as a table
func (rw *ReportWriter) Sessions(sessions []*storage.Session) {
	if len(sessions) == 0 {
		rw.println("No archived sessions.")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(rw.comment).
		Headers("ID", "STARTED", "PORT", "POLICY", "READINGS", "REMOTE PATH")

	for _, s := range sessions {
		t.Row(
			fmt.Sprintf("%d", s.ID),
			s.StartTime.Local().Format("2006-01-02 15:04:05"),
			s.Port,
			s.Policy,
			humanize.Comma(int64(s.Readings)),
			s.RemotePath,
		)
	}

	rw.println(t.String())
}

// CollectionHelp explains how to record a log on the device
func (rw *ReportWriter) CollectionHelp(remotePath, localPath string) {
	rw.println("No local log file found.")
	rw.println("\nTo collect data:")
	rw.println("1. Run the Reality Clock app on your Flipper")
	rw.println("2. Let it collect data for at least 5-10 minutes")
	rw.println("3. Exit the app (press BACK)")
	rw.println("4. Copy the log file from Flipper SD card:")
	rw.printf("   %s\n", remotePath)
	rw.printf("   to: %s\n", localPath)
}

// ManualCopyHelp tells where to put a manually copied log
func (rw *ReportWriter) ManualCopyHelp(remotePath, localPath string) {
	rw.println("\nPlease copy sensor_log.csv from your Flipper's SD card:")
	rw.printf("  %s\n", remotePath)
	rw.printf("  to: %s\n", localPath)
}

func formatPercent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v)
}
