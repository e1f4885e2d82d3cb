package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"VCPSentinel/internal/recorder"
)

func runScan(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	token := ""
	if len(args) == 1 {
		token = args[0]
	}
	res, err := a.scanner.Scan(cmd.Context(), token)
	if err != nil {
		return err
	}
	if res.Complete() {
		if err := a.recorder.SaveScan(res); err != nil {
			log.Error().Err(err).Msg("save scan")
		}
	} else {
		log.Warn().Str("date", res.ScanDate).Msg("incomplete scan, not stored")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s: %d of %d symbols\n", res.ScanDate, len(res.Symbols), res.UniverseSize)
	for _, sym := range res.Symbols {
		fmt.Fprintln(out, sym)
	}
	return nil
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.scanner.Diagnose(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	if err := a.recorder.RecordDiagnostic(&recorder.DiagnosticRecord{
		Symbol:   res.Symbol,
		ScanDate: res.ScanDate,
		Pass:     res.Pass,
		Report:   res.Report,
	}); err != nil {
		log.Error().Err(err).Msg("record diagnostic")
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Report)
	return nil
}
