package scheduler

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"VCPSentinel/internal/model"
	"VCPSentinel/internal/notifier"
	"VCPSentinel/internal/recorder"
	"VCPSentinel/internal/scanner"
)

// Messenger delivers replies and result files to a chat.
type Messenger interface {
	SendTo(chatID, text string) error
	SendDocumentTo(chatID, name string, content []byte, caption string) error
}

// Scheduler runs the daily scan and serves chat commands. Scans and
// diagnostics run in the background; the command itself only acknowledges.
type Scheduler struct {
	Cron     *cron.Cron
	Scanner  *scanner.Scanner
	Notifier Messenger
	Recorder recorder.Recorder
	ChatID   string // destination of scheduled scans
	Ctx      context.Context

	locks keyedMutex
	wg    sync.WaitGroup
}

// NewScheduler creates a new Scheduler whose cron runs in loc.
func NewScheduler(ctx context.Context, sc *scanner.Scanner, msg Messenger, rec recorder.Recorder, chatID string, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Scanner:  sc,
		Notifier: msg,
		Recorder: rec,
		ChatID:   chatID,
		Ctx:      ctx,
	}
}

// Register schedules the post-close daily scan.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyScan); err != nil {
		return fmt.Errorf("register daily scan: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Wait()
	log.Info().Msg("scheduler stopped")
}

// Wait blocks until all background scans and diagnostics have finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// RunDailyNow executes the daily scan immediately (RUN_ON_START).
func (s *Scheduler) RunDailyNow() {
	s.dailyScan()
}

func (s *Scheduler) dailyScan() {
	log.Info().Msg("running scheduled scan")
	date, err := s.Scanner.Calendar.Resolve("")
	if err != nil {
		log.Error().Err(err).Msg("scheduled scan")
		s.trySend(s.ChatID, notifier.FormatError("Scheduled scan", err))
		return
	}
	s.trySend(s.ChatID, "⏰ Scheduled post-close scan started...")
	s.runScan(s.ChatID, date)
}

var dateCommand = regexp.MustCompile(`^/(\d{6})$`)

// HandleCommand processes a chat command and returns the immediate reply.
func (s *Scheduler) HandleCommand(chatID, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	cmd, args := fields[0], fields[1:]
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}

	switch {
	case cmd == "/start" || cmd == "/help":
		return notifier.Usage
	case cmd == "/now":
		return s.startScan(chatID, "")
	case cmd == "/diag":
		if len(args) == 0 || len(args) > 2 {
			return "Usage: /diag CODE [YYMMDD]"
		}
		token := ""
		if len(args) == 2 {
			token = args[1]
		}
		return s.startDiagnostic(chatID, token, args[0])
	case dateCommand.MatchString(cmd):
		token := cmd[1:]
		switch len(args) {
		case 0:
			return s.startScan(chatID, token)
		case 1:
			return s.startDiagnostic(chatID, token, args[0])
		}
		return "Usage: /YYMMDD [CODE]"
	case strings.HasPrefix(cmd, "/"):
		return notifier.Usage
	}
	return ""
}

func (s *Scheduler) startScan(chatID, token string) string {
	date, err := s.Scanner.Calendar.Resolve(token)
	if err != nil {
		return notifier.FormatError("Scan", err)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runScan(chatID, date)
	}()
	return notifier.FormatScanAck(date.Format(scanner.DateLayout), token == "")
}

func (s *Scheduler) startDiagnostic(chatID, token, code string) string {
	if _, err := s.Scanner.Calendar.Resolve(token); err != nil {
		return notifier.FormatError("Diagnostic", err)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runDiagnostic(chatID, token, code)
	}()
	return fmt.Sprintf("🔍 Diagnosing %s...", strings.ToUpper(code))
}

func (s *Scheduler) runScan(chatID string, date time.Time) {
	res, cached, err := s.scanOnce(date)
	if err != nil {
		log.Error().Err(err).Str("date", date.Format(scanner.DateLayout)).Msg("scan failed")
		s.trySend(chatID, notifier.FormatError("Scan", err))
		return
	}
	log.Info().Str("date", res.ScanDate).Bool("cached", cached).Int("passed", len(res.Symbols)).Msg("delivering scan")
	s.deliver(chatID, res)
}

// scanOnce serialises scans per date: a second request for the same date
// waits for the first and reads its stored result. Only complete scans are
// stored, so a date scanned before its session was published, or with
// symbols lost to transient errors, is scanned again on the next request.
func (s *Scheduler) scanOnce(date time.Time) (*model.ScanResult, bool, error) {
	key := date.Format(scanner.DateLayout)
	unlock := s.locks.Lock(key)
	defer unlock()

	res, err := s.Recorder.LoadScan(key)
	if err == nil {
		return res, true, nil
	}
	if !errors.Is(err, recorder.ErrNotFound) {
		log.Warn().Err(err).Str("date", key).Msg("load cached scan")
	}

	res, err = s.Scanner.ScanDate(s.Ctx, date)
	if err != nil {
		return nil, false, err
	}
	if !res.Complete() {
		log.Warn().Str("date", key).
			Int("batches_failed", res.BatchesFailed).
			Int("symbols_failed", res.SymbolsFailed).
			Int("evaluated", res.Evaluated).
			Str("latest_session", res.LatestSession).
			Msg("incomplete scan, not caching")
		return res, false, nil
	}
	if err := s.Recorder.SaveScan(res); err != nil {
		log.Error().Err(err).Str("date", key).Msg("save scan")
	}
	return res, false, nil
}

func (s *Scheduler) deliver(chatID string, res *model.ScanResult) {
	if len(res.Symbols) == 0 {
		s.trySend(chatID, notifier.FormatEmptyScan(res))
		return
	}
	if err := s.Notifier.SendDocumentTo(chatID, notifier.ResultFileName(res.ScanDate),
		notifier.ResultFile(res), notifier.FormatScanCaption(res)); err != nil {
		log.Error().Err(err).Str("chat", chatID).Msg("send result file")
	}
}

func (s *Scheduler) runDiagnostic(chatID, token, code string) {
	res, err := s.Scanner.Diagnose(s.Ctx, token, code)
	if err != nil {
		s.trySend(chatID, notifier.FormatError("Diagnostic", err))
		return
	}
	requestedBy, _ := strconv.ParseInt(chatID, 10, 64)
	if err := s.Recorder.RecordDiagnostic(&recorder.DiagnosticRecord{
		Symbol:      res.Symbol,
		ScanDate:    res.ScanDate,
		Pass:        res.Pass,
		Report:      res.Report,
		RequestedBy: requestedBy,
	}); err != nil {
		log.Error().Err(err).Msg("record diagnostic")
	}
	s.trySend(chatID, notifier.FormatDiagnostic(res))
}

func (s *Scheduler) trySend(chatID, text string) {
	if err := s.Notifier.SendTo(chatID, text); err != nil {
		log.Error().Err(err).Str("chat", chatID).Msg("send notification")
	}
}
