package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// CaseScraper runs one scrape session end to end: establish the query, walk
// every result page, and hand each case record to the sink.
type CaseScraper struct {
	loc       Locator
	contract  PortalContract
	timing    TimingConfig
	guard     *PopupGuard
	session   *SessionController
	paginator *ResultPaginator
	extractor *CaseRecordExtractor
	fetcher   *JudgmentArtifactFetcher
	sink      RecordSink
	seen      SeenStore
}

// NewCaseScraper wires the pipeline. seen and store may be nil.
func NewCaseScraper(cfg *Config, loc Locator, dl Downloader, recognizer Recognizer, sink RecordSink, seen SeenStore, store ArtifactStore) *CaseScraper {
	if seen == nil {
		seen = newMemorySeenStore()
	}
	guard := NewPopupGuard(loc, cfg.Contract, cfg.Timing.Popup)
	solver := NewCaptchaSolver(loc, cfg.Contract, recognizer, cfg.OCR.Scale)
	return &CaseScraper{
		loc:       loc,
		contract:  cfg.Contract,
		timing:    cfg.Timing,
		guard:     guard,
		session:   NewSessionController(loc, cfg.Contract, cfg.Timing, guard, solver),
		paginator: NewResultPaginator(loc, cfg.Contract, cfg.Timing),
		extractor: NewCaseRecordExtractor(loc, cfg.Contract, cfg.Timing),
		fetcher:   NewJudgmentArtifactFetcher(loc, dl, cfg.Contract, cfg.Judgment, cfg.Timing.Wait, store),
		sink:      sink,
		seen:      seen,
	}
}

// Run returns the stats gathered so far even when it fails.
func (s *CaseScraper) Run(ctx context.Context, filter QueryFilter) (RunStats, error) {
	var stats RunStats
	if _, err := s.session.Establish(ctx, filter); err != nil {
		return stats, err
	}

	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		page := s.paginator.Cursor().PageNumber
		if n := len(stats.Pages); n == 0 || stats.Pages[n-1] != page {
			stats.Pages = append(stats.Pages, page)
		}

		err := s.processPage(ctx, filter, &stats)
		var hasNext bool
		if err == nil {
			hasNext, err = s.paginator.Advance(ctx)
		}
		if err != nil {
			if IsFatal(err) {
				return stats, err
			}
			failures++
			log.WithFields(logrus.Fields{"page": page, "attempt": failures}).WithError(err).Warn("page failed, reloading")
			if failures > s.timing.MaxPageRetries {
				return stats, fatalf("page", errors.Wrapf(err, "page %d failed %d times", page, failures))
			}
			if err := s.paginator.Reload(ctx); err != nil {
				return stats, fatalf("reload", err)
			}
			continue
		}
		failures = 0
		if !hasNext {
			log.WithField("pages", len(stats.Pages)).Info("no next page, results exhausted")
			return stats, nil
		}
	}
}

func (s *CaseScraper) processPage(ctx context.Context, filter QueryFilter, stats *RunStats) error {
	page := s.paginator.Cursor().PageNumber
	controls, err := s.paginator.CurrentCaseViewControls(ctx)
	if err != nil {
		return &NavigationError{Step: "view_controls", Err: err}
	}
	if len(controls) == 0 {
		log.WithField("page", page).Info("no cases on page")
		return nil
	}
	log.WithFields(logrus.Fields{"page": page, "cases": len(controls)}).Info("processing page")

	for i := 0; i < len(controls); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		handled, err := s.processCase(ctx, filter, page, i, stats)
		if err == nil {
			continue
		}
		if IsFatal(err) {
			return err
		}
		entry := log.WithFields(logrus.Fields{"page": page, "case": i + 1}).WithError(err)
		if handled {
			stats.Stranded++
			entry.Warn("case recorded but list not restored, reloading")
		} else {
			stats.Abandoned++
			entry.Warn("case abandoned, reloading")
		}
		if err := s.paginator.Reload(ctx); err != nil {
			return fatalf("reload", err)
		}
	}
	return nil
}

// processCase handles the i-th view control of the current page. Controls are
// looked up again every time since returning to the list replaces them.
// handled is true once the record was written or recognised as a duplicate,
// so a later failure only concerns getting back to the list.
func (s *CaseScraper) processCase(ctx context.Context, filter QueryFilter, page, i int, stats *RunStats) (handled bool, err error) {
	entry := log.WithFields(logrus.Fields{"page": page, "case": i + 1})

	controls, err := s.paginator.CurrentCaseViewControls(ctx)
	if err != nil {
		return false, &NavigationError{Step: "view_controls", Err: err}
	}
	if i >= len(controls) {
		return false, &NavigationError{Step: "view_controls", Err: errors.Wrapf(ErrAbsent, "control %d of %d", i+1, len(controls))}
	}
	stats.Cases++
	if err := clickWithFallback(controls[i]); err != nil {
		return false, &NavigationError{Step: "open_case", Err: err}
	}

	rec, err := s.extractor.Extract(ctx, filter)
	if err != nil {
		return false, err
	}
	entry = entry.WithField("cnr", rec.CNRNumber)

	duplicate := false
	if rec.CNRNumber != "" {
		if duplicate, err = s.seen.Seen(ctx, rec.CNRNumber); err != nil {
			return false, fatalf("seen_store", err)
		}
	}
	if duplicate {
		stats.Duplicates++
		entry.Info("already written, skipping")
	} else {
		rec = s.fetcher.Fetch(ctx, rec)
		if rec.PdfDownloaded {
			stats.PDFs++
		}
		if err := s.sink.Append(ctx, rec); err != nil {
			return false, err
		}
		stats.Written++
		if rec.CNRNumber != "" {
			if err := s.seen.Mark(ctx, rec.CNRNumber); err != nil {
				return false, fatalf("seen_store", err)
			}
		}
		entry.WithField("pdf", rec.PdfDownloaded).Info("case written")
	}

	return true, s.backToList(ctx)
}

func (s *CaseScraper) backToList(ctx context.Context) error {
	back, err := s.loc.WaitFor(ctx, s.contract.BackControl, s.timing.Wait)
	if err != nil {
		return &NavigationError{Step: "back", Err: err}
	}
	if err := clickWithFallback(back); err != nil {
		return &NavigationError{Step: "back", Err: err}
	}
	if _, err := s.guard.DismissIfPresent(ctx, ErrorModal, 0); err != nil {
		return &NavigationError{Step: "back", Err: err}
	}
	return nil
}
