package services

import (
	"context"
	"errors"
	"io"
	"time"

	"finflow/internal/columns"
	"finflow/internal/ingest"
	"finflow/internal/log"
	"finflow/internal/normalize"
	"finflow/internal/session"
	"finflow/internal/sheets"
)

var ErrImportDisabled = errors.New("google sheets import is not configured")

// DashboardService ties the pipeline to per-browser sessions.
type DashboardService struct {
	store  *session.Store
	rules  columns.Rules
	opts   normalize.Options
	sheets sheets.TableReader
	logger *log.Logger
	events *log.StructuredLogger
	now    func() time.Time
}

// NewDashboardService wires the service. reader may be nil, which disables
// Import.
func NewDashboardService(store *session.Store, rules columns.Rules, opts normalize.Options, reader sheets.TableReader, logger *log.Logger) *DashboardService {
	if rules == nil {
		rules = columns.DefaultRules()
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentDashboard)
	return &DashboardService{
		store:  store,
		rules:  rules,
		opts:   opts,
		sheets: reader,
		logger: logger,
		events: log.NewStructuredLogger(logger),
		now:    time.Now,
	}
}

// ImportEnabled reports whether a Google Sheets reader is configured.
func (s *DashboardService) ImportEnabled() bool {
	return s.sheets != nil
}

// Session returns the live session for id.
func (s *DashboardService) Session(id string) (*session.Session, error) {
	sess, ok := s.store.Get(id)
	if !ok {
		return nil, session.ErrNotFound
	}
	return sess, nil
}

// Upload parses a spreadsheet into the session identified by sessionID,
// creating a new session when it does not exist.
//
// When a required column cannot be resolved the table is kept in the session
// with its partial mapping and the returned error wraps
// core.ErrUnresolvedColumn; the caller should ask for a manual mapping. Any
// other failure leaves the session untouched.
func (s *DashboardService) Upload(ctx context.Context, sessionID, name string, r io.Reader) (*session.Session, error) {
	tbl, err := ingest.Read(name, r)
	if err != nil {
		s.events.LogError(ctx, "Upload rejected", err, log.ComponentDashboard, log.OpUpload,
			log.NewFields().WithSession(sessionID).With(log.FieldFile, name))
		return nil, err
	}
	return s.load(ctx, sessionID, tbl, "file:"+name)
}

// Import fetches a Google Sheets range and loads it like an upload.
func (s *DashboardService) Import(ctx context.Context, sessionID, spreadsheetID, readRange string) (*session.Session, error) {
	if s.sheets == nil {
		return nil, ErrImportDisabled
	}
	tbl, err := s.sheets.ReadTable(ctx, spreadsheetID, readRange)
	if err != nil {
		s.events.LogError(ctx, "Import failed", err, log.ComponentSheets, log.OpImport,
			log.NewFields().WithSession(sessionID).With(log.FieldSpreadsheet, spreadsheetID))
		return nil, err
	}
	return s.load(ctx, sessionID, tbl, "sheets:"+spreadsheetID)
}

func (s *DashboardService) load(ctx context.Context, sessionID string, tbl ingest.Table, source string) (*session.Session, error) {
	base := s.base(sessionID)
	m := columns.Resolve(tbl.Headers, s.rules)

	if missing := m.Missing(columns.Required()); len(missing) > 0 {
		next := base.With(tbl, m, nil, s.now())
		s.store.Put(next)
		s.events.LogTableLoaded(ctx, next.ID, source, tbl.Len(), len(tbl.Headers), m.String(), false)
		return next, columns.MissingError(missing)
	}

	txs, err := normalize.Normalize(tbl, m, s.opts)
	if err != nil {
		s.events.LogError(ctx, "Normalization failed", err, log.ComponentDashboard, log.OpUpload,
			log.NewFields().WithSession(base.ID).With(log.FieldMapping, m.String()))
		return nil, err
	}
	next := base.With(tbl, m, txs, s.now())
	s.store.Put(next)
	s.events.LogTableLoaded(ctx, next.ID, source, tbl.Len(), len(tbl.Headers), m.String(), true)
	return next, nil
}

func (s *DashboardService) base(sessionID string) *session.Session {
	if sess, ok := s.store.Get(sessionID); ok {
		return sess
	}
	return &session.Session{ID: session.NewID()}
}

// Remap applies explicit column selections to the session's table and
// replaces its mapping and transactions. On error the session is unchanged.
func (s *DashboardService) Remap(ctx context.Context, sessionID string, selections map[columns.Field]string) (*session.Session, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	m, err := columns.Override(sess.Mapping, selections)
	if err != nil {
		return nil, err
	}
	if missing := m.Missing(columns.Required()); len(missing) > 0 {
		return nil, columns.MissingError(missing)
	}
	txs, err := normalize.Normalize(sess.Table, m, s.opts)
	if err != nil {
		s.events.LogError(ctx, "Remap failed", err, log.ComponentDashboard, log.OpRemap,
			log.NewFields().WithSession(sessionID).With(log.FieldMapping, m.String()))
		return nil, err
	}
	next := sess.With(sess.Table, m, txs, s.now())
	s.store.Put(next)
	s.logger.InfoContext(ctx, "Mapping updated",
		log.FieldSession, short(sessionID), log.FieldMapping, m.String(), log.FieldRows, len(txs))
	return next, nil
}

// Build computes the dashboard for the session. A session still waiting for a
// manual mapping fails with core.ErrUnresolvedColumn.
func (s *DashboardService) Build(ctx context.Context, sessionID string, req Request) (Dashboard, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return Dashboard{}, err
	}
	if !sess.Ready() {
		return Dashboard{}, columns.MissingError(sess.Mapping.Missing(columns.Required()))
	}
	d := Analyze(sess.Transactions, req)
	s.logger.DebugContext(ctx, "Dashboard built",
		log.FieldSession, short(sessionID),
		log.FieldPeriod, string(d.Request.Period),
		log.FieldRows, d.Total,
		log.FieldFiltered, len(d.Detail))
	return d, nil
}

// Reset drops the session.
func (s *DashboardService) Reset(ctx context.Context, sessionID string) {
	s.store.Delete(sessionID)
	s.logger.InfoContext(ctx, "Session reset", log.FieldSession, short(sessionID))
}

// Sessions returns the number of live sessions.
func (s *DashboardService) Sessions() int {
	return s.store.Size()
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
