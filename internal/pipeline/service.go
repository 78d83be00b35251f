package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ecosheet/ecosheet-backend/internal/aggregate"
	"github.com/ecosheet/ecosheet-backend/internal/carbon"
	"github.com/ecosheet/ecosheet-backend/internal/catalog"
	"github.com/ecosheet/ecosheet-backend/internal/mapping"
	"github.com/ecosheet/ecosheet-backend/internal/schema"
	"github.com/ecosheet/ecosheet-backend/pkg/config"
	pkgerrors "github.com/ecosheet/ecosheet-backend/pkg/errors"
	"github.com/ecosheet/ecosheet-backend/pkg/logger"
	"github.com/ecosheet/ecosheet-backend/pkg/metrics"
	pkgredis "github.com/ecosheet/ecosheet-backend/pkg/redis"
	"github.com/ecosheet/ecosheet-backend/pkg/sheets"
	"github.com/google/uuid"
)

// TableStore is the slice of the table-store session the pipeline uses.
type TableStore interface {
	FirstSheetTitle(ctx context.Context, spreadsheetID string) (string, error)
	ReadRange(ctx context.Context, spreadsheetID, rangeRef string) ([][]string, error)
	ClearRange(ctx context.Context, spreadsheetID, rangeRef string) error
	WriteRange(ctx context.Context, spreadsheetID, rangeRef string, rows [][]string) error
	BatchWriteRanges(ctx context.Context, spreadsheetID string, batch []sheets.RangeValues) error
	EnsureSheet(ctx context.Context, spreadsheetID, title string) (bool, error)
}

// SessionFunc opens a table-store session for one caller's access token.
type SessionFunc func(ctx context.Context, accessToken string) (TableStore, error)

type locker interface {
	AcquireLock(ctx context.Context, spreadsheetID, token string, ttl time.Duration) error
	ReleaseLock(ctx context.Context, spreadsheetID, token string) error
}

type catalogLoader interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
}

// JobInput starts one mapping/scoring job.
type JobInput struct {
	SpreadsheetID string
	Headers       []string
}

// JobResult reports what the job mapped and wrote.
type JobResult struct {
	SalesMapping        mapping.FieldMapping
	CustomerMapping     mapping.FieldMapping
	Message             string
	SalesSheetName      string
	CustomerSheetName   string
	SalesSheetExists    bool
	CustomerSheetExists bool
}

// Service runs the tabular-export transformation pipeline.
type Service interface {
	Headers(ctx context.Context, accessToken, spreadsheetID string) (string, []string, error)
	MapFields(ctx context.Context, accessToken string, input JobInput) (*JobResult, error)
}

type service struct {
	sessions  SessionFunc
	locks     locker
	provider  mapping.Provider
	fallback  mapping.Provider
	parser    *mapping.Parser
	projector *schema.Projector
	catalogs  catalogLoader
	cfg       config.PipelineConfig
	logg      *logger.Logger
	metrics   *metrics.PipelineMetrics
	now       func() time.Time
}

// NewService wires the pipeline. The fallback provider may be nil; provider
// failures then fail the job instead of degrading to rule-based mapping.
// A nil parser or projector is built from defaults, with the projector
// picking up the configured order status and completion lag.
func NewService(
	sessions SessionFunc,
	locks locker,
	provider mapping.Provider,
	fallback mapping.Provider,
	parser *mapping.Parser,
	projector *schema.Projector,
	catalogs catalogLoader,
	cfg config.PipelineConfig,
	logg *logger.Logger,
	pm *metrics.PipelineMetrics,
) (Service, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session factory required")
	}
	if locks == nil {
		return nil, fmt.Errorf("locker required")
	}
	if provider == nil {
		return nil, fmt.Errorf("mapping provider required")
	}
	if parser == nil {
		parser = mapping.NewParser(mapping.DefaultParserConfig())
	}
	if projector == nil {
		pcfg := schema.DefaultProjectorConfig()
		if cfg.DefaultOrderStatus != "" {
			pcfg.DefaultOrderStatus = cfg.DefaultOrderStatus
		}
		if cfg.CompletionLagDays > 0 {
			pcfg.CompletionLagDays = cfg.CompletionLagDays
		}
		projector = schema.NewProjector(pcfg)
	}
	if catalogs == nil {
		return nil, fmt.Errorf("catalog loader required")
	}
	return &service{
		sessions:  sessions,
		locks:     locks,
		provider:  provider,
		fallback:  fallback,
		parser:    parser,
		projector: projector,
		catalogs:  catalogs,
		cfg:       cfg,
		logg:      logg,
		metrics:   pm,
		now:       time.Now,
	}, nil
}

// Headers returns the first sheet's title and header row.
func (s *service) Headers(ctx context.Context, accessToken, spreadsheetID string) (string, []string, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "spreadsheet ID is required")
	}
	session, err := s.sessions(ctx, accessToken)
	if err != nil {
		return "", nil, err
	}
	title, err := session.FirstSheetTitle(ctx, spreadsheetID)
	if err != nil {
		return "", nil, err
	}
	rows, err := session.ReadRange(ctx, spreadsheetID, sheets.RangeRef(title, "1:1"))
	if err != nil {
		return "", nil, err
	}
	if len(rows) == 0 {
		return title, []string{}, nil
	}
	return title, rows[0], nil
}

// MapFields runs one job to completion: map, project, score, aggregate, and
// rewrite the normalized sheets. The whole write phase runs under a
// per-spreadsheet lock so overlapping jobs cannot interleave clears and
// writes on the same ranges.
func (s *service) MapFields(ctx context.Context, accessToken string, input JobInput) (*JobResult, error) {
	if strings.TrimSpace(input.SpreadsheetID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "spreadsheet ID is required")
	}
	if len(input.Headers) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "headers are required")
	}

	started := s.now()
	ctx = s.logCtx(ctx, input.SpreadsheetID)
	result, err := s.run(ctx, accessToken, input)
	s.metrics.ObserveDuration("map_fields", s.now().Sub(started))
	if err != nil {
		s.metrics.IncFailure("map_fields")
		return nil, err
	}
	s.metrics.IncSuccess("map_fields")
	return result, nil
}

func (s *service) run(ctx context.Context, accessToken string, input JobInput) (*JobResult, error) {
	lockToken := uuid.NewString()
	if err := s.locks.AcquireLock(ctx, input.SpreadsheetID, lockToken, s.cfg.LockTTL); err != nil {
		if errors.Is(err, pkgredis.ErrLockHeld) {
			return nil, pkgerrors.New(pkgerrors.CodeLockHeld, "another job is processing this spreadsheet")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquiring spreadsheet lock")
	}
	defer func() {
		// Release on a fresh context so a cancelled job still frees the lock.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.locks.ReleaseLock(releaseCtx, input.SpreadsheetID, lockToken); err != nil {
			s.logError(ctx, "releasing spreadsheet lock", err)
		}
	}()

	session, err := s.sessions(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	headers, rows, err := s.readSource(ctx, session, input)
	if err != nil {
		return nil, err
	}

	salesMapping, customerMapping := s.resolveMappings(ctx, input.Headers)

	ledger := s.projector.ProjectSales(headers, rows, salesMapping)
	registry := s.projector.ProjectCustomers(headers, rows, customerMapping)
	s.metrics.AddRowsProjected("sales", len(ledger))
	s.metrics.AddRowsProjected("customer", len(registry))

	scored := s.score(ctx, ledger, registry)
	aggregate.Apply(registry, aggregate.Purchases(ledger))

	result := &JobResult{
		SalesMapping:      salesMapping,
		CustomerMapping:   customerMapping,
		SalesSheetName:    s.cfg.SalesSheetName,
		CustomerSheetName: s.cfg.CustomerSheetName,
	}
	if err := s.writeTables(ctx, session, input.SpreadsheetID, ledger, registry, result); err != nil {
		return nil, err
	}
	if scored != nil {
		if err := s.writeSummary(ctx, session, input.SpreadsheetID, ledger, scored); err != nil {
			return nil, err
		}
	}

	result.Message = buildMessage(result)
	s.logInfo(ctx, fmt.Sprintf("pipeline complete: %d ledger rows, %d registry rows", len(ledger), len(registry)))
	return result, nil
}

// readSource loads the raw table from the first sheet. The sheet's own first
// row defines column positions; the caller-provided headers only drive
// mapping-text generation.
func (s *service) readSource(ctx context.Context, session TableStore, input JobInput) ([]string, [][]string, error) {
	title, err := session.FirstSheetTitle(ctx, input.SpreadsheetID)
	if err != nil {
		return nil, nil, err
	}
	rows, err := session.ReadRange(ctx, input.SpreadsheetID, sheets.RangeRef(title, ""))
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return input.Headers, nil, nil
	}
	return rows[0], rows[1:], nil
}

// resolveMappings asks the primary provider, degrading to the fallback and
// then to empty mappings. Parse ambiguity is never fatal; it only reduces
// mapping coverage downstream.
func (s *service) resolveMappings(ctx context.Context, headers []string) (mapping.FieldMapping, mapping.FieldMapping) {
	text, err := s.provider.MappingText(ctx, headers)
	if err != nil && s.fallback != nil {
		s.logError(ctx, "mapping provider failed, using rule-based fallback", err)
		text, err = s.fallback.MappingText(ctx, headers)
	}
	if err != nil {
		s.logError(ctx, "mapping text unavailable, degrading to empty mappings", err)
		return mapping.FieldMapping{}, mapping.FieldMapping{}
	}
	return s.parser.Parse(text)
}

// score runs the carbon scorer, applying results to the registry. A missing
// catalog skips scoring entirely: projection and aggregation still complete
// and are written.
func (s *service) score(ctx context.Context, ledger []schema.SalesRecord, registry []schema.CustomerRecord) *catalog.Catalog {
	cat, err := s.catalogs.Load(ctx)
	if err != nil {
		s.logError(ctx, "emission catalog unavailable, skipping carbon scoring", err)
		return nil
	}
	score := carbon.NewScorer(cat).ScoreLedger(ledger)
	carbon.ApplyScores(registry, score.Totals)
	s.metrics.AddMatchOutcomes("matched", score.Matched)
	s.metrics.AddMatchOutcomes("miss", score.Missed)
	return cat
}

// writeTables replaces both normalized sheets wholesale: ensure, clear, then
// write the full range. Cancellation is honored before every remote write so
// the store is never left with a half-written range.
func (s *service) writeTables(
	ctx context.Context,
	session TableStore,
	spreadsheetID string,
	ledger []schema.SalesRecord,
	registry []schema.CustomerRecord,
	result *JobResult,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	existed, err := session.EnsureSheet(ctx, spreadsheetID, s.cfg.SalesSheetName)
	if err != nil {
		return err
	}
	result.SalesSheetExists = existed

	existed, err = session.EnsureSheet(ctx, spreadsheetID, s.cfg.CustomerSheetName)
	if err != nil {
		return err
	}
	result.CustomerSheetExists = existed

	salesRows := make([][]string, 0, len(ledger)+1)
	salesRows = append(salesRows, schema.SalesFields)
	for _, rec := range ledger {
		salesRows = append(salesRows, rec.Row())
	}
	if err := s.replaceSheet(ctx, session, spreadsheetID, s.cfg.SalesSheetName, len(schema.SalesFields), salesRows); err != nil {
		return err
	}

	customerRows := make([][]string, 0, len(registry)+1)
	customerRows = append(customerRows, schema.CustomerFields)
	for _, rec := range registry {
		customerRows = append(customerRows, rec.Row())
	}
	return s.replaceSheet(ctx, session, spreadsheetID, s.cfg.CustomerSheetName, len(schema.CustomerFields), customerRows)
}

// replaceSheet is the idempotence primitive: clear the full addressed range,
// then write, never an incremental diff.
func (s *service) replaceSheet(ctx context.Context, session TableStore, spreadsheetID, sheetName string, colCount int, rows [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clearRange := sheets.RangeRef(sheetName, "A:"+sheets.ColumnLetter(colCount))
	if err := session.ClearRange(ctx, spreadsheetID, clearRange); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return session.WriteRange(ctx, spreadsheetID, sheets.GridRange(sheetName, colCount, len(rows)), rows)
}

// writeSummary rebuilds the reduction summary sheet from the scored ledger.
func (s *service) writeSummary(ctx context.Context, session TableStore, spreadsheetID string, ledger []schema.SalesRecord, cat *catalog.Catalog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := session.EnsureSheet(ctx, spreadsheetID, s.cfg.SummarySheetName); err != nil {
		return err
	}
	if err := session.ClearRange(ctx, spreadsheetID, sheets.RangeRef(s.cfg.SummarySheetName, "A:K")); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	summary := carbon.BuildSummary(ledger, cat, s.now())
	name := s.cfg.SummarySheetName
	return session.BatchWriteRanges(ctx, spreadsheetID, []sheets.RangeValues{
		{Range: sheets.RangeRef(name, "A1:B5"), Rows: summary.Overview},
		{Range: sheets.RangeRef(name, fmt.Sprintf("D1:E%d", len(summary.Monthly))), Rows: summary.Monthly},
		{Range: sheets.RangeRef(name, fmt.Sprintf("G1:H%d", len(summary.Category))), Rows: summary.Category},
		{Range: sheets.RangeRef(name, fmt.Sprintf("J1:K%d", len(summary.Segments))), Rows: summary.Segments},
	})
}

func buildMessage(result *JobResult) string {
	describe := func(existed bool) string {
		if existed {
			return "updated"
		}
		return "created"
	}
	return fmt.Sprintf(
		"Sales sheet %q %s, customer sheet %q %s.",
		result.SalesSheetName, describe(result.SalesSheetExists),
		result.CustomerSheetName, describe(result.CustomerSheetExists),
	)
}

func (s *service) logCtx(ctx context.Context, spreadsheetID string) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithSpreadsheetID(ctx, spreadsheetID)
}

func (s *service) logInfo(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Info(ctx, msg)
	}
}

func (s *service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}
