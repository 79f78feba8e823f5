package parser

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"unicode/utf8"

	"github.com/IANewCool/estado-transparente-portal/blob"
	"github.com/IANewCool/estado-transparente-portal/log"
	"github.com/IANewCool/estado-transparente-portal/metrics"
	"github.com/IANewCool/estado-transparente-portal/notify"
	"github.com/IANewCool/estado-transparente-portal/registry"
	"github.com/IANewCool/estado-transparente-portal/types"
)

// utf8BOM is tolerated at the start of a source file and stripped before
// decoding. It never participates in the header comparison.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Store is the canonical-store capability the parser consumes.
type Store interface {
	OpenJob(ctx context.Context, component, sourceID string) (string, error)
	CloseJob(ctx context.Context, jobID string, status types.JobStatus, detail map[string]any, errText string) error
	ArtifactByID(ctx context.Context, id string) (*types.Artifact, error)
	SetArtifactStatus(ctx context.Context, id string, status types.ParsedStatus, parseError string) error
	MetricByKey(ctx context.Context, naturalKey string) (*types.Metric, error)
	EnsureEntity(ctx context.Context, naturalKey, displayName, entityType string) (id, storedName string, err error)
	WriteSnapshot(ctx context.Context, artifactID, note string, facts []types.FactInput) (string, error)
}

// Parser turns registered artifacts into snapshots of canonical facts.
// Parsing one artifact is single-threaded end to end; distinct artifact
// ids may be parsed in parallel without coordination.
type Parser struct {
	store    Store
	blobs    blob.Store
	registry *registry.Registry
	logger   *log.Logger
	notifier notify.Notifier
}

// Option configures a Parser.
type Option func(*Parser)

// WithNotifier wires an optional job-event publisher.
func WithNotifier(n notify.Notifier) Option {
	return func(p *Parser) { p.notifier = n }
}

// New creates a parser.
func New(store Store, blobs blob.Store, reg *registry.Registry, logger *log.Logger, opts ...Option) *Parser {
	p := &Parser{store: store, blobs: blobs, registry: reg, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse normalizes one artifact into a snapshot and returns the snapshot
// id. With dryRun the pipeline runs through aggregation, logs the would-be
// output count and canonical hash, and writes nothing; the returned id is
// empty.
//
// Input-shape and integrity failures mark the artifact failed, except a
// duplicate-parse refusal, which leaves the ok artifact as it is; the blob
// is kept for forensics. No partial snapshot ever becomes visible.
func (p *Parser) Parse(ctx context.Context, artifactID string, dryRun bool) (string, error) {
	counters := metrics.NewCollector(types.ComponentParser, "")

	jobID, err := p.store.OpenJob(ctx, types.ComponentParser, "")
	if err != nil {
		return "", types.NewPipelineError(types.KindPersist, "parse", err)
	}
	logger := p.logger.WithJob(jobID)

	snapshotID, detail, err := p.parse(ctx, logger, artifactID, dryRun, counters)
	for k, v := range counters.Snapshot().Detail() {
		detail[k] = v
	}
	if err != nil {
		if kind, ok := types.KindOf(err); ok {
			detail["error_kind"] = kind.String()
		}
		p.closeJob(ctx, logger, jobID, detail, types.JobFailed, err.Error())
		return "", err
	}
	p.closeJob(ctx, logger, jobID, detail, types.JobOK, "")
	return snapshotID, nil
}

// parse runs steps 2 through 10. It returns the job detail fragment along
// with the snapshot id.
func (p *Parser) parse(ctx context.Context, logger *log.Logger, artifactID string, dryRun bool, counters *metrics.Collector) (string, map[string]any, error) {
	detail := map[string]any{"artifact_id": artifactID}
	if dryRun {
		detail["dry_run"] = true
	}

	artifact, err := p.store.ArtifactByID(ctx, artifactID)
	if err != nil {
		return "", detail, types.NewPipelineError(types.KindPersist, "parse", err)
	}
	detail["source_id"] = artifact.SourceID

	if artifact.ParsedStatus == types.ParsedOK {
		return "", detail, types.Errorf(types.KindDuplicateParse, "parse",
			"artifact %s is already parsed ok", artifactID)
	}

	src, err := p.registry.Lookup(artifact.SourceID)
	if err != nil {
		return "", detail, p.failArtifact(ctx, artifact,
			types.NewPipelineError(types.KindSchemaAmbiguity, "parse", err))
	}
	strategy, err := strategyFor(src)
	if err != nil {
		return "", detail, types.NewPipelineError(types.KindSchemaAmbiguity, "parse", err)
	}

	body, err := p.blobs.Get(ctx, artifact.StoragePath)
	if err != nil {
		return "", detail, types.NewPipelineError(types.KindStorage, "parse", err)
	}

	// The stored hash is the artifact's identity; bytes that no longer
	// match are quarantined, never parsed.
	if !types.HashMatches(artifact.ContentHash, body) {
		detail["quarantined"] = true
		return "", detail, p.failArtifact(ctx, artifact,
			types.Errorf(types.KindIntegrity, "parse",
				"blob bytes hash to %s, artifact registered %s",
				types.HashBytes(body), artifact.ContentHash))
	}

	batch, tuples, err := p.normalize(src, strategy, body, counters)
	if err != nil {
		return "", detail, p.failArtifact(ctx, artifact, err)
	}

	outputHash := canonicalHash(tuples)
	detail["facts"] = len(batch.Groups)
	detail["output_hash"] = outputHash

	if dryRun {
		logger.Info("dry run complete", map[string]any{
			"facts":       len(batch.Groups),
			"rows_read":   batch.RowsRead,
			"output_hash": outputHash,
		})
		return "", detail, nil
	}

	snapshotID, renamed, err := p.persist(ctx, logger, src, artifact, batch, counters)
	if err != nil {
		return "", detail, err
	}
	if renamed > 0 {
		detail["renamed_entities"] = renamed
	}
	detail["snapshot_id"] = snapshotID
	return snapshotID, detail, nil
}

// normalize decodes, validates the header and aggregates the rows.
func (p *Parser) normalize(src *registry.Source, strategy Strategy, body []byte, counters *metrics.Collector) (*Batch, []factTuple, error) {
	body = bytes.TrimPrefix(body, utf8BOM)
	if !utf8.Valid(body) {
		return nil, nil, types.Errorf(types.KindSchemaAmbiguity, "parse",
			"source %s: body is not valid %s", src.ID, src.Encoding)
	}

	reader := csv.NewReader(bytes.NewReader(body))
	reader.Comma = src.DelimiterRune()
	reader.FieldsPerRecord = len(src.Header)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, types.Errorf(types.KindSchemaAmbiguity, "parse",
				"source %s: artifact has no header row", src.ID)
		}
		return nil, nil, types.Errorf(types.KindSchemaAmbiguity, "parse",
			"source %s: reading header: %v", src.ID, err)
	}
	if err := strategy.ValidateHeader(header); err != nil {
		return nil, nil, err
	}

	var records [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Field-count deviations land here; the shape changed.
			return nil, nil, types.Errorf(types.KindRowValidation, "parse", "%v", err)
		}
		records = append(records, rec)
	}
	counters.AddRowsRead(int64(len(records)))

	batch, err := strategy.Normalize(records, 2)
	if err != nil {
		counters.IncRowsRejected()
		return nil, nil, err
	}

	start, end := src.Period()
	tuples := make([]factTuple, 0, len(batch.Groups))
	for _, g := range batch.Groups {
		tuples = append(tuples, factTuple{
			EntityKey:   g.EntityKey,
			MetricKey:   src.MetricKey,
			PeriodStart: start,
			PeriodEnd:   end,
			Value:       g.Value,
			Unit:        "", // unit resolves from the metric at persist time
			Dims:        groupDims(g),
		})
	}
	return batch, tuples, nil
}

// persist resolves the metric and entities, then writes the snapshot in
// one transaction. Facts are inserted ordered by (metric_key, entity_key).
func (p *Parser) persist(ctx context.Context, logger *log.Logger, src *registry.Source, artifact *types.Artifact, batch *Batch, counters *metrics.Collector) (string, int, error) {
	metric, err := p.store.MetricByKey(ctx, src.MetricKey)
	if err != nil {
		return "", 0, p.failArtifact(ctx, artifact,
			types.Errorf(types.KindUnknownMetric, "parse",
				"metric %q is not registered: %v", src.MetricKey, err))
	}

	groups := make([]Group, len(batch.Groups))
	copy(groups, batch.Groups)
	sort.Slice(groups, func(i, j int) bool { return groups[i].EntityKey < groups[j].EntityKey })

	start, end := src.Period()
	renamed := 0
	facts := make([]types.FactInput, 0, len(groups))
	for _, g := range groups {
		entityID, storedName, err := p.store.EnsureEntity(ctx, g.EntityKey, g.EntityName, src.EntityType)
		if err != nil {
			return "", 0, types.NewPipelineError(types.KindPersist, "parse", err)
		}
		// First-seen-wins naming: a divergent later name is reported,
		// never applied.
		if storedName != g.EntityName {
			renamed++
			logger.Warn("entity display name diverges from stored name", map[string]any{
				"entity_key": g.EntityKey,
				"stored":     storedName,
				"incoming":   g.EntityName,
			})
		}

		facts = append(facts, types.FactInput{
			EntityID:    entityID,
			MetricID:    metric.ID,
			PeriodStart: start,
			PeriodEnd:   end,
			ValueNum:    g.Value,
			Unit:        metric.Unit,
			Dims:        groupDims(g),
			Location:    fmt.Sprintf("csv:group=%s", g.EntityKey),
			Method:      "parse",
		})
	}

	note := fmt.Sprintf("%s %s", src.ID, artifact.ContentHash)
	snapshotID, err := p.store.WriteSnapshot(ctx, artifact.ID, note, facts)
	if err != nil {
		return "", 0, types.NewPipelineError(types.KindPersist, "parse", err)
	}
	counters.AddFactsWritten(int64(len(facts)))
	return snapshotID, renamed, nil
}

// groupDims builds the dims map for one aggregated group.
func groupDims(g Group) map[string]any {
	dims := map[string]any{
		"partida_code":    g.EntityKey,
		"aggregated_rows": g.Rows,
	}
	if len(g.Breakdown) > 0 {
		dims["subtitulo_breakdown"] = g.Breakdown
	}
	return dims
}

// failArtifact marks the artifact failed with the error text and returns
// the error. Status-update failures are secondary; the parse error wins.
func (p *Parser) failArtifact(ctx context.Context, artifact *types.Artifact, parseErr error) error {
	if err := p.store.SetArtifactStatus(ctx, artifact.ID, types.ParsedFailed, parseErr.Error()); err != nil {
		p.logger.Error("failed to mark artifact failed", map[string]any{
			"artifact_id": artifact.ID,
			"error":       err.Error(),
		})
	}
	return parseErr
}

// closeJob finishes the job row and publishes the completion event.
func (p *Parser) closeJob(ctx context.Context, logger *log.Logger, jobID string, detail map[string]any, status types.JobStatus, errText string) {
	if err := p.store.CloseJob(ctx, jobID, status, detail, errText); err != nil {
		logger.Error("failed to close job run", map[string]any{"error": err.Error()})
	}
	if p.notifier == nil {
		return
	}
	sourceID, _ := detail["source_id"].(string)
	event := notify.NewJobEvent(jobID, types.ComponentParser, sourceID, status, detail, errText)
	if err := p.notifier.Publish(ctx, event); err != nil {
		logger.Warn("job event publish failed", map[string]any{"error": err.Error()})
	}
}
