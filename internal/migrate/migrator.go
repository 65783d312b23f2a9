package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"wwfm/internal/logging"
	"wwfm/internal/migrate/ledger"
	"wwfm/internal/migrate/legacy"
	"wwfm/internal/services"
	"wwfm/internal/services/cosmic"
)

// Job names accepted by Run.
const (
	JobEpisodes = "episodes"
	JobHosts    = "hosts"
	JobGenres   = "genres"
	JobImages   = "images"
)

// Ledger kinds.
const (
	kindEpisode       = "episode"
	kindHost          = "host"
	kindGenreLabel    = "genre-label"
	kindEpisodeGenres = "episode-genres"
	kindImage         = "image"
)

// Kinds lists the ledger kinds the jobs write, in job order.
func Kinds() []string {
	return []string{kindHost, kindEpisode, kindGenreLabel, kindEpisodeGenres, kindImage}
}

// Legacy sections and category groups read by the jobs.
const (
	sectionEpisodes = "episodes"
	sectionHosts    = "hosts"
	groupGenres     = "genres"
)

// DefaultThreshold is the minimum bigram similarity accepted as a match.
const DefaultThreshold = 0.6

// Jobs lists the job names in the order a full migration runs them.
func Jobs() []string {
	return []string{JobHosts, JobEpisodes, JobGenres, JobImages}
}

// Legacy is the read side of the Craft database.
type Legacy interface {
	Entries(ctx context.Context, section string) ([]legacy.Entry, error)
	Assets(ctx context.Context) ([]legacy.Asset, error)
	RelatedAssets(ctx context.Context, entryID int64) ([]legacy.Asset, error)
	RelatedEntries(ctx context.Context, entryID int64, section string) ([]int64, error)
	Categories(ctx context.Context, group string) ([]legacy.Category, error)
}

// CMS is the Cosmic API surface the jobs use.
type CMS interface {
	Objects(ctx context.Context, q cosmic.Query) (cosmic.ObjectList, error)
	Object(ctx context.Context, objectType, slug string, depth int) (cosmic.Object, error)
	InsertObject(ctx context.Context, obj cosmic.NewObject) (cosmic.Object, error)
	EditObject(ctx context.Context, id string, patch cosmic.Patch) (cosmic.Object, error)
	UploadMedia(ctx context.Context, filename string, content io.Reader, folder string) (cosmic.Media, error)
}

// Fetcher downloads legacy asset files.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// Deps are the systems a Migrator works against.
type Deps struct {
	Legacy  Legacy
	CMS     CMS
	Ledger  *ledger.Ledger
	Fetcher Fetcher
	Logger  *slog.Logger
}

// Settings tune the jobs.
type Settings struct {
	// LockPath is the flock file guarding against concurrent runs. Empty
	// disables locking.
	LockPath     string
	Location     *time.Location
	AssetBaseURL string
	MediaFolder  string
	Keywords     map[string][]string
}

// Options control a single run.
type Options struct {
	DryRun bool
	// Limit caps the records a job acts on; skipped records do not count.
	Limit     int
	Threshold float64
}

// Migrator runs the migration jobs.
type Migrator struct {
	legacy     Legacy
	cms        CMS
	ledger     *ledger.Ledger
	fetcher    Fetcher
	logger     *slog.Logger
	settings   Settings
	classifier *Classifier
	markdown   func(string) (string, error)
	newRunID   func() string
	now        func() time.Time
}

// New constructs a Migrator.
func New(deps Deps, settings Settings) (*Migrator, error) {
	if deps.Legacy == nil || deps.CMS == nil || deps.Ledger == nil {
		return nil, errors.New("migrate: legacy source, cms and ledger are required")
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.MediaFolder == "" {
		settings.MediaFolder = "legacy"
	}
	if settings.Keywords == nil {
		settings.Keywords = DefaultKeywords()
	}
	if deps.Fetcher == nil {
		deps.Fetcher = NewHTTPFetcher(nil)
	}
	return &Migrator{
		legacy:   deps.Legacy,
		cms:      deps.CMS,
		ledger:   deps.Ledger,
		fetcher:  deps.Fetcher,
		logger:   logging.NewComponentLogger(deps.Logger, "migrate"),
		settings: settings,
		markdown: newMarkdownConverter(settings.AssetBaseURL),
		newRunID: uuid.NewString,
		now:      time.Now,
	}, nil
}

// run is the state shared by one job invocation.
type run struct {
	id     string
	opts   Options
	report *Report
	logger *slog.Logger
	acted  int
}

// full reports whether the run has reached its limit.
func (r *run) full() bool {
	return r.opts.Limit > 0 && r.acted >= r.opts.Limit
}

func (r *run) add(row Row) {
	if row.Status != ledger.StatusSkipped {
		r.acted++
	}
	r.report.Rows = append(r.report.Rows, row)
}

// Run executes the named job under the migration lock.
func (m *Migrator) Run(ctx context.Context, job string, opts Options) (*Report, error) {
	jobFn, ok := map[string]func(context.Context, *run) error{
		JobEpisodes: m.episodes,
		JobHosts:    m.hosts,
		JobGenres:   m.genres,
		JobImages:   m.images,
	}[job]
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "migrate", "run", fmt.Sprintf("unknown job %q", job), nil)
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}

	unlock, err := m.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	r := &run{
		id:   m.newRunID(),
		opts: opts,
		report: &Report{
			Job:     job,
			DryRun:  opts.DryRun,
			Started: m.now(),
		},
	}
	r.report.RunID = r.id
	ctx = services.WithRunID(ctx, r.id)
	r.logger = logging.WithContext(ctx, m.logger).With(logging.String("job", job))
	r.logger.Info("migration started",
		logging.Bool("dry_run", opts.DryRun),
		logging.Int("limit", opts.Limit),
	)

	if !opts.DryRun {
		if err := m.ledger.StartRun(ctx, r.id, job, false); err != nil {
			return nil, err
		}
	}
	jobErr := jobFn(ctx, r)
	r.report.Finished = m.now()
	summary := r.report.Summary()
	if !opts.DryRun {
		if jobErr != nil {
			summary += "; aborted: " + jobErr.Error()
		}
		if err := m.ledger.FinishRun(context.WithoutCancel(ctx), r.id, summary); err != nil {
			r.logger.Warn("record run finish", logging.Error(err))
		}
	}
	if jobErr != nil {
		logging.ErrorWithContext(r.logger, "migration aborted", "migration_aborted",
			logging.String("summary", summary),
			logging.Error(jobErr),
		)
		return r.report, jobErr
	}
	r.logger.Info("migration finished", logging.String("summary", summary))
	return r.report, nil
}

func (m *Migrator) lock() (func(), error) {
	path := m.settings.LockPath
	if path == "" {
		return func() {}, nil
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire migration lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "migrate", "lock", "another migration is already running ("+path+")", nil)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			m.logger.Warn("failed to release migration lock", logging.Error(err))
		}
	}, nil
}

// record writes a ledger row unless the run is dry.
func (m *Migrator) record(ctx context.Context, r *run, kind, legacyID, cosmicID string, status ledger.Status, detail string) error {
	if r.opts.DryRun {
		return nil
	}
	return m.ledger.Put(ctx, ledger.Record{
		Kind:     kind,
		LegacyID: legacyID,
		CosmicID: cosmicID,
		Status:   status,
		Detail:   detail,
		RunID:    r.id,
	})
}

// fail logs a per-record failure, records it and adds a report row. Only
// context cancellation and ledger errors stop the job.
func (m *Migrator) fail(ctx context.Context, r *run, row Row, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	row.Status = ledger.StatusFailed
	row.Detail = err.Error()
	logging.WarnWithContext(r.logger, "record failed", "migration_record_failed",
		logging.String("kind", row.Kind),
		logging.String("legacy_id", row.LegacyID),
		logging.Error(err),
	)
	r.add(row)
	return m.record(ctx, r, row.Kind, row.LegacyID, row.CosmicID, ledger.StatusFailed, row.Detail)
}

// cosmicID resolves a legacy record to the Cosmic object it became, whether
// this tool created it or found it already present.
func (m *Migrator) cosmicID(ctx context.Context, kind string, legacyID int64) (string, bool, error) {
	rec, ok, err := m.ledger.Lookup(ctx, kind, strconv.FormatInt(legacyID, 10))
	if err != nil || !ok || rec.CosmicID == "" {
		return "", false, err
	}
	if rec.Status != ledger.StatusMigrated && rec.Status != ledger.StatusSkipped {
		return "", false, nil
	}
	return rec.CosmicID, true, nil
}

// allObjects pages through every object of a type.
func (m *Migrator) allObjects(ctx context.Context, objectType string, props []string) ([]cosmic.Object, error) {
	const page = 100
	var out []cosmic.Object
	for skip := 0; ; skip += page {
		list, err := m.cms.Objects(ctx, cosmic.Query{Type: objectType, Props: props, Limit: page, Skip: skip, Sort: "created_at"})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", objectType, err)
		}
		out = append(out, list.Objects...)
		if len(list.Objects) < page || len(out) >= list.Total {
			return out, nil
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
