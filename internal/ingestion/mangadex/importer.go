package mangadex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"sort"
	"sync"

	"mangawatch/internal/microservices/http-api/models"
)

const (
	// SyncName keys the import cursor in sync_state.
	SyncName = "mangadex_import"

	// MangaDex rejects offset+limit above 10,000, so the walk moves its
	// createdAtSince cursor before getting there.
	offsetWindow = 9900

	maxErrorDetails  = 100
	defaultBatchSize = 100
)

// Source is the subset of the API the importer needs.
type Source interface {
	GetManga(ctx context.Context, params url.Values) (*MangaListResponse, error)
	GetAuthors(ctx context.Context, ids []string) (map[string]string, error)
}

// MangaStore persists transformed manga.
type MangaStore interface {
	UpsertByDexID(ctx context.Context, m *models.Manga) (bool, error)
}

// CursorStore persists the createdAt cursor between runs.
type CursorStore interface {
	GetCursor(ctx context.Context, name string) (string, error)
	SaveCursor(ctx context.Context, name, cursor string) error
}

// ImportOptions controls a single run. An empty Cursor resumes from the
// stored one unless FromStart is set. Max <= 0 imports everything.
type ImportOptions struct {
	Cursor    string
	Max       int
	BatchSize int
	FromStart bool
}

// ImportResult summarises a run.
type ImportResult struct {
	Fetched      int      `json:"fetched"`
	Inserted     int      `json:"inserted"`
	Updated      int      `json:"updated"`
	Skipped      int      `json:"skipped"`
	Errors       int      `json:"errors"`
	ErrorDetails []string `json:"error_details"`
	LastCursor   string   `json:"last_cursor"`
}

func (r ImportResult) String() string {
	return fmt.Sprintf("fetched=%d inserted=%d updated=%d skipped=%d errors=%d cursor=%q",
		r.Fetched, r.Inserted, r.Updated, r.Skipped, r.Errors, r.LastCursor)
}

// tally guards an ImportResult shared by the batch workers.
type tally struct {
	mu  sync.Mutex
	res ImportResult
}

func (t *tally) record(fn func(r *ImportResult)) {
	t.mu.Lock()
	fn(&t.res)
	t.mu.Unlock()
}

func (t *tally) addError(id string, err error) {
	t.record(func(r *ImportResult) {
		r.Errors++
		if len(r.ErrorDetails) < maxErrorDetails {
			r.ErrorDetails = append(r.ErrorDetails, fmt.Sprintf("Manga %s: %v", id, err))
		}
	})
}

func (t *tally) snapshot() *ImportResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.res
	out.ErrorDetails = append([]string(nil), t.res.ErrorDetails...)
	return &out
}

// Importer walks the MangaDex catalog oldest first and upserts every
// manga it sees.
type Importer struct {
	source      Source
	store       MangaStore
	cursors     CursorStore
	transformer *Transformer
	workers     int
	batchSize   int
	window      int
	logger      *slog.Logger
}

func NewImporter(
	source Source,
	store MangaStore,
	cursors CursorStore,
	transformer *Transformer,
	workers, batchSize int,
	logger *slog.Logger,
) *Importer {
	if batchSize < 1 || batchSize > defaultBatchSize {
		batchSize = defaultBatchSize
	}
	return &Importer{
		source:      source,
		store:       store,
		cursors:     cursors,
		transformer: transformer,
		workers:     max(workers, 1),
		batchSize:   batchSize,
		window:      offsetWindow,
		logger:      logger,
	}
}

// Import runs until the catalog is exhausted, opts.Max manga have been
// fetched or a page cannot be fetched. The partial result is returned
// alongside any error.
func (im *Importer) Import(ctx context.Context, opts ImportOptions) (*ImportResult, error) {
	batchSize := im.batchSize
	if opts.BatchSize > 0 && opts.BatchSize < batchSize {
		batchSize = opts.BatchSize
	}

	cursor := NormalizeCursor(opts.Cursor)
	if cursor == "" && !opts.FromStart && im.cursors != nil {
		stored, err := im.cursors.GetCursor(ctx, SyncName)
		if err != nil {
			return nil, fmt.Errorf("load cursor: %w", err)
		}
		cursor = stored
	}

	t := &tally{res: ImportResult{LastCursor: cursor}}
	im.logger.Info("import_started", "cursor", cursor, "max", opts.Max, "batch_size", batchSize)

	offset, fetched := 0, 0
	// createdAtSince is inclusive, so a moved window starts with the items
	// already imported at the boundary timestamp.
	var boundary map[string]bool
	lastSeen, atLastSeen := "", map[string]bool{}
	for opts.Max <= 0 || fetched < opts.Max {
		limit := batchSize
		if opts.Max > 0 {
			limit = min(limit, opts.Max-fetched)
		}

		page, err := im.source.GetManga(ctx, MangaPageParams(limit, offset, cursor))
		if err != nil {
			t.addError(fmt.Sprintf("page(cursor=%s,offset=%d)", cursor, offset), err)
			im.saveCursor(ctx, t)
			res := t.snapshot()
			im.logger.Error("import_failed", "error", err, "result", res.String())
			return res, fmt.Errorf("fetch page at offset %d: %w", offset, err)
		}
		if len(page.Data) == 0 {
			break
		}

		fresh := dropSeen(page.Data, boundary)
		if len(fresh) > 0 {
			if err := im.processBatch(ctx, fresh, t); err != nil {
				im.saveCursor(ctx, t)
				return t.snapshot(), err
			}
		}
		for _, d := range page.Data {
			if ts := NormalizeCursor(d.Attributes.CreatedAt); ts != lastSeen {
				lastSeen, atLastSeen = ts, map[string]bool{}
			}
			atLastSeen[d.ID] = true
		}

		n := len(page.Data)
		fetched += len(fresh)
		offset += n

		if last := NormalizeCursor(page.Data[n-1].Attributes.CreatedAt); last != "" {
			t.record(func(r *ImportResult) { r.LastCursor = last })
			// a window sharing one timestamp cannot move the cursor
			if offset >= im.window && last != cursor {
				im.logger.Info("import_cursor_moved", "cursor", last, "boundary_items", len(atLastSeen))
				cursor, offset = last, 0
				boundary = maps.Clone(atLastSeen)
			}
		}
		im.saveCursor(ctx, t)

		im.logger.Info("import_page",
			"fetched", fetched,
			"cursor", cursor,
			"offset", offset,
		)

		if n < limit {
			break
		}
	}

	res := t.snapshot()
	im.logger.Info("import_completed", "result", res.String())
	return res, nil
}

// dropSeen filters out items whose ids are in seen.
func dropSeen(batch []MangaData, seen map[string]bool) []MangaData {
	if len(seen) == 0 {
		return batch
	}
	out := make([]MangaData, 0, len(batch))
	for _, d := range batch {
		if d.ID != "" && seen[d.ID] {
			continue
		}
		out = append(out, d)
	}
	return out
}

// processBatch resolves authors in one request then upserts the page on
// the worker pool.
func (im *Importer) processBatch(ctx context.Context, batch []MangaData, t *tally) error {
	authors, err := im.source.GetAuthors(ctx, authorIDs(batch))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		im.logger.Warn("import_authors_failed", "error", err)
		authors = map[string]string{}
	}

	pool := NewWorkerPool(ctx, im.workers, im.logger)
	pool.Start()
	for _, d := range batch {
		submitted := pool.Submit(func(ctx context.Context) error {
			return im.upsertOne(ctx, d, authors, t)
		})
		if !submitted {
			break
		}
	}
	pool.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (im *Importer) upsertOne(ctx context.Context, d MangaData, authors map[string]string, t *tally) error {
	t.record(func(r *ImportResult) { r.Fetched++ })
	if d.ID == "" {
		t.record(func(r *ImportResult) { r.Skipped++ })
		return nil
	}

	m := im.transformer.Transform(d, authors[d.AuthorID()])
	inserted, err := im.store.UpsertByDexID(ctx, m)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		t.addError(d.ID, err)
		return err
	}
	t.record(func(r *ImportResult) {
		if inserted {
			r.Inserted++
		} else {
			r.Updated++
		}
	})
	return nil
}

func (im *Importer) saveCursor(ctx context.Context, t *tally) {
	if im.cursors == nil {
		return
	}
	t.mu.Lock()
	cursor := t.res.LastCursor
	t.mu.Unlock()
	if cursor == "" {
		return
	}
	// a cancelled run still records how far it got
	if err := im.cursors.SaveCursor(context.WithoutCancel(ctx), SyncName, cursor); err != nil {
		im.logger.Warn("import_cursor_save_failed", "cursor", cursor, "error", err)
	}
}

// authorIDs returns the distinct author ids of a page in stable order.
func authorIDs(batch []MangaData) []string {
	seen := make(map[string]bool)
	ids := make([]string, 0, len(batch))
	for _, d := range batch {
		id := d.AuthorID()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
