package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/ektp-scanner/constants"
	"github.com/joseph-ayodele/ektp-scanner/internal/batch"
	"github.com/joseph-ayodele/ektp-scanner/internal/common"
	"github.com/joseph-ayodele/ektp-scanner/internal/ktp"
)

const (
	tableBatches = "ektp_batches"
	tableItems   = "ektp_items"
)

// fixed-width so created_at sorts lexically
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// recordColumns follows constants.FieldOrder.
var recordColumns = []string{
	"nik",
	"nama",
	"tempat_tanggal_lahir",
	"jenis_kelamin",
	"gol_darah",
	"alamat",
	"rt_rw",
	"kel_desa",
	"kecamatan",
	"agama",
	"status_perkawinan",
	"pekerjaan",
	"kewarganegaraan",
}

// DDL uses only types both backends accept.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS ` + tableBatches + ` (
		id         TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		status     TEXT NOT NULL,
		documents  INTEGER NOT NULL,
		parsed     INTEGER NOT NULL,
		failed     INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ` + tableItems + ` (
		batch_id     TEXT NOT NULL REFERENCES ` + tableBatches + `(id),
		item_index   INTEGER NOT NULL,
		source       TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		status       TEXT NOT NULL,
		error_text   TEXT NOT NULL,
		` + strings.Join(recordColumns, " TEXT NOT NULL,\n\t\t") + ` TEXT NOT NULL,
		PRIMARY KEY (batch_id, item_index)
	)`,
	`CREATE INDEX IF NOT EXISTS ektp_batches_created_at ON ` + tableBatches + ` (created_at)`,
}

// Migrate creates the archive tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if err := s.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			s.logger.Error("archive migration failed", "step", i, "error", err)
			return common.NewAppError(common.CodeArchive, fmt.Sprintf("migrate step %d", i), err)
		}
	}
	s.logger.Debug("archive migrated", "steps", len(migrations))
	return nil
}

// hasher is implemented by sources that know their content digest.
type hasher interface {
	HashHex() string
}

// SaveBatch stores b and every item, replacing an earlier save of the same
// batch. A failed batch is stored as FAILED and none of its items are listed.
func (s *Store) SaveBatch(ctx context.Context, b *batch.Batch) (err error) {
	start := time.Now()
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return common.NewAppError(common.CodeArchive, "begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	d := s.builder()
	id := b.ID.String()
	query, args := d.Delete(tableItems).Where(entsql.EQ("batch_id", id)).Query()
	if err = tx.Exec(ctx, query, args, nil); err != nil {
		return common.NewAppError(common.CodeArchive, "clear items", err)
	}
	query, args = d.Delete(tableBatches).Where(entsql.EQ("id", id)).Query()
	if err = tx.Exec(ctx, query, args, nil); err != nil {
		return common.NewAppError(common.CodeArchive, "clear batch", err)
	}

	status := constants.BatchStatusCompleted
	if b.Failed() {
		status = constants.BatchStatusFailed
	}
	sum := b.Summary()
	query, args = d.Insert(tableBatches).
		Columns("id", "created_at", "status", "documents", "parsed", "failed").
		Values(id, b.CreatedAt.UTC().Format(tsLayout), string(status), sum.Total, sum.Parsed, sum.Failed).
		Query()
	if err = tx.Exec(ctx, query, args, nil); err != nil {
		return common.NewAppError(common.CodeArchive, "insert batch", err)
	}

	if len(b.Items) > 0 {
		columns := append([]string{"batch_id", "item_index", "source", "content_hash", "status", "error_text"}, recordColumns...)
		insert := d.Insert(tableItems).Columns(columns...)
		for _, it := range b.Items {
			var hash, errText string
			if h, ok := it.Source.(hasher); ok {
				hash = h.HashHex()
			}
			if it.Err != nil {
				errText = it.Err.Error()
			}
			values := []any{id, it.Index, it.Source.Name(), hash, string(it.Status), errText}
			for _, v := range it.Record.Values() {
				values = append(values, v)
			}
			insert.Values(values...)
		}
		query, args = insert.Query()
		if err = tx.Exec(ctx, query, args, nil); err != nil {
			return common.NewAppError(common.CodeArchive, "insert items", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return common.NewAppError(common.CodeArchive, "commit", err)
	}
	s.logger.Info("batch archived",
		"batch_id", id,
		"status", string(status),
		"items", len(b.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// ListRecords returns the parsed records of one completed batch in input order.
// A failed or unknown batch has no records.
func (s *Store) ListRecords(ctx context.Context, batchID uuid.UUID) ([]ktp.Record, error) {
	sel, items, _ := s.parsedItems()
	sel.Where(entsql.EQ(items.C("batch_id"), batchID.String())).
		OrderBy(items.C("item_index"))
	stored, err := s.scanItems(ctx, sel)
	if err != nil {
		return nil, err
	}
	return recordsOf(stored), nil
}

// ListAllRecords returns every parsed record of completed batches, oldest
// batch first.
func (s *Store) ListAllRecords(ctx context.Context) ([]ktp.Record, error) {
	stored, err := s.listAll(ctx)
	if err != nil {
		return nil, err
	}
	return recordsOf(stored), nil
}

// ListLatestRecords is ListAllRecords with one record per source: a source
// scanned again keeps its first position and takes the newest record.
func (s *Store) ListLatestRecords(ctx context.Context) ([]ktp.Record, error) {
	stored, err := s.listAll(ctx)
	if err != nil {
		return nil, err
	}
	return latestBySource(stored), nil
}

// LatestBatchID returns the most recently created completed batch, or
// ErrNotFound.
func (s *Store) LatestBatchID(ctx context.Context) (uuid.UUID, error) {
	d := s.builder()
	batches := d.Table(tableBatches)
	query, args := d.Select(batches.C("id")).
		From(batches).
		Where(entsql.EQ(batches.C("status"), string(constants.BatchStatusCompleted))).
		OrderBy(entsql.Desc(batches.C("created_at")), entsql.Desc(batches.C("id"))).
		Limit(1).
		Query()

	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return uuid.Nil, common.NewAppError(common.CodeArchive, "latest batch", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return uuid.Nil, common.NewAppError(common.CodeArchive, "latest batch", err)
		}
		return uuid.Nil, fmt.Errorf("latest batch: %w", common.ErrNotFound)
	}
	var raw string
	if err := rows.Scan(&raw); err != nil {
		return uuid.Nil, common.NewAppError(common.CodeArchive, "scan batch id", err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, common.NewAppError(common.CodeArchive, "parse batch id", err)
	}
	return id, nil
}

type storedItem struct {
	Source string
	Record ktp.Record
}

// parsedItems selects source and record columns of PARSED items that belong
// to COMPLETED batches.
func (s *Store) parsedItems() (*entsql.Selector, *entsql.SelectTable, *entsql.SelectTable) {
	d := s.builder()
	items, batches := d.Table(tableItems), d.Table(tableBatches)
	columns := []string{items.C("source")}
	for _, c := range recordColumns {
		columns = append(columns, items.C(c))
	}
	sel := d.Select(columns...).
		From(items).
		Join(batches).
		On(items.C("batch_id"), batches.C("id")).
		Where(entsql.And(
			entsql.EQ(items.C("status"), string(constants.ItemStatusParsed)),
			entsql.EQ(batches.C("status"), string(constants.BatchStatusCompleted)),
		))
	return sel, items, batches
}

func (s *Store) listAll(ctx context.Context) ([]storedItem, error) {
	sel, items, batches := s.parsedItems()
	sel.OrderBy(batches.C("created_at"), items.C("batch_id"), items.C("item_index"))
	return s.scanItems(ctx, sel)
}

func (s *Store) scanItems(ctx context.Context, sel *entsql.Selector) ([]storedItem, error) {
	query, args := sel.Query()
	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return nil, common.NewAppError(common.CodeArchive, "query records", err)
	}
	defer rows.Close()

	var out []storedItem
	var source string
	values := make([]string, len(recordColumns))
	dest := []any{&source}
	for i := range values {
		dest = append(dest, &values[i])
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, common.NewAppError(common.CodeArchive, "scan record", err)
		}
		rec, err := ktp.RecordFromValues(values)
		if err != nil {
			return nil, err
		}
		out = append(out, storedItem{Source: source, Record: rec})
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError(common.CodeArchive, "iterate records", err)
	}
	return out, nil
}

func recordsOf(items []storedItem) []ktp.Record {
	var out []ktp.Record
	for _, it := range items {
		out = append(out, it.Record)
	}
	return out
}

func latestBySource(items []storedItem) []ktp.Record {
	pos := make(map[string]int, len(items))
	var out []ktp.Record
	for _, it := range items {
		if i, ok := pos[it.Source]; ok {
			out[i] = it.Record
			continue
		}
		pos[it.Source] = len(out)
		out = append(out, it.Record)
	}
	return out
}
