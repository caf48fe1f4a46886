package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"PriceSentinel/internal/model"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLRecorder persists purchases and snapshots through database/sql.
type SQLRecorder struct {
	db     *sql.DB
	driver string
	mu     sync.Mutex
	now    func() time.Time
}

// NewSQLRecorder opens (or creates) the database and runs migrations.
func NewSQLRecorder(driver, dsn string) (*SQLRecorder, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// WAL lets the HTTP API read while the scheduler writes.
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	} else if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	r := &SQLRecorder{db: db, driver: driver, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("driver", driver).Msg("recorder opened")
	return r, nil
}

func (r *SQLRecorder) migrate() error {
	floatType, serial := "REAL", "INTEGER PRIMARY KEY AUTOINCREMENT"
	if r.driver == DriverPostgres {
		floatType, serial = "DOUBLE PRECISION", "BIGSERIAL PRIMARY KEY"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS purchases (
			id                TEXT PRIMARY KEY,
			item_name         TEXT NOT NULL,
			total_price       ` + floatType + `,
			amount            ` + floatType + `,
			unit              TEXT,
			unit_price        ` + floatType + `,
			normalized_unit   TEXT,
			normalized_amount ` + floatType + `,
			recorded_at       BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_purchases_item ON purchases(item_name, recorded_at)`,

		`CREATE TABLE IF NOT EXISTS market_snapshots (
			id          ` + serial + `,
			purchase_id TEXT NOT NULL,
			kind        TEXT NOT NULL,
			payload     TEXT NOT NULL,
			created_at  BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_purchase ON market_snapshots(purchase_id, created_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (r *SQLRecorder) rebind(query string) string {
	if r.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

const purchaseColumns = `p.id, p.item_name, p.total_price, p.amount, p.unit, p.unit_price, p.normalized_unit, p.normalized_amount, p.recorded_at`

func (r *SQLRecorder) SavePurchase(ctx context.Context, p *model.PurchaseRecord) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.RecordedAt.IsZero() {
		p.RecordedAt = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, r.rebind(`INSERT INTO purchases
		(id, item_name, total_price, amount, unit, unit_price, normalized_unit, normalized_amount, recorded_at)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET
			item_name = excluded.item_name,
			total_price = excluded.total_price,
			amount = excluded.amount,
			unit = excluded.unit,
			unit_price = excluded.unit_price,
			normalized_unit = excluded.normalized_unit,
			normalized_amount = excluded.normalized_amount,
			recorded_at = excluded.recorded_at`),
		p.ID.String(), p.ItemName, p.TotalPrice, p.Amount, p.Unit,
		p.Normalized.UnitPrice, p.Normalized.Unit, p.Normalized.Amount,
		p.RecordedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save purchase: %w", err)
	}
	return nil
}

func (r *SQLRecorder) GetPurchase(ctx context.Context, id uuid.UUID) (*model.PurchaseRecord, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`SELECT `+purchaseColumns+` FROM purchases p WHERE p.id = ?`), id.String())
	p, err := scanPurchase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase: %w", err)
	}
	return p, nil
}

func (r *SQLRecorder) ListPurchases(ctx context.Context, since time.Time) ([]model.PurchaseRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`SELECT `+purchaseColumns+` FROM purchases p
		WHERE p.recorded_at >= ? ORDER BY p.recorded_at, p.id`), since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return collectPurchases(rows)
}

func (r *SQLRecorder) LatestPurchaseByItem(ctx context.Context, itemName string) (*model.PurchaseRecord, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`SELECT `+purchaseColumns+` FROM purchases p
		WHERE p.item_name = ? ORDER BY p.recorded_at DESC LIMIT 1`), strings.TrimSpace(itemName))
	p, err := scanPurchase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest purchase: %w", err)
	}
	return p, nil
}

func (r *SQLRecorder) AttachAnalysis(ctx context.Context, purchaseID uuid.UUID, res model.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.ExecContext(ctx, r.rebind(`INSERT INTO market_snapshots
		(purchase_id, kind, payload, created_at) VALUES (?,?,?,?)`),
		purchaseID.String(), string(res.Kind), string(payload), r.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("attach analysis: %w", err)
	}
	return nil
}

func (r *SQLRecorder) LatestAnalysis(ctx context.Context, purchaseID uuid.UUID) (*model.Snapshot, error) {
	var payload string
	var createdAt int64
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT payload, created_at FROM market_snapshots
		WHERE purchase_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`), purchaseID.String()).
		Scan(&payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest analysis: %w", err)
	}
	snap := &model.Snapshot{PurchaseID: purchaseID.String(), CreatedAt: time.UnixMilli(createdAt)}
	if err := json.Unmarshal([]byte(payload), &snap.Result); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func (r *SQLRecorder) StalePurchases(ctx context.Context, olderThan time.Time) ([]model.PurchaseRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`SELECT `+purchaseColumns+` FROM purchases p
		LEFT JOIN (
			SELECT purchase_id, MAX(created_at) AS last_at FROM market_snapshots GROUP BY purchase_id
		) s ON s.purchase_id = p.id
		WHERE s.last_at IS NULL OR s.last_at < ?
		ORDER BY p.recorded_at, p.id`), olderThan.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("stale purchases: %w", err)
	}
	return collectPurchases(rows)
}

func (r *SQLRecorder) Close() error {
	log.Info().Msg("closing recorder")
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPurchase(s scanner) (*model.PurchaseRecord, error) {
	var (
		p          model.PurchaseRecord
		id         string
		recordedAt int64
	)
	if err := s.Scan(&id, &p.ItemName, &p.TotalPrice, &p.Amount, &p.Unit,
		&p.Normalized.UnitPrice, &p.Normalized.Unit, &p.Normalized.Amount, &recordedAt); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse purchase id: %w", err)
	}
	p.ID = parsed
	p.RecordedAt = time.UnixMilli(recordedAt)
	return &p, nil
}

func collectPurchases(rows *sql.Rows) ([]model.PurchaseRecord, error) {
	defer rows.Close()
	var out []model.PurchaseRecord
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

var (
	_ Recorder = (*SQLRecorder)(nil)
	_ Recorder = (*NoopRecorder)(nil)
)
