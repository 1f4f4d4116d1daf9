package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"parking-navigator/internal/navigator/engine"
	"parking-navigator/internal/navigator/models"
)

var ErrNoSnapshot = errors.New("no saved layout")

// ============================================================
// SQLite Repository
// ============================================================

// Repository хранит последнюю удачную раскладку по каждому участку
// и журнал изменений занятости. Реализует engine.Store.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Init применяет миграции.
func (r *Repository) Init(ctx context.Context, migrationsPath string) error {
	if err := r.runMigrations(ctx, migrationsPath); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

func (r *Repository) SaveSnapshot(ctx context.Context, snap *engine.Snapshot) error {
	data, err := json.Marshal(snap.Layout)
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
        INSERT INTO layout_snapshots (parking_id, version, revision, layout_json, saved_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(parking_id) DO UPDATE SET
            version = excluded.version,
            revision = excluded.revision,
            layout_json = excluded.layout_json,
            saved_at = excluded.saved_at
    `, snap.ParkingID, snap.Version, snap.Revision, string(data), r.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadLatest последняя сохранённая раскладка участка; без id самая свежая из всех.
func (r *Repository) LoadLatest(ctx context.Context, parkingID string) (string, models.Layout, error) {
	var row *sql.Row
	if parkingID == "" {
		row = r.db.QueryRowContext(ctx, `
            SELECT parking_id, layout_json FROM layout_snapshots
            ORDER BY saved_at DESC LIMIT 1
        `)
	} else {
		row = r.db.QueryRowContext(ctx, `
            SELECT parking_id, layout_json FROM layout_snapshots
            WHERE parking_id = ?
        `, parkingID)
	}

	var id, data string
	if err := row.Scan(&id, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", models.Layout{}, ErrNoSnapshot
		}
		return "", models.Layout{}, err
	}

	var layout models.Layout
	if err := json.Unmarshal([]byte(data), &layout); err != nil {
		return "", models.Layout{}, fmt.Errorf("decode layout: %w", err)
	}
	return id, layout, nil
}

// ============================================================
// Occupancy log
// ============================================================

type OccupancyEvent struct {
	ID        int64            `json:"id"`
	ParkingID string           `json:"parkingId"`
	Revision  uint64           `json:"revision"`
	SlotID    string           `json:"slotId"`
	Status    models.Occupancy `json:"status"`
	Source    string           `json:"source"`
	CreatedAt time.Time        `json:"createdAt"`
}

func (r *Repository) AppendOccupancy(ctx context.Context, parkingID string, revision uint64, update models.OccupancyUpdate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	createdAt := r.now().UTC().Format(time.RFC3339Nano)
	for _, ch := range update.Updates {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO occupancy_events (parking_id, revision, slot_id, status, source, created_at)
            VALUES (?, ?, ?, ?, ?, ?)
        `, parkingID, revision, ch.ID, int(ch.Status), update.Source, createdAt); err != nil {
			return fmt.Errorf("insert occupancy event: %w", err)
		}
	}
	return tx.Commit()
}

// OccupancyEvents последние события участка, от новых к старым.
func (r *Repository) OccupancyEvents(ctx context.Context, parkingID string, limit int) ([]OccupancyEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, parking_id, revision, slot_id, status, source, created_at
        FROM occupancy_events
        WHERE parking_id = ?
        ORDER BY id DESC
        LIMIT ?
    `, parkingID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OccupancyEvent
	for rows.Next() {
		var (
			ev        OccupancyEvent
			status    int
			createdAt string
		)
		if err := rows.Scan(&ev.ID, &ev.ParkingID, &ev.Revision, &ev.SlotID, &status, &ev.Source, &createdAt); err != nil {
			return nil, err
		}
		ev.Status = models.Occupancy(status)
		ev.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ============================================================
// Migrations
// ============================================================

func (r *Repository) runMigrations(ctx context.Context, migrationsPath string) error {
	data, err := os.ReadFile(migrationsPath)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

// OpenSQLite открывает sqlite по указанному пути.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
