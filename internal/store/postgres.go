package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"coldchain/compliance/internal/domain"
)

// SchemaStatements creates the engine's tables. Safe to run repeatedly.
var SchemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS shipments (
		id               TEXT        PRIMARY KEY,
		order_number     TEXT        NOT NULL,
		status           TEXT        NOT NULL,
		vehicle_id       TEXT        NOT NULL DEFAULT '',
		product_category TEXT        NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_shipment_status CHECK (
			status IN ('pending', 'processing', 'in-transit', 'delivered', 'cancelled')
		)
	);`,
	`CREATE TABLE IF NOT EXISTS range_versions (
		id             TEXT             PRIMARY KEY,
		scope          TEXT             NOT NULL,
		key            TEXT             NOT NULL,
		min_celsius    DOUBLE PRECISION,
		max_celsius    DOUBLE PRECISION,
		effective_from TIMESTAMPTZ      NOT NULL,
		created_by     TEXT             NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_range_scope CHECK (scope IN ('shipment', 'category')),
		CONSTRAINT chk_range_bounds CHECK (
			min_celsius IS NULL OR max_celsius IS NULL OR max_celsius >= min_celsius
		)
	);`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id                  TEXT             PRIMARY KEY,
		shipment_id         TEXT             NOT NULL REFERENCES shipments (id),
		trigger_reading_id  TEXT             NOT NULL,
		trigger_temperature DOUBLE PRECISION NOT NULL,
		location            TEXT             NOT NULL DEFAULT '',
		severity            TEXT             NOT NULL,
		status              TEXT             NOT NULL,
		opened_at           TIMESTAMPTZ      NOT NULL,
		last_violation_at   TIMESTAMPTZ      NOT NULL,
		violation_count     INTEGER          NOT NULL DEFAULT 1,
		resolved_at         TIMESTAMPTZ,
		resolved_by         TEXT,
		resolution_note     TEXT,
		CONSTRAINT chk_alert_severity CHECK (severity IN ('low', 'medium', 'high')),
		CONSTRAINT chk_alert_status CHECK (status IN ('pending', 'resolved'))
	);`,
	`CREATE TABLE IF NOT EXISTS temperature_readings (
		id          TEXT             PRIMARY KEY,
		shipment_id TEXT             NOT NULL REFERENCES shipments (id),
		timestamp   TIMESTAMPTZ      NOT NULL,
		received_at TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
		temperature DOUBLE PRECISION NOT NULL,
		humidity    DOUBLE PRECISION,
		location    TEXT             NOT NULL DEFAULT '',
		note        TEXT             NOT NULL DEFAULT '',
		source      TEXT             NOT NULL,
		compliance  TEXT             NOT NULL,
		severity    TEXT             NOT NULL DEFAULT '',
		alert_id    TEXT             NOT NULL DEFAULT '',
		CONSTRAINT chk_reading_source CHECK (source IN ('manual', 'device')),
		CONSTRAINT chk_reading_compliance CHECK (compliance IN ('compliant', 'violation', 'unevaluated'))
	);`,
	`CREATE TABLE IF NOT EXISTS alert_readings (
		alert_id   TEXT NOT NULL REFERENCES alerts (id),
		reading_id TEXT NOT NULL REFERENCES temperature_readings (id),
		PRIMARY KEY (alert_id, reading_id)
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_one_open_per_shipment
		ON alerts (shipment_id) WHERE status = 'pending';`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_opened_at ON alerts (opened_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_readings_shipment_time ON temperature_readings (shipment_id, timestamp DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_readings_time ON temperature_readings (timestamp DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_range_versions_key ON range_versions (scope, key, effective_from);`,
	`CREATE INDEX IF NOT EXISTS idx_shipments_order ON shipments (order_number);`,
}

// pgxPool is the subset of *pgxpool.Pool the store uses.
type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// querier and execer are satisfied by both the pool and an open transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	pool pgxPool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// NewPostgresStoreFromPool wraps an existing pool.
func NewPostgresStoreFromPool(pool pgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return domain.StorageErr("ping db", s.pool.Ping(ctx))
}

const shipmentColumns = `id, order_number, status, vehicle_id, product_category, created_at, updated_at`

func scanShipment(row pgx.Row) (domain.Shipment, error) {
	var sh domain.Shipment
	var status, category string
	err := row.Scan(&sh.ID, &sh.OrderNumber, &status, &sh.VehicleID, &category, &sh.CreatedAt, &sh.UpdatedAt)
	sh.Status = domain.ShipmentStatus(status)
	sh.ProductCategory = domain.ProductCategory(category)
	sh.CreatedAt = sh.CreatedAt.UTC()
	sh.UpdatedAt = sh.UpdatedAt.UTC()
	return sh, err
}

func (s *PostgresStore) CreateShipment(ctx context.Context, sh domain.Shipment, overrides ...domain.RangeVersion) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.StorageErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO shipments (`+shipmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, sh.ID, sh.OrderNumber, string(sh.Status), sh.VehicleID, string(sh.ProductCategory), sh.CreatedAt, sh.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.Conflictf("shipment %s already exists", sh.ID)
	}
	if err != nil {
		return domain.StorageErr("insert shipment", err)
	}

	for _, v := range overrides {
		if err := insertRangeVersion(ctx, tx, v); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.StorageErr("commit tx", err)
	}
	return nil
}

func (s *PostgresStore) GetShipment(ctx context.Context, id string) (domain.Shipment, error) {
	sh, err := scanShipment(s.pool.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Shipment{}, domain.NotFoundf("shipment %s not found", id)
	}
	if err != nil {
		return domain.Shipment{}, domain.StorageErr("get shipment", err)
	}
	return sh, nil
}

// WithShipmentLock takes a row lock on the shipment for the duration of a
// transaction. Concurrent callers for the same shipment queue on the lock.
func (s *PostgresStore) WithShipmentLock(ctx context.Context, shipmentID string, fn func(tx ShipmentTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.StorageErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	sh, err := scanShipment(tx.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1 FOR UPDATE`, shipmentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFoundf("shipment %s not found", shipmentID)
	}
	if err != nil {
		return domain.StorageErr("lock shipment", err)
	}

	if err := fn(&pgShipmentTx{tx: tx, shipment: sh}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.StorageErr("commit tx", err)
	}
	return nil
}

func (s *PostgresStore) AppendRangeVersion(ctx context.Context, v domain.RangeVersion) error {
	return insertRangeVersion(ctx, s.pool, v)
}

func insertRangeVersion(ctx context.Context, db execer, v domain.RangeVersion) error {
	_, err := db.Exec(ctx, `
		INSERT INTO range_versions (id, scope, key, min_celsius, max_celsius, effective_from, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, v.ID, string(v.Scope), v.Key, v.Range.Min, v.Range.Max, v.Range.EffectiveFrom, v.CreatedBy, v.CreatedAt)
	return domain.StorageErr("insert range version", err)
}

func (s *PostgresStore) RangeVersions(ctx context.Context, scope domain.RangeScope, key string) ([]domain.RangeVersion, error) {
	return queryRangeVersions(ctx, s.pool, scope, key)
}

func queryRangeVersions(ctx context.Context, db querier, scope domain.RangeScope, key string) ([]domain.RangeVersion, error) {
	rows, err := db.Query(ctx, `
		SELECT id, scope, key, min_celsius, max_celsius, effective_from, created_by, created_at
		FROM range_versions
		WHERE scope = $1 AND key = $2
		ORDER BY effective_from ASC, created_at ASC
	`, string(scope), key)
	if err != nil {
		return nil, domain.StorageErr("query range versions", err)
	}
	defer rows.Close()

	var out []domain.RangeVersion
	for rows.Next() {
		var v domain.RangeVersion
		var sc string
		if err := rows.Scan(&v.ID, &sc, &v.Key, &v.Range.Min, &v.Range.Max, &v.Range.EffectiveFrom, &v.CreatedBy, &v.CreatedAt); err != nil {
			return nil, domain.StorageErr("scan range version", err)
		}
		v.Scope = domain.RangeScope(sc)
		v.Range.EffectiveFrom = v.Range.EffectiveFrom.UTC()
		v.CreatedAt = v.CreatedAt.UTC()
		out = append(out, v)
	}
	return out, domain.StorageErr("iterate range versions", rows.Err())
}

const alertColumns = `a.id, a.shipment_id, a.trigger_reading_id, a.trigger_temperature, a.location,
	a.severity, a.status, a.opened_at, a.last_violation_at, a.violation_count,
	a.resolved_at, a.resolved_by, a.resolution_note`

func scanAlert(row pgx.Row) (domain.Alert, error) {
	var a domain.Alert
	var severity, status string
	err := row.Scan(
		&a.ID, &a.ShipmentID, &a.TriggerReadingID, &a.TriggerTemperature, &a.Location,
		&severity, &status, &a.OpenedAt, &a.LastViolationAt, &a.ViolationCount,
		&a.ResolvedAt, &a.ResolvedBy, &a.ResolutionNote,
	)
	a.Severity = domain.Severity(severity)
	a.Status = domain.AlertStatus(status)
	a.OpenedAt = a.OpenedAt.UTC()
	a.LastViolationAt = a.LastViolationAt.UTC()
	if a.ResolvedAt != nil {
		t := a.ResolvedAt.UTC()
		a.ResolvedAt = &t
	}
	return a, err
}

func (s *PostgresStore) GetAlert(ctx context.Context, id string) (domain.Alert, error) {
	a, err := scanAlert(s.pool.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts a WHERE a.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Alert{}, domain.NotFoundf("alert %s not found", id)
	}
	if err != nil {
		return domain.Alert{}, domain.StorageErr("get alert", err)
	}
	return a, nil
}

const readingColumns = `r.id, r.shipment_id, r.timestamp, r.received_at, r.temperature, r.humidity,
	r.location, r.note, r.source, r.compliance, r.severity, r.alert_id`

func scanReading(row pgx.Row) (domain.TemperatureReading, error) {
	var r domain.TemperatureReading
	var source, compliance, severity string
	err := row.Scan(
		&r.ID, &r.ShipmentID, &r.Timestamp, &r.ReceivedAt, &r.Temperature, &r.Humidity,
		&r.Location, &r.Note, &source, &compliance, &severity, &r.AlertID,
	)
	r.Source = domain.ReadingSource(source)
	r.Compliance = domain.Compliance(compliance)
	r.Severity = domain.Severity(severity)
	r.Timestamp = r.Timestamp.UTC()
	r.ReceivedAt = r.ReceivedAt.UTC()
	return r, err
}

func (s *PostgresStore) AlertReadings(ctx context.Context, alertID string) ([]domain.TemperatureReading, error) {
	if _, err := s.GetAlert(ctx, alertID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+readingColumns+`
		FROM alert_readings ar
		JOIN temperature_readings r ON r.id = ar.reading_id
		WHERE ar.alert_id = $1
		ORDER BY r.timestamp ASC
	`, alertID)
	if err != nil {
		return nil, domain.StorageErr("query alert readings", err)
	}
	defer rows.Close()

	out := []domain.TemperatureReading{}
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, domain.StorageErr("scan reading", err)
		}
		out = append(out, r)
	}
	return out, domain.StorageErr("iterate alert readings", rows.Err())
}

// whereBuilder accumulates AND-ed conditions with positional arguments.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *whereBuilder) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func (w *whereBuilder) next() string {
	return fmt.Sprintf("$%d", len(w.args)+1)
}

func orderDirection(o domain.SortOrder) string {
	if o == domain.SortAsc {
		return "ASC"
	}
	return "DESC"
}

func (s *PostgresStore) ListReadings(ctx context.Context, f domain.ReadingFilter) ([]domain.TemperatureReading, int, error) {
	w := &whereBuilder{}
	if f.ShipmentID != "" {
		w.add("r.shipment_id = ?", f.ShipmentID)
	}
	if f.OrderNumber != "" {
		w.add("s.order_number = ?", f.OrderNumber)
	}
	if f.Compliance != "" {
		w.add("r.compliance = ?", string(f.Compliance))
	}
	if f.Severity != "" {
		w.add("r.severity = ?", string(f.Severity))
	}
	if f.Location != "" {
		w.add("strpos(lower(r.location), lower(?)) > 0", f.Location)
	}
	if f.Start != nil {
		w.add("r.timestamp >= ?", *f.Start)
	}
	if f.End != nil {
		w.add("r.timestamp <= ?", *f.End)
	}
	from := ` FROM temperature_readings r JOIN shipments s ON s.id = r.shipment_id` + w.sql()

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*)`+from, w.args...).Scan(&total); err != nil {
		return nil, 0, domain.StorageErr("count readings", err)
	}

	sortCol := "r.timestamp"
	if f.SortBy == domain.SortByTemperature {
		sortCol = "r.temperature"
	}
	dir := orderDirection(f.Order)
	query := `SELECT ` + readingColumns + from +
		` ORDER BY ` + sortCol + ` ` + dir + `, r.timestamp DESC, r.id ASC` +
		` LIMIT ` + w.next()
	args := append(w.args, f.Limit)
	query += ` OFFSET ` + fmt.Sprintf("$%d", len(args)+1)
	args = append(args, f.Offset())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, domain.StorageErr("query readings", err)
	}
	defer rows.Close()

	items := []domain.TemperatureReading{}
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, 0, domain.StorageErr("scan reading", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.StorageErr("iterate readings", err)
	}
	return items, total, nil
}

func (s *PostgresStore) ListAlerts(ctx context.Context, f domain.AlertFilter) ([]domain.Alert, int, error) {
	w := &whereBuilder{}
	if f.ShipmentID != "" {
		w.add("a.shipment_id = ?", f.ShipmentID)
	}
	if f.OrderNumber != "" {
		w.add("s.order_number = ?", f.OrderNumber)
	}
	if f.Status != "" {
		w.add("a.status = ?", string(f.Status))
	}
	if f.Severity != "" {
		w.add("a.severity = ?", string(f.Severity))
	}
	if f.Location != "" {
		w.add("strpos(lower(a.location), lower(?)) > 0", f.Location)
	}
	if f.Start != nil {
		w.add("a.opened_at >= ?", *f.Start)
	}
	if f.End != nil {
		w.add("a.opened_at <= ?", *f.End)
	}
	from := ` FROM alerts a JOIN shipments s ON s.id = a.shipment_id` + w.sql()

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*)`+from, w.args...).Scan(&total); err != nil {
		return nil, 0, domain.StorageErr("count alerts", err)
	}

	sortCol := "a.opened_at"
	if f.SortBy == domain.SortBySeverity {
		sortCol = "CASE a.severity WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END"
	}
	query := `SELECT ` + alertColumns + from +
		` ORDER BY ` + sortCol + ` ` + orderDirection(f.Order) + `, a.opened_at DESC, a.id ASC` +
		` LIMIT ` + w.next()
	args := append(w.args, f.Limit)
	query += ` OFFSET ` + fmt.Sprintf("$%d", len(args)+1)
	args = append(args, f.Offset())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, domain.StorageErr("query alerts", err)
	}
	defer rows.Close()

	items := []domain.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, 0, domain.StorageErr("scan alert", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.StorageErr("iterate alerts", err)
	}
	return items, total, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type pgShipmentTx struct {
	tx       pgx.Tx
	shipment domain.Shipment
}

func (t *pgShipmentTx) Shipment() domain.Shipment { return t.shipment }

func (t *pgShipmentTx) SetShipmentStatus(ctx context.Context, status domain.ShipmentStatus, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE shipments SET status = $2, updated_at = $3 WHERE id = $1`,
		t.shipment.ID, string(status), at)
	if err != nil {
		return domain.StorageErr("update shipment status", err)
	}
	t.shipment.Status = status
	t.shipment.UpdatedAt = at
	return nil
}

func (t *pgShipmentTx) InsertReading(ctx context.Context, r domain.TemperatureReading) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO temperature_readings
			(id, shipment_id, timestamp, received_at, temperature, humidity, location, note, source, compliance, severity, alert_id)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, r.ID, r.ShipmentID, r.Timestamp, r.ReceivedAt, r.Temperature, r.Humidity,
		r.Location, r.Note, string(r.Source), string(r.Compliance), string(r.Severity), r.AlertID)
	return domain.StorageErr("insert reading", err)
}

func (t *pgShipmentTx) OpenAlert(ctx context.Context) (*domain.Alert, error) {
	a, err := scanAlert(t.tx.QueryRow(ctx,
		`SELECT `+alertColumns+` FROM alerts a WHERE a.shipment_id = $1 AND a.status = 'pending'`,
		t.shipment.ID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.StorageErr("get open alert", err)
	}
	return &a, nil
}

func (t *pgShipmentTx) GetAlert(ctx context.Context, alertID string) (domain.Alert, error) {
	a, err := scanAlert(t.tx.QueryRow(ctx,
		`SELECT `+alertColumns+` FROM alerts a WHERE a.id = $1 AND a.shipment_id = $2`,
		alertID, t.shipment.ID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Alert{}, domain.NotFoundf("alert %s not found for shipment %s", alertID, t.shipment.ID)
	}
	if err != nil {
		return domain.Alert{}, domain.StorageErr("get alert", err)
	}
	return a, nil
}

func (t *pgShipmentTx) InsertAlert(ctx context.Context, a domain.Alert) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO alerts
			(id, shipment_id, trigger_reading_id, trigger_temperature, location, severity, status,
			 opened_at, last_violation_at, violation_count, resolved_at, resolved_by, resolution_note)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, a.ID, a.ShipmentID, a.TriggerReadingID, a.TriggerTemperature, a.Location, string(a.Severity), string(a.Status),
		a.OpenedAt, a.LastViolationAt, a.ViolationCount, a.ResolvedAt, a.ResolvedBy, a.ResolutionNote)
	if isUniqueViolation(err) {
		return domain.Conflictf("shipment %s already has an open alert", a.ShipmentID)
	}
	return domain.StorageErr("insert alert", err)
}

func (t *pgShipmentTx) UpdateAlert(ctx context.Context, a domain.Alert) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE alerts SET
			severity = $2, status = $3, last_violation_at = $4, violation_count = $5,
			resolved_at = $6, resolved_by = $7, resolution_note = $8
		WHERE id = $1 AND shipment_id = $9
	`, a.ID, string(a.Severity), string(a.Status), a.LastViolationAt, a.ViolationCount,
		a.ResolvedAt, a.ResolvedBy, a.ResolutionNote, t.shipment.ID)
	if err != nil {
		return domain.StorageErr("update alert", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("alert %s not found for shipment %s", a.ID, t.shipment.ID)
	}
	return nil
}

func (t *pgShipmentTx) RangeVersions(ctx context.Context, scope domain.RangeScope, key string) ([]domain.RangeVersion, error) {
	return queryRangeVersions(ctx, t.tx, scope, key)
}

func (t *pgShipmentTx) LinkReading(ctx context.Context, alertID, readingID string) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO alert_readings (alert_id, reading_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, alertID, readingID)
	return domain.StorageErr("link reading", err)
}
