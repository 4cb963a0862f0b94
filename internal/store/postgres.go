package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/nextier/outreach-cli/internal/db"
	"github.com/nextier/outreach-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_campaign":        `INSERT INTO campaigns (id, name, status, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"update_campaign_status": `UPDATE campaigns SET status = $1, updated_at = $2 WHERE id = $3`,
	"update_campaign_result": `UPDATE campaigns SET data = $1, status = $2, updated_at = $3 WHERE id = $4`,
	"get_campaign":           `SELECT data FROM campaigns WHERE id = $1`,
	"insert_capture_event":   `INSERT INTO capture_events (id, phone, kind, value, received_at) VALUES ($1, $2, $3, $4, $5)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'ingested',
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS leads (
	id          TEXT PRIMARY KEY,
	campaign_id TEXT NOT NULL REFERENCES campaigns(id),
	data        JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS capture_events (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	phone       TEXT NOT NULL,
	kind        TEXT NOT NULL,
	value       TEXT,
	received_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_campaigns_status ON campaigns(status);
CREATE INDEX IF NOT EXISTS idx_leads_campaign_id ON leads(campaign_id);
CREATE INDEX IF NOT EXISTS idx_capture_events_phone ON capture_events(phone);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateCampaign(ctx context.Context, campaign *model.SMSCampaign) error {
	now := time.Now().UTC()
	if campaign.ID == "" {
		campaign.ID = uuid.New().String()
	}
	if campaign.Status == "" {
		campaign.Status = model.CampaignIngested
	}
	campaign.CreatedAt = now
	campaign.UpdatedAt = now

	data, err := json.Marshal(campaign)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal campaign")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO campaigns (id, name, status, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		campaign.ID, campaign.Name, string(campaign.Status), data, now, now,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert campaign")
	}
	return nil
}

func (s *PostgresStore) UpdateCampaignStatus(ctx context.Context, campaignID string, status model.CampaignStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE campaigns SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), campaignID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update campaign status %s", campaignID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("campaign not found: %s", campaignID)
	}
	return nil
}

func (s *PostgresStore) UpdateCampaignResult(ctx context.Context, campaign *model.SMSCampaign) error {
	campaign.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(campaign)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal campaign")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE campaigns SET data = $1, status = $2, updated_at = $3 WHERE id = $4`,
		data, string(campaign.Status), campaign.UpdatedAt, campaign.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update campaign result %s", campaign.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("campaign not found: %s", campaign.ID)
	}
	return nil
}

func (s *PostgresStore) GetCampaign(ctx context.Context, campaignID string) (*model.SMSCampaign, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM campaigns WHERE id = $1`, campaignID,
	).Scan(&data)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get campaign %s", campaignID)
	}

	var campaign model.SMSCampaign
	if err := json.Unmarshal(data, &campaign); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal campaign")
	}
	return &campaign, nil
}

func (s *PostgresStore) ListCampaigns(ctx context.Context, filter CampaignFilter) ([]model.SMSCampaign, error) {
	query := `SELECT data FROM campaigns`
	args := []any{}
	argN := 1
	if filter.Status != "" {
		query += fmt.Sprintf(` WHERE status = $%d`, argN)
		args = append(args, string(filter.Status))
		argN++
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argN)
		args = append(args, filter.Limit)
		argN++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argN)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list campaigns")
	}
	defer rows.Close()

	var campaigns []model.SMSCampaign
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan campaign")
		}
		var campaign model.SMSCampaign
		if err := json.Unmarshal(data, &campaign); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal campaign")
		}
		campaigns = append(campaigns, campaign)
	}
	return campaigns, eris.Wrap(rows.Err(), "postgres: list campaigns")
}

// SaveLeads bulk-inserts qualified leads using the COPY protocol. Blocks of
// two thousand records make row-at-a-time inserts noticeably slow.
func (s *PostgresStore) SaveLeads(ctx context.Context, campaignID string, leads []model.QualifiedLead) error {
	if len(leads) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(leads))
	for _, lead := range leads {
		data, err := json.Marshal(lead)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal lead %s", lead.ID)
		}
		rows = append(rows, []any{lead.ID, campaignID, data, now})
	}

	_, err := db.CopyFrom(ctx, s.pool, "leads", []string{"id", "campaign_id", "data", "created_at"}, rows)
	return eris.Wrapf(err, "postgres: save leads for %s", campaignID)
}

func (s *PostgresStore) ListLeads(ctx context.Context, campaignID string) ([]model.QualifiedLead, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM leads WHERE campaign_id = $1 ORDER BY id`, campaignID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.QualifiedLead
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		var lead model.QualifiedLead
		if err := json.Unmarshal(data, &lead); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal lead")
		}
		leads = append(leads, lead)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads")
}

func (s *PostgresStore) SaveCaptureEvents(ctx context.Context, events []model.CaptureEvent) error {
	now := time.Now().UTC()
	for _, ev := range events {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO capture_events (id, phone, kind, value, received_at) VALUES ($1, $2, $3, $4, $5)`,
			uuid.New().String(), ev.Phone, string(ev.Kind), ev.Value, now,
		)
		if err != nil {
			return eris.Wrap(err, "postgres: insert capture event")
		}
	}
	return nil
}

func (s *PostgresStore) ListCaptureEvents(ctx context.Context, phone string) ([]model.CaptureEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT phone, kind, value FROM capture_events WHERE phone = $1 ORDER BY received_at`, phone,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list capture events")
	}
	defer rows.Close()

	var events []model.CaptureEvent
	for rows.Next() {
		var ev model.CaptureEvent
		var kind string
		var value *string
		if err := rows.Scan(&ev.Phone, &kind, &value); err != nil {
			return nil, eris.Wrap(err, "postgres: scan capture event")
		}
		ev.Kind = model.CaptureEventKind(kind)
		if value != nil {
			ev.Value = *value
		}
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "postgres: list capture events")
}
