package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/nextier/outreach-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'ingested',
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS leads (
	id          TEXT PRIMARY KEY,
	campaign_id TEXT NOT NULL REFERENCES campaigns(id),
	data        TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS capture_events (
	id          TEXT PRIMARY KEY,
	phone       TEXT NOT NULL,
	kind        TEXT NOT NULL,
	value       TEXT,
	received_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_campaigns_status ON campaigns(status);
CREATE INDEX IF NOT EXISTS idx_leads_campaign_id ON leads(campaign_id);
CREATE INDEX IF NOT EXISTS idx_capture_events_phone ON capture_events(phone);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateCampaign(ctx context.Context, campaign *model.SMSCampaign) error {
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
		return eris.Wrap(err, "sqlite: marshal campaign")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO campaigns (id, name, status, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		campaign.ID, campaign.Name, string(campaign.Status), string(data), now, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert campaign")
	}
	return nil
}

func (s *SQLiteStore) UpdateCampaignStatus(ctx context.Context, campaignID string, status model.CampaignStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), campaignID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update campaign status %s", campaignID)
	}
	return checkRowsAffected(res, "campaign", campaignID)
}

func (s *SQLiteStore) UpdateCampaignResult(ctx context.Context, campaign *model.SMSCampaign) error {
	campaign.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(campaign)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal campaign")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET data = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(data), string(campaign.Status), campaign.UpdatedAt, campaign.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update campaign result %s", campaign.ID)
	}
	return checkRowsAffected(res, "campaign", campaign.ID)
}

func (s *SQLiteStore) GetCampaign(ctx context.Context, campaignID string) (*model.SMSCampaign, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM campaigns WHERE id = ?`, campaignID,
	).Scan(&data)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get campaign %s", campaignID)
	}

	var campaign model.SMSCampaign
	if err := json.Unmarshal([]byte(data), &campaign); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal campaign")
	}
	return &campaign, nil
}

func (s *SQLiteStore) ListCampaigns(ctx context.Context, filter CampaignFilter) ([]model.SMSCampaign, error) {
	query := `SELECT data FROM campaigns`
	args := []any{}
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 || filter.Offset > 0 {
		// SQLite requires LIMIT before OFFSET; -1 means unbounded.
		limit := filter.Limit
		if limit == 0 {
			limit = -1
		}
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list campaigns")
	}
	defer rows.Close()

	var campaigns []model.SMSCampaign
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan campaign")
		}
		var campaign model.SMSCampaign
		if err := json.Unmarshal([]byte(data), &campaign); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal campaign")
		}
		campaigns = append(campaigns, campaign)
	}
	return campaigns, eris.Wrap(rows.Err(), "sqlite: list campaigns")
}

func (s *SQLiteStore) SaveLeads(ctx context.Context, campaignID string, leads []model.QualifiedLead) error {
	if len(leads) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO leads (id, campaign_id, data, created_at) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert lead")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, lead := range leads {
		data, err := json.Marshal(lead)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal lead %s", lead.ID)
		}
		if _, err := stmt.ExecContext(ctx, lead.ID, campaignID, string(data), now); err != nil {
			return eris.Wrapf(err, "sqlite: insert lead %s", lead.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit leads")
}

func (s *SQLiteStore) ListLeads(ctx context.Context, campaignID string) ([]model.QualifiedLead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM leads WHERE campaign_id = ? ORDER BY id`, campaignID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.QualifiedLead
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		var lead model.QualifiedLead
		if err := json.Unmarshal([]byte(data), &lead); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal lead")
		}
		leads = append(leads, lead)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads")
}

func (s *SQLiteStore) SaveCaptureEvents(ctx context.Context, events []model.CaptureEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, ev := range events {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO capture_events (id, phone, kind, value, received_at) VALUES (?, ?, ?, ?, ?)`,
			uuid.New().String(), ev.Phone, string(ev.Kind), ev.Value, now,
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: insert capture event")
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit capture events")
}

func (s *SQLiteStore) ListCaptureEvents(ctx context.Context, phone string) ([]model.CaptureEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT phone, kind, value FROM capture_events WHERE phone = ? ORDER BY received_at`, phone,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list capture events")
	}
	defer rows.Close()

	var events []model.CaptureEvent
	for rows.Next() {
		var ev model.CaptureEvent
		var kind string
		var value sql.NullString
		if err := rows.Scan(&ev.Phone, &kind, &value); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan capture event")
		}
		ev.Kind = model.CaptureEventKind(kind)
		ev.Value = value.String
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: list capture events")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
