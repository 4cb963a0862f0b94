package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextier/outreach-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_CreateCampaign(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO campaigns`).
		WithArgs("camp-1", "august-plumbers", "ingested", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.CreateCampaign(context.Background(), testCampaign("camp-1"))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCampaign_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM campaigns WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetCampaign(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get campaign")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCampaign(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	data, err := json.Marshal(testCampaign("camp-1"))
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT data FROM campaigns WHERE id = \$1`).
		WithArgs("camp-1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(data))

	got, err := s.GetCampaign(context.Background(), "camp-1")
	require.NoError(t, err)
	assert.Equal(t, "august-plumbers", got.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCampaignStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE campaigns SET status`).
		WithArgs("failed", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateCampaignStatus(context.Background(), "missing", model.CampaignFailed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "campaign not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveLeads_Copy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	leads := []model.QualifiedLead{
		{ID: "lead_1", FirstName: "Jane", CampaignID: "camp-1"},
		{ID: "lead_2", FirstName: "John", CampaignID: "camp-1"},
	}
	mock.ExpectCopyFrom([]string{"leads"}, []string{"id", "campaign_id", "data", "created_at"}).
		WillReturnResult(2)

	err := s.SaveLeads(context.Background(), "camp-1", leads)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveCaptureEvents(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO capture_events`).
		WithArgs(pgxmock.AnyArg(), "15551234567", "email", "jane@acme.com", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveCaptureEvents(context.Background(), []model.CaptureEvent{
		{Kind: model.CaptureEmail, Value: "jane@acme.com", Phone: "15551234567"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
