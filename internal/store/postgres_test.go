package store

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen/internal/model"
)

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgresCreateCampaign(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO campaigns`).
		WithArgs(pgxmock.AnyArg(), "plumbers-denver", "plumbers", "Denver, CO", 50,
			nil, "created", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	c, err := s.CreateCampaign(context.Background(), model.Campaign{
		Name:     "plumbers-denver",
		Query:    "plumbers",
		Location: "Denver, CO",
		MaxLeads: 50,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, model.CampaignStatusCreated, c.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateCampaignNotFound(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`UPDATE campaigns SET`).
		WithArgs("failed", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	status := model.CampaignStatusFailed
	err := s.UpdateCampaign(context.Background(), "missing", model.CampaignUpdate{Status: &status})
	assert.True(t, model.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateLeadSkipsRegressiveStatus(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM leads`).
		WithArgs("lead-1").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("researched"))
	// Only phone_valid lands; the regressive status write is dropped.
	mock.ExpectExec(`UPDATE leads SET phone_valid = \$1, updated_at = \$2 WHERE id = \$3`).
		WithArgs("valid", pgxmock.AnyArg(), "lead-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	validated := model.LeadStatusValidated
	valid := model.TriValid
	err := s.UpdateLead(context.Background(), "lead-1", model.LeadUpdate{
		Status:     &validated,
		PhoneValid: &valid,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordStageRun(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO pipeline_runs`).
		WithArgs("c1", "validation", "completed", 10, 8, 2, nil,
			1.5, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.RecordStageRun(context.Background(), model.StageRun{
		CampaignID: "c1",
		Stage:      model.StageValidate,
		Status:     model.StageStatusCompleted,
		Processed:  10,
		Succeeded:  8,
		Failed:     2,
		Duration:   1.5,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
