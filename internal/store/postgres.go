package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen/internal/db"
	"github.com/sells-group/leadgen/internal/model"
)

// PostgresStore implements Store on top of a pgx pool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres connects to the given database URL and pings it.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Tests use this with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	query              TEXT NOT NULL,
	location           TEXT NOT NULL,
	max_leads          INTEGER NOT NULL,
	from_email         TEXT,
	status             TEXT NOT NULL DEFAULT 'created',
	total_leads        INTEGER NOT NULL DEFAULT 0,
	validated_leads    INTEGER NOT NULL DEFAULT 0,
	enriched_leads     INTEGER NOT NULL DEFAULT 0,
	personalized_leads INTEGER NOT NULL DEFAULT 0,
	error_message      TEXT,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at       TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS leads (
	id                   TEXT PRIMARY KEY,
	campaign_id          TEXT NOT NULL REFERENCES campaigns(id),
	place_id             TEXT NOT NULL,
	name                 TEXT NOT NULL,
	address              TEXT,
	city                 TEXT,
	state                TEXT,
	postal_code          TEXT,
	country              TEXT,
	phone                TEXT,
	email                TEXT,
	website              TEXT,
	category             TEXT,
	rating               DOUBLE PRECISION,
	reviews_count        INTEGER,
	latitude             DOUBLE PRECISION,
	longitude            DOUBLE PRECISION,
	status               TEXT NOT NULL DEFAULT 'collected',
	email_valid          TEXT NOT NULL DEFAULT 'unknown',
	phone_valid          TEXT NOT NULL DEFAULT 'unknown',
	company_valid        TEXT NOT NULL DEFAULT 'unknown',
	linkedin_enriched    BOOLEAN NOT NULL DEFAULT FALSE,
	research_completed   BOOLEAN NOT NULL DEFAULT FALSE,
	message_personalized BOOLEAN NOT NULL DEFAULT FALSE,
	linkedin_profile     JSONB,
	research_data        JSONB,
	personalized_message JSONB,
	stage_error          TEXT,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(campaign_id, place_id)
);

CREATE TABLE IF NOT EXISTS pipeline_runs (
	id               BIGSERIAL PRIMARY KEY,
	campaign_id      TEXT NOT NULL REFERENCES campaigns(id),
	stage            TEXT NOT NULL,
	status           TEXT NOT NULL,
	processed_count  INTEGER NOT NULL DEFAULT 0,
	success_count    INTEGER NOT NULL DEFAULT 0,
	error_count      INTEGER NOT NULL DEFAULT 0,
	error_message    TEXT,
	duration_seconds DOUBLE PRECISION,
	started_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at     TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_campaigns_status ON campaigns(status);
CREATE INDEX IF NOT EXISTS idx_leads_campaign ON leads(campaign_id);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_pipeline_runs_campaign ON pipeline_runs(campaign_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateCampaign(ctx context.Context, c model.Campaign) (*model.Campaign, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.Status = model.CampaignStatusCreated
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO campaigns (id, name, query, location, max_leads, from_email, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.Name, c.Query, c.Location, c.MaxLeads, nullString(c.FromEmail), string(c.Status), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert campaign")
	}
	return &c, nil
}

func (s *PostgresStore) UpdateCampaign(ctx context.Context, campaignID string, u model.CampaignUpdate) error {
	sets, args := campaignUpdateClauses(u)
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), campaignID)

	query := renumber(fmt.Sprintf(`UPDATE campaigns SET %s WHERE id = ?`, strings.Join(sets, ", ")))
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update campaign %s", campaignID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrNotFound, "campaign %s", campaignID)
	}
	return nil
}

func (s *PostgresStore) GetCampaign(ctx context.Context, campaignID string) (*model.Campaign, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, campaignID,
	)
	c, err := scanCampaign(row)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrNotFound, "campaign %s", campaignID)
		}
		return nil, eris.Wrapf(err, "postgres: get campaign %s", campaignID)
	}
	return c, nil
}

func (s *PostgresStore) ListCampaigns(ctx context.Context, limit int) ([]model.Campaign, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+campaignColumns+` FROM campaigns ORDER BY created_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list campaigns")
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan campaign")
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, eris.Wrap(rows.Err(), "postgres: list campaigns iterate")
}

func (s *PostgresStore) DeleteCampaignsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin cleanup tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, q := range []string{
		`DELETE FROM pipeline_runs WHERE campaign_id IN (SELECT id FROM campaigns WHERE created_at < $1)`,
		`DELETE FROM leads WHERE campaign_id IN (SELECT id FROM campaigns WHERE created_at < $1)`,
	} {
		if _, err := tx.Exec(ctx, q, cutoff); err != nil {
			return 0, eris.Wrap(err, "postgres: cleanup children")
		}
	}
	tag, err := tx.Exec(ctx, `DELETE FROM campaigns WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: cleanup campaigns")
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit cleanup")
	}
	return int(tag.RowsAffected()), nil
}

var leadInsertColumns = []string{
	"id", "campaign_id", "place_id", "name", "address", "city", "state",
	"postal_code", "country", "phone", "email", "website", "category",
	"rating", "reviews_count", "latitude", "longitude", "status",
	"created_at", "updated_at",
}

// InsertLeads bulk-upserts leads keyed by (campaign_id, place_id). Directory
// fields are refreshed on conflict; pipeline state is left untouched.
func (s *PostgresStore) InsertLeads(ctx context.Context, campaignID string, leads []model.Lead) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(leads))
	for _, l := range leads {
		id := l.ID
		if id == "" {
			id = uuid.New().String()
		}
		rows = append(rows, []any{
			id, campaignID, l.PlaceID, l.Name, nullString(l.Address), nullString(l.City),
			nullString(l.State), nullString(l.PostalCode), nullString(l.Country),
			nullString(l.Phone), nullString(l.Email), nullString(l.Website),
			nullString(l.Category), l.Rating, l.ReviewsCount, l.Latitude, l.Longitude,
			string(model.LeadStatusCollected), now, now,
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "leads",
		Columns:      leadInsertColumns,
		ConflictKeys: []string{"campaign_id", "place_id"},
		UpdateCols: []string{
			"name", "address", "city", "state", "postal_code", "country",
			"phone", "email", "website", "category", "rating", "reviews_count",
			"latitude", "longitude", "updated_at",
		},
	}, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert leads for %s", campaignID)
	}
	return int(n), nil
}

func (s *PostgresStore) UpdateLead(ctx context.Context, leadID string, u model.LeadUpdate) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin update lead")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var current string
	if err := tx.QueryRow(ctx,
		`SELECT status FROM leads WHERE id = $1 FOR UPDATE`, leadID,
	).Scan(&current); err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return eris.Wrapf(model.ErrNotFound, "lead %s", leadID)
		}
		return eris.Wrapf(err, "postgres: read lead status %s", leadID)
	}

	sets, args, err := leadUpdateClauses(u, model.LeadStatus(current))
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		return eris.Wrap(tx.Commit(ctx), "postgres: commit update lead")
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), leadID)

	query := renumber(fmt.Sprintf(`UPDATE leads SET %s WHERE id = ?`, strings.Join(sets, ", ")))
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return eris.Wrapf(err, "postgres: update lead %s", leadID)
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit update lead")
}

func (s *PostgresStore) GetLeadsByCampaign(ctx context.Context, campaignID string, status model.LeadStatus) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE campaign_id = $1`
	args := []any{campaignID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: leads for campaign %s", campaignID)
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: leads iterate")
}

func (s *PostgresStore) RecordStageRun(ctx context.Context, sr model.StageRun) error {
	startedAt := sr.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}
	var completedAt any
	if sr.CompletedAt != nil {
		completedAt = *sr.CompletedAt
	} else if sr.Status == model.StageStatusCompleted {
		completedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO pipeline_runs (
			campaign_id, stage, status, processed_count, success_count,
			error_count, error_message, duration_seconds, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sr.CampaignID, string(sr.Stage), string(sr.Status), sr.Processed, sr.Succeeded,
		sr.Failed, nullString(sr.ErrorMessage), sr.Duration, startedAt, completedAt,
	)
	return eris.Wrapf(err, "postgres: record stage run %s/%s", sr.CampaignID, sr.Stage)
}

func (s *PostgresStore) GetStageRuns(ctx context.Context, campaignID string) ([]model.StageRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, campaign_id, stage, status, processed_count, success_count,
		       error_count, error_message, duration_seconds, started_at, completed_at
		FROM pipeline_runs WHERE campaign_id = $1 ORDER BY id`,
		campaignID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: stage runs for %s", campaignID)
	}
	defer rows.Close()

	var runs []model.StageRun
	for rows.Next() {
		var sr model.StageRun
		var errMsg sql.NullString
		var duration sql.NullFloat64
		var completedAt sql.NullTime
		if err := rows.Scan(
			&sr.ID, &sr.CampaignID, &sr.Stage, &sr.Status, &sr.Processed,
			&sr.Succeeded, &sr.Failed, &errMsg, &duration, &sr.StartedAt, &completedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan stage run")
		}
		sr.ErrorMessage = errMsg.String
		sr.Duration = duration.Float64
		if completedAt.Valid {
			t := completedAt.Time
			sr.CompletedAt = &t
		}
		runs = append(runs, sr)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: stage runs iterate")
}

func (s *PostgresStore) GetCampaignStats(ctx context.Context, campaignID string) (*model.CampaignStats, error) {
	campaign, err := s.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	stats := &model.CampaignStats{
		Campaign:      *campaign,
		LeadsByStatus: map[string]int{},
	}

	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM leads WHERE campaign_id = $1 GROUP BY status`, campaignID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: lead status counts")
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status count")
		}
		stats.LeadsByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: status counts iterate")
	}

	err = s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE email_valid = 'valid'),
			COUNT(*) FILTER (WHERE phone_valid = 'valid'),
			COUNT(*) FILTER (WHERE linkedin_enriched),
			COUNT(*) FILTER (WHERE research_completed),
			COUNT(*) FILTER (WHERE message_personalized)
		FROM leads WHERE campaign_id = $1`, campaignID,
	).Scan(&stats.ValidEmails, &stats.ValidPhones, &stats.EnrichedLeads,
		&stats.ResearchedLeads, &stats.PersonalizedLeads)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: lead flag counts")
	}

	stageRuns, err := s.GetStageRuns(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	stats.StageRuns = stageRuns

	return stats, nil
}

// renumber converts ? placeholders into the $1..$n form pgx expects. Shared
// clause builders emit ? so sqlite and postgres can use the same code.
func renumber(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
