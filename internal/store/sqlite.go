package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadgen/internal/model"
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
		"PRAGMA foreign_keys=ON",
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
	created_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at       DATETIME
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
	rating               REAL,
	reviews_count        INTEGER,
	latitude             REAL,
	longitude            REAL,
	status               TEXT NOT NULL DEFAULT 'collected',
	email_valid          TEXT NOT NULL DEFAULT 'unknown',
	phone_valid          TEXT NOT NULL DEFAULT 'unknown',
	company_valid        TEXT NOT NULL DEFAULT 'unknown',
	linkedin_enriched    INTEGER NOT NULL DEFAULT 0,
	research_completed   INTEGER NOT NULL DEFAULT 0,
	message_personalized INTEGER NOT NULL DEFAULT 0,
	linkedin_profile     TEXT,
	research_data        TEXT,
	personalized_message TEXT,
	stage_error          TEXT,
	created_at           DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at           DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE(campaign_id, place_id)
);

CREATE TABLE IF NOT EXISTS pipeline_runs (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	campaign_id      TEXT NOT NULL REFERENCES campaigns(id),
	stage            TEXT NOT NULL,
	status           TEXT NOT NULL,
	processed_count  INTEGER NOT NULL DEFAULT 0,
	success_count    INTEGER NOT NULL DEFAULT 0,
	error_count      INTEGER NOT NULL DEFAULT 0,
	error_message    TEXT,
	duration_seconds REAL,
	started_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at     DATETIME
);

CREATE INDEX IF NOT EXISTS idx_campaigns_status ON campaigns(status);
CREATE INDEX IF NOT EXISTS idx_leads_campaign ON leads(campaign_id);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_pipeline_runs_campaign ON pipeline_runs(campaign_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateCampaign(ctx context.Context, c model.Campaign) (*model.Campaign, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.Status = model.CampaignStatusCreated
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO campaigns (id, name, query, location, max_leads, from_email, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Query, c.Location, c.MaxLeads, nullString(c.FromEmail), string(c.Status), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert campaign")
	}
	return &c, nil
}

func (s *SQLiteStore) UpdateCampaign(ctx context.Context, campaignID string, u model.CampaignUpdate) error {
	sets, args := campaignUpdateClauses(u)
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), campaignID)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE campaigns SET %s WHERE id = ?`, strings.Join(sets, ", ")),
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update campaign %s", campaignID)
	}
	return checkRowsAffected(res, "campaign", campaignID)
}

func campaignUpdateClauses(u model.CampaignUpdate) ([]string, []any) {
	var sets []string
	var args []any
	if u.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*u.Status))
	}
	if u.TotalLeads != nil {
		sets = append(sets, "total_leads = ?")
		args = append(args, *u.TotalLeads)
	}
	if u.ValidatedLeads != nil {
		sets = append(sets, "validated_leads = ?")
		args = append(args, *u.ValidatedLeads)
	}
	if u.EnrichedLeads != nil {
		sets = append(sets, "enriched_leads = ?")
		args = append(args, *u.EnrichedLeads)
	}
	if u.PersonalizedLeads != nil {
		sets = append(sets, "personalized_leads = ?")
		args = append(args, *u.PersonalizedLeads)
	}
	if u.ErrorMessage != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, *u.ErrorMessage)
	}
	if u.CompletedAt != nil {
		sets = append(sets, "completed_at = ?")
		args = append(args, *u.CompletedAt)
	}
	return sets, args
}

const campaignColumns = `id, name, query, location, max_leads, from_email, status,
	total_leads, validated_leads, enriched_leads, personalized_leads,
	error_message, created_at, updated_at, completed_at`

func (s *SQLiteStore) GetCampaign(ctx context.Context, campaignID string) (*model.Campaign, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, campaignID,
	)
	c, err := scanCampaign(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrNotFound, "campaign %s", campaignID)
		}
		return nil, eris.Wrapf(err, "sqlite: get campaign %s", campaignID)
	}
	return c, nil
}

func (s *SQLiteStore) ListCampaigns(ctx context.Context, limit int) ([]model.Campaign, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list campaigns")
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan campaign")
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, eris.Wrap(rows.Err(), "sqlite: list campaigns iterate")
}

func (s *SQLiteStore) DeleteCampaignsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin cleanup tx")
	}
	defer tx.Rollback() //nolint:errcheck

	// Children first, campaigns last.
	for _, q := range []string{
		`DELETE FROM pipeline_runs WHERE campaign_id IN (SELECT id FROM campaigns WHERE created_at < ?)`,
		`DELETE FROM leads WHERE campaign_id IN (SELECT id FROM campaigns WHERE created_at < ?)`,
	} {
		if _, err := tx.ExecContext(ctx, q, cutoff); err != nil {
			return 0, eris.Wrap(err, "sqlite: cleanup children")
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM campaigns WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: cleanup campaigns")
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit cleanup")
	}
	return int(n), nil
}

// InsertLeads upserts leads keyed by (campaign_id, place_id). Re-running the
// collector merges directory fields into existing rows; pipeline state
// (status, validation flags, enrichment payloads) is never touched.
func (s *SQLiteStore) InsertLeads(ctx context.Context, campaignID string, leads []model.Lead) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert leads")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	count := 0
	for _, l := range leads {
		id := l.ID
		if id == "" {
			id = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO leads (
				id, campaign_id, place_id, name, address, city, state, postal_code,
				country, phone, email, website, category, rating, reviews_count,
				latitude, longitude, status, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(campaign_id, place_id) DO UPDATE SET
				name = excluded.name,
				address = excluded.address,
				city = excluded.city,
				state = excluded.state,
				postal_code = excluded.postal_code,
				country = excluded.country,
				phone = excluded.phone,
				email = excluded.email,
				website = excluded.website,
				category = excluded.category,
				rating = excluded.rating,
				reviews_count = excluded.reviews_count,
				latitude = excluded.latitude,
				longitude = excluded.longitude,
				updated_at = excluded.updated_at`,
			id, campaignID, l.PlaceID, l.Name, nullString(l.Address), nullString(l.City),
			nullString(l.State), nullString(l.PostalCode), nullString(l.Country),
			nullString(l.Phone), nullString(l.Email), nullString(l.Website),
			nullString(l.Category), l.Rating, l.ReviewsCount, l.Latitude, l.Longitude,
			string(model.LeadStatusCollected), now, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert lead %s", l.PlaceID)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit insert leads")
	}
	return count, nil
}

// UpdateLead applies a partial mutation to one lead. Status changes that do
// not advance the lifecycle are dropped silently so stage re-runs stay
// idempotent; enrichment flags only ever go false to true.
func (s *SQLiteStore) UpdateLead(ctx context.Context, leadID string, u model.LeadUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin update lead")
	}
	defer tx.Rollback() //nolint:errcheck

	var current string
	if err := tx.QueryRowContext(ctx, `SELECT status FROM leads WHERE id = ?`, leadID).Scan(&current); err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return eris.Wrapf(model.ErrNotFound, "lead %s", leadID)
		}
		return eris.Wrapf(err, "sqlite: read lead status %s", leadID)
	}

	sets, args, err := leadUpdateClauses(u, model.LeadStatus(current))
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		return tx.Commit()
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), leadID)

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE leads SET %s WHERE id = ?`, strings.Join(sets, ", ")),
		args...,
	); err != nil {
		return eris.Wrapf(err, "sqlite: update lead %s", leadID)
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit update lead")
}

func leadUpdateClauses(u model.LeadUpdate, current model.LeadStatus) ([]string, []any, error) {
	var sets []string
	var args []any

	if u.Status != nil && current.Advances(*u.Status) {
		sets = append(sets, "status = ?")
		args = append(args, string(*u.Status))
	}
	if u.EmailValid != nil {
		sets = append(sets, "email_valid = ?")
		args = append(args, string(*u.EmailValid))
	}
	if u.PhoneValid != nil {
		sets = append(sets, "phone_valid = ?")
		args = append(args, string(*u.PhoneValid))
	}
	if u.CompanyValid != nil {
		sets = append(sets, "company_valid = ?")
		args = append(args, string(*u.CompanyValid))
	}
	if u.LinkedInEnriched {
		sets = append(sets, "linkedin_enriched = 1")
	}
	if u.ResearchCompleted {
		sets = append(sets, "research_completed = 1")
	}
	if u.MessagePersonalized {
		sets = append(sets, "message_personalized = 1")
	}
	for _, p := range []struct {
		col string
		val any
	}{
		{"linkedin_profile", u.LinkedInProfile},
		{"research_data", u.ResearchData},
		{"personalized_message", u.PersonalizedMessage},
	} {
		if isNilPtr(p.val) {
			continue
		}
		data, err := json.Marshal(p.val)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "sqlite: marshal %s", p.col)
		}
		sets = append(sets, p.col+" = ?")
		args = append(args, string(data))
	}
	if u.StageError != nil {
		sets = append(sets, "stage_error = ?")
		args = append(args, *u.StageError)
	}
	return sets, args, nil
}

func isNilPtr(v any) bool {
	switch x := v.(type) {
	case *model.LinkedInProfile:
		return x == nil
	case *model.ResearchData:
		return x == nil
	case *model.PersonalizedMessage:
		return x == nil
	default:
		return v == nil
	}
}

const leadColumns = `id, campaign_id, place_id, name, address, city, state, postal_code,
	country, phone, email, website, category, rating, reviews_count, latitude, longitude,
	status, email_valid, phone_valid, company_valid,
	linkedin_enriched, research_completed, message_personalized,
	linkedin_profile, research_data, personalized_message, stage_error,
	created_at, updated_at`

func (s *SQLiteStore) GetLeadsByCampaign(ctx context.Context, campaignID string, status model.LeadStatus) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE campaign_id = ?`
	args := []any{campaignID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: leads for campaign %s", campaignID)
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: leads iterate")
}

func (s *SQLiteStore) RecordStageRun(ctx context.Context, sr model.StageRun) error {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (
			campaign_id, stage, status, processed_count, success_count,
			error_count, error_message, duration_seconds, started_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sr.CampaignID, string(sr.Stage), string(sr.Status), sr.Processed, sr.Succeeded,
		sr.Failed, nullString(sr.ErrorMessage), sr.Duration, startedAt, completedAt,
	)
	return eris.Wrapf(err, "sqlite: record stage run %s/%s", sr.CampaignID, sr.Stage)
}

func (s *SQLiteStore) GetStageRuns(ctx context.Context, campaignID string) ([]model.StageRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, campaign_id, stage, status, processed_count, success_count,
		       error_count, error_message, duration_seconds, started_at, completed_at
		FROM pipeline_runs WHERE campaign_id = ? ORDER BY id`,
		campaignID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: stage runs for %s", campaignID)
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
			return nil, eris.Wrap(err, "sqlite: scan stage run")
		}
		sr.ErrorMessage = errMsg.String
		sr.Duration = duration.Float64
		if completedAt.Valid {
			t := completedAt.Time
			sr.CompletedAt = &t
		}
		runs = append(runs, sr)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: stage runs iterate")
}

func (s *SQLiteStore) GetCampaignStats(ctx context.Context, campaignID string) (*model.CampaignStats, error) {
	campaign, err := s.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	stats := &model.CampaignStats{
		Campaign:      *campaign,
		LeadsByStatus: map[string]int{},
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM leads WHERE campaign_id = ? GROUP BY status`, campaignID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: lead status counts")
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan status count")
		}
		stats.LeadsByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: status counts iterate")
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN email_valid = 'valid' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN phone_valid = 'valid' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(linkedin_enriched), 0),
			COALESCE(SUM(research_completed), 0),
			COALESCE(SUM(message_personalized), 0)
		FROM leads WHERE campaign_id = ?`, campaignID,
	).Scan(&stats.ValidEmails, &stats.ValidPhones, &stats.EnrichedLeads,
		&stats.ResearchedLeads, &stats.PersonalizedLeads)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: lead flag counts")
	}

	stageRuns, err := s.GetStageRuns(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	stats.StageRuns = stageRuns

	return stats, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row scanner) (*model.Campaign, error) {
	var c model.Campaign
	var fromEmail, errMsg sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(
		&c.ID, &c.Name, &c.Query, &c.Location, &c.MaxLeads, &fromEmail, &c.Status,
		&c.TotalLeads, &c.ValidatedLeads, &c.EnrichedLeads, &c.PersonalizedLeads,
		&errMsg, &c.CreatedAt, &c.UpdatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	c.FromEmail = fromEmail.String
	c.ErrorMessage = errMsg.String
	if completedAt.Valid {
		t := completedAt.Time
		c.CompletedAt = &t
	}
	return &c, nil
}

func scanLead(row scanner) (*model.Lead, error) {
	var l model.Lead
	var address, city, state, postalCode, country, phone, email, website, category sql.NullString
	var rating, latitude, longitude sql.NullFloat64
	var reviewsCount sql.NullInt64
	var linkedinJSON, researchJSON, messageJSON, stageError sql.NullString

	err := row.Scan(
		&l.ID, &l.CampaignID, &l.PlaceID, &l.Name, &address, &city, &state, &postalCode,
		&country, &phone, &email, &website, &category, &rating, &reviewsCount,
		&latitude, &longitude, &l.Status, &l.EmailValid, &l.PhoneValid, &l.CompanyValid,
		&l.LinkedInEnriched, &l.ResearchCompleted, &l.MessagePersonalized,
		&linkedinJSON, &researchJSON, &messageJSON, &stageError,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Address = address.String
	l.City = city.String
	l.State = state.String
	l.PostalCode = postalCode.String
	l.Country = country.String
	l.Phone = phone.String
	l.Email = email.String
	l.Website = website.String
	l.Category = category.String
	l.Rating = rating.Float64
	l.ReviewsCount = int(reviewsCount.Int64)
	l.Latitude = latitude.Float64
	l.Longitude = longitude.Float64
	l.StageError = stageError.String

	if linkedinJSON.Valid && linkedinJSON.String != "" {
		l.LinkedInProfile = &model.LinkedInProfile{}
		if err := json.Unmarshal([]byte(linkedinJSON.String), l.LinkedInProfile); err != nil {
			return nil, eris.Wrap(err, "unmarshal linkedin_profile")
		}
	}
	if researchJSON.Valid && researchJSON.String != "" {
		l.ResearchData = &model.ResearchData{}
		if err := json.Unmarshal([]byte(researchJSON.String), l.ResearchData); err != nil {
			return nil, eris.Wrap(err, "unmarshal research_data")
		}
	}
	if messageJSON.Valid && messageJSON.String != "" {
		l.PersonalizedMessage = &model.PersonalizedMessage{}
		if err := json.Unmarshal([]byte(messageJSON.String), l.PersonalizedMessage); err != nil {
			return nil, eris.Wrap(err, "unmarshal personalized_message")
		}
	}

	return &l, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(model.ErrNotFound, "%s %s", kind, id)
	}
	return nil
}
