package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Migrate creates the survey schema when it does not exist yet. Statements
// are idempotent so repeated boots are safe.
//
// answers carry no foreign key on question_id: deleting a question keeps the
// historical rows (the payload already embeds the option texts it needs).
func Migrate(ctx context.Context, conn *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS questionnaires (
			id               BIGSERIAL PRIMARY KEY,
			uid              UUID NOT NULL UNIQUE,
			owner_id         BIGINT NOT NULL,
			folder_id        BIGINT,
			name             TEXT NOT NULL,
			is_active        BOOLEAN NOT NULL DEFAULT TRUE,
			pub_date         TIMESTAMPTZ,
			end_date         TIMESTAMPTZ,
			timer_seconds    INT,
			is_deleted       BOOLEAN NOT NULL DEFAULT FALSE,
			access_code_hash TEXT,
			welcome_page     JSONB,
			thanks_page      JSONB,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT questionnaires_window CHECK (
				pub_date IS NULL OR end_date IS NULL OR end_date >= pub_date
			)
		)`,
		`CREATE TABLE IF NOT EXISTS questions (
			id               BIGSERIAL PRIMARY KEY,
			questionnaire_id BIGINT NOT NULL REFERENCES questionnaires(id) ON DELETE CASCADE,
			question_type    TEXT NOT NULL,
			placement        INT NOT NULL DEFAULT 0,
			title            TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			is_required      BOOLEAN NOT NULL DEFAULT FALSE,
			is_finalized     BOOLEAN NOT NULL DEFAULT FALSE,
			media            TEXT,
			group_id         BIGINT REFERENCES questions(id) ON DELETE SET NULL,
			level            INT NOT NULL DEFAULT 0,
			constraints      JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS questions_questionnaire_placement_idx
			ON questions (questionnaire_id, placement)`,
		`CREATE TABLE IF NOT EXISTS question_options (
			id          BIGSERIAL PRIMARY KEY,
			question_id BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
			text        TEXT NOT NULL,
			number      INT,
			placement   INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS answer_sets (
			id               BIGSERIAL PRIMARY KEY,
			uid              UUID NOT NULL UNIQUE,
			questionnaire_id BIGINT NOT NULL REFERENCES questionnaires(id) ON DELETE CASCADE,
			answered_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			answered_by      BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS answers (
			id            BIGSERIAL PRIMARY KEY,
			answer_set_id BIGINT NOT NULL REFERENCES answer_sets(id) ON DELETE CASCADE,
			question_id   BIGINT NOT NULL,
			payload       JSONB,
			file_name     TEXT,
			file_size     BIGINT,
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT answers_one_per_question UNIQUE (answer_set_id, question_id)
		)`,
		`CREATE INDEX IF NOT EXISTS answers_question_idx ON answers (question_id)`,
	}

	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(stmt string) string {
	s := strings.TrimSpace(stmt)
	if i := strings.IndexByte(s, '('); i > 0 {
		s = s[:i]
	}
	return strings.Join(strings.Fields(s), " ")
}
