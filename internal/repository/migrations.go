package repository

import (
	"database/sql"

	"github.com/lopezator/migrator"
)

// Migrate brings the publishing schema up to date.
func Migrate(db *sql.DB) error {
	m, err := migrator.New(
		migrator.Migrations(
			&migrator.Migration{
				Name: "00001_scheduled_posts",
				Func: func(tx *sql.Tx) error {
					_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS scheduled_posts (
						id TEXT PRIMARY KEY,
						owner_id TEXT NOT NULL,
						project_id TEXT,
						platforms TEXT[] NOT NULL,
						payload JSONB NOT NULL,
						scheduled_at TIMESTAMPTZ NOT NULL,
						status TEXT NOT NULL DEFAULT 'pending',
						job_id TEXT,
						results JSONB NOT NULL DEFAULT '[]'::jsonb,
						created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
						updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
					)`)
					return err
				},
			},
			&migrator.Migration{
				Name: "00002_scheduled_posts_owner_idx",
				Func: func(tx *sql.Tx) error {
					_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS scheduled_posts_owner_scheduled_at_idx ON scheduled_posts (owner_id, scheduled_at DESC)`)
					return err
				},
			},
			&migrator.Migration{
				Name: "00003_publish_logs",
				Func: func(tx *sql.Tx) error {
					_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS publish_logs (
						id BIGSERIAL PRIMARY KEY,
						job_id TEXT NOT NULL,
						scheduled_post_id TEXT NOT NULL,
						platform TEXT NOT NULL,
						status TEXT NOT NULL,
						response JSONB,
						error TEXT,
						created_at TIMESTAMPTZ NOT NULL DEFAULT now()
					)`)
					return err
				},
			},
			&migrator.Migration{
				Name: "00004_publish_logs_post_idx",
				Func: func(tx *sql.Tx) error {
					_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS publish_logs_post_platform_idx ON publish_logs (scheduled_post_id, platform, status)`)
					return err
				},
			},
			&migrator.Migration{
				Name: "00005_publish_logs_attempt",
				Func: func(tx *sql.Tx) error {
					if _, err := tx.Exec(`ALTER TABLE publish_logs ADD COLUMN IF NOT EXISTS attempt INTEGER NOT NULL DEFAULT 0`); err != nil {
						return err
					}
					_, err := tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS publish_logs_execution_idx ON publish_logs (job_id, attempt, platform)`)
					return err
				},
			},
			&migrator.Migration{
				Name: "00006_scheduled_posts_unqueued_idx",
				Func: func(tx *sql.Tx) error {
					_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS scheduled_posts_unqueued_idx ON scheduled_posts (created_at) WHERE status = 'pending' AND job_id IS NULL`)
					return err
				},
			},
		),
	)
	if err != nil {
		return err
	}
	return m.Migrate(db)
}
