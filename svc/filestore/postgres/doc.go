// Package postgres implements the filestore bookkeeping ports on
// PostgreSQL via pgx. Schema migrations are owned by the host
// application; the expected tables are:
//
//	CREATE TABLE projects (
//	    id              uuid PRIMARY KEY,
//	    owner_id        uuid NOT NULL,
//	    filename        text NOT NULL DEFAULT '',
//	    storage_bytes   bigint NOT NULL DEFAULT 0,
//	    attachment_dirs text[] NOT NULL DEFAULT '{}'
//	);
//
//	CREATE TABLE audit_log (
//	    id         uuid PRIMARY KEY,
//	    project_id uuid NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
//	    action     text NOT NULL,
//	    changes    jsonb NOT NULL,
//	    created_at timestamptz NOT NULL
//	);
package postgres
