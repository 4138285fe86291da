package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the store (SQLite).
var Migrations = migrate.NewGroup("praetor")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_users",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS praetor_users (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    email           TEXT NOT NULL DEFAULT '',
    active          INTEGER NOT NULL DEFAULT 1,
    attributes      TEXT NOT NULL DEFAULT '{}',
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now')),

    UNIQUE(email)
);

CREATE INDEX IF NOT EXISTS idx_praetor_users_active ON praetor_users (active);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS praetor_users`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_groups",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS praetor_groups (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),

    UNIQUE(name)
);

CREATE TABLE IF NOT EXISTS praetor_group_members (
    group_id        TEXT NOT NULL REFERENCES praetor_groups(id) ON DELETE CASCADE,
    user_id         TEXT NOT NULL REFERENCES praetor_users(id) ON DELETE CASCADE,

    PRIMARY KEY (group_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_praetor_group_members_user ON praetor_group_members (user_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS praetor_group_members;
DROP TABLE IF EXISTS praetor_groups`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_sessions",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS praetor_sessions (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL REFERENCES praetor_users(id) ON DELETE CASCADE,
    token           TEXT NOT NULL,
    ip              TEXT NOT NULL DEFAULT '',
    user_agent      TEXT NOT NULL DEFAULT '',
    active          INTEGER NOT NULL DEFAULT 1,
    impersonated_by TEXT REFERENCES praetor_users(id) ON DELETE SET NULL,
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    expires_at      TEXT NOT NULL,

    UNIQUE(token)
);

CREATE INDEX IF NOT EXISTS idx_praetor_sessions_user ON praetor_sessions (user_id, active);
CREATE INDEX IF NOT EXISTS idx_praetor_sessions_expiry ON praetor_sessions (expires_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS praetor_sessions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_roles",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS praetor_roles (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now')),

    UNIQUE(name)
);

CREATE TABLE IF NOT EXISTS praetor_role_members (
    user_id         TEXT NOT NULL REFERENCES praetor_users(id) ON DELETE CASCADE,
    role_id         TEXT NOT NULL REFERENCES praetor_roles(id) ON DELETE CASCADE,
    active          INTEGER NOT NULL DEFAULT 1,
    starts_at       TEXT,
    ends_at         TEXT,
    granted_by      TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),

    PRIMARY KEY (user_id, role_id)
);

CREATE INDEX IF NOT EXISTS idx_praetor_role_members_role ON praetor_role_members (role_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS praetor_role_members;
DROP TABLE IF EXISTS praetor_roles`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_permissions",
			Version: "20240101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS praetor_permissions (
    id              TEXT PRIMARY KEY,
    code            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),

    UNIQUE(code)
);

CREATE TABLE IF NOT EXISTS praetor_role_permissions (
    role_id         TEXT NOT NULL REFERENCES praetor_roles(id) ON DELETE CASCADE,
    permission_id   TEXT NOT NULL REFERENCES praetor_permissions(id) ON DELETE CASCADE,

    PRIMARY KEY (role_id, permission_id)
);

CREATE INDEX IF NOT EXISTS idx_praetor_role_perms_perm ON praetor_role_permissions (permission_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS praetor_role_permissions;
DROP TABLE IF EXISTS praetor_permissions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_acl_entries",
			Version: "20240101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS praetor_acl_entries (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL REFERENCES praetor_users(id) ON DELETE CASCADE,
    permission_id   TEXT NOT NULL REFERENCES praetor_permissions(id) ON DELETE CASCADE,
    effect          TEXT NOT NULL CHECK (effect IN ('allow', 'deny')),
    active          INTEGER NOT NULL DEFAULT 1,
    ends_at         TEXT,
    granted_by      TEXT NOT NULL DEFAULT '',
    reason          TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now')),

    UNIQUE(user_id, permission_id, effect)
);

CREATE INDEX IF NOT EXISTS idx_praetor_acl_user ON praetor_acl_entries (user_id, effect, active);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS praetor_acl_entries`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_policies",
			Version: "20240101000007",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS praetor_policies (
    id              TEXT PRIMARY KEY,
    permission_code TEXT NOT NULL,
    name            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    effect          TEXT NOT NULL CHECK (effect IN ('allow', 'deny')),
    priority        INTEGER NOT NULL DEFAULT 0,
    is_active       INTEGER NOT NULL DEFAULT 1,
    conditions      TEXT NOT NULL DEFAULT '{}',
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now')),

    UNIQUE(permission_code, name)
);

CREATE INDEX IF NOT EXISTS idx_praetor_policies_code ON praetor_policies (permission_code, is_active, priority DESC);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS praetor_policies`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_audit_log",
			Version: "20240101000008",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS praetor_audit_log (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    session_id      TEXT NOT NULL DEFAULT '',
    action          TEXT NOT NULL,
    permission      TEXT NOT NULL DEFAULT '',
    resource        TEXT NOT NULL DEFAULT '',
    outcome         TEXT NOT NULL,
    ip              TEXT NOT NULL DEFAULT '',
    user_agent      TEXT NOT NULL DEFAULT '',
    impersonated_by TEXT,
    details         TEXT NOT NULL DEFAULT '{}',
    created_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_praetor_audit_user ON praetor_audit_log (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_praetor_audit_outcome ON praetor_audit_log (outcome, created_at DESC);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS praetor_audit_log`)
				return err
			},
		},
	)
}
