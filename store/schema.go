package store

const schema = `
CREATE TABLE IF NOT EXISTS queued_actions (
    id          TEXT PRIMARY KEY,
    target_id   TEXT NOT NULL,
    patch       TEXT NOT NULL DEFAULT '{}',
    retries     INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f','now'))
);
CREATE INDEX IF NOT EXISTS idx_queued_actions_fifo ON queued_actions(created_at);
CREATE INDEX IF NOT EXISTS idx_queued_actions_target ON queued_actions(target_id);

CREATE TABLE IF NOT EXISTS trail_points (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id    TEXT NOT NULL,
    lat         REAL NOT NULL,
    lng         REAL NOT NULL,
    recorded_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f','now'))
);
CREATE INDEX IF NOT EXISTS idx_trail_points_order ON trail_points(order_id, recorded_at);

CREATE TABLE IF NOT EXISTS admin_users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
`
