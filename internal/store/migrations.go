package store

const schema = `
CREATE TABLE IF NOT EXISTS signals (
    id            TEXT PRIMARY KEY,
    keyword       TEXT NOT NULL,
    origin        TEXT NOT NULL,
    category      TEXT NOT NULL,
    score         INTEGER NOT NULL DEFAULT 0,
    mention_count INTEGER NOT NULL DEFAULT 0,
    observed_at   DATETIME NOT NULL,
    tags          TEXT NOT NULL DEFAULT '[]',
    related_terms TEXT NOT NULL DEFAULT '[]',
    source_url    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_signals_keyword ON signals(keyword);
CREATE INDEX IF NOT EXISTS idx_signals_origin ON signals(origin);
CREATE INDEX IF NOT EXISTS idx_signals_observed_at ON signals(observed_at);
CREATE INDEX IF NOT EXISTS idx_signals_score ON signals(score);

CREATE TABLE IF NOT EXISTS history_points (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    keyword       TEXT NOT NULL,
    observed_at   DATETIME NOT NULL,
    score         INTEGER NOT NULL,
    mention_count INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_keyword ON history_points(keyword, observed_at);
`
