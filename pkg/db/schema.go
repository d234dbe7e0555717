package db

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Sessions: one row per named session
CREATE TABLE IF NOT EXISTS sessions (
    session_name TEXT PRIMARY KEY,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at DESC);

-- Bundles: the latest batch of a session, replaced on every save
CREATE TABLE IF NOT EXISTS bundles (
    session_name TEXT PRIMARY KEY,
    processed_at TEXT NOT NULL,
    result_count INTEGER NOT NULL DEFAULT 0,
    error_count INTEGER NOT NULL DEFAULT 0,
    summary TEXT,                 -- BatchSummary as JSON
    FOREIGN KEY (session_name) REFERENCES sessions(session_name) ON DELETE CASCADE
);

-- Bundle results: successful items in submission order
CREATE TABLE IF NOT EXISTS bundle_results (
    session_name TEXT NOT NULL,
    position INTEGER NOT NULL,
    result_id TEXT NOT NULL,
    url TEXT NOT NULL,
    title TEXT,
    category TEXT,
    word_count INTEGER DEFAULT 0,
    payload TEXT NOT NULL,        -- AnalysisResult as JSON
    FOREIGN KEY (session_name) REFERENCES bundles(session_name) ON DELETE CASCADE,
    PRIMARY KEY (session_name, position)
);

CREATE INDEX IF NOT EXISTS idx_bundle_results_id ON bundle_results(session_name, result_id);
CREATE INDEX IF NOT EXISTS idx_bundle_results_category ON bundle_results(category);

-- Bundle errors: failed items in submission order
CREATE TABLE IF NOT EXISTS bundle_errors (
    session_name TEXT NOT NULL,
    position INTEGER NOT NULL,
    task_id TEXT NOT NULL,
    url TEXT NOT NULL,
    code TEXT NOT NULL,
    phase TEXT,
    message TEXT,
    status TEXT NOT NULL,
    FOREIGN KEY (session_name) REFERENCES bundles(session_name) ON DELETE CASCADE,
    PRIMARY KEY (session_name, position)
);

CREATE INDEX IF NOT EXISTS idx_bundle_errors_code ON bundle_errors(code);
`
