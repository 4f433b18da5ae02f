package storing

const schemaVersion = 1

const SchemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

const RunSchema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    model TEXT NOT NULL,
    status TEXT NOT NULL,
    exit_code INTEGER NOT NULL,
    output TEXT NOT NULL,
    error TEXT,             -- NULL when stderr was empty
    failure TEXT NOT NULL,
    started_at INTEGER NOT NULL, -- unix micro
    finished_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_runs_model ON runs(model);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`
