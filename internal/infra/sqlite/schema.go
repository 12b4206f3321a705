package sqlite

const schema = `
-- One in-progress attempt per owner, stored as a whole JSON record.
CREATE TABLE IF NOT EXISTS sessions (
    owner TEXT PRIMARY KEY,
    data TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);

-- The most recent provider batch per owner.
CREATE TABLE IF NOT EXISTS question_cache (
    owner TEXT PRIMARY KEY,
    questions TEXT NOT NULL,
    fetched_at INTEGER NOT NULL -- unix millis
);
`
