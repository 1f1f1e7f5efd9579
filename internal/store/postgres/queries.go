package postgres

const querySchema = `
CREATE TABLE IF NOT EXISTS profiles (
    id             TEXT PRIMARY KEY,
    email          TEXT,
    display_name   TEXT,
    home           TEXT,
    work           TEXT,
    departure_time TEXT,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)
`

const queryListProfiles = `
SELECT id, email, display_name, home, work, departure_time
FROM profiles
ORDER BY id
`
