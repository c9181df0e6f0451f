package localstore

// Schema is the DDL for the local mailbox database.
const Schema = `
CREATE TABLE IF NOT EXISTS meta (
    key    TEXT PRIMARY KEY,
    value  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS folders (
    id          TEXT PRIMARY KEY,
    parent_id   TEXT REFERENCES folders(id),
    name        TEXT NOT NULL,
    well_known  TEXT UNIQUE,
    position    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS messages (
    id           TEXT PRIMARY KEY,
    folder_id    TEXT NOT NULL REFERENCES folders(id),
    subject      TEXT NOT NULL DEFAULT '',
    from_name    TEXT NOT NULL DEFAULT '',
    from_addr    TEXT NOT NULL DEFAULT '',
    body         TEXT NOT NULL DEFAULT '',
    html_body    TEXT NOT NULL DEFAULT '',
    raw_headers  TEXT NOT NULL DEFAULT '',
    received_at  TEXT NOT NULL,
    is_read      INTEGER NOT NULL DEFAULT 0,
    is_sent      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS recipients (
    message_id  TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
    position    INTEGER NOT NULL,
    kind        INTEGER NOT NULL,
    name        TEXT NOT NULL DEFAULT '',
    address     TEXT NOT NULL,
    PRIMARY KEY (message_id, position)
);

CREATE TABLE IF NOT EXISTS attachments (
    message_id  TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
    position    INTEGER NOT NULL,
    name        TEXT NOT NULL,
    data        BLOB,
    PRIMARY KEY (message_id, position)
);

CREATE TABLE IF NOT EXISTS events (
    id               TEXT PRIMARY KEY,
    subject          TEXT NOT NULL DEFAULT '',
    start_at         TEXT NOT NULL,
    end_at           TEXT NOT NULL,
    location         TEXT NOT NULL DEFAULT '',
    organizer        TEXT NOT NULL DEFAULT '',
    all_day          INTEGER NOT NULL DEFAULT 0,
    invites_sent     INTEGER NOT NULL DEFAULT 0,
    response_status  TEXT NOT NULL DEFAULT 'none',
    busy_status      TEXT NOT NULL DEFAULT 'busy',
    body             TEXT NOT NULL DEFAULT '',
    categories       TEXT NOT NULL DEFAULT '',
    reminder_minutes INTEGER,
    recurrence       TEXT
);

CREATE TABLE IF NOT EXISTS attendees (
    event_id  TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    position  INTEGER NOT NULL,
    name      TEXT NOT NULL DEFAULT '',
    email     TEXT NOT NULL,
    type      TEXT NOT NULL,
    response  TEXT NOT NULL DEFAULT 'none',
    PRIMARY KEY (event_id, position)
);

CREATE INDEX IF NOT EXISTS idx_messages_folder ON messages(folder_id, received_at DESC);
CREATE INDEX IF NOT EXISTS idx_folders_parent ON folders(parent_id);
CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_at);
`
