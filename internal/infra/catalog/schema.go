package catalog

// Schema is applied on open. The engine treats both tables as
// read-only; rows are written by the seed tool.
const Schema = `
CREATE TABLE IF NOT EXISTS tracks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	performer_slug TEXT NOT NULL,
	performer_name TEXT NOT NULL,
	country TEXT NOT NULL DEFAULT '',
	province TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	neighbourhood TEXT NOT NULL DEFAULT '',
	genre TEXT NOT NULL DEFAULT '',
	audio_ref TEXT NOT NULL,
	art_ref TEXT NOT NULL DEFAULT '',
	radio_eligible BOOLEAN NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_tracks_performer ON tracks(performer_slug);
CREATE INDEX IF NOT EXISTS idx_tracks_city ON tracks(city);

CREATE TABLE IF NOT EXISTS events (
	event_id TEXT PRIMARY KEY,
	show_date TEXT NOT NULL,
	event_name TEXT NOT NULL,
	city TEXT NOT NULL DEFAULT '',
	genre TEXT NOT NULL DEFAULT '',
	flyer_ref TEXT NOT NULL DEFAULT '',
	track_id TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_events_date ON events(show_date);
`
