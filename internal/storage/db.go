package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"heroindex/internal"
)

type DB struct {
	conn *sql.DB
}

// HeroCursor is the position after the last hero of a page, in
// (name, apiId) order.
type HeroCursor struct {
	Name  string
	APIID int
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS heroes (
  apiId INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT,
  fullName TEXT,
  publisher TEXT,
  alignment TEXT,
  powerstats TEXT NOT NULL,
  rawAffiliations TEXT NOT NULL,
  teams TEXT NOT NULL,
  imageUrl TEXT,
  raw_json TEXT NOT NULL,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_heroes_name ON heroes(name, apiId);
CREATE INDEX IF NOT EXISTS idx_heroes_pub_align ON heroes(publisher, alignment);

CREATE TABLE IF NOT EXISTS users (
  uid TEXT PRIMARY KEY,
  firstName TEXT NOT NULL DEFAULT '',
  lastName TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL,
  heroName TEXT NOT NULL DEFAULT '',
  bio TEXT NOT NULL DEFAULT '',
  stats TEXT NOT NULL,
  createdAt TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS hero_notes (
  id TEXT PRIMARY KEY,
  uid TEXT NOT NULL,
  heroApiId TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT NOT NULL,
  createdAt TEXT NOT NULL,
  updatedAt TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_hero_notes_uid ON hero_notes(uid, heroApiId);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertHeroes(heroes []internal.Hero) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO heroes (
  apiId, name, slug, fullName, publisher, alignment,
  powerstats, rawAffiliations, teams, imageUrl, raw_json, lastSeenAt
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(apiId) DO UPDATE SET
  name=excluded.name,
  slug=excluded.slug,
  fullName=excluded.fullName,
  publisher=excluded.publisher,
  alignment=excluded.alignment,
  powerstats=excluded.powerstats,
  rawAffiliations=excluded.rawAffiliations,
  teams=excluded.teams,
  imageUrl=excluded.imageUrl,
  raw_json=excluded.raw_json,
  lastSeenAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, h := range heroes {
		statsJSON, _ := json.Marshal(nonNilStats(h.PowerStats))
		rawJSON, _ := json.Marshal(nonNilStrings(h.RawAffiliations))
		teamsJSON, _ := json.Marshal(nonNilStrings(h.Teams))
		if h.RawJSON == "" {
			h.RawJSON = "{}"
		}
		if _, err := stmt.Exec(
			h.APIID, h.Name, h.Slug, h.FullName, h.Publisher, h.Alignment,
			string(statsJSON), string(rawJSON), string(teamsJSON), h.ImageURL, h.RawJSON,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

const heroColumns = `apiId, name, slug, fullName, publisher, alignment, powerstats, rawAffiliations, teams, imageUrl, raw_json`

// ListHeroesPage returns up to limit heroes ordered by name then apiId,
// starting after the cursor (nil for the first page).
func (d *DB) ListHeroesPage(after *HeroCursor, limit int) ([]internal.Hero, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if after == nil {
		rows, err = d.conn.Query(`SELECT `+heroColumns+` FROM heroes ORDER BY name, apiId LIMIT ?`, limit)
	} else {
		rows, err = d.conn.Query(`SELECT `+heroColumns+` FROM heroes
WHERE name > ? OR (name = ? AND apiId > ?)
ORDER BY name, apiId LIMIT ?`, after.Name, after.Name, after.APIID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHeroes(rows)
}

// ListAllHeroes walks the table in pages of batchSize until a short page
// comes back.
func (d *DB) ListAllHeroes(batchSize int) ([]internal.Hero, error) {
	if batchSize <= 0 {
		return nil, errors.New("batch size must be positive")
	}
	var (
		all    []internal.Hero
		cursor *HeroCursor
	)
	for {
		batch, err := d.ListHeroesPage(cursor, batchSize)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < batchSize {
			return all, nil
		}
		last := batch[len(batch)-1]
		cursor = &HeroCursor{Name: last.Name, APIID: last.APIID}
	}
}

func (d *DB) ListHeroesByPublisherAlignment(publisher, alignment string) ([]internal.Hero, error) {
	rows, err := d.conn.Query(`SELECT `+heroColumns+` FROM heroes
WHERE publisher = ? COLLATE NOCASE AND alignment = ? COLLATE NOCASE
ORDER BY name, apiId`, publisher, alignment)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHeroes(rows)
}

func (d *DB) GetHero(apiID int) (*internal.Hero, error) {
	rows, err := d.conn.Query(`SELECT `+heroColumns+` FROM heroes WHERE apiId = ?`, apiID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	heroes, err := scanHeroes(rows)
	if err != nil {
		return nil, err
	}
	if len(heroes) == 0 {
		return nil, nil
	}
	return &heroes[0], nil
}

func (d *DB) CountHeroes() (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM heroes`).Scan(&n)
	return n, err
}

func scanHeroes(rows *sql.Rows) ([]internal.Hero, error) {
	var out []internal.Hero
	for rows.Next() {
		var h internal.Hero
		var slug, fullName, publisher, alignment, imageURL sql.NullString
		var statsJSON, rawJSON, teamsJSON string
		if err := rows.Scan(
			&h.APIID, &h.Name, &slug, &fullName, &publisher, &alignment,
			&statsJSON, &rawJSON, &teamsJSON, &imageURL, &h.RawJSON,
		); err != nil {
			return nil, err
		}
		h.Slug = slug.String
		h.FullName = fullName.String
		h.Publisher = publisher.String
		h.Alignment = alignment.String
		h.ImageURL = imageURL.String
		_ = json.Unmarshal([]byte(statsJSON), &h.PowerStats)
		_ = json.Unmarshal([]byte(rawJSON), &h.RawAffiliations)
		_ = json.Unmarshal([]byte(teamsJSON), &h.Teams)
		out = append(out, h)
	}
	return out, rows.Err()
}

func (d *DB) UpsertUser(u internal.UserProfile) error {
	statsJSON, _ := json.Marshal(nonNilStats(u.Stats))
	_, err := d.conn.Exec(`
INSERT INTO users (uid, firstName, lastName, email, heroName, bio, stats, createdAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(uid) DO UPDATE SET
  firstName=excluded.firstName,
  lastName=excluded.lastName,
  email=excluded.email,
  heroName=excluded.heroName,
  bio=excluded.bio,
  stats=excluded.stats
`, u.UID, u.FirstName, u.LastName, u.Email, u.HeroName, u.Bio, string(statsJSON), u.CreatedAt)
	return err
}

const userColumns = `uid, firstName, lastName, email, heroName, bio, stats, createdAt`

func (d *DB) GetUser(uid string) (*internal.UserProfile, error) {
	var u internal.UserProfile
	var statsJSON string
	err := d.conn.QueryRow(`SELECT `+userColumns+` FROM users WHERE uid = ?`, uid).Scan(
		&u.UID, &u.FirstName, &u.LastName, &u.Email, &u.HeroName, &u.Bio, &statsJSON, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(statsJSON), &u.Stats)
	return &u, nil
}

func (d *DB) ListUsers() ([]internal.UserProfile, error) {
	rows, err := d.conn.Query(`SELECT ` + userColumns + ` FROM users ORDER BY createdAt, uid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.UserProfile
	for rows.Next() {
		var u internal.UserProfile
		var statsJSON string
		if err := rows.Scan(&u.UID, &u.FirstName, &u.LastName, &u.Email, &u.HeroName, &u.Bio, &statsJSON, &u.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(statsJSON), &u.Stats)
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateUserBio reports whether a user row was updated.
func (d *DB) UpdateUserBio(uid, bio string) (bool, error) {
	res, err := d.conn.Exec(`UPDATE users SET bio = ? WHERE uid = ?`, bio, uid)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (d *DB) InsertNote(n internal.HeroNote) error {
	_, err := d.conn.Exec(`
INSERT INTO hero_notes (id, uid, heroApiId, title, description, createdAt, updatedAt)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, n.ID, n.UID, n.HeroAPIID, n.Title, n.Description, n.CreatedAt, n.UpdatedAt)
	return err
}

const noteColumns = `id, uid, heroApiId, title, description, createdAt, updatedAt`

func (d *DB) GetNote(uid, id string) (*internal.HeroNote, error) {
	var n internal.HeroNote
	err := d.conn.QueryRow(`SELECT `+noteColumns+` FROM hero_notes WHERE uid = ? AND id = ?`, uid, id).Scan(
		&n.ID, &n.UID, &n.HeroAPIID, &n.Title, &n.Description, &n.CreatedAt, &n.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListNotes returns a user's notes, newest update first. An empty
// heroAPIID lists notes for every hero.
func (d *DB) ListNotes(uid, heroAPIID string) ([]internal.HeroNote, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if heroAPIID == "" {
		rows, err = d.conn.Query(`SELECT `+noteColumns+` FROM hero_notes WHERE uid = ? ORDER BY updatedAt DESC, id`, uid)
	} else {
		rows, err = d.conn.Query(`SELECT `+noteColumns+` FROM hero_notes WHERE uid = ? AND heroApiId = ? ORDER BY updatedAt DESC, id`, uid, heroAPIID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.HeroNote
	for rows.Next() {
		var n internal.HeroNote
		if err := rows.Scan(&n.ID, &n.UID, &n.HeroAPIID, &n.Title, &n.Description, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (d *DB) UpdateNote(n internal.HeroNote) (bool, error) {
	res, err := d.conn.Exec(`
UPDATE hero_notes SET title = ?, description = ?, updatedAt = ?
WHERE uid = ? AND id = ?
`, n.Title, n.Description, n.UpdatedAt, n.UID, n.ID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

func (d *DB) DeleteNote(uid, id string) (bool, error) {
	res, err := d.conn.Exec(`DELETE FROM hero_notes WHERE uid = ? AND id = ?`, uid, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func nonNilStats(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
