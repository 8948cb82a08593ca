package cache

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/ManuGH/adlu-proxy/internal/base"
	"github.com/ManuGH/adlu-proxy/internal/protocol"
)

const nulSessionSchema = `
create table if not exists license_sessions (
	session_id text not null unique,
	session_start text not null,
	session_end text not null,
	app_id text not null,
	app_version text not null,
	app_locale text not null,
	ngl_version text not null,
	os_name text not null,
	os_version text not null,
	user_id text not null
);`

func initNulSchema(db *sql.DB) error {
	if _, err := db.Exec(nulSessionSchema); err != nil {
		return fmt.Errorf("cache: init nul schema: %w", err)
	}
	return nil
}

// StoreLicenseSession reduces a NUL license request into a session
// record, merging it into any existing record with the same session id.
// NUL license responses carry no information the proxy needs to cache
// (unlike FRL, there is no response body to replay offline), so there is
// no corresponding response-store path.
func StoreLicenseSession(db *DB, ts base.Timestamp, sessionID string, body *protocol.NulLicenseRequestBody) error {
	fresh := protocol.NewLicenseSession(ts, sessionID, body)
	existing, err := fetchLicenseSession(db.sql, sessionID)
	if err != nil {
		return err
	}
	toStore := fresh
	if existing != nil {
		merged, err := existing.Merge(fresh)
		if err != nil {
			return fmt.Errorf("cache: merge license session %s: %w", sessionID, err)
		}
		toStore = merged
	}
	return storeLicenseSession(db.sql, toStore)
}

func fetchLicenseSession(db *sql.DB, sessionID string) (*protocol.LicenseSession, error) {
	row := db.QueryRow(`
		select session_id, session_start, session_end, app_id, app_version, app_locale,
			ngl_version, os_name, os_version, user_id
		from license_sessions where session_id = ?`, sessionID)
	s, err := scanLicenseSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: fetch license session %s: %w", sessionID, err)
	}
	return s, nil
}

// FetchLicenseSessions returns every stored license session. Unlike log
// sessions, every NUL session carries full info by construction, so the
// infoOnly parameter of the original report command has no effect here.
func FetchLicenseSessions(db *DB) ([]*protocol.LicenseSession, error) {
	rows, err := db.sql.Query(`
		select session_id, session_start, session_end, app_id, app_version, app_locale,
			ngl_version, os_name, os_version, user_id
		from license_sessions`)
	if err != nil {
		return nil, fmt.Errorf("cache: fetch license sessions: %w", err)
	}
	defer rows.Close()

	var result []*protocol.LicenseSession
	for rows.Next() {
		s, err := scanLicenseSession(rows)
		if err != nil {
			return nil, fmt.Errorf("cache: scan license session: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func storeLicenseSession(db *sql.DB, s *protocol.LicenseSession) error {
	_, err := db.Exec(`
		insert or replace into license_sessions (
			session_id, session_start, session_end,
			app_id, app_version, app_locale, ngl_version, os_name, os_version, user_id
		) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SessionID, s.SessionStart.ToDB(), s.SessionEnd.ToDB(),
		s.AppID, s.AppVersion, s.AppLocale, s.NglVersion, s.OsName, s.OsVersion, s.UserID,
	)
	if err != nil {
		return fmt.Errorf("cache: store license session %s: %w", s.SessionID, err)
	}
	return nil
}

func scanLicenseSession(row scanner) (*protocol.LicenseSession, error) {
	var (
		s                          protocol.LicenseSession
		sessionStart, sessionEnd   string
	)
	if err := row.Scan(
		&s.SessionID, &sessionStart, &sessionEnd,
		&s.AppID, &s.AppVersion, &s.AppLocale, &s.NglVersion, &s.OsName, &s.OsVersion, &s.UserID,
	); err != nil {
		return nil, err
	}
	s.SessionStart = base.FromDB(sessionStart)
	s.SessionEnd = base.FromDB(sessionEnd)
	return &s, nil
}

func clearNul(db *sql.DB) error {
	if _, err := db.Exec(`delete from license_sessions`); err != nil {
		return fmt.Errorf("cache: clear license sessions: %w", err)
	}
	return nil
}

// WriteNulReport renders every stored license session as CSV to w.
func WriteNulReport(db *DB, w io.Writer, timezone, rfc3339 bool) error {
	sessions, err := FetchLicenseSessions(db)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	suffix := " (UTC)"
	if timezone {
		suffix = ""
	}
	if err := cw.Write([]string{
		"Session ID", "Session Start" + suffix, "Session End" + suffix,
		"App ID", "App Version", "App Locale", "NGL Version", "OS Name", "OS Version", "User ID",
	}); err != nil {
		return fmt.Errorf("cache: write nul report header: %w", err)
	}

	formatTS := func(ts base.Timestamp) string {
		if rfc3339 {
			return ts.FormatRFC3339(timezone)
		}
		return ts.FormatISO8601(timezone)
	}

	for _, s := range sessions {
		record := []string{
			s.SessionID, formatTS(s.SessionStart), formatTS(s.SessionEnd),
			s.AppID, s.AppVersion, s.AppLocale, s.NglVersion, s.OsName, s.OsVersion, s.UserID,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("cache: write nul report row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
