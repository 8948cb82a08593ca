package cache

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/ManuGH/adlu-proxy/internal/base"
	"github.com/ManuGH/adlu-proxy/internal/logsession"
)

const logSessionSchema = `
create table if not exists log_sessions (
	session_id text not null unique,
	source_addr text not null default 'unknown',
	initial_entry text not null,
	final_entry text not null,
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

func initLogSchema(db *sql.DB) error {
	if _, err := db.Exec(logSessionSchema); err != nil {
		return fmt.Errorf("cache: init log schema: %w", err)
	}
	return nil
}

// StoreLogUpload reduces a raw log upload body into per-session records
// and merges each one into whatever session (if any) is already stored
// under the same session id.
func StoreLogUpload(db *DB, sourceAddr string, body []byte) error {
	for _, fresh := range logsession.ParseLogData(sourceAddr, body) {
		existing, err := fetchLogSession(db.sql, fresh.SessionID)
		if err != nil {
			return err
		}
		toStore := fresh
		if existing != nil {
			merged, err := existing.Merge(fresh)
			if err != nil {
				return fmt.Errorf("cache: merge log session %s: %w", fresh.SessionID, err)
			}
			toStore = merged
		}
		if err := storeLogSession(db.sql, toStore); err != nil {
			return err
		}
	}
	return nil
}

func fetchLogSession(db *sql.DB, sessionID string) (*logsession.Session, error) {
	row := db.QueryRow(`
		select session_id, source_addr, initial_entry, final_entry, session_start, session_end,
			app_id, app_version, app_locale, ngl_version, os_name, os_version, user_id
		from log_sessions where session_id = ?`, sessionID)
	s, err := scanLogSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: fetch log session %s: %w", sessionID, err)
	}
	return s, nil
}

// FetchLogSessions returns every stored log session, optionally
// restricted to sessions carrying at least one typed field beyond the
// bare entry bounds.
func FetchLogSessions(db *DB, infoOnly bool) ([]*logsession.Session, error) {
	rows, err := db.sql.Query(`
		select session_id, source_addr, initial_entry, final_entry, session_start, session_end,
			app_id, app_version, app_locale, ngl_version, os_name, os_version, user_id
		from log_sessions`)
	if err != nil {
		return nil, fmt.Errorf("cache: fetch log sessions: %w", err)
	}
	defer rows.Close()

	var result []*logsession.Session
	for rows.Next() {
		s, err := scanLogSession(rows)
		if err != nil {
			return nil, fmt.Errorf("cache: scan log session: %w", err)
		}
		if !infoOnly || s.HasInfo() {
			result = append(result, s)
		}
	}
	return result, rows.Err()
}

func storeLogSession(db *sql.DB, s *logsession.Session) error {
	_, err := db.Exec(`
		insert or replace into log_sessions (
			session_id, source_addr, initial_entry, final_entry, session_start, session_end,
			app_id, app_version, app_locale, ngl_version, os_name, os_version, user_id
		) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SessionID, s.SourceAddr, s.InitialEntry.ToDB(), s.FinalEntry.ToDB(),
		base.OptionalToDB(s.SessionStart), base.OptionalToDB(s.SessionEnd),
		optStr(s.AppID), optStr(s.AppVersion), optStr(s.AppLocale), optStr(s.NglVersion),
		optStr(s.OsName), optStr(s.OsVersion), optStr(s.UserID),
	)
	if err != nil {
		return fmt.Errorf("cache: store log session %s: %w", s.SessionID, err)
	}
	return nil
}

func scanLogSession(row scanner) (*logsession.Session, error) {
	var (
		s                                                             logsession.Session
		initialEntry, finalEntry, sessionStart, sessionEnd            string
		appID, appVersion, appLocale, nglVersion, osName, osVersion   string
		userID                                                        string
	)
	if err := row.Scan(
		&s.SessionID, &s.SourceAddr, &initialEntry, &finalEntry, &sessionStart, &sessionEnd,
		&appID, &appVersion, &appLocale, &nglVersion, &osName, &osVersion, &userID,
	); err != nil {
		return nil, err
	}
	s.InitialEntry = base.FromDB(initialEntry)
	s.FinalEntry = base.FromDB(finalEntry)
	s.SessionStart = base.OptionalFromDB(sessionStart)
	s.SessionEnd = base.OptionalFromDB(sessionEnd)
	s.AppID = fromOptStr(appID)
	s.AppVersion = fromOptStr(appVersion)
	s.AppLocale = fromOptStr(appLocale)
	s.NglVersion = fromOptStr(nglVersion)
	s.OsName = fromOptStr(osName)
	s.OsVersion = fromOptStr(osVersion)
	s.UserID = fromOptStr(userID)
	return &s, nil
}

func optStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func fromOptStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func clearLog(db *sql.DB) error {
	if _, err := db.Exec(`delete from log_sessions`); err != nil {
		return fmt.Errorf("cache: clear log sessions: %w", err)
	}
	return nil
}

// WriteLogReport renders every stored log session (or only those
// carrying typed info, when infoOnly is true) as CSV to w.
func WriteLogReport(db *DB, w io.Writer, infoOnly, timezone, rfc3339 bool) error {
	sessions, err := FetchLogSessions(db, infoOnly)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	suffix := " (UTC)"
	if timezone {
		suffix = ""
	}
	if err := cw.Write([]string{
		"Source Address", "Session ID",
		"Initial Entry" + suffix, "Final Entry" + suffix,
		"Session Start" + suffix, "Session End" + suffix,
		"App ID", "App Version", "App Locale", "NGL Version", "OS Name", "OS Version", "User ID",
	}); err != nil {
		return fmt.Errorf("cache: write log report header: %w", err)
	}

	formatTS := func(ts base.Timestamp) string {
		if rfc3339 {
			return ts.FormatRFC3339(timezone)
		}
		return ts.FormatISO8601(timezone)
	}
	formatOptTS := func(ts *base.Timestamp) string {
		if ts == nil {
			return ""
		}
		return formatTS(*ts)
	}

	for _, s := range sessions {
		record := []string{
			s.SourceAddr, s.SessionID,
			formatTS(s.InitialEntry), formatTS(s.FinalEntry),
			formatOptTS(s.SessionStart), formatOptTS(s.SessionEnd),
			optStr(s.AppID), optStr(s.AppVersion), optStr(s.AppLocale),
			optStr(s.NglVersion), optStr(s.OsName), optStr(s.OsVersion), optStr(s.UserID),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("cache: write log report row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
