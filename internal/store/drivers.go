package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"f1agent/internal/ergast"
)

// SeasonDriver is a driver imported for one season.
type SeasonDriver struct {
	ID              int64
	Season          string
	PermanentNumber string
	DriverRef       string
	GivenName       string
	FamilyName      string
	Code            string
	Nationality     string
	ConstructorID   string
}

// DriverFilter narrows FindDrivers. Empty fields do not filter.
type DriverFilter struct {
	// Name matches given or family name, case-insensitive substring.
	Name string
	// Season must match exactly.
	Season string
}

const seasonDriverColumns = `id, season, permanent_number, driver_ref, given_name, family_name, code, nationality, constructor_id`

// nameMatch returns the case-insensitive substring condition on given and
// family name, with its LIKE pattern bound twice. PostgreSQL uses ILIKE,
// which folds Unicode. SQLite's LOWER folds ASCII only, so there "PÉREZ"
// does not match "Pérez".
func nameMatch(isPostgres bool, name string) (string, string) {
	if isPostgres {
		return "(given_name ILIKE ? OR family_name ILIKE ?)", "%" + name + "%"
	}
	return "(LOWER(given_name) LIKE ? OR LOWER(family_name) LIKE ?)", "%" + strings.ToLower(name) + "%"
}

// FindDrivers returns imported drivers matching f, ordered by id. It returns
// an empty, non-nil slice when nothing matches.
func (s *Session) FindDrivers(ctx context.Context, f DriverFilter) ([]SeasonDriver, error) {
	var where []string
	var args []any
	if f.Name != "" {
		clause, pattern := nameMatch(s.isPostgres, f.Name)
		where = append(where, clause)
		args = append(args, pattern, pattern)
	}
	if f.Season != "" {
		where = append(where, "season = ?")
		args = append(args, f.Season)
	}

	query := "SELECT " + seasonDriverColumns + " FROM drivers"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.conn.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query drivers: %w", err)
	}
	defer rows.Close()

	drivers := []SeasonDriver{}
	for rows.Next() {
		var d SeasonDriver
		var number, ref, code, constructor sql.NullString
		if err := rows.Scan(&d.ID, &d.Season, &number, &ref, &d.GivenName, &d.FamilyName, &code, &d.Nationality, &constructor); err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		d.PermanentNumber = number.String
		d.DriverRef = ref.String
		d.Code = code.String
		d.ConstructorID = constructor.String
		drivers = append(drivers, d)
	}
	return drivers, rows.Err()
}

// ImportDrivers stores the drivers of a season, skipping those already
// present. Drivers are keyed by (season, permanent number); drivers without a
// permanent number fall back to (season, driver ref). It returns the number
// of rows added.
func (s *Session) ImportDrivers(ctx context.Context, season string, drivers []ergast.Driver) (int, error) {
	added := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, d := range drivers {
			exists, err := s.seasonDriverExists(ctx, tx, season, d)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			_, err = tx.ExecContext(ctx, s.q(`
				INSERT INTO drivers (season, permanent_number, driver_ref, given_name, family_name, code, nationality)
				VALUES (?, ?, ?, ?, ?, ?, ?)`),
				season, nullString(d.PermanentNumber), nullString(d.DriverID),
				d.GivenName, d.FamilyName, nullString(d.Code), d.Nationality)
			if err != nil {
				return fmt.Errorf("insert driver %s: %w", d.DriverID, err)
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	slog.Info("drivers imported", "season", season, "received", len(drivers), "added", added)
	return added, nil
}

func (s *Session) seasonDriverExists(ctx context.Context, tx *sql.Tx, season string, d ergast.Driver) (bool, error) {
	query, key := "SELECT 1 FROM drivers WHERE season = ? AND permanent_number = ?", d.PermanentNumber
	if key == "" {
		query, key = "SELECT 1 FROM drivers WHERE season = ? AND driver_ref = ?", d.DriverID
	}
	var one int
	err := tx.QueryRowContext(ctx, s.q(query+" LIMIT 1"), season, key).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("check existing driver: %w", err)
	}
	return true, nil
}

// LinkConstructors sets each imported driver's constructor from the season
// standings. Standings entries without a permanent number or constructor
// are skipped. It returns the number of drivers updated.
func (s *Session) LinkConstructors(ctx context.Context, season string, lists []ergast.StandingsList) (int, error) {
	updated := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, list := range lists {
			for _, st := range list.DriverStandings {
				number := st.Driver.PermanentNumber
				if number == "" || len(st.Constructors) == 0 || st.Constructors[0].ConstructorID == "" {
					continue
				}
				res, err := tx.ExecContext(ctx, s.q(`
					UPDATE drivers SET constructor_id = ?
					WHERE season = ? AND permanent_number = ?`),
					st.Constructors[0].ConstructorID, season, number)
				if err != nil {
					return fmt.Errorf("link driver %s: %w", number, err)
				}
				if n, _ := res.RowsAffected(); n > 0 {
					updated++
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}
