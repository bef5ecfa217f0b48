package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"f1agent/internal/ergast"
)

// Race is a locally stored race.
type Race struct {
	ID          int64  `json:"id,omitempty"`
	Season      string `json:"season"`
	Round       string `json:"round,omitempty"`
	RaceName    string `json:"raceName,omitempty"`
	Date        string `json:"date"`
	Time        string `json:"time,omitempty"`
	CircuitName string `json:"circuit_name,omitempty"`
	Country     string `json:"country,omitempty"`
}

// RaceFromUpstream flattens an upstream race into its stored form.
func RaceFromUpstream(r ergast.Race) Race {
	race := Race{Season: r.Season, Round: r.Round, RaceName: r.RaceName, Date: r.Date, Time: r.Time}
	if r.Circuit != nil {
		race.CircuitName = r.Circuit.CircuitName
		if r.Circuit.Location != nil {
			race.Country = r.Circuit.Location.Country
		}
	}
	return race
}

const raceColumns = `id, season, round, race_name, date, time, circuit_name, country`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRace(r rowScanner) (Race, error) {
	var race Race
	var round, name, tm, circuit, country sql.NullString
	if err := r.Scan(&race.ID, &race.Season, &round, &name, &race.Date, &tm, &circuit, &country); err != nil {
		return Race{}, err
	}
	race.Round = round.String
	race.RaceName = name.String
	race.Time = tm.String
	race.CircuitName = circuit.String
	race.Country = country.String
	return race, nil
}

// InsertRaces stores races in one transaction. Unlike the import of drivers
// and constructors there is no deduplication.
func (s *Session) InsertRaces(ctx context.Context, races []Race) (int, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, r := range races {
			if _, err := s.insertRace(ctx, tx, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(races), nil
}

// CreateRace stores a single race and returns it with its assigned id.
func (s *Session) CreateRace(ctx context.Context, r Race) (Race, error) {
	id, err := s.insertRace(ctx, s.conn, r)
	if err != nil {
		return Race{}, err
	}
	r.ID = id
	return r, nil
}

func (s *Session) insertRace(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, r Race) (int64, error) {
	id, err := s.insertReturningID(ctx, q, `
		INSERT INTO races (season, round, race_name, date, time, circuit_name, country)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Season, nullString(r.Round), nullString(r.RaceName), r.Date,
		nullString(r.Time), nullString(r.CircuitName), nullString(r.Country))
	if err != nil {
		return 0, fmt.Errorf("insert race: %w", err)
	}
	return id, nil
}

// RacesBySeason lists the stored races of a season.
func (s *Session) RacesBySeason(ctx context.Context, season string) ([]Race, error) {
	rows, err := s.conn.QueryContext(ctx, s.q("SELECT "+raceColumns+" FROM races WHERE season = ? ORDER BY id"), season)
	if err != nil {
		return nil, fmt.Errorf("query races: %w", err)
	}
	defer rows.Close()

	races := []Race{}
	for rows.Next() {
		r, err := scanRace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan race: %w", err)
		}
		races = append(races, r)
	}
	return races, rows.Err()
}

// GetRace returns the race with the given id or ErrNotFound.
func (s *Session) GetRace(ctx context.Context, id int64) (Race, error) {
	r, err := scanRace(s.conn.QueryRowContext(ctx, s.q("SELECT "+raceColumns+" FROM races WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return Race{}, fmt.Errorf("race %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Race{}, fmt.Errorf("get race %d: %w", id, err)
	}
	return r, nil
}

// UpdateRace replaces every field of the race with the given id.
func (s *Session) UpdateRace(ctx context.Context, id int64, r Race) (Race, error) {
	res, err := s.conn.ExecContext(ctx, s.q(`
		UPDATE races SET season = ?, round = ?, race_name = ?, date = ?, time = ?, circuit_name = ?, country = ?
		WHERE id = ?`),
		r.Season, nullString(r.Round), nullString(r.RaceName), r.Date,
		nullString(r.Time), nullString(r.CircuitName), nullString(r.Country), id)
	if err != nil {
		return Race{}, fmt.Errorf("update race %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Race{}, fmt.Errorf("race %d: %w", id, ErrNotFound)
	}
	r.ID = id
	return r, nil
}

// DeleteRace removes the race with the given id.
func (s *Session) DeleteRace(ctx context.Context, id int64) error {
	res, err := s.conn.ExecContext(ctx, s.q("DELETE FROM races WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete race %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("race %d: %w", id, ErrNotFound)
	}
	return nil
}
