package store

import (
	"context"
	"database/sql"
	"fmt"

	"f1agent/internal/ergast"
)

// ImportConstructors stores the constructors of a season, skipping those
// already present for that season. It returns the number of rows added.
func (s *Session) ImportConstructors(ctx context.Context, season string, constructors []ergast.Constructor) (int, error) {
	added := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, c := range constructors {
			var one int
			err := tx.QueryRowContext(ctx, s.q(`SELECT 1 FROM constructors WHERE season = ? AND constructor_id = ? LIMIT 1`),
				season, c.ConstructorID).Scan(&one)
			if err == nil {
				continue
			}
			if err != sql.ErrNoRows {
				return fmt.Errorf("check existing constructor: %w", err)
			}
			if _, err := tx.ExecContext(ctx, s.q(`
				INSERT INTO constructors (season, constructor_id, name, nationality)
				VALUES (?, ?, ?, ?)`), season, c.ConstructorID, c.Name, nullString(c.Nationality)); err != nil {
				return fmt.Errorf("insert constructor %s: %w", c.ConstructorID, err)
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// SeasonConstructor is a constructor imported for one season.
type SeasonConstructor struct {
	ID            int64
	Season        string
	ConstructorID string
	Name          string
	Nationality   string
}

// ConstructorsBySeason lists the constructors imported for season.
func (s *Session) ConstructorsBySeason(ctx context.Context, season string) ([]SeasonConstructor, error) {
	rows, err := s.conn.QueryContext(ctx, s.q(`
		SELECT id, season, constructor_id, name, nationality
		FROM constructors WHERE season = ? ORDER BY id`), season)
	if err != nil {
		return nil, fmt.Errorf("query constructors: %w", err)
	}
	defer rows.Close()

	out := []SeasonConstructor{}
	for rows.Next() {
		var c SeasonConstructor
		var nationality sql.NullString
		if err := rows.Scan(&c.ID, &c.Season, &c.ConstructorID, &c.Name, &nationality); err != nil {
			return nil, fmt.Errorf("scan constructor: %w", err)
		}
		c.Nationality = nationality.String
		out = append(out, c)
	}
	return out, rows.Err()
}
