package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DriverProfile is a manually maintained driver record, independent of any
// season.
type DriverProfile struct {
	ID          int64  `json:"id,omitempty"`
	DriverRef   string `json:"driverId"`
	GivenName   string `json:"givenName"`
	FamilyName  string `json:"familyName"`
	Code        string `json:"code,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
}

// CreateProfile stores p and returns it with its assigned id.
func (s *Session) CreateProfile(ctx context.Context, p DriverProfile) (DriverProfile, error) {
	id, err := s.insertReturningID(ctx, s.conn, `
		INSERT INTO driver_profiles (driver_ref, given_name, family_name, code, nationality, date_of_birth)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.DriverRef, p.GivenName, p.FamilyName, nullString(p.Code), nullString(p.Nationality), nullString(p.DateOfBirth))
	if err != nil {
		return DriverProfile{}, fmt.Errorf("insert driver profile %s: %w", p.DriverRef, err)
	}
	p.ID = id
	return p, nil
}

// GetProfile returns the profile with the given id or ErrNotFound.
func (s *Session) GetProfile(ctx context.Context, id int64) (DriverProfile, error) {
	var p DriverProfile
	var code, nationality, dob sql.NullString
	err := s.conn.QueryRowContext(ctx, s.q(`
		SELECT id, driver_ref, given_name, family_name, code, nationality, date_of_birth
		FROM driver_profiles WHERE id = ?`), id).
		Scan(&p.ID, &p.DriverRef, &p.GivenName, &p.FamilyName, &code, &nationality, &dob)
	if errors.Is(err, sql.ErrNoRows) {
		return DriverProfile{}, fmt.Errorf("driver %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return DriverProfile{}, fmt.Errorf("get driver profile %d: %w", id, err)
	}
	p.Code, p.Nationality, p.DateOfBirth = code.String, nationality.String, dob.String
	return p, nil
}

// UpdateProfile replaces every field of the profile with the given id.
func (s *Session) UpdateProfile(ctx context.Context, id int64, p DriverProfile) (DriverProfile, error) {
	res, err := s.conn.ExecContext(ctx, s.q(`
		UPDATE driver_profiles
		SET driver_ref = ?, given_name = ?, family_name = ?, code = ?, nationality = ?, date_of_birth = ?
		WHERE id = ?`),
		p.DriverRef, p.GivenName, p.FamilyName, nullString(p.Code), nullString(p.Nationality), nullString(p.DateOfBirth), id)
	if err != nil {
		return DriverProfile{}, fmt.Errorf("update driver profile %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return DriverProfile{}, fmt.Errorf("driver %d: %w", id, ErrNotFound)
	}
	p.ID = id
	return p, nil
}

// DeleteProfile removes the profile with the given id.
func (s *Session) DeleteProfile(ctx context.Context, id int64) error {
	res, err := s.conn.ExecContext(ctx, s.q("DELETE FROM driver_profiles WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete driver profile %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("driver %d: %w", id, ErrNotFound)
	}
	return nil
}
