package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/marcus/teamtask/internal/apperr"
	"github.com/marcus/teamtask/internal/models"
)

// CreateProfile creates a user profile record. The id comes from the
// external auth collaborator; if empty a fresh one is generated.
func (s *Store) CreateProfile(p *models.Profile) error {
	if strings.TrimSpace(p.Email) == "" {
		return apperr.Validation("email", "must not be empty")
	}
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Validation("name", "must not be empty")
	}
	if p.ID == "" {
		p.ID = newID()
	}
	now := nowUTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.conn.Exec(`
		INSERT INTO profiles (id, email, name, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, p.Email, p.Name, p.AvatarURL, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return apperr.Validation("email", "already registered")
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// GetProfile retrieves a profile by id
func (s *Store) GetProfile(id string) (*models.Profile, error) {
	var p models.Profile
	err := s.conn.Get(&p, `SELECT * FROM profiles WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("profile", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// GetProfileByEmail retrieves a profile by email address
func (s *Store) GetProfileByEmail(email string) (*models.Profile, error) {
	var p models.Profile
	err := s.conn.Get(&p, `SELECT * FROM profiles WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("profile", email)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile by email: %w", err)
	}
	return &p, nil
}

// UpdateProfile updates the mutable fields of a profile.
func (s *Store) UpdateProfile(id string, name, avatarURL *string) (*models.Profile, error) {
	p, err := s.GetProfile(id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return nil, apperr.Validation("name", "must not be empty")
		}
		p.Name = *name
	}
	if avatarURL != nil {
		p.AvatarURL = *avatarURL
	}
	p.UpdatedAt = nowUTC()

	_, err = s.conn.Exec(`UPDATE profiles SET name = ?, avatar_url = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.AvatarURL, p.UpdatedAt, p.ID)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

// getProfiles fetches multiple profiles keyed by id. Missing ids are
// silently absent from the result map.
func (s *Store) getProfiles(ids []string) (map[string]models.Profile, error) {
	out := make(map[string]models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return out, nil
	}

	query, args, err := sqlxIn(`SELECT * FROM profiles WHERE id IN (?)`, unique)
	if err != nil {
		return nil, fmt.Errorf("build profiles query: %w", err)
	}

	var profiles []models.Profile
	if err := s.conn.Select(&profiles, query, args...); err != nil {
		return nil, fmt.Errorf("get profiles: %w", err)
	}
	for _, p := range profiles {
		out[p.ID] = p
	}
	return out, nil
}

// GetProfiles fetches multiple profiles in a single query keyed by id.
func (s *Store) GetProfiles(ids []string) (map[string]models.Profile, error) {
	return s.getProfiles(ids)
}
