package store

import (
	"database/sql"
	"errors"
	"time"

	"golang.org/x/oauth2"
)

// ErrNoAuth is returned when no authentication is stored
var ErrNoAuth = errors.New("not connected to Strava")

// Token converts the stored row into an oauth2 token
func (a *Auth) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       a.ExpiresAt,
	}
}

// AuthFromToken builds the stored row for an athlete's token
func AuthFromToken(athleteID int64, token *oauth2.Token) *Auth {
	return &Auth{
		AthleteID:    athleteID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
}

// GetAuth retrieves the stored Strava tokens
func (db *DB) GetAuth() (*Auth, error) {
	var (
		a         Auth
		expiresAt int64
	)
	err := db.QueryRow(
		`SELECT athlete_id, access_token, refresh_token, expires_at FROM auth WHERE id = 1`,
	).Scan(&a.AthleteID, &a.AccessToken, &a.RefreshToken, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoAuth
	}
	if err != nil {
		return nil, err
	}

	a.ExpiresAt = time.Unix(expiresAt, 0)
	return &a, nil
}

// SaveAuth stores the tokens of a freshly authorized athlete, replacing any previous one
func (db *DB) SaveAuth(a *Auth) error {
	_, err := db.Exec(`
		INSERT INTO auth (id, athlete_id, access_token, refresh_token, expires_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			athlete_id = excluded.athlete_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`, a.AthleteID, a.AccessToken, a.RefreshToken, a.ExpiresAt.Unix())
	return err
}

// UpdateTokens replaces the tokens after a refresh, keeping the athlete.
// Returns ErrNoAuth when the athlete never authenticated.
func (db *DB) UpdateTokens(token *oauth2.Token) error {
	result, err := db.Exec(`
		UPDATE auth
		SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`, token.AccessToken, token.RefreshToken, token.Expiry.Unix())
	if err != nil {
		return err
	}

	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNoAuth
	}
	return nil
}
