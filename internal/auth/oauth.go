package auth

import (
	"golang.org/x/oauth2"
)

const (
	// Strava OAuth endpoints
	AuthURL  = "https://www.strava.com/oauth/authorize"
	TokenURL = "https://www.strava.com/oauth/token"
)

// Scopes needed to read private rides with their power streams.
// Strava expects them comma-separated in a single value.
var Scopes = []string{
	"read,activity:read_all",
}

// Config holds the OAuth client credentials
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "http://localhost:8089/callback"

	// TokenURL overrides the Strava token endpoint
	TokenURL string
}

// NewOAuthConfig creates an oauth2.Config for Strava
func NewOAuthConfig(cfg Config) *oauth2.Config {
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = TokenURL
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   AuthURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: cfg.RedirectURL,
		Scopes:      Scopes,
	}
}

// Result is a completed authorization
type Result struct {
	Token     *oauth2.Token
	AthleteID int64
}

// AthleteID reads the athlete id Strava attaches to token responses.
// Returns 0 when the response carried none.
func AthleteID(token *oauth2.Token) int64 {
	athlete, ok := token.Extra("athlete").(map[string]any)
	if !ok {
		return 0
	}
	id, _ := athlete["id"].(float64)
	return int64(id)
}
