package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// expiryLeeway refreshes tokens this long before Strava expires them
const expiryLeeway = 60 * time.Second

// PersistFunc stores a freshly refreshed token
type PersistFunc func(*oauth2.Token) error

// TokenSource refreshes the Strava token when it is about to expire and
// hands every new token to persist before using it.
type TokenSource struct {
	mu      sync.Mutex
	config  *oauth2.Config
	token   *oauth2.Token
	persist PersistFunc
	log     *logrus.Entry
}

// NewTokenSource creates a TokenSource starting from token
func NewTokenSource(cfg *oauth2.Config, token *oauth2.Token, persist PersistFunc, log *logrus.Entry) *TokenSource {
	return &TokenSource{
		config:  cfg,
		token:   token,
		persist: persist,
		log:     log,
	}
}

// Token returns a valid token, refreshing if necessary
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !expiring(ts.token) {
		return ts.token, nil
	}

	// clear the access token so the oauth2 source always refreshes
	stale := *ts.token
	stale.AccessToken = ""
	fresh, err := ts.config.TokenSource(context.Background(), &stale).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing Strava token: %w", err)
	}

	if ts.persist != nil {
		if err := ts.persist(fresh); err != nil {
			return nil, fmt.Errorf("saving refreshed token: %w", err)
		}
	}
	ts.log.WithField("expires", fresh.Expiry.Format(time.RFC3339)).Debug("Refreshed Strava token")

	ts.token = fresh
	return fresh, nil
}

func expiring(token *oauth2.Token) bool {
	return time.Until(token.Expiry) <= expiryLeeway
}
