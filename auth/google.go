package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/raushankrgupta/maternity-matters/apperr"
)

// ErrGoogleDisabled is returned when no OAuth client is configured.
var ErrGoogleDisabled = errors.New("google sign-in is not configured")

// NewGoogleOAuthConfig builds the authorization code flow config. It returns
// nil when the client id or secret is missing.
func NewGoogleOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	return &oauth2.Config{
		RedirectURL:  redirectURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{"openid", "https://www.googleapis.com/auth/userinfo.email"},
		Endpoint:     google.Endpoint,
	}
}

// GoogleAuthURL returns the Google consent page URL carrying state.
func (s *Service) GoogleAuthURL(state string) (string, error) {
	if s.oauth == nil {
		return "", ErrGoogleDisabled
	}
	return s.oauth.AuthCodeURL(state), nil
}

// GoogleCallback exchanges an authorization code and signs in with the ID
// token Google returns alongside the access token.
func (s *Service) GoogleCallback(ctx context.Context, code string) (*Session, error) {
	if s.oauth == nil {
		return nil, ErrGoogleDisabled
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperr.Validation(apperr.Field("code", "Authorization code is required."))
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to exchange Google authorization code")
		return nil, apperr.Auth(MsgGoogleFailed)
	}
	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return nil, apperr.Auth(MsgGoogleFailed)
	}
	return s.GoogleLogin(ctx, idToken)
}
