package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/portlink/interconsulta/internal/interconsulta/domain"
	"github.com/portlink/interconsulta/internal/interconsulta/obs"
	"github.com/portlink/interconsulta/internal/interconsulta/store"
	"github.com/portlink/interconsulta/pkg/cryptox"
	"github.com/portlink/interconsulta/pkg/idx"
	"github.com/portlink/interconsulta/pkg/jwtx"
	"github.com/portlink/interconsulta/pkg/slogx"
)

// TokenService issues, verifies and revokes tokens. Access tokens are signed
// JWTs; refresh tokens are opaque values stored by fingerprint only.
type TokenService struct {
	Signer   jwtx.Signer
	Verifier jwtx.Verifier
	Store    store.Store

	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// dummyHash is verified against when the username does not exist, so the
// failure path costs the same as a real argon2id comparison and login timing
// does not reveal which usernames are taken.
var (
	dummyHashOnce sync.Once
	dummyHash     string
)

func loginDummyHash() string {
	dummyHashOnce.Do(func() {
		h, err := cryptox.HashSecret("timing-equalizer")
		if err != nil {
			// Malformed-hash comparison still runs the parse path; close enough
			// if the hasher itself failed (it cannot, absent OOM).
			h = ""
		}
		dummyHash = h
	})
	return dummyHash
}

// Login verifies a username/secret pair and issues a token pair. Unknown
// usernames and wrong secrets are indistinguishable to the caller.
func (s *TokenService) Login(ctx context.Context, username, secret string) (*domain.TokenPair, error) {
	now := time.Now().UTC()
	l := slogx.FromContext(ctx)

	username = strings.TrimSpace(username)
	if username == "" || secret == "" {
		return nil, ErrInvalidCredentials
	}

	p, err := s.Store.Principals().GetPrincipalByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = cryptox.VerifySecret(secret, loginDummyHash())
			obs.ObserveLogin("failure")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := cryptox.VerifySecret(secret, p.SecretHash); err != nil {
		l.Info("login secret verification failed", slog.String("username", username))
		obs.ObserveLogin("failure")
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, p, now)
	if err != nil {
		return nil, err
	}
	obs.ObserveLogin("success")
	return pair, nil
}

// Verify validates an access token and returns the caller's identity. The
// denylist is consulted so early-revoked tokens fail even before expiry.
func (s *TokenService) Verify(ctx context.Context, tokenStr string) (domain.Identity, error) {
	claims, err := s.Verifier.Verify(tokenStr)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return domain.Identity{}, ErrTokenExpired
		}
		return domain.Identity{}, ErrTokenInvalid
	}

	revoked, err := s.Store.RevokedTokens().IsAccessTokenRevoked(ctx, claims.ID)
	if err != nil {
		return domain.Identity{}, err
	}
	if revoked {
		return domain.Identity{}, ErrTokenInvalid
	}

	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Identity{}, ErrTokenInvalid
	}

	return domain.Identity{PrincipalID: claims.Subject, Role: role}, nil
}

// Refresh rotates a refresh token: the old one is revoked and a fresh pair is
// issued in a single transaction, so a replayed old token always fails.
func (s *TokenService) Refresh(ctx context.Context, refreshOpaque string) (*domain.TokenPair, error) {
	now := time.Now().UTC()

	fp := cryptox.FingerprintToken(refreshOpaque)
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	if rt.Revoked || now.After(rt.ExpiresAt) {
		return nil, ErrInvalidRefresh
	}

	// Role is re-read at refresh time, so a reassignment takes effect on the
	// next rotation at the latest.
	p, err := s.Store.Principals().GetPrincipalByID(ctx, rt.PrincipalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	accessToken, err := s.signAccess(p, now)
	if err != nil {
		return nil, err
	}

	newOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	newRT := domain.RefreshToken{
		ID:          idx.New().String(),
		PrincipalID: p.ID,
		TokenHash:   cryptox.FingerprintToken(newOpaque),
		ExpiresAt:   now.Add(s.RefreshTTL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, fp); err != nil {
			return err
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, newRT)
	}); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
	}, nil
}

// Revoke invalidates a refresh token and, when the matching access token is
// supplied, denylists its jti until the token would have expired anyway.
// Revoking an unknown refresh token is a no-op, per RFC 7009.
func (s *TokenService) Revoke(ctx context.Context, refreshOpaque, accessToken string) error {
	fp := cryptox.FingerprintToken(refreshOpaque)
	if err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, fp); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}

	if accessToken == "" {
		return nil
	}

	claims, err := s.Verifier.Verify(accessToken)
	if err != nil {
		// An invalid or already-expired access token needs no denylist entry.
		return nil
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.AccessTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return s.Store.RevokedTokens().RevokeAccessToken(ctx, domain.RevokedToken{
		JTI:       claims.ID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	})
}

// RevokeAllForPrincipal invalidates every live refresh token of a principal.
// Used when an administrator reassigns a role.
func (s *TokenService) RevokeAllForPrincipal(ctx context.Context, principalID string) error {
	return s.Store.RefreshTokens().RevokeAllForPrincipal(ctx, principalID)
}

func (s *TokenService) issuePair(ctx context.Context, p domain.Principal, now time.Time) (*domain.TokenPair, error) {
	accessToken, err := s.signAccess(p, now)
	if err != nil {
		return nil, err
	}

	refreshOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	rt := domain.RefreshToken{
		ID:          idx.New().String(),
		PrincipalID: p.ID,
		TokenHash:   cryptox.FingerprintToken(refreshOpaque),
		ExpiresAt:   now.Add(s.RefreshTTL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
	}, nil
}

func (s *TokenService) signAccess(p domain.Principal, now time.Time) (string, error) {
	claims := jwtx.NewAccessClaims(
		p.ID,
		p.Role.String(),
		p.Username,
		s.AccessTTL,
		s.Issuer,
		s.Audience,
		now,
	)
	return s.Signer.Sign(claims)
}
