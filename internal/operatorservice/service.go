// Package operatorservice authenticates compliance operators.
package operatorservice

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/passpkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
)

// Service checks operator credentials and issues access tokens.
type Service struct {
	username       string
	hashedPassword string
	tokenMaker     tokenpkg.Maker
	duration       time.Duration
}

// New returns operator service for a single operator account.
func New(username, hashedPassword string, tokenMaker tokenpkg.Maker, duration time.Duration) *Service {
	return &Service{
		username:       username,
		hashedPassword: hashedPassword,
		tokenMaker:     tokenMaker,
		duration:       duration,
	}
}

// Login checks the password and returns an operator access token.
func (s *Service) Login(ctx context.Context, username, password string) (string, *tokenpkg.Payload, error) {
	l := zerolog.Ctx(ctx)

	if s.username == "" || username != s.username {
		l.Warn().Str("username", username).Msg("unknown operator")
		return "", nil, errorspkg.ErrInvalidCredentials
	}

	if err := passpkg.Check(password, s.hashedPassword); err != nil {
		l.Warn().Err(err).Str("username", username).Send()
		return "", nil, errorspkg.ErrInvalidCredentials
	}

	token, payload, err := s.tokenMaker.CreateToken(username, tokenpkg.RoleOperator, s.duration)
	if err != nil {
		l.Error().Err(err).Send()
		return "", nil, errorspkg.ErrInternal
	}

	return token, payload, nil
}
