package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/officehours/internal/logging"
)

// SecretVerifier compares a stored hash with a candidate secret.
type SecretVerifier func(hashedSecret, secret string) error

// IssueTokenParams wraps the data required to issue an access token.
type IssueTokenParams struct {
	Principal Principal
	// UserID defaults to the principal. Only admins may issue for others.
	UserID string
	Label  string
}

// TokenService issues and verifies bearer access tokens of the form
// "<token id>.<secret>".
type TokenService struct {
	tokens      TokenRepository
	users       UserRepository
	verify      SecretVerifier
	hashParams  Argon2idParams
	idGenerator func() uuid.UUID
	now         func() time.Time
	cache       *tokenCache
	logger      *slog.Logger
}

// TokenServiceOption customises a TokenService.
type TokenServiceOption func(*TokenService)

// WithHashParams overrides the argon2id cost parameters used for new secrets.
func WithHashParams(params Argon2idParams) TokenServiceOption {
	return func(s *TokenService) { s.hashParams = params }
}

// WithTokenCacheTTL sets how long a verified bearer skips re-hashing.
func WithTokenCacheTTL(ttl time.Duration) TokenServiceOption {
	return func(s *TokenService) { s.cache = newTokenCache(ttl, 0, s.now) }
}

// WithTokenLogger sets the service logger.
func WithTokenLogger(logger *slog.Logger) TokenServiceOption {
	return func(s *TokenService) { s.logger = logging.Or(logger) }
}

// NewTokenService constructs a TokenService with the provided dependencies.
func NewTokenService(tokens TokenRepository, users UserRepository, idGenerator func() uuid.UUID, now func() time.Time, opts ...TokenServiceOption) *TokenService {
	if idGenerator == nil {
		idGenerator = uuid.New
	}
	if now == nil {
		now = time.Now
	}
	s := &TokenService{
		tokens:      tokens,
		users:       users,
		verify:      VerifySecret,
		hashParams:  DefaultArgon2idParams,
		idGenerator: idGenerator,
		now:         now,
		logger:      logging.Or(nil),
	}
	s.cache = newTokenCache(0, 0, now)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TokenService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, s.logger, "service", "TokenService", operation, attrs...)
}

// IssueToken creates a token and returns the bearer string once.
func (s *TokenService) IssueToken(ctx context.Context, params IssueTokenParams) (issued IssuedToken, err error) {
	if s == nil || s.tokens == nil || s.users == nil {
		err = fmt.Errorf("TokenService not configured")
		return
	}

	userID := strings.TrimSpace(params.UserID)
	if userID == "" {
		userID = params.Principal.UserID
	}

	logger := s.loggerWith(ctx, "IssueToken",
		"principal_id", params.Principal.UserID,
		"user_id", userID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to issue token", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("token_id", issued.Token.ID).InfoContext(ctx, "token issued")
	}()

	if strings.TrimSpace(params.Principal.UserID) == "" {
		err = ErrUnauthorized
		return
	}
	if userID != params.Principal.UserID && !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	user, gerr := s.users.GetUser(ctx, userID)
	if gerr != nil {
		err = mapRepoError(gerr)
		return
	}
	if user.Status == UserStatusDisabled {
		err = ErrAccountDisabled
		return
	}

	secret, serr := NewSecret(32)
	if serr != nil {
		err = serr
		return
	}
	hash, herr := CreateSecretHash(secret, s.hashParams)
	if herr != nil {
		err = herr
		return
	}

	token := AccessToken{
		ID:         s.idGenerator(),
		UserID:     user.ID,
		SecretHash: hash,
		Label:      strings.TrimSpace(params.Label),
		CreatedAt:  s.now(),
	}
	if err = s.tokens.PutToken(ctx, token); err != nil {
		err = mapRepoError(err)
		return
	}
	issued = IssuedToken{Token: token, Bearer: token.ID.String() + "." + secret}
	return
}

// Authenticate resolves a bearer string to the principal it belongs to.
func (s *TokenService) Authenticate(ctx context.Context, bearer string) (Principal, error) {
	if s == nil || s.tokens == nil || s.users == nil {
		return Principal{}, fmt.Errorf("TokenService not configured")
	}

	bearer = strings.TrimSpace(bearer)
	userID, err := s.verifyBearer(ctx, bearer)
	if err != nil {
		s.loggerWith(ctx, "Authenticate").DebugContext(ctx, "bearer rejected", "error_kind", ErrorKind(err))
		return Principal{}, err
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, mapRepoError(err)
	}
	if user.Status == UserStatusDisabled {
		return Principal{}, ErrAccountDisabled
	}
	return user.Principal(), nil
}

func (s *TokenService) verifyBearer(ctx context.Context, bearer string) (string, error) {
	if entry, ok := s.cache.Get(bearer); ok {
		return entry.userID, nil
	}

	rawID, secret, found := strings.Cut(bearer, ".")
	if !found || secret == "" {
		return "", ErrInvalidCredentials
	}
	id, err := parseID(rawID)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.GetToken(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return "", ErrInvalidCredentials
		}
		return "", mapRepoError(err)
	}
	if token.RevokedAt != nil {
		return "", ErrInvalidCredentials
	}
	if err := s.verify(token.SecretHash, secret); err != nil {
		return "", ErrInvalidCredentials
	}

	now := s.now()
	token.LastUsedAt = &now
	if err := s.tokens.PutToken(ctx, token); err != nil {
		return "", mapRepoError(err)
	}
	s.cache.Store(bearer, token.ID, token.UserID)
	return token.UserID, nil
}

// RevokeToken marks a token revoked. Owners and admins may revoke.
func (s *TokenService) RevokeToken(ctx context.Context, principal Principal, rawID string) (err error) {
	if s == nil || s.tokens == nil {
		return fmt.Errorf("TokenService not configured")
	}

	logger := s.loggerWith(ctx, "RevokeToken",
		"principal_id", principal.UserID,
		"token_id", rawID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to revoke token", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "token revoked")
	}()

	if strings.TrimSpace(principal.UserID) == "" {
		return ErrUnauthorized
	}
	id, err := parseID(rawID)
	if err != nil {
		return newValidationError("token_id", "must be a 16 byte identifier")
	}
	token, err := s.tokens.GetToken(ctx, id)
	if err != nil {
		return mapRepoError(err)
	}
	if token.UserID != principal.UserID && !principal.IsAdmin {
		// Do not reveal tokens owned by other users.
		return ErrNotFound
	}
	if token.RevokedAt != nil {
		return nil
	}

	now := s.now()
	token.RevokedAt = &now
	if err = s.tokens.PutToken(ctx, token); err != nil {
		return mapRepoError(err)
	}
	s.cache.Forget(token.ID)
	return nil
}

// ListTokens returns the tokens of userID, newest first. An empty userID
// lists the principal's own tokens.
func (s *TokenService) ListTokens(ctx context.Context, principal Principal, userID string) ([]AccessToken, error) {
	if s == nil || s.tokens == nil {
		return nil, fmt.Errorf("TokenService not configured")
	}
	if strings.TrimSpace(principal.UserID) == "" {
		return nil, ErrUnauthorized
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = principal.UserID
	}
	if userID != principal.UserID && !principal.IsAdmin {
		return nil, ErrUnauthorized
	}

	tokens, err := s.tokens.ListTokens(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	sort.SliceStable(tokens, func(i, j int) bool {
		return tokens[i].CreatedAt.After(tokens[j].CreatedAt)
	})
	for i := range tokens {
		tokens[i].SecretHash = ""
	}
	return tokens, nil
}
