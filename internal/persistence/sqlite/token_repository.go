package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/example/officehours/internal/persistence"
)

// TokenRepository stores access tokens. Tokens reference users and vanish
// with them.
type TokenRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewTokenRepository creates a token repository over pool.
func NewTokenRepository(pool *ConnectionPool) *TokenRepository {
	return &TokenRepository{helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

const tokenColumns = `id, user_id, secret_hash, label, created_at, last_used_at, revoked_at`

func (r *TokenRepository) PutToken(ctx context.Context, token persistence.Token) error {
	if token.ID == uuid.Nil || token.UserID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO access_tokens (`+tokenColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			label = excluded.label,
			last_used_at = excluded.last_used_at,
			revoked_at = excluded.revoked_at`,
		token.ID.String(),
		token.UserID,
		token.SecretHash,
		token.Label,
		formatTime(token.CreatedAt),
		formatOptionalTime(token.LastUsedAt),
		formatOptionalTime(token.RevokedAt),
	)
	return r.mapper.MapError(err)
}

func (r *TokenRepository) GetToken(ctx context.Context, id uuid.UUID) (persistence.Token, error) {
	token, err := scanToken(r.helper.QueryRow(ctx, `SELECT `+tokenColumns+` FROM access_tokens WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Token{}, persistence.ErrNotFound
		}
		return persistence.Token{}, r.mapper.MapError(err)
	}
	return token, nil
}

func (r *TokenRepository) ListTokens(ctx context.Context, userID string) ([]persistence.Token, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT `+tokenColumns+` FROM access_tokens WHERE user_id = ? ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var out []persistence.Token
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		out = append(out, token)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return out, nil
}

func scanToken(row scanner) (persistence.Token, error) {
	var (
		token               persistence.Token
		id, createdAt       string
		lastUsed, revokedAt sql.NullString
	)
	if err := row.Scan(&id, &token.UserID, &token.SecretHash, &token.Label, &createdAt, &lastUsed, &revokedAt); err != nil {
		return persistence.Token{}, err
	}

	var err error
	if token.ID, err = parseUUID("access_tokens.id", id); err != nil {
		return persistence.Token{}, err
	}
	if token.CreatedAt, err = parseTime("access_tokens.created_at", createdAt); err != nil {
		return persistence.Token{}, err
	}
	if token.LastUsedAt, err = parseOptionalTime("access_tokens.last_used_at", lastUsed); err != nil {
		return persistence.Token{}, err
	}
	if token.RevokedAt, err = parseOptionalTime("access_tokens.revoked_at", revokedAt); err != nil {
		return persistence.Token{}, err
	}
	return token, nil
}
