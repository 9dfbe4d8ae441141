package account

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/scrapekit/pkg/pg"
	"github.com/dmitrymomot/scrapekit/svc/apikey"
)

var apiKeyColumns = []string{
	"id",
	"user_id",
	"name",
	"prefix",
	"last4",
	"hash",
	"created_at",
	"last_used_at",
	"revoked_at",
}

func scanAPIKey(row pgx.Row) (apikey.Key, error) {
	var k apikey.Key
	err := row.Scan(
		&k.ID,
		&k.UserID,
		&k.Name,
		&k.Prefix,
		&k.Last4,
		&k.Hash,
		&k.CreatedAt,
		&k.LastUsedAt,
		&k.RevokedAt,
	)
	return k, err
}

// CreateAPIKey implements apikey.Store. The owner row stays locked until commit,
// so concurrent creates for one user are counted one after another.
func (s *Store) CreateAPIKey(ctx context.Context, k apikey.Key, limit int) error {
	return s.withTx(ctx, func(q Querier) error {
		lock, args, err := psql.Select("id").
			From("users").
			Where(squirrel.Eq{"id": k.UserID}).
			Suffix("FOR UPDATE").
			ToSql()
		if err != nil {
			return fmt.Errorf("build lock api key owner: %w", err)
		}
		var owner uuid.UUID
		if err := q.QueryRow(ctx, lock, args...).Scan(&owner); err != nil {
			return fmt.Errorf("lock api key owner: %w", err)
		}

		count, args, err := psql.Select("count(*)").
			From("api_keys").
			Where(squirrel.Eq{"user_id": k.UserID}).
			Where("revoked_at IS NULL").
			ToSql()
		if err != nil {
			return fmt.Errorf("build count api keys: %w", err)
		}
		var active int64
		if err := q.QueryRow(ctx, count, args...).Scan(&active); err != nil {
			return fmt.Errorf("count api keys: %w", err)
		}
		if active >= int64(limit) {
			return apikey.ErrTooManyKeys
		}

		insert, args, err := psql.Insert("api_keys").
			Columns(apiKeyColumns...).
			Values(k.ID, k.UserID, k.Name, k.Prefix, k.Last4, k.Hash, k.CreatedAt, k.LastUsedAt, k.RevokedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert api key: %w", err)
		}
		if _, err := q.Exec(ctx, insert, args...); err != nil {
			return fmt.Errorf("insert api key: %w", err)
		}
		return nil
	})
}

// ListAPIKeys implements apikey.Store.
func (s *Store) ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]apikey.Key, error) {
	query, args, err := psql.Select(apiKeyColumns...).
		From("api_keys").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build api keys query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []apikey.Key
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// RevokeAPIKey implements apikey.Store.
func (s *Store) RevokeAPIKey(ctx context.Context, userID, keyID uuid.UUID, at time.Time) error {
	query, args, err := psql.Update("api_keys").
		Set("revoked_at", at).
		Where(squirrel.Eq{"id": keyID, "user_id": userID}).
		Where("revoked_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build revoke api key: %w", err)
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apikey.ErrKeyNotFound
	}
	return nil
}

// FindActiveAPIKey implements apikey.Store.
func (s *Store) FindActiveAPIKey(ctx context.Context, hash string) (*apikey.Key, error) {
	query, args, err := psql.Select(apiKeyColumns...).
		From("api_keys").
		Where(squirrel.Eq{"hash": hash}).
		Where("revoked_at IS NULL").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find api key: %w", err)
	}
	k, err := scanAPIKey(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, apikey.ErrKeyNotFound
		}
		return nil, fmt.Errorf("find api key: %w", err)
	}
	return &k, nil
}

// TouchAPIKey implements apikey.Store.
func (s *Store) TouchAPIKey(ctx context.Context, keyID uuid.UUID, at time.Time) error {
	query, args, err := psql.Update("api_keys").
		Set("last_used_at", at).
		Where(squirrel.Eq{"id": keyID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build touch api key: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}
