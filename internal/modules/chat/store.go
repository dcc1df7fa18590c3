// README: Chat persistence: redis sessions/history, PostgreSQL token quota.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb *redis.Client
	db  *pgxpool.Pool

	historyLimit  int
	sessionTTL    time.Duration
	monthlyTokens int
}

func NewStore(rdb *redis.Client, db *pgxpool.Pool, historyLimit int, sessionTTL time.Duration, monthlyTokens int) *Store {
	return &Store{
		rdb:           rdb,
		db:            db,
		historyLimit:  historyLimit,
		sessionTTL:    sessionTTL,
		monthlyTokens: monthlyTokens,
	}
}

func historyKey(userID int64) string { return fmt.Sprintf("chat:hist:%d", userID) }
func sessionKey(userID int64) string { return fmt.Sprintf("chat:session:%d", userID) }

// AppendHistory pushes one line, trims to the history limit, and refreshes the TTL.
func (s *Store) AppendHistory(ctx context.Context, userID int64, role, text string) error {
	key := historyKey(userID)
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, role+": "+text)
	pipe.LTrim(ctx, key, int64(-s.historyLimit), -1)
	pipe.Expire(ctx, key, s.sessionTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) History(ctx context.Context, userID int64) ([]string, error) {
	return s.rdb.LRange(ctx, historyKey(userID), 0, -1).Result()
}

func (s *Store) SaveSession(ctx context.Context, userID int64, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKey(userID), data, s.sessionTTL).Err()
}

// LoadSession returns nil without error when no session exists or it expired.
func (s *Store) LoadSession(ctx context.Context, userID int64) (*Session, error) {
	data, err := s.rdb.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) ClearSession(ctx context.Context, userID int64) error {
	return s.rdb.Del(ctx, sessionKey(userID)).Err()
}

// UseToken atomically checks the monthly quota and deducts one token.
// It resets the counter when last_reset_month is behind the current month.
// Returns ErrInsufficientTokens when 0 rows are updated (quota exhausted or user absent).
func (s *Store) UseToken(ctx context.Context, userID int64) error {
	now := time.Now().Format("2006-01")

	tag, err := s.db.Exec(ctx, `
		UPDATE chat_usage SET
			tokens_remaining = CASE WHEN last_reset_month != $1 THEN $2 - 1 ELSE tokens_remaining - 1 END,
			last_reset_month = $1
		WHERE user_id = $3 AND (last_reset_month < $1 OR tokens_remaining > 0)
	`, now, s.monthlyTokens, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientTokens
	}
	return nil
}

// EnsureUser inserts a chat_usage row for the user with the full allowance.
// If the row already exists the insert is silently skipped.
func (s *Store) EnsureUser(ctx context.Context, userID int64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO chat_usage (user_id, tokens_remaining, last_reset_month)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, s.monthlyTokens, time.Now().Format("2006-01"))
	return err
}
