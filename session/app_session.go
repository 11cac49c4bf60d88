package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNoSession = errors.New("session not found or expired")

// AppSessionStore 业务登录会话：每个会话一个 hash，另有按用户索引的 set 用于批量撤销
type AppSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewAppSessionStore(rdb *redis.Client, ttl time.Duration) *AppSessionStore {
	return &AppSessionStore{rdb: rdb, ttl: ttl}
}

type AppSession struct {
	ID        string `redis:"-"`
	UserID    string `redis:"uid"`
	IP        string `redis:"ip"`
	UserAgent string `redis:"ua"`
	IssuedAt  int64  `redis:"iat"`
}

func (s *AppSessionStore) TTL() time.Duration { return s.ttl }

func sessKey(id string) string { return "asset:sess:" + id }
func userSetKey(uid string) string { return "asset:user_sessions:" + uid }

// Create 新建会话并返回其 ID
func (s *AppSessionStore) Create(ctx context.Context, userID, ip, ua string) (string, error) {
	id := uuid.NewString()
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, sessKey(id), "uid", userID, "ip", ip, "ua", ua, "iat", time.Now().Unix())
	pipe.Expire(ctx, sessKey(id), s.ttl)
	pipe.SAdd(ctx, userSetKey(userID), id)
	pipe.Expire(ctx, userSetKey(userID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (s *AppSessionStore) Get(ctx context.Context, id string) (*AppSession, error) {
	cmd := s.rdb.HGetAll(ctx, sessKey(id))
	vals, err := cmd.Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, ErrNoSession
	}
	as := AppSession{ID: id}
	if err := cmd.Scan(&as); err != nil {
		return nil, err
	}
	if as.UserID == "" {
		return nil, ErrNoSession
	}
	return &as, nil
}

func (s *AppSessionStore) Delete(ctx context.Context, id string) error {
	uid, err := s.rdb.HGet(ctx, sessKey(id), "uid").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, sessKey(id))
	if uid != "" {
		pipe.SRem(ctx, userSetKey(uid), id)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// RevokeAllForUser 删除用户时撤销该用户的所有会话
func (s *AppSessionStore) RevokeAllForUser(ctx context.Context, userID string) error {
	ids, err := s.rdb.SMembers(ctx, userSetKey(userID)).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, sid := range ids {
		keys = append(keys, sessKey(sid))
	}
	keys = append(keys, userSetKey(userID))
	return s.rdb.Del(ctx, keys...).Err()
}
