package repo

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"go_kifu/internal/domain"
)

// RedisSessionStorage хранит навигационные сессии: какой записью занят
// клиент и на каком узле дерева он остановился.
type RedisSessionStorage struct {
	client *redis.Client
}

func NewSessionRedisStorage(redis *redis.Client) *RedisSessionStorage {
	c := &RedisSessionStorage{
		client: redis,
	}
	return c
}

func (r RedisSessionStorage) GetNavigationBySession(sessionID string) (nav domain.Navigation, ok bool) {
	v, err := r.client.Get(context.Background(), sessionRedisKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Navigation{}, false
		}
		slog.Error(err.Error())
		return domain.Navigation{}, false
	}
	if err := json.Unmarshal([]byte(v), &nav); err != nil {
		slog.Error(err.Error())
		return domain.Navigation{}, false
	}
	return nav, true
}

func (r RedisSessionStorage) StoreNavigation(sessionID string, nav domain.Navigation) {
	data, err := json.Marshal(nav)
	if err != nil {
		slog.Error(err.Error())
		return
	}
	r.client.Set(context.Background(), sessionRedisKey(sessionID), data, time.Hour*11)
}

func (r RedisSessionStorage) DeleteSession(sessionID string) (ok bool) {
	r.client.Del(context.Background(), sessionRedisKey(sessionID))
	return true
}

func sessionRedisKey(sessionID string) string {
	return "nav:" + sessionID
}
