package session

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/KotFed0t/portfolio_tracker/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

var ErrSessionNotFound = errors.New("session not found")

type RedisSession struct {
	redis      *redis.Client
	expiration time.Duration
}

func NewRedisSession(redisClient *redis.Client, expiration time.Duration) *RedisSession {
	return &RedisSession{redis: redisClient, expiration: expiration}
}

// Create issues a new session token for userID.
func (s *RedisSession) Create(ctx context.Context, userID int64) (token string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	token = uuid.NewString()
	_, err = s.redis.Set(ctx, sessionKeyPrefix+token, userID, s.expiration).Result()
	if err != nil {
		slog.Error("failed on redis.Set in session Create", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return "", err
	}

	return token, nil
}

// GetUserID resolves a token and slides its expiration forward.
func (s *RedisSession) GetUserID(ctx context.Context, token string) (userID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	res, err := s.redis.GetEx(ctx, sessionKeyPrefix+token, s.expiration).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrSessionNotFound
		}
		slog.Error("failed on redis.GetEx in session GetUserID", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return 0, err
	}

	userID, err = strconv.ParseInt(res, 10, 64)
	if err != nil {
		slog.Error("invalid userID in session value", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("value", res))
		return 0, err
	}

	return userID, nil
}

func (s *RedisSession) Delete(ctx context.Context, token string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	_, err := s.redis.Del(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		slog.Error("failed on redis.Del in session Delete", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	return nil
}
