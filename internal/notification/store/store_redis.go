package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"casedesk/internal/notification/models"
	"casedesk/pkg/platform/sentinel"
)

const (
	// notif:<id> is a hash holding one notification.
	notificationKeyPrefix = "notif:"
	// notif:user:<userID> is a sorted set of ids scored by creation time.
	userIndexKeyPrefix = "notif:user:"
	// notif:user:<userID>:unread is the set of unread ids.
	unreadSuffix = ":unread"
)

// RedisStore persists notifications as per-record hashes with per-user
// indexes, so no operation rewrites a whole collection.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func notificationKey(id string) string { return notificationKeyPrefix + id }
func userIndexKey(userID string) string { return userIndexKeyPrefix + userID }
func unreadKey(userID string) string    { return userIndexKeyPrefix + userID + unreadSuffix }

func (s *RedisStore) Save(ctx context.Context, n *models.Notification) error {
	read := "0"
	if n.Read {
		read = "1"
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, notificationKey(n.ID), map[string]any{
			"id":         n.ID,
			"user_id":    n.UserID,
			"title":      n.Title,
			"message":    n.Message,
			"case_id":    n.CaseID,
			"read":       read,
			"created_at": n.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		pipe.ZAdd(ctx, userIndexKey(n.UserID), redis.Z{
			Score:  float64(n.CreatedAt.UnixMilli()),
			Member: n.ID,
		})
		if n.Read {
			pipe.SRem(ctx, unreadKey(n.UserID), n.ID)
		} else {
			pipe.SAdd(ctx, unreadKey(n.UserID), n.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save notification: %w", err)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	fields, err := s.client.HGetAll(ctx, notificationKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load notification: %w", err)
	}
	if len(fields) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return decode(fields)
}

func (s *RedisStore) ListByUser(ctx context.Context, userID string) ([]*models.Notification, error) {
	ids, err := s.client.ZRevRange(ctx, userIndexKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list notification ids: %w", err)
	}
	out := make([]*models.Notification, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, notificationKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("load notifications: %w", err)
	}
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		n, err := decode(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *RedisStore) MarkRead(ctx context.Context, id string) (*models.Notification, error) {
	userID, err := s.owner(ctx, id)
	if err != nil {
		return nil, err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, notificationKey(id), "read", "1")
		pipe.SRem(ctx, unreadKey(userID), id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return s.FindByID(ctx, id)
}

// MarkAllRead counts only ids this call removed from the unread set, so
// concurrent callers never both claim the same notification.
func (s *RedisStore) MarkAllRead(ctx context.Context, userID string) (int, error) {
	ids, err := s.client.SMembers(ctx, unreadKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("list unread notifications: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := s.client.Pipeline()
	removed := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		removed[i] = pipe.SRem(ctx, unreadKey(userID), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("clear unread set: %w", err)
	}

	flipped := 0
	pipe = s.client.Pipeline()
	for i, id := range ids {
		if removed[i].Val() == 1 {
			pipe.HSet(ctx, notificationKey(id), "read", "1")
			flipped++
		}
	}
	if flipped == 0 {
		return 0, nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return flipped, nil
}

func (s *RedisStore) CountUnread(ctx context.Context, userID string) (int, error) {
	n, err := s.client.SCard(ctx, unreadKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return int(n), nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	userID, err := s.owner(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, notificationKey(id))
		pipe.ZRem(ctx, userIndexKey(userID), id)
		pipe.SRem(ctx, unreadKey(userID), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

func (s *RedisStore) owner(ctx context.Context, id string) (string, error) {
	userID, err := s.client.HGet(ctx, notificationKey(id), "user_id").Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load notification owner: %w", err)
	}
	return userID, nil
}

func decode(fields map[string]string) (*models.Notification, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("decode notification %s created_at: %w", fields["id"], err)
	}
	return &models.Notification{
		ID:        fields["id"],
		UserID:    fields["user_id"],
		Title:     fields["title"],
		Message:   fields["message"],
		CaseID:    fields["case_id"],
		Read:      fields["read"] == "1",
		CreatedAt: createdAt,
	}, nil
}
