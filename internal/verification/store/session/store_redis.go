package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"mediguard/internal/predicate"
	"mediguard/internal/verification/models"
	id "mediguard/pkg/domain"
)

const sessionKeyPrefix = "mediguard:verification_session:"

// sessionJSON is the stored representation of a Session.
type sessionJSON struct {
	RequestID              string              `json:"request_id"`
	ProviderID             string              `json:"provider_id"`
	ProviderName           string              `json:"provider_name"`
	ProviderType           string              `json:"provider_type"`
	Predicate              predicate.Predicate `json:"predicate"`
	PredicateHumanReadable string              `json:"predicate_human_readable"`
	CodePayload            string              `json:"code_payload"`
	CreatedAt              int64               `json:"created_at"` // Unix nano
}

// RedisStore persists sessions in Redis so several backend instances can
// share them. Retention is enforced with key TTLs instead of the cleanup worker.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedis constructs a Redis-backed session store. A zero retention keeps
// sessions forever.
func NewRedis(client *redis.Client, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, retention: retention}
}

func (s *RedisStore) key(requestID id.RequestID) string {
	return sessionKeyPrefix + requestID.String()
}

func (s *RedisStore) Save(ctx context.Context, session models.Session) error {
	data, err := json.Marshal(sessionJSON{
		RequestID:              session.RequestID.String(),
		ProviderID:             session.ProviderID.String(),
		ProviderName:           session.ProviderName,
		ProviderType:           session.ProviderType,
		Predicate:              session.Predicate,
		PredicateHumanReadable: session.PredicateHumanReadable,
		CodePayload:            session.CodePayload,
		CreatedAt:              session.CreatedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(session.RequestID), data, s.retention).Result()
	if err != nil {
		return fmt.Errorf("save verification session: %w", err)
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, requestID id.RequestID) (*models.Session, error) {
	data, err := s.client.Get(ctx, s.key(requestID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find verification session: %w", err)
	}

	var j sessionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	rawID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request id: %w", err)
	}
	return &models.Session{
		RequestID:              id.RequestID(rawID),
		ProviderID:             id.ProviderID(j.ProviderID),
		ProviderName:           j.ProviderName,
		ProviderType:           j.ProviderType,
		Predicate:              j.Predicate,
		PredicateHumanReadable: j.PredicateHumanReadable,
		CodePayload:            j.CodePayload,
		CreatedAt:              time.Unix(0, j.CreatedAt),
	}, nil
}

// DeleteCreatedBefore is a no-op: keys expire on their own.
func (s *RedisStore) DeleteCreatedBefore(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}
