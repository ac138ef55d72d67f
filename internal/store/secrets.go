// Package store implements redis-backed repositories for secrets and email
// verifications. All single-use semantics (one-time read, fulfilment claim,
// token consumption) are enforced here with WATCH transactions so that
// concurrent callers yield exactly one winner.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"secretburner/internal/domain"

	"github.com/redis/go-redis/v9"
)

type SecretRepository interface {
	// Create persists a new secret and, when present, its request index.
	Create(ctx context.Context, s *domain.Secret, ttl time.Duration) error

	// Get returns a secret by id, or domain.ErrSecretNotFound.
	Get(ctx context.Context, secretID string) (*domain.Secret, error)

	// GetByRequestID resolves a pending request, or domain.ErrRequestNotFound.
	GetByRequestID(ctx context.Context, requestID string) (*domain.Secret, error)

	// GetByFulfilmentID resolves a claimed request, or domain.ErrRequestNotFound.
	GetByFulfilmentID(ctx context.Context, fulfilmentID string) (*domain.Secret, error)

	// Take deletes the secret if it is still stored unchanged, reporting
	// whether this caller won. Concurrent takers get exactly one winner.
	Take(ctx context.Context, s *domain.Secret) (bool, error)

	// Delete removes the secret and its index entries unconditionally.
	Delete(ctx context.Context, s *domain.Secret) error

	// ClaimFulfilment sets fulfilmentID on the request-originated secret,
	// only if no fulfilment id is set yet. Returns the updated secret, or
	// domain.ErrRequestNotFound when the request is gone or already claimed.
	ClaimFulfilment(ctx context.Context, requestID, fulfilmentID string) (*domain.Secret, error)

	// SetText stores the fulfilment text on the secret matching both ids.
	// Returns domain.ErrRequestNotFound when no record matches.
	SetText(ctx context.Context, fulfilmentID, requestID, text string) (*domain.Secret, error)
}

type redisSecretRepository struct {
	rdb *redis.Client
}

func NewRedisSecretRepository(rdb *redis.Client) SecretRepository {
	return &redisSecretRepository{rdb: rdb}
}

func secretKey(id string) string     { return "secret:" + id }
func requestKey(id string) string    { return "secret:request:" + id }
func fulfilmentKey(id string) string { return "secret:fulfilment:" + id }

func (r *redisSecretRepository) Create(ctx context.Context, s *domain.Secret, ttl time.Duration) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, secretKey(s.SecretID), raw, ttl)
		if s.RequestID != "" {
			pipe.Set(ctx, requestKey(s.RequestID), s.SecretID, ttl)
		}
		return nil
	})
	return err
}

func (r *redisSecretRepository) Get(ctx context.Context, secretID string) (*domain.Secret, error) {
	raw, err := r.rdb.Get(ctx, secretKey(secretID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSecretNotFound
	}
	if err != nil {
		return nil, err
	}
	var s domain.Secret
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *redisSecretRepository) getByIndex(ctx context.Context, indexKey string) (*domain.Secret, error) {
	secretID, err := r.rdb.Get(ctx, indexKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	s, err := r.Get(ctx, secretID)
	if errors.Is(err, domain.ErrSecretNotFound) {
		return nil, domain.ErrRequestNotFound
	}
	return s, err
}

func (r *redisSecretRepository) GetByRequestID(ctx context.Context, requestID string) (*domain.Secret, error) {
	return r.getByIndex(ctx, requestKey(requestID))
}

func (r *redisSecretRepository) GetByFulfilmentID(ctx context.Context, fulfilmentID string) (*domain.Secret, error) {
	return r.getByIndex(ctx, fulfilmentKey(fulfilmentID))
}

// Take deletes the secret only if its stored bytes still equal the copy the
// caller read. Under two concurrent retrievals the WATCH aborts the loser,
// so a secret is handed out at most once.
func (r *redisSecretRepository) Take(ctx context.Context, s *domain.Secret) (bool, error) {
	key := secretKey(s.SecretID)
	old, err := json.Marshal(s)
	if err != nil {
		return false, err
	}
	won := false
	err = r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil // secret gone
		}
		if err != nil {
			return err
		}
		if !bytes.Equal(cur, old) {
			return nil // changed under us; caller must re-read
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			if s.RequestID != "" {
				pipe.Del(ctx, requestKey(s.RequestID))
			}
			if s.FulfilmentID != "" {
				pipe.Del(ctx, fulfilmentKey(s.FulfilmentID))
			}
			return nil
		})
		if err == nil {
			won = true
		}
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return won, err
}

func (r *redisSecretRepository) Delete(ctx context.Context, s *domain.Secret) error {
	keys := []string{secretKey(s.SecretID)}
	if s.RequestID != "" {
		keys = append(keys, requestKey(s.RequestID))
	}
	if s.FulfilmentID != "" {
		keys = append(keys, fulfilmentKey(s.FulfilmentID))
	}
	return r.rdb.Del(ctx, keys...).Err()
}

// ClaimFulfilment is a compare-and-set: the fulfilment id is written only if
// none is set. Two concurrent claimants get exactly one winner; the loser
// sees domain.ErrRequestNotFound like any other already-claimed request.
func (r *redisSecretRepository) ClaimFulfilment(ctx context.Context, requestID, fulfilmentID string) (*domain.Secret, error) {
	idx := requestKey(requestID)
	var claimed *domain.Secret
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		secretID, err := tx.Get(ctx, idx).Result()
		if errors.Is(err, redis.Nil) {
			return domain.ErrRequestNotFound
		}
		if err != nil {
			return err
		}
		key := secretKey(secretID)
		if err := tx.Watch(ctx, key).Err(); err != nil {
			return err
		}
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrRequestNotFound
		}
		if err != nil {
			return err
		}
		var s domain.Secret
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		if s.FulfilmentID != "" {
			return domain.ErrRequestNotFound // already claimed
		}
		s.FulfilmentID = fulfilmentID
		buf, err := json.Marshal(&s)
		if err != nil {
			return err
		}
		ttl, err := tx.PTTL(ctx, key).Result()
		if err != nil {
			return err
		}
		if ttl < 0 {
			ttl = 0
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, buf, ttl)
			pipe.Set(ctx, fulfilmentKey(fulfilmentID), secretID, ttl)
			return nil
		})
		if err == nil {
			claimed = &s
		}
		return err
	}, idx)
	if errors.Is(err, redis.TxFailedErr) {
		return nil, domain.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// SetText requires both the fulfilment id and the request id to match the
// same record before storing the submitted text.
func (r *redisSecretRepository) SetText(ctx context.Context, fulfilmentID, requestID, text string) (*domain.Secret, error) {
	idx := fulfilmentKey(fulfilmentID)
	var updated *domain.Secret
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		secretID, err := tx.Get(ctx, idx).Result()
		if errors.Is(err, redis.Nil) {
			return domain.ErrRequestNotFound
		}
		if err != nil {
			return err
		}
		key := secretKey(secretID)
		if err := tx.Watch(ctx, key).Err(); err != nil {
			return err
		}
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrRequestNotFound
		}
		if err != nil {
			return err
		}
		var s domain.Secret
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		if s.RequestID != requestID || s.FulfilmentID != fulfilmentID {
			return domain.ErrRequestNotFound
		}
		s.SecretText = text
		buf, err := json.Marshal(&s)
		if err != nil {
			return err
		}
		ttl, err := tx.PTTL(ctx, key).Result()
		if err != nil {
			return err
		}
		if ttl < 0 {
			ttl = 0
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, buf, ttl)
			return nil
		})
		if err == nil {
			updated = &s
		}
		return err
	}, idx)
	if errors.Is(err, redis.TxFailedErr) {
		return nil, domain.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}
