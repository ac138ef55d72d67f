package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"secretburner/internal/domain"

	"github.com/redis/go-redis/v9"
)

type VerificationRepository interface {
	// Create persists a new pending verification.
	Create(ctx context.Context, v *domain.Verification, ttl time.Duration) error

	// Get returns a verification by id, or domain.ErrVerificationNotFound.
	Get(ctx context.Context, verifyID string) (*domain.Verification, error)

	// GetByToken resolves a verification through its verified token, or
	// domain.ErrEmailVerification when the token is unknown.
	GetByToken(ctx context.Context, token string) (*domain.Verification, error)

	// SetToken stores a freshly issued verified token, replacing and
	// invalidating any previously issued one.
	SetToken(ctx context.Context, verifyID, token string) (*domain.Verification, error)

	// ConsumeByToken deletes the verification addressed by token, reporting
	// whether this caller won. A token is spendable exactly once.
	ConsumeByToken(ctx context.Context, token string) (bool, error)

	// Delete removes the verification and its token index unconditionally.
	Delete(ctx context.Context, v *domain.Verification) error
}

type redisVerificationRepository struct {
	rdb *redis.Client
}

func NewRedisVerificationRepository(rdb *redis.Client) VerificationRepository {
	return &redisVerificationRepository{rdb: rdb}
}

func verifyKey(id string) string   { return "verify:" + id }
func tokenKey(token string) string { return "verify:token:" + token }

func (r *redisVerificationRepository) Create(ctx context.Context, v *domain.Verification, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, verifyKey(v.VerifyID), raw, ttl).Err()
}

func (r *redisVerificationRepository) Get(ctx context.Context, verifyID string) (*domain.Verification, error) {
	raw, err := r.rdb.Get(ctx, verifyKey(verifyID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrVerificationNotFound
	}
	if err != nil {
		return nil, err
	}
	var v domain.Verification
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *redisVerificationRepository) GetByToken(ctx context.Context, token string) (*domain.Verification, error) {
	verifyID, err := r.rdb.Get(ctx, tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrEmailVerification
	}
	if err != nil {
		return nil, err
	}
	v, err := r.Get(ctx, verifyID)
	if errors.Is(err, domain.ErrVerificationNotFound) {
		return nil, domain.ErrEmailVerification
	}
	return v, err
}

// SetToken rotates the verified token. Confirming the code again before the
// token is consumed reissues it, so the previous token index must go.
func (r *redisVerificationRepository) SetToken(ctx context.Context, verifyID, token string) (*domain.Verification, error) {
	key := verifyKey(verifyID)
	var updated *domain.Verification
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrVerificationNotFound
		}
		if err != nil {
			return err
		}
		var v domain.Verification
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		previous := v.VerifiedToken
		v.VerifiedToken = token
		buf, err := json.Marshal(&v)
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
			if previous != "" {
				pipe.Del(ctx, tokenKey(previous))
			}
			pipe.Set(ctx, key, buf, ttl)
			pipe.Set(ctx, tokenKey(token), verifyID, ttl)
			return nil
		})
		if err == nil {
			updated = &v
		}
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return nil, domain.ErrVerificationNotFound
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ConsumeByToken removes both the token index and the verification record if
// the token is still live. Concurrent consumers get exactly one winner.
func (r *redisVerificationRepository) ConsumeByToken(ctx context.Context, token string) (bool, error) {
	idx := tokenKey(token)
	won := false
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		verifyID, err := tx.Get(ctx, idx).Result()
		if errors.Is(err, redis.Nil) {
			return nil // already spent
		}
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, idx, verifyKey(verifyID))
			return nil
		})
		if err == nil {
			won = true
		}
		return err
	}, idx)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return won, err
}

func (r *redisVerificationRepository) Delete(ctx context.Context, v *domain.Verification) error {
	keys := []string{verifyKey(v.VerifyID)}
	if v.VerifiedToken != "" {
		keys = append(keys, tokenKey(v.VerifiedToken))
	}
	return r.rdb.Del(ctx, keys...).Err()
}
