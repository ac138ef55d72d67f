package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"secretburner/internal/domain"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func newSecret(text string) *domain.Secret {
	return &domain.Secret{
		SecretID:      "sec-1",
		SecretText:    text,
		ExpirySeconds: 3600,
		BurnAt:        time.Now().Add(time.Hour).Unix(),
	}
}

func TestSecretRepository_CreateGet(t *testing.T) {
	repo := NewRedisSecretRepository(newTestClient(t))
	ctx := context.Background()

	sec := newSecret("hello")
	if err := repo.Create(ctx, sec, time.Hour); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.Get(ctx, sec.SecretID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SecretText != "hello" {
		t.Errorf("SecretText = %q, want %q", got.SecretText, "hello")
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, domain.ErrSecretNotFound) {
		t.Errorf("expected ErrSecretNotFound, got %v", err)
	}
}

func TestSecretRepository_TakeOnce(t *testing.T) {
	repo := NewRedisSecretRepository(newTestClient(t))
	ctx := context.Background()

	sec := newSecret("burn me")
	if err := repo.Create(ctx, sec, time.Hour); err != nil {
		t.Fatalf("Create: %v", err)
	}

	won, err := repo.Take(ctx, sec)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if !won {
		t.Fatal("expected first take to win")
	}

	// The record is gone; a second take with the same stale copy loses.
	won, err = repo.Take(ctx, sec)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if won {
		t.Error("expected second take to lose")
	}
	if _, err := repo.Get(ctx, sec.SecretID); !errors.Is(err, domain.ErrSecretNotFound) {
		t.Errorf("expected record to be deleted, got %v", err)
	}
}

func TestSecretRepository_RequestIndex(t *testing.T) {
	repo := NewRedisSecretRepository(newTestClient(t))
	ctx := context.Background()

	sec := newSecret("")
	sec.RequestID = "req-1"
	if err := repo.Create(ctx, sec, time.Hour); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByRequestID(ctx, "req-1")
	if err != nil {
		t.Fatalf("GetByRequestID: %v", err)
	}
	if got.SecretID != sec.SecretID {
		t.Errorf("SecretID = %q, want %q", got.SecretID, sec.SecretID)
	}

	if _, err := repo.GetByRequestID(ctx, "missing"); !errors.Is(err, domain.ErrRequestNotFound) {
		t.Errorf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestSecretRepository_ClaimFulfilment(t *testing.T) {
	repo := NewRedisSecretRepository(newTestClient(t))
	ctx := context.Background()

	sec := newSecret("")
	sec.RequestID = "req-1"
	if err := repo.Create(ctx, sec, time.Hour); err != nil {
		t.Fatalf("Create: %v", err)
	}

	claimed, err := repo.ClaimFulfilment(ctx, "req-1", "ful-1")
	if err != nil {
		t.Fatalf("ClaimFulfilment: %v", err)
	}
	if claimed.FulfilmentID != "ful-1" {
		t.Errorf("FulfilmentID = %q, want %q", claimed.FulfilmentID, "ful-1")
	}

	// Second claim fails: the request is single-use.
	if _, err := repo.ClaimFulfilment(ctx, "req-1", "ful-2"); !errors.Is(err, domain.ErrRequestNotFound) {
		t.Errorf("expected ErrRequestNotFound on second claim, got %v", err)
	}

	got, err := repo.GetByFulfilmentID(ctx, "ful-1")
	if err != nil {
		t.Fatalf("GetByFulfilmentID: %v", err)
	}
	if got.SecretID != sec.SecretID {
		t.Errorf("SecretID = %q, want %q", got.SecretID, sec.SecretID)
	}
}

func TestSecretRepository_SetText(t *testing.T) {
	repo := NewRedisSecretRepository(newTestClient(t))
	ctx := context.Background()

	sec := newSecret("")
	sec.RequestID = "req-1"
	if err := repo.Create(ctx, sec, time.Hour); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.ClaimFulfilment(ctx, "req-1", "ful-1"); err != nil {
		t.Fatalf("ClaimFulfilment: %v", err)
	}

	t.Run("wrong request id", func(t *testing.T) {
		_, err := repo.SetText(ctx, "ful-1", "other-request", "text")
		if !errors.Is(err, domain.ErrRequestNotFound) {
			t.Errorf("expected ErrRequestNotFound, got %v", err)
		}
	})

	t.Run("matching ids", func(t *testing.T) {
		updated, err := repo.SetText(ctx, "ful-1", "req-1", "the goods")
		if err != nil {
			t.Fatalf("SetText: %v", err)
		}
		if updated.SecretText != "the goods" {
			t.Errorf("SecretText = %q, want %q", updated.SecretText, "the goods")
		}

		got, err := repo.Get(ctx, sec.SecretID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.SecretText != "the goods" {
			t.Errorf("persisted SecretText = %q, want %q", got.SecretText, "the goods")
		}
	})
}

func TestSecretRepository_DeleteRemovesIndexes(t *testing.T) {
	repo := NewRedisSecretRepository(newTestClient(t))
	ctx := context.Background()

	sec := newSecret("")
	sec.RequestID = "req-1"
	if err := repo.Create(ctx, sec, time.Hour); err != nil {
		t.Fatalf("Create: %v", err)
	}
	claimed, err := repo.ClaimFulfilment(ctx, "req-1", "ful-1")
	if err != nil {
		t.Fatalf("ClaimFulfilment: %v", err)
	}

	if err := repo.Delete(ctx, claimed); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, sec.SecretID); !errors.Is(err, domain.ErrSecretNotFound) {
		t.Errorf("expected secret to be gone, got %v", err)
	}
	if _, err := repo.GetByRequestID(ctx, "req-1"); !errors.Is(err, domain.ErrRequestNotFound) {
		t.Errorf("expected request index to be gone, got %v", err)
	}
	if _, err := repo.GetByFulfilmentID(ctx, "ful-1"); !errors.Is(err, domain.ErrRequestNotFound) {
		t.Errorf("expected fulfilment index to be gone, got %v", err)
	}
}
