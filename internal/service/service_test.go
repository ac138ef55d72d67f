package service

import (
	"context"
	"sync"
	"testing"

	"secretburner/internal/mail"
	"secretburner/internal/store"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeMailer records outbound messages instead of sending them.
type fakeMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *fakeMailer) sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}

type testEnv struct {
	secrets       *SecretService
	verifications *VerificationService
	secretRepo    store.SecretRepository
	verifyRepo    store.VerificationRepository
	mailer        *fakeMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	renderer, err := mail.NewRenderer()
	require.NoError(t, err)

	mailer := &fakeMailer{}
	logger := zap.NewNop()

	secretRepo := store.NewRedisSecretRepository(rdb)
	verifyRepo := store.NewRedisVerificationRepository(rdb)

	verifications, err := NewVerificationService(
		verifyRepo, renderer, mailer, "noreply@example.com", true, 900, logger)
	require.NoError(t, err)

	notifier := NewNotifier(
		verifications, renderer, mailer, "noreply@example.com", true, logger)

	secrets := NewSecretService(secretRepo, notifier, LinkBuilder{
		UIHostname:       "https://ui.example.com",
		ViewSecretURL:    "/view/",
		FulfilRequestURI: "/fulfil/",
	}, logger)

	return &testEnv{
		secrets:       secrets,
		verifications: verifications,
		secretRepo:    secretRepo,
		verifyRepo:    verifyRepo,
		mailer:        mailer,
	}
}

// verifiedEnvelope runs the full verification handshake and returns an
// envelope carrying a fresh verified token for the given email pair.
func (e *testEnv) verifiedEnvelope(t *testing.T, sender, recipient string) Envelope {
	t.Helper()
	ctx := context.Background()
	verifyID, err := e.verifications.RequestVerification(ctx, sender, recipient)
	require.NoError(t, err)
	v, err := e.verifyRepo.Get(ctx, verifyID)
	require.NoError(t, err)
	token, err := e.verifications.ConfirmCode(ctx, verifyID, v.Code)
	require.NoError(t, err)
	return Envelope{SenderEmail: sender, RecipientEmail: recipient, VerifiedToken: token}
}
