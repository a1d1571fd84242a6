//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/aussiebroadwan/quill/internal/signing/store"
	"github.com/aussiebroadwan/quill/pkg/idx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a throwaway PostgreSQL container and returns a
// migrated store connected to it.
func setupPostgres(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "quill",
			"POSTGRES_PASSWORD": "quill",
			"POSTGRES_DB":       "signing",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	url := fmt.Sprintf("postgres://quill:quill@%s:%s/signing?sslmode=disable", host, port.Port())
	s, err := Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestPostgresStore(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	req, _, err := domain.NewSignatureRequest(domain.CreateRequestInput{
		DocumentID: "doc-1",
		CompanyID:  "acme",
		Signers: []domain.SignerSlot{
			{CustomerID: "c1", Email: "a@example.com", Placement: domain.BoxTemplate{Page: 1, Width: 10, Height: 10}},
			{CustomerID: "c2", Email: "b@example.com", Placement: domain.BoxTemplate{Page: 2, Width: 10, Height: 10}},
		},
	}, now)
	require.NoError(t, err)
	require.NoError(t, s.SignatureRequests().Create(ctx, req))

	t.Run("version checked update", func(t *testing.T) {
		got, err := s.SignatureRequests().GetBySignerTokenHash(ctx, req.Signers[1].TokenHash)
		require.NoError(t, err)
		require.Len(t, got.Signers, 2)

		_, err = got.Consent(got.Signers[0].ID, domain.Audit{ClientIP: "10.0.0.1", At: now})
		require.NoError(t, err)
		require.NoError(t, s.SignatureRequests().Update(ctx, got, 1))
		require.ErrorIs(t, s.SignatureRequests().Update(ctx, got, 1), store.ErrVersionConflict)

		page, total, err := s.SignatureRequests().List(ctx, store.ListFilter{CompanyID: "acme", Limit: 10})
		require.NoError(t, err)
		require.Equal(t, 1, total)
		require.Equal(t, domain.SignerConsented, page[0].Signers[0].Status)
	})

	t.Run("outbox claims are exclusive", func(t *testing.T) {
		const jobs = 20
		for range jobs {
			_, err := s.Outbox().Enqueue(ctx, domain.OutboxJob{
				ID: idx.New().String(), Kind: domain.JobNotifyEvent, Payload: []byte(`{}`),
				AvailableAt: now, CreatedAt: now, UpdatedAt: now,
			})
			require.NoError(t, err)
		}

		var (
			mu   sync.Mutex
			seen = map[string]int{}
			wg   sync.WaitGroup
		)
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					job, ok, err := s.Outbox().Claim(ctx, now, time.Minute)
					if err != nil || !ok {
						return
					}
					mu.Lock()
					seen[job.ID]++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		require.Len(t, seen, jobs)
		for id, n := range seen {
			require.Equal(t, 1, n, id)
		}
	})

	t.Run("idempotency claim completes once and seals the body", func(t *testing.T) {
		repo := s.Idempotency()
		rec := domain.IdempotencyRecord{Actor: "acme/u1", Key: "k1", Endpoint: "create", RequestHash: "h", CreatedAt: now}
		require.NoError(t, repo.Claim(ctx, rec))
		require.ErrorIs(t, repo.Claim(ctx, rec), store.ErrAlreadyExists)

		require.NoError(t, repo.Complete(ctx, rec.Actor, rec.Key, now, 201, []byte(`{"token":"plain-token"}`)))
		require.ErrorIs(t, repo.Complete(ctx, rec.Actor, rec.Key, now, 201, nil), store.ErrNotFound)

		var raw []byte
		require.NoError(t, s.pool.QueryRow(ctx,
			`SELECT body FROM idempotency_records WHERE actor = $1 AND key = $2`, rec.Actor, rec.Key).Scan(&raw))
		require.NotContains(t, string(raw), "plain-token")

		got, err := repo.Get(ctx, rec.Actor, rec.Key)
		require.NoError(t, err)
		require.False(t, got.Pending())
		require.JSONEq(t, `{"token":"plain-token"}`, string(got.Body))

		require.NoError(t, repo.Release(ctx, rec.Actor, rec.Key, got.CreatedAt))
		_, err = repo.Get(ctx, rec.Actor, rec.Key)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}
