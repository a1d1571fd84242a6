package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/domain"
	"github.com/stretchr/testify/require"
)

func TestHTTPSealer_Seal(t *testing.T) {
	var got SealRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/seal", r.URL.Path)
		require.Equal(t, "req-1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(SealResult{SealedDocumentID: "sealed-1"})
	}))
	defer srv.Close()

	signedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	req := NewSealRequest(&domain.SignatureRequest{
		ID:         "req-1",
		DocumentID: "doc-1",
		Signers: []domain.Signer{{
			ID:             "s1",
			Email:          "a@example.com",
			Placement:      domain.BoxTemplate{Page: 2, X: 1, Y: 2, Width: 3, Height: 4},
			SignatureImage: []byte{0x89, 'P', 'N', 'G'},
			SignedAt:       &signedAt,
		}},
	})

	res, err := NewHTTPSealer(srv.URL+"/", time.Second).Seal(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "sealed-1", res.SealedDocumentID)
	require.Len(t, got.Signers, 1)
	require.Equal(t, 2, got.Signers[0].Page)
	require.Equal(t, []byte{0x89, 'P', 'N', 'G'}, got.Signers[0].Image)
	require.True(t, signedAt.Equal(got.Signers[0].SignedAt))
}

func TestHTTPSealer_FailuresWrapErrUpstream(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", http.StatusBadGateway)
		}},
		{"missing id", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}},
		{"garbage", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewHTTPSealer(srv.URL, time.Second).Seal(context.Background(), SealRequest{SignatureRequestID: "r"})
			require.ErrorIs(t, err, ErrUpstream)
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		_, err := NewHTTPSealer("http://127.0.0.1:1", 200*time.Millisecond).Seal(context.Background(), SealRequest{})
		require.ErrorIs(t, err, ErrUpstream)
	})
}

func TestNoopSealer(t *testing.T) {
	res, err := NoopSealer{}.Seal(context.Background(), SealRequest{SignatureRequestID: "abc"})
	require.NoError(t, err)
	require.Equal(t, "unsealed-abc", res.SealedDocumentID)
}

func TestWebhookNotifier_SignsBody(t *testing.T) {
	const secret = "whsec"
	received := make(chan *http.Request, 1)
	bodies := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- r
		bodies <- body
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	ev := domain.Event{
		ID:                 "evt-1",
		Type:               domain.EventRequestCompleted,
		SignatureRequestID: "req-1",
		OccurredAt:         time.Now().UTC(),
	}
	require.NoError(t, NewWebhookNotifier(srv.URL, secret, time.Second).Notify(context.Background(), ev))

	r := <-received
	body := <-bodies
	require.Equal(t, "evt-1", r.Header.Get(EventIDHeader))
	require.Equal(t, string(domain.EventRequestCompleted), r.Header.Get(EventTypeHeader))
	require.True(t, VerifySignature(secret, body, r.Header.Get(SignatureHeader)))
	require.False(t, VerifySignature("other", body, r.Header.Get(SignatureHeader)))

	var decoded domain.Event
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, "req-1", decoded.SignatureRequestID)
}

func TestVerifySignature_RejectsMalformed(t *testing.T) {
	body := []byte(`{}`)
	require.False(t, VerifySignature("", body, Sign("", body)))
	require.False(t, VerifySignature("s", body, "zz-not-hex"))
	require.True(t, VerifySignature("s", body, Sign("s", body)))
}

func TestLogNotifier(t *testing.T) {
	require.NoError(t, LogNotifier{}.Notify(context.Background(), domain.Event{ID: "e"}))
}
