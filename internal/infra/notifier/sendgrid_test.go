//go:build unit

package notifier_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tourism-booking/internal/infra/notifier"
	"tourism-booking/internal/pkg/config"
	"tourism-booking/internal/pkg/errs"
	"tourism-booking/internal/usecase/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendGridNotifier_Send(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	cfg := config.NewTestConfig().Notifier
	cfg.SendGridAPIKey = "sg-key"
	n := notifier.NewSendGridNotifierWithHost(cfg, srv.URL)

	err := n.Send(context.Background(), shared.EmailMessage{
		ToEmail:   "guest@example.com",
		ToName:    "Guest",
		Subject:   "Booking received",
		PlainText: "hello",
		HTML:      "<p>hello</p>",
	})

	require.NoError(t, err)
	assert.Equal(t, "Booking received", got["subject"])
	from, ok := got["from"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bookings@example.com", from["email"])
}

func TestSendGridNotifier_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"The provided authorization grant is invalid"}]}`))
	}))
	defer srv.Close()

	cfg := config.NewTestConfig().Notifier
	cfg.SendGridAPIKey = "bad"
	n := notifier.NewSendGridNotifierWithHost(cfg, srv.URL)

	err := n.Send(context.Background(), shared.EmailMessage{ToEmail: "guest@example.com", Subject: "x", PlainText: "x"})

	require.Error(t, err)
	assert.True(t, errs.Is(err, notifier.ErrDeliveryRejected))
}
