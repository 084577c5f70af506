package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kylas-whatsapp-bridge/internal/database"
	"kylas-whatsapp-bridge/internal/kylas"
	"kylas-whatsapp-bridge/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newActivityLogger(t *testing.T, baseURL string) (*ActivityLogger, *models.LinkedAccount) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.LinkedAccount{}))
	store := database.NewAccountStore(db)

	acc := &models.LinkedAccount{KylasUserID: "42", APIKey: "static-key", ProjectID: "p1"}
	require.NoError(t, store.Upsert(acc))

	crm := &kylas.Client{BaseURL: baseURL, HTTPClient: &http.Client{Timeout: 5 * time.Second}}
	tokens := kylas.NewTokenManager(crm, store, discardLogger())

	l := NewActivityLogger(crm, tokens, discardLogger())
	l.now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }
	return l, acc
}

func captureMessages(t *testing.T, status int) (*httptest.Server, *[]kylas.MessagePayload) {
	t.Helper()
	var captured []kylas.MessagePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		var payload kylas.MessagePayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		captured = append(captured, payload)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestLogMessageOutgoing(t *testing.T) {
	srv, captured := captureMessages(t, http.StatusOK)

	l, acc := newActivityLogger(t, srv.URL)
	l.LogMessage(context.Background(), acc, MessageEvent{
		Direction:       DirectionOutgoing,
		Content:         "Hi",
		SenderNumber:    "918800112233",
		RecipientNumber: "+919912345678",
		Related:         Party{Type: "lead", ID: 7, Name: "Jane Doe"},
		Recipient:       Party{Type: "lead", ID: 7, Name: "Jane Doe"},
	})

	require.Len(t, *captured, 1)
	got := (*captured)[0]
	require.Equal(t, "Hi", got.Content)
	require.Equal(t, "whatsapp", got.MessageType)
	require.Equal(t, "42", got.OwnerID)
	require.Equal(t, int64(918800112233), got.SenderNumber)
	require.Equal(t, int64(919912345678), got.RecipientNumber)
	require.Equal(t, "outgoing", got.Direction)
	require.Equal(t, "sent", got.Status)
	require.Equal(t, "2026-03-14T09:30:00Z", got.SentAt)
	require.Equal(t, []kylas.Attachment{}, got.Attachments)
	require.Len(t, got.RelatedTo, 1)
	require.Equal(t, "lead", got.RelatedTo[0].Entity)
	require.Equal(t, int64(7), got.RelatedTo[0].ID)
}

func TestLogMessageIncomingStatus(t *testing.T) {
	srv, captured := captureMessages(t, http.StatusOK)

	l, acc := newActivityLogger(t, srv.URL)
	l.LogMessage(context.Background(), acc, MessageEvent{
		Direction: DirectionIncoming,
		Content:   "hello?",
		Related:   Party{Type: "lead", ID: 7},
		Recipient: Party{Type: "lead", ID: 7},
	})

	require.Len(t, *captured, 1)
	require.Equal(t, "incoming", (*captured)[0].Direction)
	require.Equal(t, "delivered", (*captured)[0].Status)
}

func TestLogMessageDealWithoutContactSkipped(t *testing.T) {
	srv, captured := captureMessages(t, http.StatusOK)

	l, acc := newActivityLogger(t, srv.URL)
	l.LogMessage(context.Background(), acc, MessageEvent{
		Direction: DirectionOutgoing,
		Content:   "Hi",
		Related:   Party{Type: "deal", ID: 21},
		Recipient: Party{Type: "contact", ID: 0},
	})

	require.Empty(t, *captured)
}

func TestLogMessageSwallowsCRMFailure(t *testing.T) {
	srv, captured := captureMessages(t, http.StatusInternalServerError)

	l, acc := newActivityLogger(t, srv.URL)
	l.LogMessage(context.Background(), acc, MessageEvent{
		Direction: DirectionOutgoing,
		Content:   "Hi",
		Related:   Party{Type: "lead", ID: 7},
		Recipient: Party{Type: "lead", ID: 7},
	})

	// The failure is logged, not surfaced; the attempt was still made.
	require.Len(t, *captured, 1)
}

func TestLogResolutionFansOut(t *testing.T) {
	srv, captured := captureMessages(t, http.StatusOK)

	l, acc := newActivityLogger(t, srv.URL)
	res := kylas.Resolution{
		Leads: []kylas.Lead{{ID: 7, FirstName: "Jane", LastName: "Doe"}},
		ContactDeals: []kylas.ContactDeal{
			{Contact: kylas.Contact{ID: 11, FirstName: "Ann", LastName: "Lee"}, Deal: kylas.Deal{ID: 21}},
			{Contact: kylas.Contact{ID: 11, FirstName: "Ann", LastName: "Lee"}, Deal: kylas.Deal{ID: 22}},
		},
	}
	l.LogResolution(context.Background(), acc, res, MessageEvent{
		Direction: DirectionOutgoing,
		Content:   "Hi",
	})

	require.Len(t, *captured, 3)
	require.Equal(t, "lead", (*captured)[0].RelatedTo[0].Entity)
	require.Equal(t, "Jane Doe", (*captured)[0].Recipients[0].Name)
	require.Equal(t, "deal", (*captured)[1].RelatedTo[0].Entity)
	require.Equal(t, int64(21), (*captured)[1].RelatedTo[0].ID)
	require.Equal(t, "contact", (*captured)[1].Recipients[0].Entity)
	require.Equal(t, int64(11), (*captured)[1].Recipients[0].ID)
	require.Equal(t, int64(22), (*captured)[2].RelatedTo[0].ID)
}
