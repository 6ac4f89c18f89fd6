package changefeed

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestFilterMatches(t *testing.T) {
	e := Event{Table: "orders", Op: OpUpdate, UserID: "u1"}
	assert.True(t, Filter{}.Matches(e))
	assert.True(t, Filter{Table: "orders"}.Matches(e))
	assert.True(t, Filter{Table: "orders", UserID: "u1"}.Matches(e))
	assert.False(t, Filter{Table: "orders", UserID: "u2"}.Matches(e))
	assert.False(t, Filter{Table: "product_reviews"}.Matches(e))
}

func TestPublishReachesMatchingSubscribers(t *testing.T) {
	hub := NewHub()
	mine := make(chan Event, 1)
	all := make(chan Event, 1)
	other := make(chan Event, 1)
	hub.Subscribe(Filter{Table: "orders", UserID: "u1"}, func(e Event) { mine <- e })
	hub.Subscribe(Filter{Table: "orders"}, func(e Event) { all <- e })
	hub.Subscribe(Filter{Table: "orders", UserID: "u2"}, func(e Event) { other <- e })

	hub.Publish(Event{Table: "orders", Op: OpInsert, RecordID: "o1", UserID: "u1"})

	assert.Equal(t, "o1", receive(t, mine).RecordID)
	assert.Equal(t, OpInsert, receive(t, all).Op)
	select {
	case <-other:
		t.Fatal("unexpected delivery to other user")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()
	ch := make(chan Event, 1)
	unsubscribe := hub.Subscribe(Filter{}, func(e Event) { ch <- e })
	require.Equal(t, 1, hub.Len())

	unsubscribe()
	unsubscribe()
	assert.Zero(t, hub.Len())

	hub.Publish(Event{Table: "orders"})
	select {
	case <-ch:
		t.Fatal("delivered after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPanickingHandlerDoesNotAffectOthers(t *testing.T) {
	hub := NewHub()
	ok := make(chan Event, 1)
	hub.Subscribe(Filter{}, func(Event) { panic("boom") })
	hub.Subscribe(Filter{}, func(e Event) { ok <- e })

	hub.Publish(Event{Table: "orders", Op: OpUpdate})
	assert.Equal(t, OpUpdate, receive(t, ok).Op)
}

func TestServeWSStreamsEvents(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, Filter{Table: "orders", UserID: "u1"})
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	hub.Publish(Event{Table: "orders", Op: OpUpdate, RecordID: "o9", UserID: "u1"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got map[string]string
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, map[string]string{"table": "orders", "op": "update", "id": "o9"}, got)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
