package broadcast

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PxPatel/matching-service/internal/types"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(HubConfig{})
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func subscribe(t *testing.T, conn *websocket.Conn, op string, channels ...string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(SubscribeRequest{Op: op, Channels: channels}))
}

func TestHubDeliversToSubscribers(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)

	subscribe(t, conn, "subscribe", TradeChannel("AAPL"))
	require.Eventually(t, func() bool {
		return hub.Subscribers(TradeChannel("AAPL")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	trade := &types.Trade{TradeID: 9, Symbol: "AAPL", BuyOrderID: 1, SellOrderID: 2, Price: 150.0, Size: 3}
	require.NoError(t, hub.Publish(context.Background(), trade))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Channel string      `json:"channel"`
		Data    types.Trade `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "trades/AAPL", msg.Channel)
	assert.Equal(t, uint64(9), msg.Data.TradeID)
	assert.Equal(t, 3, msg.Data.Size)
}

func TestHubSkipsOtherChannels(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)

	subscribe(t, conn, "subscribe", TradeChannel("MSFT"))
	require.Eventually(t, func() bool {
		return hub.Subscribers(TradeChannel("MSFT")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), &types.Trade{TradeID: 1, Symbol: "AAPL", Size: 1}))
	require.NoError(t, hub.Publish(context.Background(), &types.Trade{TradeID: 2, Symbol: "MSFT", Size: 1}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"trade_id":2`)
}

func TestHubUnsubscribe(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	channel := TradeChannel("X")

	subscribe(t, conn, "subscribe", channel)
	require.Eventually(t, func() bool { return hub.Subscribers(channel) == 1 }, 2*time.Second, 10*time.Millisecond)

	subscribe(t, conn, "unsubscribe", channel)
	require.Eventually(t, func() bool { return hub.Subscribers(channel) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubPublishWithoutClients(t *testing.T) {
	hub := NewHub(HubConfig{SendBuffer: 1})
	assert.NoError(t, hub.Publish(context.Background(), &types.Trade{Symbol: "X"}))
	assert.Equal(t, 0, hub.Subscribers(TradeChannel("X")))
}
