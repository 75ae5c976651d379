package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanchey92/trade-orders/internal/domain/model"
	"github.com/sanchey92/trade-orders/internal/service/order"
	"github.com/sanchey92/trade-orders/internal/storage/sqlite"
	"github.com/sanchey92/trade-orders/internal/ws"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqlite.NewSQLiteStorage(ctx, log, &sqlite.StorageConfig{Path: ":memory:", BusyTimeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, store.Init(ctx))
	t.Cleanup(func() { _ = store.Close() })

	h := New(Deps{
		Orders:        order.NewOrderService(log, store),
		Store:         store,
		StatusChannel: ws.Handler(ws.NewHub(log), ws.Config{}, log),
		CORSOrigins:   []string{"http://localhost:3000"},
	}, log)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func postOrder(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/orders", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func listOrders(t *testing.T, srv *httptest.Server) []model.Order {
	t.Helper()
	resp, err := http.Get(srv.URL + "/orders")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var orders []model.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&orders))
	return orders
}

func TestAPI_Root(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"message":"Welcome to the Trade Orders API"}`, string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestAPI_CreateAndList(t *testing.T) {
	srv := newTestServer(t)
	assert.Empty(t, listOrders(t, srv))

	resp := postOrder(t, srv, `{"symbol":"aapl","price":150.0,"quantity":10,"order_type":"BUY"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created model.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "AAPL", created.Symbol)
	assert.Equal(t, model.OrderBuy, created.OrderType)
	assert.Equal(t, 150.0, created.Price)
	assert.Equal(t, int64(10), created.Quantity)
	assert.Greater(t, created.ID, int64(0))

	dup := postOrder(t, srv, `{"symbol":"aapl","price":150.0,"quantity":10,"order_type":"BUY"}`)
	require.Equal(t, http.StatusOK, dup.StatusCode)

	orders := listOrders(t, srv)
	require.Len(t, orders, 2)
	assert.Equal(t, created, orders[0])
	assert.NotEqual(t, orders[0].ID, orders[1].ID)
}

func TestAPI_ValidationFailuresWriteNothing(t *testing.T) {
	srv := newTestServer(t)

	bodies := []string{
		`{"price":150.0,"quantity":10,"order_type":"buy"}`,
		`{"symbol":"AAPL","price":"not_a_number","quantity":10,"order_type":"buy"}`,
		`{"symbol":"GOOG","price":0.0,"quantity":0,"order_type":"sell"}`,
		`{"symbol":"GOOG","price":1,"quantity":1,"order_type":"short"}`,
		`not json`,
	}
	for _, body := range bodies {
		resp := postOrder(t, srv, body)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, body)
	}

	assert.Empty(t, listOrders(t, srv))
}

func TestAPI_UnsupportedMethod(t *testing.T) {
	srv := newTestServer(t)

	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		req, err := http.NewRequest(method, srv.URL+"/orders", strings.NewReader(`{}`))
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, method)
		assert.JSONEq(t, `{"status":405,"error":"method not allowed"}`, string(body))
	}
}

func TestAPI_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_CORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/orders", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestAPI_Health(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_StatusChannel(t *testing.T) {
	srv := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("Test order update")))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "Order status updated: Test order update", string(msg))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("")))
	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "Order status updated: ", string(msg))
}

type panickingOrders struct{}

func (panickingOrders) Create(context.Context, model.RawOrder) (*model.Order, error) {
	panic("create exploded")
}

func (panickingOrders) List(context.Context) ([]model.Order, error) {
	panic("list exploded")
}

func TestAPI_PanicIsLoggedAsServerError(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	h := New(Deps{Orders: panickingOrders{}}, log)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var access map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == "request" {
			access = entry
		}
	}
	require.NotNil(t, access, "no access log line in %s", buf.String())
	assert.Equal(t, float64(http.StatusInternalServerError), access["status"])
	assert.Equal(t, "/orders", access["path"])
}
