package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/mosaicnetworks/netharness/src/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	return NewClient(server.URL, time.Second, common.NewTestEntry(t, "rest"))
}

func TestStatusAcceptsObjectAndBareString(t *testing.T) {
	handler := httphelpers.SequentialHandler(
		httphelpers.HandlerWithResponse(200, nil, []byte(`{"state":"Bootstrapping"}`)),
		httphelpers.HandlerWithResponse(200, nil, []byte(`"Running"`)),
		httphelpers.HandlerWithResponse(200, nil, []byte("Running\n")),
	)

	httphelpers.WithServer(handler, func(server *httptest.Server) {
		c := newTestClient(t, server)

		s, err := c.Status()
		require.NoError(t, err)
		assert.Equal(t, Bootstrapping, s)

		s, err = c.Status()
		require.NoError(t, err)
		assert.Equal(t, Running, s)

		s, err = c.Status()
		require.NoError(t, err)
		assert.Equal(t, Running, s)
	})
}

func TestStatusErrorCode(t *testing.T) {
	httphelpers.WithServer(httphelpers.HandlerWithStatus(503), func(server *httptest.Server) {
		_, err := newTestClient(t, server).Status()

		var sErr *StatusError
		require.True(t, errors.As(err, &sErr), "err: %v", err)
		assert.Equal(t, 503, sErr.Code)
	})
}

func TestFragmentLogs(t *testing.T) {
	body := `[
		{"fragment_id":"a","received_from":"Rest","received_at":"2020-01-01T00:00:00Z","last_updated_at":"2020-01-01T00:00:01Z","status":"Pending"},
		{"fragment_id":"b","received_from":"Network","received_at":"2020-01-01T00:00:00Z","last_updated_at":"2020-01-01T00:00:01Z","status":{"Rejected":{"reason":"bad counter"}}},
		{"fragment_id":"c","received_from":"Rest","received_at":"2020-01-01T00:00:00Z","last_updated_at":"2020-01-01T00:00:01Z","status":{"InABlock":{"date":"3.14","block":"ff00"}}}
	]`

	httphelpers.WithServer(httphelpers.HandlerWithResponse(200, nil, []byte(body)), func(server *httptest.Server) {
		logs, err := newTestClient(t, server).FragmentLogs()
		require.NoError(t, err)
		require.Len(t, logs, 3)

		assert.Equal(t, Pending, logs["a"].Status.Kind)
		assert.Equal(t, FragmentStatus{Kind: Rejected, Reason: "bad counter"}, logs["b"].Status)
		assert.Equal(t, FragmentStatus{Kind: InABlock, Epoch: 3, Slot: 14, Block: "ff00"}, logs["c"].Status)
	})
}

func TestFragmentStatusJSONShapes(t *testing.T) {
	statuses := []FragmentStatus{
		{Kind: Pending},
		{Kind: Rejected, Reason: "no funds"},
		{Kind: InABlock, Epoch: 1, Slot: 2, Block: "abc"},
	}
	wants := []string{
		`"Pending"`,
		`{"Rejected":{"reason":"no funds"}}`,
		`{"InABlock":{"date":"1.2","block":"abc"}}`,
	}

	for i, s := range statuses {
		data, err := json.Marshal(s)
		require.NoError(t, err)
		assert.JSONEq(t, wants[i], string(data))

		var back FragmentStatus
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, s, back)
	}

	var s FragmentStatus
	assert.Error(t, json.Unmarshal([]byte(`"Lost"`), &s))
	assert.Error(t, json.Unmarshal([]byte(`{"InABlock":{"date":"12","block":"x"}}`), &s))
	_, err := json.Marshal(FragmentStatus{Kind: NotFound})
	assert.Error(t, err)
}

func TestPostFragment(t *testing.T) {
	handler, requests := httphelpers.RecordingHandler(
		httphelpers.HandlerWithResponse(200, nil, []byte("frag-1")),
	)

	httphelpers.WithServer(handler, func(server *httptest.Server) {
		id, err := newTestClient(t, server).PostFragment(json.RawMessage(`{"id":"frag-1"}`))
		require.NoError(t, err)
		assert.Equal(t, "frag-1", id)

		r := <-requests
		assert.Equal(t, http.MethodPost, r.Request.Method)
		assert.Equal(t, "/fragment", r.Request.URL.Path)
		assert.JSONEq(t, `{"id":"frag-1"}`, string(r.Body))
	})
}

func TestPostBatch(t *testing.T) {
	handler, requests := httphelpers.RecordingHandler(
		httphelpers.HandlerWithResponse(200, nil,
			[]byte(`{"accepted":["a"],"rejected":[{"id":"b","reason":"bad"}]}`)),
	)

	httphelpers.WithServer(handler, func(server *httptest.Server) {
		summary, err := newTestClient(t, server).PostBatch(true, []json.RawMessage{
			json.RawMessage(`{"id":"a"}`),
			json.RawMessage(`{"id":"b"}`),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, summary.Accepted)
		assert.Equal(t, []RejectedFragment{{ID: "b", Reason: "bad"}}, summary.Rejected)

		r := <-requests
		var req BatchRequest
		require.NoError(t, json.Unmarshal(r.Body, &req))
		assert.True(t, req.FailFast)
		assert.Len(t, req.Fragments, 2)
	})
}

func TestStats(t *testing.T) {
	body := `{"state":"Running","stats":{"lastBlockHeight":"42","lastBlockHash":"beef"}}`

	httphelpers.WithServer(httphelpers.HandlerWithResponse(200, nil, []byte(body)), func(server *httptest.Server) {
		stats, err := newTestClient(t, server).Stats()
		require.NoError(t, err)
		assert.True(t, stats.IsRunning())

		h, err := stats.Stats.Height()
		require.NoError(t, err)
		assert.Equal(t, uint64(42), h)
		assert.Equal(t, "beef", stats.Stats.LastBlockHash)
	})
}

func TestShutdown(t *testing.T) {
	handler := httphelpers.SequentialHandler(
		httphelpers.HandlerWithStatus(200),
		httphelpers.HandlerWithResponse(200, nil, []byte("cannot stop while bootstrapping")),
		httphelpers.HandlerWithStatus(500),
	)

	httphelpers.WithServer(handler, func(server *httptest.Server) {
		c := newTestClient(t, server)

		msg, err := c.Shutdown()
		require.NoError(t, err)
		assert.Empty(t, msg)

		msg, err = c.Shutdown()
		require.NoError(t, err)
		assert.Equal(t, "cannot stop while bootstrapping", msg)

		msg, err = c.Shutdown()
		require.NoError(t, err)
		assert.Equal(t, "shutdown returned status 500", msg)
	})
}
