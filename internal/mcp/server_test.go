package mcp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/honeycarbs/job-discovery/pkg/logging"
)

func TestHealthz(t *testing.T) {
	s := NewServer(logging.Nop(), "127.0.0.1", "0", "test")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + HealthPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestStreamEndpointAcceptsClients(t *testing.T) {
	s := NewServer(logging.Nop(), "127.0.0.1", "0", "test")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(context.Background(), &sdkmcp.StreamableClientTransport{
		Endpoint: ts.URL + StreamPath,
	}, nil)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	assert.NoError(t, session.Ping(context.Background(), nil))
}

func TestAddr(t *testing.T) {
	s := NewServer(logging.Nop(), "0.0.0.0", "8080", "test")
	assert.Equal(t, "0.0.0.0:8080", s.Addr())
	assert.NotNil(t, s.MCP())
}
