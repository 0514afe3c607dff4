package leaserenew

import (
	"context"
	"encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestConsoleIndex(t *testing.T) {
	s := NewSession((&fakeLauncher{browser: newFakeBrowser()}).launch)
	c := NewConsole("127.0.0.1:9221", "127.0.0.1:9222", s, nil)

	resp, err := c.app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Page.startScreencast")
}

func TestConsoleIndexRedirectsToTarget(t *testing.T) {
	s := NewSession((&fakeLauncher{browser: newFakeBrowser()}).launch)
	_, err := s.Acquire(context.Background())
	require.NoError(t, err)
	c := NewConsole("127.0.0.1:9221", "127.0.0.1:9222", s, nil)

	resp, err := c.app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/?id=fake-target", resp.Header.Get("Location"))
	assert.Equal(t, "http://127.0.0.1:9221/?id=fake-target", c.URL())
}

func TestConsoleStatus(t *testing.T) {
	s := NewSession((&fakeLauncher{browser: newFakeBrowser()}).launch)
	_, err := s.Acquire(context.Background())
	require.NoError(t, err)
	s.markAuthenticated()
	c := NewConsole(":9221", ":9222", s, nil)

	resp, err := c.app.Test(httptest.NewRequest(http.MethodGet, "/status", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	var status consoleStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, consoleStatus{Authenticated: true, Target: "fake-target"}, status)
}

func TestConsoleMetrics(t *testing.T) {
	s := NewSession((&fakeLauncher{browser: newFakeBrowser()}).launch)
	m := NewMetrics()
	m.observeCycle(nil)
	c := NewConsole(":9221", ":9222", s, m)

	resp, err := c.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `leaserenew_cycles_total{result="success"} 1`)
}

func TestConsoleWebsocketRequiresUpgrade(t *testing.T) {
	s := NewSession((&fakeLauncher{browser: newFakeBrowser()}).launch)
	c := NewConsole(":9221", ":9222", s, nil)

	resp, err := c.app.Test(httptest.NewRequest(http.MethodGet, "/ws/fake-target", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestConsoleURLWithoutSession(t *testing.T) {
	s := NewSession((&fakeLauncher{browser: newFakeBrowser()}).launch)
	c := NewConsole(":9221", ":9222", s, nil)
	assert.Equal(t, "http://127.0.0.1:9221/", c.URL())
}
