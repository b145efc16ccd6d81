package toolbox_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/agentcore/pkg/adapters/memory"
	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/aretw0/agentcore/pkg/registry"
	"github.com/aretw0/agentcore/pkg/toolbox"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowser_ActionsRequireAttach(t *testing.T) {
	b := toolbox.NewBrowser()
	ctx := context.Background()

	_, err := b.Click(ctx, map[string]any{"selector": "#go"})
	assert.ErrorIs(t, err, toolbox.ErrNotAttached)

	_, err = b.TypeText(ctx, map[string]any{"selector": "#q", "text": "x"})
	assert.ErrorIs(t, err, toolbox.ErrNotAttached)

	_, err = b.ExtractText(ctx, nil)
	assert.ErrorIs(t, err, toolbox.ErrNotAttached)

	_, err = b.Navigate(ctx, map[string]any{"url": "https://example.com"})
	assert.ErrorIs(t, err, toolbox.ErrNotAttached)
}

func TestBrowser_NavigateRejectsBadURL(t *testing.T) {
	b := toolbox.NewBrowser()

	_, err := b.Navigate(context.Background(), map[string]any{"url": "https://exa mple.com"})

	assert.ErrorIs(t, err, domain.ErrInvalidParams)
}

func TestBrowser_AttachWaitsForEndpointLock(t *testing.T) {
	locker := memory.NewLocker()
	unlock, err := locker.Lock(context.Background(), "browser:localhost:9222", time.Minute)
	require.NoError(t, err)
	defer unlock(context.Background())

	b := toolbox.NewBrowser(toolbox.WithLocker(locker))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = b.Attach(ctx, map[string]any{"cdp_url": "http://LOCALHOST:9222/"})

	assert.ErrorContains(t, err, "browser endpoint is in use")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBrowser_ResolveFailureReleasesLock(t *testing.T) {
	locker := memory.NewLocker()
	b := toolbox.NewBrowser(toolbox.WithLocker(locker))

	_, err := b.Attach(context.Background(), map[string]any{"cdp_url": "http://127.0.0.1:1"})
	require.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlock, err := locker.Lock(ctx, "browser:127.0.0.1:1", time.Minute)
	require.NoError(t, err, "a failed attach must release the endpoint lock")
	require.NoError(t, unlock(ctx))
}

func TestBrowser_RegisterAndClose(t *testing.T) {
	reg := registry.NewRegistry()
	b := toolbox.NewBrowser()
	require.NoError(t, b.Register(reg))

	specs := reg.Specs()
	require.Len(t, specs, 8)
	assert.Equal(t, "browser_attach", specs[0].Name)
	assert.Equal(t, domain.RiskSensitive, specs[0].Risk)

	obs := invoke(t, reg, "browser_close", map[string]any{})
	assert.False(t, obs.IsError)
	assert.Equal(t, "Browser closed.", obs.Output)
	assert.NoError(t, reg.Close())
}

func TestBrowser_ClickRefusesLoginSubmit(t *testing.T) {
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("no local browser")
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html><body>
<form id="login"><input name="user"><input type="password" name="pass"><button id="login-btn">Sign in</button></form>
<form id="search"><input name="q"><button id="search-btn">Go</button></form>
</body></html>`)
	}))
	defer ts.Close()

	b := toolbox.NewBrowser()
	defer b.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, err := b.Attach(ctx, map[string]any{})
	require.NoError(t, err)
	_, err = b.Navigate(ctx, map[string]any{"url": ts.URL})
	require.NoError(t, err)

	_, err = b.Click(ctx, map[string]any{"selector": "#login-btn"})
	assert.ErrorIs(t, err, toolbox.ErrPasswordField)

	_, err = b.Click(ctx, map[string]any{"selector": "#search-btn"})
	assert.NoError(t, err)
}
