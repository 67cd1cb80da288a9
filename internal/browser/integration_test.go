// internal/browser/integration_test.go
package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/flowrunner/internal/browser"
	"github.com/xkilldash9x/flowrunner/internal/browser/locator"
	"github.com/xkilldash9x/flowrunner/internal/config"
	"github.com/xkilldash9x/flowrunner/internal/flow"
)

const loginPage = `<!doctype html>
<html><head><meta charset="utf-8"><title>Login</title></head><body>
<form method="post" action="/session">
  <input id="email" name="email" type="email">
  <input id="password" name="password" type="password">
  <button type="submit">Iniciar Sesión</button>
</form>
<p>¿No tienes cuenta? <a href="/register">Regístrate</a></p>
<input id="ghost" type="text" style="display:none">
</body></html>`

const registerPage = `<!doctype html>
<html><head><meta charset="utf-8"><title>Registro</title></head><body>
<form method="post" action="/users">
  <input id="name" name="name" type="text">
  <input id="email" name="email" type="email">
  <input id="password" name="password" type="password">
  <button type="submit">Registrarse</button>
</form>
</body></html>`

// fakeApp is the web application the flows are exercised against.
type fakeApp struct {
	mu    sync.Mutex
	posts map[string]map[string]string
}

func newFakeApp(t *testing.T) (*fakeApp, *httptest.Server) {
	t.Helper()
	app := &fakeApp{posts: make(map[string]map[string]string)}

	mux := http.NewServeMux()
	page := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, body)
		}
	}
	record := func(next string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			fields := make(map[string]string)
			for k := range r.PostForm {
				fields[k] = r.PostForm.Get(k)
			}
			app.mu.Lock()
			app.posts[r.URL.Path] = fields
			app.mu.Unlock()
			http.Redirect(w, r, next, http.StatusSeeOther)
		}
	}
	mux.HandleFunc("/login", page(loginPage))
	mux.HandleFunc("/register", page(registerPage))
	mux.HandleFunc("/session", record("/dashboard"))
	mux.HandleFunc("/users", record("/welcome"))
	mux.HandleFunc("/dashboard", page("<html><body><h1>Panel</h1></body></html>"))
	mux.HandleFunc("/welcome", page("<html><body><h1>Bienvenido</h1></body></html>"))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return app, srv
}

func (a *fakeApp) posted(path string) map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.posts[path]
}

// findChrome returns a Chrome/Chromium binary or skips the test.
func findChrome(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("browser integration tests skipped in -short mode")
	}
	if p := os.Getenv("FLOWRUNNER_BROWSER_EXEC_PATH"); p != "" {
		return p
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell", "chrome"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("no Chrome or Chromium binary found")
	return ""
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.SetTargetBaseURL(baseURL)
	cfg.BrowserCfg.Headless = true
	cfg.BrowserCfg.ExecPath = findChrome(t)
	cfg.WaitCfg = config.WaitConfig{
		ElementTimeout:    5 * time.Second,
		NavigationTimeout: 10 * time.Second,
		PollInterval:      50 * time.Millisecond,
	}
	cfg.FlowsCfg.Register.SettleTime = 200 * time.Millisecond
	require.NoError(t, cfg.Validate())
	return cfg
}

func launch(t *testing.T, cfg *config.Config) (*browser.Session, *zap.Logger) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)

	sess, err := browser.Launch(ctx, cfg.Browser(), cfg.Wait(), logger)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID())
	t.Cleanup(func() { _ = sess.Close(context.Background()) })
	return sess, logger
}

func TestIntegration_LoginFlow(t *testing.T) {
	app, srv := newFakeApp(t)
	cfg := testConfig(t, srv.URL)
	cfg.WaitCfg.TypingDelay = 2 * time.Millisecond
	sess, logger := launch(t, cfg)

	plan, err := flow.LoginPlan(cfg)
	require.NoError(t, err)

	res, err := flow.NewRunner(logger).Run(context.Background(), sess, plan)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(res.FinalURL, "/dashboard"), "final url %s", res.FinalURL)
	assert.Equal(t, map[string]string{
		"email":    "veritegas@gmail.com",
		"password": "Contrasena123!!",
	}, app.posted("/session"))
}

func TestIntegration_RegisterFlow(t *testing.T) {
	app, srv := newFakeApp(t)
	cfg := testConfig(t, srv.URL)
	cfg.FlowsCfg.Register.WaitForRedirect = true
	sess, logger := launch(t, cfg)

	plan, err := flow.RegisterPlan(cfg)
	require.NoError(t, err)

	res, err := flow.NewRunner(logger).Run(context.Background(), sess, plan)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(res.FinalURL, "/welcome"), "final url %s", res.FinalURL)
	assert.Equal(t, map[string]string{
		"name":     "Usuario de Prueba",
		"email":    "prueba@example.com",
		"password": "12345678",
	}, app.posted("/users"))

	// The runner leaves the session open; the caller decides when it ends.
	_, err = sess.CurrentURL(context.Background())
	assert.NoError(t, err)
}

func TestIntegration_MissingElementStopsFlow(t *testing.T) {
	app, srv := newFakeApp(t)
	cfg := testConfig(t, srv.URL)
	cfg.WaitCfg.ElementTimeout = 500 * time.Millisecond
	cfg.FlowsCfg.Login.PasswordLocator = "id=does-not-exist"
	sess, logger := launch(t, cfg)

	plan, err := flow.LoginPlan(cfg)
	require.NoError(t, err)

	shots := t.TempDir()
	res, err := flow.NewRunner(logger, flow.WithScreenshotDir(shots)).Run(context.Background(), sess, plan)
	require.Error(t, err)
	assert.ErrorIs(t, err, browser.ErrElementNotFound)
	assert.Len(t, res.Steps, 2)
	assert.NotEmpty(t, res.Screenshot)
	assert.Nil(t, app.posted("/session"), "the form must not be submitted after a failed step")
}

func TestIntegration_Session(t *testing.T) {
	_, srv := newFakeApp(t)
	cfg := testConfig(t, srv.URL)
	sess, _ := launch(t, cfg)
	ctx := context.Background()

	require.NoError(t, sess.Navigate(ctx, srv.URL+"/login"))

	t.Run("hidden elements are not found", func(t *testing.T) {
		_, err := sess.Find(ctx, locator.ID("ghost"))
		assert.ErrorIs(t, err, browser.ErrElementNotFound)
	})

	t.Run("link text and css locators", func(t *testing.T) {
		el, err := sess.Find(ctx, locator.LinkText("Regístrate"))
		require.NoError(t, err)
		assert.NotZero(t, el.NodeID())

		_, err = sess.Find(ctx, locator.CSS("form button[type=submit]"))
		assert.NoError(t, err)
	})

	t.Run("url change wait times out on a static page", func(t *testing.T) {
		short, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		start := time.Now()
		_, err := sess.WaitURLChange(short, srv.URL+"/login")
		assert.ErrorIs(t, err, browser.ErrNavigationTimeout)
		assert.Less(t, time.Since(start), 20*time.Second)
	})

	t.Run("caller cancellation is reported as such", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		err := sess.Navigate(canceled, srv.URL+"/register")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("screenshot", func(t *testing.T) {
		png, err := sess.Screenshot(ctx)
		require.NoError(t, err)
		assert.True(t, len(png) > 8 && string(png[1:4]) == "PNG")
	})

	t.Run("navigation to an unreachable host fails", func(t *testing.T) {
		err := sess.Navigate(ctx, "http://127.0.0.1:1/")
		assert.ErrorIs(t, err, browser.ErrNavigationFailed)
	})
}
