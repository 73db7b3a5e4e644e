package browser

import (
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openerHTML = `<!DOCTYPE html>
<html><head><title>Opener</title></head>
<body>
  <button id="open" onclick="window.open('child.html', '_blank')">Open</button>
  <button id="twice" onclick="window.open('child.html', '_blank'); window.open('child.html', '_blank')">Open twice</button>
  <button id="noop">Nothing</button>
</body></html>`

const childHTML = `<!DOCTYPE html>
<html><head><title>Child</title></head>
<body>
  <h2>Task 1 / 2</h2>
  <input type="checkbox" class="box">
  <input type="checkbox" class="box">
  <button id="next" disabled>Next</button>
  <script>
    document.querySelectorAll('.box').forEach(function (b) {
      b.addEventListener('change', function () {
        var all = Array.prototype.every.call(document.querySelectorAll('.box'), function (x) { return x.checked; });
        document.getElementById('next').disabled = !all;
      });
    });
  </script>
</body></html>`

// startTestSession launches a headless session on the opener document, or
// skips when Playwright is not available.
func startTestSession(t *testing.T) (*SessionManager, *Session) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(openerHTML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "child.html"), []byte(childHTML), 0644))

	m := NewSessionManager()
	if err := m.Initialize(); err != nil {
		t.Skipf("playwright not available: %v", err)
	}
	t.Cleanup(func() { _ = m.Shutdown() })

	s, err := m.StartSession("test", SessionOptions{Headless: true, Timeout: 5000})
	require.NoError(t, err)
	require.NoError(t, s.NavigateFile(filepath.Join(dir, "index.html")))
	return m, s
}

func TestSessionSpawnedPageFlow(t *testing.T) {
	m, s := startTestSession(t)

	child, err := s.ExpectSpawnedPage("click Open", func() error {
		return s.Page.Locator("#open").Click()
	}, SpawnOptions{})
	require.NoError(t, err)
	assert.Contains(t, child.URL(), "child.html")

	expect := s.Expect(child, 2000)
	require.NoError(t, expect.Visible(Heading(child, "Task 1 / 2")))
	require.NoError(t, expect.Disabled(CSS(child, "#next")))

	n, err := s.CheckAll(child, ".box")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, expect.Enabled(CSS(child, "#next")))

	shot := filepath.Join(t.TempDir(), "nested", "child.png")
	data, err := s.Screenshot(child, ScreenshotOptions{Path: shot})
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	f, err := os.Open(shot)
	require.NoError(t, err)
	defer f.Close()
	_, err = png.Decode(f)
	assert.NoError(t, err)

	infos := m.ListSessions()
	require.Len(t, infos, 1)
	assert.Equal(t, 1, infos[0].SpawnedPage)
}

func TestSessionExpectSpawnedPageFailures(t *testing.T) {
	_, s := startTestSession(t)

	t.Run("trigger error", func(t *testing.T) {
		_, err := s.ExpectSpawnedPage("broken trigger", func() error {
			return errors.New("selector mismatch")
		}, SpawnOptions{Timeout: 1000})

		var missing *MissingPageError
		require.ErrorAs(t, err, &missing)
		assert.False(t, missing.TriggerFired)
	})

	t.Run("nothing opens", func(t *testing.T) {
		_, err := s.ExpectSpawnedPage("click Nothing", func() error {
			return s.Page.Locator("#noop").Click()
		}, SpawnOptions{Timeout: 1000})

		var missing *MissingPageError
		require.ErrorAs(t, err, &missing)
		assert.True(t, missing.TriggerFired)
		assert.Equal(t, 0, missing.Spawned)
	})

	t.Run("two pages open", func(t *testing.T) {
		_, err := s.ExpectSpawnedPage("click Open twice", func() error {
			return s.Page.Locator("#twice").Click()
		}, SpawnOptions{Timeout: 2000})

		var missing *MissingPageError
		require.ErrorAs(t, err, &missing)
		assert.True(t, missing.TriggerFired)
		assert.GreaterOrEqual(t, missing.Spawned, 2)
		assert.Nil(t, missing.Err)
	})
}

func TestButtonMatchesNameSubstring(t *testing.T) {
	_, s := startTestSession(t)

	// "Open twice" also contains "open"; the name match ignores case
	n, err := Button(s.Page, "open twice").Locator.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = Button(s.Page, "Open").Locator.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSessionAssertionCarriesSnapshot(t *testing.T) {
	_, s := startTestSession(t)

	err := s.Expect(s.Page, 500).Visible(CSS(s.Page, "#does-not-exist"))

	var assertErr *AssertionError
	require.ErrorAs(t, err, &assertErr)
	assert.Equal(t, "#does-not-exist", assertErr.Selector)
	assert.Contains(t, assertErr.Snapshot, `<button id="open">`)

	_, err = s.CheckAll(s.Page, ".missing")
	require.ErrorAs(t, err, &assertErr)
}
