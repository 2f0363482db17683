package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ektp-scanner/internal/common"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func names(files []*File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name())
	}
	return out
}

func TestCollect_SelectionOrder(t *testing.T) {
	dir := t.TempDir()
	cards := filepath.Join(dir, "cards")
	writeFile(t, filepath.Join(cards, "b.JPG"), "b")
	writeFile(t, filepath.Join(cards, "a.png"), "a")
	writeFile(t, filepath.Join(cards, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(cards, ".hidden.png"), "hidden")
	writeFile(t, filepath.Join(cards, ".cache", "d.png"), "hidden dir")
	writeFile(t, filepath.Join(cards, "sub", "c.bmp"), "c")
	single := filepath.Join(dir, "z.jpeg")
	writeFile(t, single, "z")

	files, err := Collect([]string{single, cards})
	require.NoError(t, err)
	assert.Equal(t, []string{
		single,
		filepath.Join(cards, "a.png"),
		filepath.Join(cards, "b.JPG"),
		filepath.Join(cards, "sub", "c.bmp"),
	}, names(files))
	assert.Equal(t, "jpg", files[2].Ext)
}

func TestCollect_DuplicatePathsKeptOnce(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.png")
	writeFile(t, p, "a")

	files, err := Collect([]string{p, dir, p})
	require.NoError(t, err)
	assert.Equal(t, []string{p}, names(files))
}

func TestCollect_Errors(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "scan.pdf")
	writeFile(t, pdf, "%PDF")

	_, err := Collect([]string{pdf})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = Collect([]string{dir})
	require.Error(t, err, "directory with no images")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = Collect(nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = Collect([]string{filepath.Join(dir, "missing.png")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFile_Bytes(t *testing.T) {
	p := filepath.Join(t.TempDir(), "card.png")
	writeFile(t, p, "image-bytes")

	f := NewFile(p)
	assert.Empty(t, f.HashHex())

	data, err := f.Bytes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))

	sum := sha256.Sum256([]byte("image-bytes"))
	assert.Equal(t, hex.EncodeToString(sum[:]), f.HashHex())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Bytes(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = NewFile(filepath.Join(t.TempDir(), "gone.png")).Bytes(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden("/x/.git"))
	assert.True(t, IsHidden(".card.png"))
	assert.False(t, IsHidden("."))
	assert.False(t, IsHidden("/x/card.png"))
}

func waitFor(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case got, ok := <-ch:
			require.True(t, ok, "watcher closed before %s", want)
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("no event for %s", want)
		}
	}
}

func TestStartWatcher(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.png")
	writeFile(t, existing, "x")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
		Debounce:    20 * time.Millisecond,
	})
	require.NoError(t, err)
	waitFor(t, events, existing)

	fresh := filepath.Join(dir, "fresh.jpg")
	writeFile(t, fresh, "y")
	waitFor(t, events, fresh)

	cancel()
	for range events {
	}
}

func TestStartWatcher_NoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	require.Error(t, err)
}
