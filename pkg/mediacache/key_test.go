package mediacache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyIsShardedDigest(t *testing.T) {
	url := "https://example.com/a.png"
	sum := sha256.Sum256([]byte(url))
	digest := hex.EncodeToString(sum[:])

	want := filepath.Join(digest[0:2], digest[2:4], digest)
	assert.Equal(t, want, Key(url))
}

func TestKeyDeterministic(t *testing.T) {
	for _, url := range []string{"", "https://example.com/a.png", "héllo/wörld?x=1#frag"} {
		assert.Equal(t, Key(url), Key(url), "key for %q", url)
	}
}

func TestKeyShape(t *testing.T) {
	parts := strings.Split(filepath.ToSlash(Key("https://nostr.build/i/cat.gif")), "/")
	require.Len(t, parts, 3)
	assert.Len(t, parts[0], 2)
	assert.Len(t, parts[1], 2)
	assert.Len(t, parts[2], 64)
	assert.Equal(t, parts[0], parts[2][0:2])
	assert.Equal(t, parts[1], parts[2][2:4])
	assert.Equal(t, strings.ToLower(parts[2]), parts[2])
}

func TestKeyDistinctURLs(t *testing.T) {
	seen := make(map[string]string)
	for i := 0; i < 1000; i++ {
		url := fmt.Sprintf("https://example.com/img/%d.png", i)
		k := Key(url)
		if prev, ok := seen[k]; ok {
			t.Fatalf("key collision between %q and %q", prev, url)
		}
		seen[k] = url
	}
}
