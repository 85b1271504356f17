package mediacache

import (
	"path/filepath"

	"github.com/opencontainers/go-digest"
)

// Key derives the sharded relative cache path for url:
// {hex[0:2]}/{hex[2:4]}/{hex}, where hex is the lowercase SHA-256 of the
// URL bytes. The mapping must stay stable, migrated files and existing
// caches are found through it.
func Key(url string) string {
	k := digest.SHA256.FromString(url).Encoded()
	return filepath.Join(k[0:2], k[2:4], k)
}
