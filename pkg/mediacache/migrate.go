package mediacache

import (
	"encoding/base32"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// legacyEncoding is the Crockford base-32 alphabet, unpadded, that older
// versions used to name cache files after their URL.
var legacyEncoding = base32.NewEncoding("0123456789ABCDEFGHJKMNPQRSTVWXYZ").WithPadding(base32.NoPadding)

// crockfordAliases folds the symbols Crockford decoding accepts as
// synonyms onto the canonical alphabet.
var crockfordAliases = strings.NewReplacer("O", "0", "I", "1", "L", "1")

// decodeLegacyName recovers the URL encoded in a pre-migration filename.
func decodeLegacyName(name string) (string, error) {
	canonical := crockfordAliases.Replace(strings.ToUpper(name))
	raw, err := legacyEncoding.DecodeString(canonical)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrLegacyName, name, err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: %q does not decode to UTF-8", ErrLegacyName, name)
	}
	return string(raw), nil
}

// isDigestName reports whether name already is a current-format key
// filename (64 lowercase hex digits).
func isDigestName(name string) bool {
	if len(name) != 64 {
		return false
	}
	for _, r := range name {
		if !('0' <= r && r <= '9' || 'a' <= r && r <= 'f') {
			return false
		}
	}
	return true
}

// MigrateV0 moves files named with the legacy base-32 URL encoding to
// their sharded SHA-256 key path. Unrecognised names and failed renames
// are logged and skipped, so the migration is safe to repeat. Only a
// failure to list the cache directory is returned.
func (c *MediaCache) MigrateV0() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("list cache dir: %w", err)
	}

	var moved int
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		oldName := entry.Name()
		if isDigestName(oldName) {
			continue
		}
		oldURL, err := decodeLegacyName(oldName)
		if err != nil {
			c.logger.Warn("invalid base32 filename", "name", oldName, "dir", c.dir)
			continue
		}

		oldPath := filepath.Join(c.dir, oldName)
		newPath := c.Path(oldURL)
		if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
			c.logger.Warn("failed to create migration dir", "path", filepath.Dir(newPath), "err", err)
			continue
		}
		if err := os.Rename(oldPath, newPath); err != nil {
			c.logger.Warn("failed to migrate file", "from", oldPath, "to", newPath, "err", err)
			continue
		}
		moved++
	}

	if moved > 0 {
		c.logger.Info("migrated legacy cache entries", "dir", c.dir, "count", moved)
	}
	return nil
}
