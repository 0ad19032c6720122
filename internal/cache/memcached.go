package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/google/uuid"
)

// ErrInvalidID is returned by Set when the upload id is not a UUID.
var ErrInvalidID = errors.New("upload id is not a UUID")

const keyPrefix = "upload:"

// maxItemBytes is memcached's default item size limit.
const maxItemBytes = 1 << 20

// itemFormat tags stored items so a layout change reads as a miss rather
// than a corrupt upload.
const itemFormat uint32 = 1

// uploadHeader is the first line of a stored item. The raw CSV follows it
// unencoded.
type uploadHeader struct {
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploadedAt"`
	Size       int       `json:"size"`
}

// MemcachedCache implements UploadStore using memcached.
type MemcachedCache struct {
	client *memcache.Client
}

// NewMemcachedCache creates a MemcachedCache. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout and maxIdleConns
// configure the client; both use package defaults if zero.
func NewMemcachedCache(addrs string, timeout time.Duration, maxIdleConns int) (*MemcachedCache, error) {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedCache{client: client}, nil
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// uploadKey maps an upload id to its memcached key. Ids are issued as UUIDs,
// so anything else is rejected before it reaches the server.
func uploadKey(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return keyPrefix + u.String(), nil
}

// encodeUpload lays out an upload as a JSON header line followed by the raw bytes.
func encodeUpload(up Upload) ([]byte, error) {
	hdr, err := json.Marshal(uploadHeader{Filename: up.Filename, UploadedAt: up.UploadedAt, Size: len(up.Raw)})
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(hdr)+1+len(up.Raw))
	buf = append(buf, hdr...)
	buf = append(buf, '\n')
	return append(buf, up.Raw...), nil
}

func decodeUpload(item []byte) (Upload, error) {
	i := bytes.IndexByte(item, '\n')
	if i < 0 {
		return Upload{}, errors.New("stored upload has no header")
	}
	var hdr uploadHeader
	if err := json.Unmarshal(item[:i], &hdr); err != nil {
		return Upload{}, fmt.Errorf("stored upload header: %w", err)
	}
	raw := item[i+1:]
	if len(raw) != hdr.Size {
		return Upload{}, fmt.Errorf("stored upload is %d bytes, header says %d", len(raw), hdr.Size)
	}
	return Upload{Filename: hdr.Filename, Raw: raw, UploadedAt: hdr.UploadedAt}, nil
}

// Get implements UploadStore.Get. Unknown, expired and non-UUID ids are a miss;
// err is set only when memcached fails or the stored item is corrupt.
func (c *MemcachedCache) Get(ctx context.Context, id string) (Upload, bool, error) {
	if ctx.Err() != nil {
		return Upload{}, false, ctx.Err()
	}
	key, err := uploadKey(id)
	if err != nil {
		return Upload{}, false, nil
	}
	item, err := c.client.Get(key)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return Upload{}, false, nil
		}
		return Upload{}, false, err
	}
	if item.Flags != itemFormat {
		return Upload{}, false, nil
	}
	up, err := decodeUpload(item.Value)
	if err != nil {
		return Upload{}, false, err
	}
	return up, true, nil
}

// Set implements UploadStore.Set.
func (c *MemcachedCache) Set(ctx context.Context, id string, value Upload, ttl time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	key, err := uploadKey(id)
	if err != nil {
		return err
	}
	raw, err := encodeUpload(value)
	if err != nil {
		return err
	}
	if len(raw) > maxItemBytes {
		return fmt.Errorf("%w: %d bytes stored, limit %d", ErrTooLarge, len(raw), maxItemBytes)
	}
	return c.client.Set(&memcache.Item{
		Key:        key,
		Value:      raw,
		Flags:      itemFormat,
		Expiration: expirationSeconds(ttl),
	})
}

// expirationSeconds converts ttl to a memcached relative expiration.
func expirationSeconds(ttl time.Duration) int32 {
	expSec := int32(ttl.Seconds())
	const maxRelativeExp = 30 * 24 * 60 * 60 // 30 days
	if expSec <= 0 || expSec > maxRelativeExp {
		expSec = 3600 // fallback 1h if invalid
	}
	return expSec
}

// Ping checks if memcached is reachable. Used for health checks.
func (c *MemcachedCache) Ping() error {
	return c.client.Ping()
}

// Close closes the memcached client connections. Call during shutdown.
func (c *MemcachedCache) Close() error {
	return c.client.Close()
}
