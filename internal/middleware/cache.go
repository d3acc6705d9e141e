// Package middleware holds the echo middleware chain of the movie API:
// response caching, rate limiting, the CORS allow-list and request metrics.
package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-catalog/internal/config"
)

// captureWriter records the status and a bounded copy of the body while
// forwarding everything to the client.
type captureWriter struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	size      int64
	limit     int64
	truncated bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	switch remain := cw.limit - cw.size; {
	case cw.limit <= 0 || int64(len(b)) <= remain:
		cw.buf.Write(b)
	case remain > 0:
		cw.buf.Write(b[:remain])
		cw.truncated = true
	default:
		cw.truncated = true
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// cacheKeyFrom builds a stable key honoring prefix and strategy.  The
// concrete request path is used rather than the route pattern so that
// /movies/a and /movies/b never share an entry.  gen is the write
// generation the entry belongs to; a write bumps it so entries computed
// before the write can no longer be read.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context, gen int64) string {
	r := c.Request()
	path := r.URL.Path
	query := r.URL.RawQuery

	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = []string{"route", path}
	case "method_route":
		parts = []string{"method", r.Method, "route", path}
	case "method_route_query":
		parts = []string{"method", r.Method, "route", path, "q", query}
	default: // "route_query"
		parts = []string{"route", path, "q", query}
	}

	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%d:%x", cfg.Prefix, gen, sum[:])
}

// generationKey holds the write counter of a cache namespace.
func generationKey(prefix string) string { return prefix + ":gen" }

// perRequestHeader reports headers that depend on the caller rather than
// on the resource and so must not be stored.
func perRequestHeader(k string) bool {
	k = http.CanonicalHeaderKey(k)
	return strings.HasPrefix(k, "Access-Control-") ||
		k == echo.HeaderVary ||
		k == echo.HeaderContentLength ||
		k == "X-Cache" ||
		strings.HasPrefix(k, "X-Ratelimit-") ||
		k == "Retry-After"
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:8+len(hdrJSON)], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}

// InvalidateCache bumps the write generation of prefix and deletes every
// stored entry.  SCAN is used instead of KEYS so a large keyspace does not
// block Redis.  The bump alone makes older entries unreachable; deleting
// them only frees memory early.
func InvalidateCache(ctx context.Context, rdb *redis.Client, prefix string) error {
	genKey := generationKey(prefix)
	if err := rdb.Incr(ctx, genKey).Err(); err != nil {
		return err
	}
	iter := rdb.Scan(ctx, 0, prefix+":*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		if k := iter.Val(); k != genKey {
			batch = append(batch, k)
		}
		if len(batch) == 100 {
			if err := rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return rdb.Del(ctx, batch...).Err()
	}
	return nil
}

// NewRedisCache serves cached responses for the configured methods and
// stores headers plus body so clients see byte-identical output.  Headers
// that depend on the caller (CORS, Vary, rate limit) are left to the
// middleware that produced them.  Any other method is a write: once it
// completes with a status below 400 the write generation is bumped, so an
// entry computed from data older than the write is never served again.
// Redis failures degrade to uncached behaviour.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	maxBody := int64(cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				err := next(c)
				if err == nil && c.Response().Status < http.StatusBadRequest {
					if perr := InvalidateCache(context.Background(), rdb, cfg.Prefix); perr != nil {
						slog.Warn("cache: invalidation failed", "prefix", cfg.Prefix, "error", perr)
					}
				}
				return err
			}

			ctx := c.Request().Context()
			// The generation is read before the handler runs: a write that
			// lands while the handler is busy makes this entry unreachable.
			gen, err := rdb.Get(ctx, generationKey(cfg.Prefix)).Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				slog.Debug("cache: generation unavailable", "error", err)
				return next(c)
			}
			key := cacheKeyFrom(cfg, c, gen)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					h := c.Response().Header()
					for k, vals := range hdr {
						if perRequestHeader(k) {
							continue
						}
						h[http.CanonicalHeaderKey(k)] = append([]string(nil), vals...)
					}
					h.Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					if len(body) > 0 {
						_, _ = c.Response().Write(body)
					}
					return nil
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.truncated {
				return nil
			}

			hdr := make(http.Header)
			for k, vals := range c.Response().Header() {
				if !perRequestHeader(k) {
					hdr[k] = append([]string(nil), vals...)
				}
			}
			if payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes()); err == nil {
				if err := rdb.SetEx(context.Background(), key, payload, ttl).Err(); err != nil {
					slog.Debug("cache: store failed", "key", key, "error", err)
				}
			}
			return nil
		}
	}
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc {
	return next
}
