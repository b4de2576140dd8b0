package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// TranscriptStore keeps the per-session conversation buffer. Sessions are
// keyed by the caller's opaque session id.
//
// TODO: transcripts are never evicted; add a retention policy (TTL or size
// cap) once one is decided.
type TranscriptStore interface {
	Append(ctx context.Context, sessionID string, msgs ...Message) error
	History(ctx context.Context, sessionID string) ([]Message, error)
}

// RedisTranscripts stores each session as a redis list of JSON messages.
type RedisTranscripts struct {
	rdb redis.Cmdable
}

func NewRedisTranscripts(rdb redis.Cmdable) *RedisTranscripts {
	return &RedisTranscripts{rdb: rdb}
}

func transcriptKey(sessionID string) string {
	return "assist:" + sessionID + ":messages"
}

func (t *RedisTranscripts) Append(ctx context.Context, sessionID string, msgs ...Message) error {
	key := transcriptKey(sessionID)
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		if err := t.rdb.RPush(ctx, key, b).Err(); err != nil {
			return fmt.Errorf("push message: %w", err)
		}
	}
	return nil
}

func (t *RedisTranscripts) History(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := t.rdb.LRange(ctx, transcriptKey(sessionID), 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	msgs := make([]Message, 0, len(rows))
	for i, row := range rows {
		var m Message
		if err := json.Unmarshal([]byte(row), &m); err != nil {
			return nil, fmt.Errorf("unmarshal message %d: %w", i, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// MemTranscripts is the in-process variant used in tests and when no redis
// is configured.
type MemTranscripts struct {
	mu sync.RWMutex
	m  map[string][]Message
}

func NewMemTranscripts() *MemTranscripts {
	return &MemTranscripts{m: map[string][]Message{}}
}

func (t *MemTranscripts) Append(ctx context.Context, sessionID string, msgs ...Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[sessionID] = append(t.m[sessionID], msgs...)
	return nil
}

func (t *MemTranscripts) History(ctx context.Context, sessionID string) ([]Message, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Message, len(t.m[sessionID]))
	copy(out, t.m[sessionID])
	return out, nil
}
