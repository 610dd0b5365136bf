package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/rakshakai/rakshak/pkg/intel"
)

// Key layout:
//
//	evidence:turns:<callID>   stream of stored turns, in order
//	evidence:meta:<callID>    hash with turn_count / last_score / updated_at
//	evidence:package:<callID> JSON evidence package
const (
	turnStreamPrefix = "evidence:turns:"
	metaPrefix       = "evidence:meta:"
	packagePrefix    = "evidence:package:"
)

// evidenceTTL bounds retention for calls that never get packaged.
const evidenceTTL = 7 * 24 * time.Hour

// RedisSink stores turns in per-call redis streams. An optional
// PostgresArchive additionally persists finished packages long-term.
type RedisSink struct {
	client  *redis.Client
	archive *PostgresArchive
}

// NewRedisSink connects to redis at url (redis:// form) and verifies the
// connection before returning.
func NewRedisSink(ctx context.Context, url string, archive *PostgresArchive) (*RedisSink, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisSink{client: client, archive: archive}, nil
}

func (s *RedisSink) StoreTurn(ctx context.Context, turn *Turn) error {
	values := map[string]interface{}{
		"sequence":   turn.Sequence,
		"speaker":    turn.Speaker,
		"transcript": turn.Transcript,
		"score":      fmt.Sprintf("%.6f", turn.Score),
		"level":      turn.Level,
		"timestamp":  turn.Timestamp.UnixNano(),
	}
	if len(turn.Entities) > 0 {
		blob, err := json.Marshal(turn.Entities)
		if err != nil {
			return fmt.Errorf("marshal entities: %w", err)
		}
		values["entities"] = string(blob)
	}

	stream := turnStreamPrefix + turn.CallID
	meta := metaPrefix + turn.CallID

	pipe := s.client.Pipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: values})
	pipe.HIncrBy(ctx, meta, "turn_count", 1)
	pipe.HSet(ctx, meta, "last_score", fmt.Sprintf("%.6f", turn.Score), "updated_at", time.Now().Unix())
	pipe.Expire(ctx, stream, evidenceTTL)
	pipe.Expire(ctx, meta, evidenceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store turn: %w", err)
	}
	return nil
}

func (s *RedisSink) LoadTurns(ctx context.Context, callID string) ([]Turn, error) {
	entries, err := s.client.XRange(ctx, turnStreamPrefix+callID, "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}

	turns := make([]Turn, 0, len(entries))
	for _, entry := range entries {
		t, err := turnFromValues(callID, entry.Values)
		if err != nil {
			log.Warn().Err(err).Str("call_id", callID).Str("entry_id", entry.ID).Msg("evidence_turn_skipped")
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (s *RedisSink) StorePackage(ctx context.Context, pkg *Package) error {
	blob, err := json.Marshal(pkg)
	if err != nil {
		return fmt.Errorf("marshal package: %w", err)
	}
	if err := s.client.Set(ctx, packagePrefix+pkg.CallID, blob, 0).Err(); err != nil {
		return fmt.Errorf("store package: %w", err)
	}

	if s.archive != nil {
		if err := s.archive.ArchivePackage(ctx, pkg); err != nil {
			// Long-term archive is best-effort; the package is in redis.
			log.Warn().Err(err).Str("call_id", pkg.CallID).Msg("evidence_archive_failed")
		}
	}
	return nil
}

// LoadPackage returns a previously stored package, or nil when none
// exists for the call.
func (s *RedisSink) LoadPackage(ctx context.Context, callID string) (*Package, error) {
	blob, err := s.client.Get(ctx, packagePrefix+callID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load package: %w", err)
	}
	var pkg Package
	if err := json.Unmarshal(blob, &pkg); err != nil {
		return nil, fmt.Errorf("unmarshal package: %w", err)
	}
	return &pkg, nil
}

func (s *RedisSink) Close() error {
	if s.archive != nil {
		s.archive.Close()
	}
	return s.client.Close()
}

func turnFromValues(callID string, values map[string]interface{}) (Turn, error) {
	t := Turn{CallID: callID}

	str := func(key string) string {
		v, _ := values[key].(string)
		return v
	}

	seq, err := strconv.Atoi(str("sequence"))
	if err != nil {
		return t, fmt.Errorf("bad sequence %q", str("sequence"))
	}
	score, err := strconv.ParseFloat(str("score"), 64)
	if err != nil {
		return t, fmt.Errorf("bad score %q", str("score"))
	}
	nanos, err := strconv.ParseInt(str("timestamp"), 10, 64)
	if err != nil {
		return t, fmt.Errorf("bad timestamp %q", str("timestamp"))
	}

	t.Sequence = seq
	t.Speaker = str("speaker")
	t.Transcript = str("transcript")
	t.Score = score
	t.Level = str("level")
	t.Timestamp = time.Unix(0, nanos)

	if blob := str("entities"); blob != "" {
		var entities []intel.Entity
		if err := json.Unmarshal([]byte(blob), &entities); err != nil {
			return t, fmt.Errorf("bad entities: %w", err)
		}
		t.Entities = entities
	}
	return t, nil
}
