package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/waktsa/elearning/internal/domain/course"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

const courseListVersionKey = "courses:list:version"

// RedisCourseLists namespaces every key with a version counter. Invalidate
// bumps the counter, so stale listings are never read again and simply age out.
//
// Redis failures degrade to cache misses.
type RedisCourseLists struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewRedisCourseLists(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *RedisCourseLists {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisCourseLists{rdb: rdb, ttl: ttl, log: log}
}

func (r *RedisCourseLists) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *RedisCourseLists) version(ctx context.Context) (Generation, error) {
	v, err := r.rdb.Get(ctx, courseListVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return unknownGeneration, err
	}
	return Generation(v), nil
}

func versionedKey(gen Generation, key string) string {
	return "v" + strconv.FormatInt(int64(gen), 10) + ":" + key
}

func (r *RedisCourseLists) Get(ctx context.Context, key string) ([]course.Course, Generation, bool) {
	gen, err := r.version(ctx)
	if err != nil {
		r.log.Warn("course_cache_get_failed", "key", key, "err", err)
		return nil, unknownGeneration, false
	}

	raw, err := r.rdb.Get(ctx, versionedKey(gen, key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("course_cache_get_failed", "key", key, "err", err)
		}
		return nil, gen, false
	}

	var courses []course.Course
	if err := json.Unmarshal(raw, &courses); err != nil {
		r.log.Warn("course_cache_decode_failed", "key", key, "err", err)
		return nil, gen, false
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return courses, gen, true
}

// Set writes under the generation the caller read. If Invalidate ran in
// between, that key is already unreachable and the entry just ages out.
func (r *RedisCourseLists) Set(ctx context.Context, key string, gen Generation, courses []course.Course) {
	if gen < 0 {
		return
	}

	raw, err := json.Marshal(courses)
	if err != nil {
		return
	}

	if err := r.rdb.Set(ctx, versionedKey(gen, key), raw, r.ttl).Err(); err != nil {
		r.log.Warn("course_cache_set_failed", "key", key, "err", err)
	}
}

func (r *RedisCourseLists) Invalidate(ctx context.Context) error {
	return r.rdb.Incr(ctx, courseListVersionKey).Err()
}
