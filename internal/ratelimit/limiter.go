package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/config"
	"github.com/feral-file/ff-marketplace/internal/logger"
)

// maxLocalKeys bounds the number of per-key local limiters kept in memory
const maxLocalKeys = 10000

// ErrRedisUnavailable is returned when Redis is down and local fallback is disabled
var ErrRedisUnavailable = errors.New("redis rate limiter unavailable")

// Decision is the outcome of a rate limit check
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether a request identified by key may proceed
//
//go:generate mockgen -source=limiter.go -destination=../mocks/ratelimit.go -package=mocks -mock_names=Limiter=MockRateLimiter
type Limiter interface {
	// Allow consumes one request for key if the rate allows it
	Allow(ctx context.Context, key string) (Decision, error)

	// Close releases the Redis connection
	Close() error
}

type limiter struct {
	config config.RateLimitConfig
	redis  adapter.Redis
	clock  adapter.Clock

	redisAvailable atomic.Bool
	lastPing       atomic.Int64 // unix nanos of the last health check while unavailable

	mu        sync.Mutex
	local     map[string]*rate.Limiter
	localRate rate.Limit
}

// NewLimiter creates a limiter. A nil rc limits per process only.
func NewLimiter(cfg config.RateLimitConfig, rc adapter.Redis, clock adapter.Clock) (Limiter, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	l := &limiter{
		config:    cfg,
		redis:     rc,
		clock:     clock,
		local:     make(map[string]*rate.Limiter),
		localRate: rate.Limit(cfg.RequestsPerSecond),
	}

	if rc != nil {
		// While Redis is down each replica only allows a share of the rate
		l.localRate = rate.Limit(max(float64(cfg.RequestsPerSecond)*cfg.LocalFallbackMultiplier, 1.0))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := rc.Ping(ctx); err != nil {
			if !cfg.EnableLocalFallback {
				return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
			logger.Warn("Redis unavailable, will use local fallback", zap.Error(err))
			l.lastPing.Store(clock.Now().UnixNano())
		} else {
			l.redisAvailable.Store(true)
		}
	}

	logger.Info("Rate limiter initialized",
		zap.Int("requests_per_second", cfg.RequestsPerSecond),
		zap.Int("burst", cfg.Burst),
		zap.Bool("distributed", rc != nil),
		zap.Bool("local_fallback", cfg.EnableLocalFallback),
	)

	return l, nil
}

func (l *limiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l.redis != nil {
		l.recheckRedis(ctx)

		if l.redisAvailable.Load() {
			decision, err := l.allowDistributed(ctx, key)
			if err == nil {
				return decision, nil
			}
			if ctx.Err() != nil {
				return Decision{}, ctx.Err()
			}

			l.redisAvailable.Store(false)
			l.lastPing.Store(l.clock.Now().UnixNano())
			if !l.config.EnableLocalFallback {
				return Decision{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
			logger.WarnCtx(ctx, "Redis rate limiter error, falling back to local", zap.Error(err))
		} else if !l.config.EnableLocalFallback {
			return Decision{}, ErrRedisUnavailable
		}
	}

	return l.allowLocal(key), nil
}

func (l *limiter) allowDistributed(ctx context.Context, key string) (Decision, error) {
	res, err := l.redis.Allow(ctx, l.config.RedisKeyPrefix+key, redis_rate.Limit{
		Rate:   l.config.RequestsPerSecond,
		Burst:  l.config.Burst,
		Period: time.Second,
	})
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		RetryAfter: max(res.RetryAfter, 0),
	}, nil
}

func (l *limiter) allowLocal(key string) Decision {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.local[key]
	if !ok {
		if len(l.local) >= maxLocalKeys {
			l.local = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(l.localRate, l.config.Burst)
		l.local[key] = lim
	}

	r := lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{Allowed: false, RetryAfter: delay}
	}

	return Decision{Allowed: true, Remaining: int(lim.TokensAt(now))}
}

// recheckRedis pings Redis again once the recheck interval has passed since it went down
func (l *limiter) recheckRedis(ctx context.Context) {
	if l.redisAvailable.Load() {
		return
	}
	last := l.lastPing.Load()
	if l.clock.Since(time.Unix(0, last)) < l.config.RedisRecheckInterval {
		return
	}
	if !l.lastPing.CompareAndSwap(last, l.clock.Now().UnixNano()) {
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := l.redis.Ping(pingCtx); err != nil {
		return
	}

	l.redisAvailable.Store(true)
	logger.InfoCtx(ctx, "Redis connection restored")
}

func (l *limiter) Close() error {
	if l.redis == nil {
		return nil
	}
	return l.redis.Close()
}

// validateConfig validates and sets defaults for the configuration
func validateConfig(cfg *config.RateLimitConfig) error {
	if cfg.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests_per_second must be positive")
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RequestsPerSecond
	}
	if cfg.RedisKeyPrefix == "" {
		cfg.RedisKeyPrefix = "ff:marketplace:ratelimit:"
	}
	if cfg.LocalFallbackMultiplier <= 0 {
		cfg.LocalFallbackMultiplier = 0.5
	}
	if cfg.RedisRecheckInterval <= 0 {
		cfg.RedisRecheckInterval = 10 * time.Second
	}
	return nil
}
