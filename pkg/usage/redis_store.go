package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/resumekit/pkg/entitlement"
)

const (
	fieldAICredits = "ai_credits_used"
	fieldPDF       = "pdf_downloads_used"
	fieldPeriod    = "usage_period"
)

// incrementPDFScript resets the PDF counter on period change and increments
// it in a single server-side step.
var incrementPDFScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], ARGV[2]) ~= ARGV[1] then
	redis.call('HSET', KEYS[1], ARGV[2], ARGV[1], ARGV[3], 0)
end
return redis.call('HINCRBY', KEYS[1], ARGV[3], 1)
`)

// incrementPDFWithinScript is incrementPDFScript with the cap checked first.
// It returns -1 and writes nothing when the period count has reached ARGV[4].
var incrementPDFWithinScript = redis.NewScript(`
local same = redis.call('HGET', KEYS[1], ARGV[2]) == ARGV[1]
local used = 0
if same then
	used = tonumber(redis.call('HGET', KEYS[1], ARGV[3]) or '0')
end
if used >= tonumber(ARGV[4]) then
	return -1
end
if not same then
	redis.call('HSET', KEYS[1], ARGV[2], ARGV[1], ARGV[3], 0)
end
return redis.call('HINCRBY', KEYS[1], ARGV[3], 1)
`)

// incrementWithinScript adds ARGV[2] to field ARGV[1] unless the result
// would exceed ARGV[3], in which case it returns -1.
var incrementWithinScript = redis.NewScript(`
local used = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
if used + tonumber(ARGV[2]) > tonumber(ARGV[3]) then
	return -1
end
return redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[2])
`)

// UserChecker reports whether a user exists.
type UserChecker interface {
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)
}

// RedisStore keeps counters in one Redis hash per user.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	users  UserChecker
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix sets the hash key prefix. Default "usage:".
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithUserChecker makes the store reject unknown users with
// entitlement.ErrNotFound. Without it unknown users read as fresh counters.
func WithUserChecker(c UserChecker) RedisOption {
	return func(s *RedisStore) {
		s.users = c
	}
}

// NewRedisStore creates a Redis backed Store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: "usage:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(userID uuid.UUID) string {
	return s.prefix + userID.String()
}

func (s *RedisStore) checkUser(ctx context.Context, userID uuid.UUID) error {
	if s.users == nil {
		return nil
	}
	ok, err := s.users.UserExists(ctx, userID)
	if err != nil {
		return errors.Join(entitlement.ErrStorage, err)
	}
	if !ok {
		return entitlement.ErrNotFound
	}
	return nil
}

func (s *RedisStore) Counters(ctx context.Context, userID uuid.UUID) (entitlement.UsageCounters, error) {
	if err := s.checkUser(ctx, userID); err != nil {
		return entitlement.UsageCounters{}, err
	}

	vals, err := s.client.HMGet(ctx, s.key(userID), fieldAICredits, fieldPDF, fieldPeriod).Result()
	if err != nil {
		return entitlement.UsageCounters{}, errors.Join(entitlement.ErrStorage, err)
	}

	var c entitlement.UsageCounters
	if c.AICreditsUsed, err = parseCounter(vals[0]); err != nil {
		return entitlement.UsageCounters{}, errors.Join(entitlement.ErrStorage, err)
	}
	if c.PDFDownloadsUsed, err = parseCounter(vals[1]); err != nil {
		return entitlement.UsageCounters{}, errors.Join(entitlement.ErrStorage, err)
	}
	if p, ok := vals[2].(string); ok {
		c.UsagePeriod = p
	}
	return c, nil
}

func (s *RedisStore) IncrementPDF(ctx context.Context, userID uuid.UUID, period string) (int64, error) {
	if err := s.checkUser(ctx, userID); err != nil {
		return 0, err
	}

	n, err := incrementPDFScript.Run(ctx, s.client, []string{s.key(userID)}, period, fieldPeriod, fieldPDF).Int64()
	if err != nil {
		return 0, errors.Join(entitlement.ErrStorage, err)
	}
	return n, nil
}

func (s *RedisStore) IncrementAICredits(ctx context.Context, userID uuid.UUID, n int64) (int64, error) {
	if err := s.checkUser(ctx, userID); err != nil {
		return 0, err
	}

	used, err := s.client.HIncrBy(ctx, s.key(userID), fieldAICredits, n).Result()
	if err != nil {
		return 0, errors.Join(entitlement.ErrStorage, err)
	}
	return used, nil
}

func (s *RedisStore) IncrementPDFWithin(ctx context.Context, userID uuid.UUID, period string, limit int64) (int64, error) {
	if err := s.checkUser(ctx, userID); err != nil {
		return 0, err
	}

	n, err := incrementPDFWithinScript.Run(ctx, s.client, []string{s.key(userID)},
		period, fieldPeriod, fieldPDF, limit).Int64()
	if err != nil {
		return 0, errors.Join(entitlement.ErrStorage, err)
	}
	if n < 0 {
		return 0, ErrLimitReached
	}
	return n, nil
}

func (s *RedisStore) IncrementAICreditsWithin(ctx context.Context, userID uuid.UUID, n, total int64) (int64, error) {
	if err := s.checkUser(ctx, userID); err != nil {
		return 0, err
	}

	used, err := incrementWithinScript.Run(ctx, s.client, []string{s.key(userID)},
		fieldAICredits, n, total).Int64()
	if err != nil {
		return 0, errors.Join(entitlement.ErrStorage, err)
	}
	if used < 0 {
		return 0, ErrLimitReached
	}
	return used, nil
}

func parseCounter(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse counter %q: %w", x, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected counter type %T", v)
	}
}
