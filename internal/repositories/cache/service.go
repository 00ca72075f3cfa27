package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// Key generation
func (s *CacheService) GenerateKey(entityType, keyType string, value interface{}) string {
	return GenerateKey(entityType, keyType, value)
}

func GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

// Balance caching. Balances are stored in the base currency next to a
// per-user generation that every invalidation increments.
var setBalanceScript = redis.NewScript(`
local gen = redis.call("GET", KEYS[2]) or "0"
if gen ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
else
	redis.call("SET", KEYS[1], ARGV[2])
end
return 1
`)

func balanceKeys(userID uint) (balance, generation string) {
	return GenerateKey("wallet", "balance", userID), GenerateKey("wallet", "generation", userID)
}

func (s *CacheService) GetBalance(ctx context.Context, userID uint) (decimal.Decimal, int64, bool, error) {
	balanceKey, genKey := balanceKeys(userID)
	vals, err := s.client.MGet(ctx, balanceKey, genKey).Result()
	if err != nil {
		return decimal.Zero, 0, false, err
	}
	gen, err := parseGeneration(vals[1])
	if err != nil {
		return decimal.Zero, 0, false, err
	}
	raw, ok := vals[0].(string)
	if !ok {
		return decimal.Zero, gen, false, nil
	}
	var balance decimal.Decimal
	if err := json.Unmarshal([]byte(raw), &balance); err != nil {
		return decimal.Zero, gen, false, fmt.Errorf("failed to unmarshal cached balance: %w", err)
	}
	return balance, gen, true, nil
}

func (s *CacheService) SetBalance(ctx context.Context, userID uint, balance decimal.Decimal, generation int64) error {
	data, err := json.Marshal(balance)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	balanceKey, genKey := balanceKeys(userID)
	return setBalanceScript.Run(ctx, s.client, []string{balanceKey, genKey},
		strconv.FormatInt(generation, 10), data, s.ttl.Milliseconds()).Err()
}

func (s *CacheService) InvalidateWallet(ctx context.Context, userID uint) error {
	balanceKey, genKey := balanceKeys(userID)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, genKey)
		p.Del(ctx, balanceKey)
		return nil
	})
	return err
}

// parseGeneration reads an MGET slot; a missing key is generation 0.
func parseGeneration(v interface{}) (int64, error) {
	if v == nil {
		return 0, nil
	}
	raw, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected generation value %T", v)
	}
	gen, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid balance generation %q: %w", raw, err)
	}
	return gen, nil
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
