package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/KeyIP-Docket/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	mock  redismock.ClientMock
	cache Cache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	client := NewClientFromUniversal(db, "test:", logging.NewNopLogger())
	s.cache = NewRedisCache(client, logging.NewNopLogger(), WithoutJitter())
}

func (s *CacheTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

type testStruct struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func (s *CacheTestSuite) TestGet_CacheHit() {
	val := testStruct{Name: "John", Age: 30}
	bytes, _ := json.Marshal(val)
	s.mock.ExpectGet("test:cache:key1").SetVal(string(bytes))

	var dest testStruct
	err := s.cache.Get(context.Background(), "key1", &dest)

	s.NoError(err)
	s.Equal(val, dest)
}

func (s *CacheTestSuite) TestGet_CacheMiss() {
	s.mock.ExpectGet("test:cache:key1").RedisNil()

	var dest testStruct
	err := s.cache.Get(context.Background(), "key1", &dest)

	s.Equal(ErrCacheMiss, err)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeNotFound))
}

func (s *CacheTestSuite) TestGet_NullCacheMarker() {
	s.mock.ExpectGet("test:cache:key1").SetVal(nullMarker)

	var dest testStruct
	s.Equal(ErrCacheMiss, s.cache.Get(context.Background(), "key1", &dest))
}

func (s *CacheTestSuite) TestGet_RedisError() {
	s.mock.ExpectGet("test:cache:key1").SetErr(errors.New("connection reset"))

	var dest testStruct
	err := s.cache.Get(context.Background(), "key1", &dest)

	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func (s *CacheTestSuite) TestGet_CorruptValue() {
	s.mock.ExpectGet("test:cache:key1").SetVal("{not json")

	var dest testStruct
	err := s.cache.Get(context.Background(), "key1", &dest)

	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeSerialization))
}

func (s *CacheTestSuite) TestDelete_Success() {
	s.mock.ExpectDel("test:cache:k1", "test:cache:k2").SetVal(2)
	s.NoError(s.cache.Delete(context.Background(), "k1", "k2"))
}

func (s *CacheTestSuite) TestDelete_NoKeys() {
	s.NoError(s.cache.Delete(context.Background()))
}

func (s *CacheTestSuite) TestGetOrSet_HitSkipsLoader() {
	val := testStruct{Name: "John", Age: 30}
	bytes, _ := json.Marshal(val)
	s.mock.ExpectGet("test:cache:key1").SetVal(string(bytes))

	called := false
	var dest testStruct
	err := s.cache.GetOrSet(context.Background(), "key1", &dest, time.Minute, func(ctx context.Context) (interface{}, error) {
		called = true
		return nil, nil
	})

	s.NoError(err)
	s.False(called)
	s.Equal(val, dest)
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestRedisCache_SetUsesExactTTLWithoutJitter(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewRedisCache(client, nil, WithoutJitter(), WithDefaultTTL(time.Hour))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", testStruct{Name: "a"}, 0))
	assert.Equal(t, time.Hour, mr.TTL("keyip:cache:a"))

	require.NoError(t, cache.Set(ctx, "b", testStruct{Name: "b"}, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("keyip:cache:b"))
}

func TestRedisCache_JitterStaysWithinTenPercent(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewRedisCache(client, nil)

	require.NoError(t, cache.Set(context.Background(), "j", 1, 100*time.Second))
	ttl := mr.TTL("keyip:cache:j")
	assert.GreaterOrEqual(t, ttl, 90*time.Second)
	assert.LessOrEqual(t, ttl, 110*time.Second)
}

func TestRedisCache_GetOrSetLoadsOnce(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewRedisCache(client, nil)
	ctx := context.Background()

	var calls int32
	loader := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return &testStruct{Name: "loaded", Age: 1}, nil
	}

	var first, second testStruct
	require.NoError(t, cache.GetOrSet(ctx, "k", &first, time.Minute, loader))
	require.NoError(t, cache.GetOrSet(ctx, "k", &second, time.Minute, loader))

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, "loaded", first.Name)
	assert.Equal(t, first, second)
}

func TestRedisCache_GetOrSetConcurrentCallersShareLoad(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewRedisCache(client, nil)
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	loader := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return map[string]int{"n": 1}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out map[string]int
			assert.NoError(t, cache.GetOrSet(ctx, "shared", &out, time.Minute, loader))
			assert.Equal(t, 1, out["n"])
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(5))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestRedisCache_GetOrSetRemembersNull(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewRedisCache(client, nil, WithNullCacheTTL(10*time.Second))
	ctx := context.Background()

	calls := 0
	loader := func(ctx context.Context) (interface{}, error) {
		calls++
		var missing *testStruct
		return missing, nil
	}

	var dest testStruct
	assert.Equal(t, ErrCacheMiss, cache.GetOrSet(ctx, "none", &dest, time.Minute, loader))
	assert.Equal(t, ErrCacheMiss, cache.GetOrSet(ctx, "none", &dest, time.Minute, loader))
	assert.Equal(t, 1, calls)

	val, err := mr.Get("keyip:cache:none")
	require.NoError(t, err)
	assert.Equal(t, nullMarker, val)
	assert.Equal(t, 10*time.Second, mr.TTL("keyip:cache:none"))

	mr.FastForward(11 * time.Second)
	assert.Equal(t, ErrCacheMiss, cache.GetOrSet(ctx, "none", &dest, time.Minute, loader))
	assert.Equal(t, 2, calls)
}

func TestRedisCache_GetOrSetLoaderError(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewRedisCache(client, nil)

	boom := errors.New("db down")
	var dest testStruct
	err := cache.GetOrSet(context.Background(), "err", &dest, time.Minute, func(ctx context.Context) (interface{}, error) {
		return nil, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("keyip:cache:err"))
}

func TestRedisCache_DeleteByPrefix(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewRedisCache(client, nil)
	ctx := context.Background()

	for _, k := range []string{"fee:FR:1", "fee:FR:2", "fee:DE:1", "country:FR"} {
		require.NoError(t, cache.Set(ctx, k, 1, time.Minute))
	}
	require.NoError(t, mr.Set("keyip:other", "x"))

	n, err := cache.DeleteByPrefix(ctx, "fee:")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.True(t, mr.Exists("keyip:cache:country:FR"))
	assert.True(t, mr.Exists("keyip:other"))
}

//Personal.AI order the ending
