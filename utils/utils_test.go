package utils

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Circuit Breaker Tests

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker("mail")

	assert.Equal(t, "mail", cb.Name())
	assert.Equal(t, uint32(5), cb.minRequests)
	assert.Equal(t, 0.6, cb.failureRatio)
	assert.Equal(t, 30*time.Second, cb.timeout)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_ExecuteSuccess(t *testing.T) {
	cb := NewCircuitBreaker("test")

	result, err := cb.Execute(context.Background(), func() (any, error) {
		return "sent", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "sent", result)
	assert.Equal(t, uint32(1), cb.counts.Requests)
	assert.Equal(t, uint32(1), cb.counts.TotalSuccesses)
}

func TestCircuitBreaker_ExecuteFailure(t *testing.T) {
	cb := NewCircuitBreaker("test")
	boom := errors.New("smtp down")

	result, err := cb.Execute(context.Background(), func() (any, error) {
		return nil, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, result)
	assert.Equal(t, uint32(1), cb.counts.TotalFailures)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_ClosedToOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", WithMinRequests(4), WithFailureRatio(0.5))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := cb.Execute(ctx, func() (any, error) { return nil, nil })
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		_, _ = cb.Execute(ctx, func() (any, error) { return nil, errors.New("failure") })
	}

	assert.Equal(t, StateOpen, cb.State())

	_, err := cb.Execute(ctx, func() (any, error) {
		t.Fatal("request must not run while the circuit is open")
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_OpenToHalfOpenToClosed(t *testing.T) {
	cb := NewCircuitBreaker("test", WithMinRequests(2), WithOpenTimeout(50*time.Millisecond))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = cb.Execute(ctx, func() (any, error) { return nil, errors.New("failure") })
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	_, err := cb.Execute(ctx, func() (any, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("test", WithMinRequests(2), WithOpenTimeout(50*time.Millisecond))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = cb.Execute(ctx, func() (any, error) { return nil, errors.New("failure") })
	}
	time.Sleep(80 * time.Millisecond)

	_, err := cb.Execute(ctx, func() (any, error) { return nil, errors.New("still failing") })
	assert.Error(t, err)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_HalfOpenAdmitsSingleProbe(t *testing.T) {
	cb := NewCircuitBreaker("test", WithMinRequests(1), WithOpenTimeout(20*time.Millisecond))
	ctx := context.Background()

	_, _ = cb.Execute(ctx, func() (any, error) { return nil, errors.New("failure") })
	time.Sleep(40 * time.Millisecond)

	var inner error
	_, err := cb.Execute(ctx, func() (any, error) {
		_, inner = cb.Execute(ctx, func() (any, error) { return nil, nil })
		return nil, nil
	})

	require.NoError(t, err)
	assert.ErrorIs(t, inner, ErrTooManyRequests)
}

func TestCircuitBreaker_StaleGenerationIgnored(t *testing.T) {
	cb := NewCircuitBreaker("test", WithMinRequests(1), WithFailureRatio(0.5))
	ctx := context.Background()

	// the outer request started while closed; its late failure must not
	// count against the generation opened by the inner failure
	_, _ = cb.Execute(ctx, func() (any, error) {
		_, _ = cb.Execute(ctx, func() (any, error) { return nil, errors.New("inner") })
		return nil, errors.New("outer")
	})

	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, uint32(0), cb.counts.TotalFailures)
}

func TestCircuitBreaker_CanceledContext(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cb.Execute(ctx, func() (any, error) {
		t.Fatal("request must not run with a canceled context")
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint32(0), cb.counts.Requests)
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := NewCircuitBreaker("test", WithMinRequests(1000))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = cb.Execute(ctx, func() (any, error) {
				if i%2 == 0 {
					return nil, errors.New("failure")
				}
				return nil, nil
			})
		}(i)
	}
	wg.Wait()

	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	assert.Equal(t, uint32(50), cb.counts.Requests)
	assert.Equal(t, uint32(25), cb.counts.TotalFailures)
}

func TestCircuitBreaker_PanicRecovery(t *testing.T) {
	cb := NewCircuitBreaker("test")

	assert.Panics(t, func() {
		_, _ = cb.Execute(context.Background(), func() (any, error) {
			panic("publisher exploded")
		})
	})
	assert.Equal(t, uint32(1), cb.counts.TotalFailures)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
}

// Invite code tests

func TestGenerateInviteCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := GenerateInviteCode()
		require.NoError(t, err)
		assert.Len(t, code, InviteCodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(InviteCodeAlphabet, r), "unexpected character %q", r)
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestGenerateInviteCode_NoAmbiguousCharacters(t *testing.T) {
	for _, r := range "01IO" {
		assert.False(t, strings.ContainsRune(InviteCodeAlphabet, r))
	}
	assert.Len(t, InviteCodeAlphabet, 32)
}

func TestGenerateCodeFrom_InvalidAlphabet(t *testing.T) {
	_, err := GenerateCodeFrom("", 8)
	assert.Error(t, err)
}

// WhatsApp link tests

func TestBuildWhatsAppLink(t *testing.T) {
	link := BuildWhatsAppLink("+1 (555) 010-2030", "Join our network: ABCD2345")

	require.True(t, strings.HasPrefix(link, "https://wa.me/15550102030?text="))
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "Join our network: ABCD2345", u.Query().Get("text"))
}

func TestBuildWhatsAppLink_Edges(t *testing.T) {
	assert.Equal(t, "", BuildWhatsAppLink("n/a", "hello"))
	assert.Equal(t, "https://wa.me/4479", BuildWhatsAppLink("44 79", ""))
}

// Redis Client Tests

func TestRedisHealthCheck_Success(t *testing.T) {
	db, mock := redismock.NewClientMock()

	mock.ExpectPing().SetVal("PONG")

	err := RedisHealthCheck(context.Background(), db)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisHealthCheck_Failure(t *testing.T) {
	db, mock := redismock.NewClientMock()

	mock.ExpectPing().SetErr(errors.New("connection failed"))

	err := RedisHealthCheck(context.Background(), db)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis health check failed")
	assert.Contains(t, err.Error(), "connection failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRedisClient_EmptyURL(t *testing.T) {
	client, err := NewRedisClient(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, client)
}

func BenchmarkCircuitBreaker_Execute_Success(b *testing.B) {
	cb := NewCircuitBreaker("benchmark")
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = cb.Execute(ctx, func() (any, error) { return nil, nil })
	}
}
