package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rastreador-precos/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// ErrRateLimitTimeout indica que o contexto acabou antes da vez da requisição
var ErrRateLimitTimeout = errors.New("tempo esgotado aguardando o limitador")

const keyPrefix = "rastreador:ratelimit:"

// reserveLua guarda por chave o instante teórico (ms) da próxima requisição.
// Devolve 0 e avança o instante quando a requisição pode sair agora,
// ou quantos ms faltam para ela poder sair.
const reserveLua = `
local now = tonumber(ARGV[1])
local interval = tonumber(ARGV[2])
local tolerance = tonumber(ARGV[3])

local tat = tonumber(redis.call("GET", KEYS[1]))
if tat == nil or tat < now then
  tat = now
end

local wait = tat - tolerance - now
if wait > 0 then
  return wait
end

tat = tat + interval
redis.call("SET", KEYS[1], tat, "PX", tat - now + tolerance)
return 0
`

// RateLimiter espaça as requisições de cada loja (GCRA no Redis).
// Até burst requisições saem juntas; depois, uma a cada 1/rate segundos.
// Vários processos apontando para o mesmo Redis dividem o mesmo limite.
type RateLimiter struct {
	rdb       *redis.Client
	interval  time.Duration
	tolerance time.Duration
	logger    *slog.Logger
	script    *redis.Script
}

// New cria o limitador; rate em requisições por segundo. Com rate <= 0 devolve nil, que não limita.
func New(rdb *redis.Client, logger *slog.Logger, rate, burst float64) *RateLimiter {
	if rate <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	interval := time.Duration(float64(time.Second) / rate)
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	return &RateLimiter{
		rdb:       rdb,
		interval:  interval,
		tolerance: time.Duration(float64(interval) * (burst - 1)),
		logger:    logger,
		script:    redis.NewScript(reserveLua),
	}
}

// Acquire espera a vez de host ou até ctx acabar
func (r *RateLimiter) Acquire(ctx context.Context, host string) error {
	if r == nil {
		return nil
	}

	start := time.Now()
	defer func() { metrics.RateLimitWait.Observe(time.Since(start).Seconds()) }()

	for {
		wait, err := r.reserve(ctx, keyPrefix+host)
		if err != nil {
			return err
		}
		if wait <= 0 {
			return nil
		}
		r.logger.Debug("aguardando limitador", "host", host, "wait", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ErrRateLimitTimeout
		case <-timer.C:
		}
	}
}

func (r *RateLimiter) reserve(ctx context.Context, key string) (time.Duration, error) {
	waitMs, err := r.script.Run(ctx, r.rdb, []string{key},
		time.Now().UnixMilli(), r.interval.Milliseconds(), r.tolerance.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("ratelimit: %w", err)
	}
	return time.Duration(waitMs) * time.Millisecond, nil
}
