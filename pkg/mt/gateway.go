package mt

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hotelier-tech/lingua-engine/pkg/apperrors"
	"github.com/hotelier-tech/lingua-engine/pkg/models"
)

// GatewayConfig bounds the fallback chain.
type GatewayConfig struct {
	// MaxAttempts caps provider attempts per request.
	MaxAttempts int
	// AttemptTimeout is the per-provider call timeout.
	AttemptTimeout time.Duration
	// ChainDeadline is the overall deadline across the fallback chain.
	ChainDeadline time.Duration
	// Breaker configures the per-provider circuit breakers.
	Breaker CircuitBreakerConfig
}

// DefaultGatewayConfig returns the documented defaults: 3 attempts, 10s per
// attempt, 30s per chain.
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		MaxAttempts:    3,
		AttemptTimeout: 10 * time.Second,
		ChainDeadline:  30 * time.Second,
		Breaker:        DefaultCircuitBreakerConfig(),
	}
}

// Gateway is the uniform façade over the registered translation providers.
// Selection follows the caller's provider preferences by priority; unhealthy
// providers are skipped and failures fall through to the next provider.
type Gateway struct {
	cfg       GatewayConfig
	order     []string
	providers map[string]Provider
	breakers  map[string]*CircuitBreaker
	logger    *zap.Logger
}

// NewGateway creates an empty gateway; register providers before use.
func NewGateway(cfg GatewayConfig, logger *zap.Logger) *Gateway {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	if cfg.ChainDeadline <= 0 {
		cfg.ChainDeadline = 30 * time.Second
	}
	if cfg.Breaker.Threshold == 0 {
		cfg.Breaker = DefaultCircuitBreakerConfig()
	}
	return &Gateway{
		cfg:       cfg,
		providers: make(map[string]Provider),
		breakers:  make(map[string]*CircuitBreaker),
		logger:    logger.Named("mt-gateway"),
	}
}

// Register adds a provider. Registration order is the fallback order when a
// request carries no preferences.
func (g *Gateway) Register(p Provider) {
	name := p.Name()
	if _, exists := g.providers[name]; !exists {
		g.order = append(g.order, name)
	}
	g.providers[name] = p
	g.breakers[name] = NewCircuitBreaker(name, g.cfg.Breaker)
}

// candidates resolves the provider chain for the given preferences: ranked
// by priority ascending, inactive entries dropped, unknown names ignored.
func (g *Gateway) candidates(prefs []models.ProviderPreference) []Provider {
	if len(prefs) == 0 {
		out := make([]Provider, 0, len(g.order))
		for _, name := range g.order {
			out = append(out, g.providers[name])
		}
		return out
	}

	ranked := make([]models.ProviderPreference, 0, len(prefs))
	for _, pref := range prefs {
		if pref.IsActive {
			ranked = append(ranked, pref)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Priority < ranked[j].Priority })

	out := make([]Provider, 0, len(ranked))
	for _, pref := range ranked {
		if p, ok := g.providers[pref.Name]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Translate routes a request down the fallback chain. All-failed or
// all-skipped ends with a provider_unavailable error; exceeding the chain
// deadline ends with a timeout error.
func (g *Gateway) Translate(ctx context.Context, req Request, prefs []models.ProviderPreference) (*Result, error) {
	chain := g.candidates(prefs)
	if len(chain) == 0 {
		return nil, apperrors.ProviderUnavailable(nil, "no translation providers configured")
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.ChainDeadline)
	defer cancel()

	var lastErr error
	attempts := 0

	for _, provider := range chain {
		if attempts >= g.cfg.MaxAttempts {
			break
		}
		if ctx.Err() != nil {
			break
		}

		breaker := g.breakers[provider.Name()]
		if allowed, reason := breaker.Allow(); !allowed {
			g.logger.Debug("skipping unhealthy provider",
				zap.String("provider", provider.Name()),
				zap.Error(reason))
			continue
		}

		attempts++
		attemptCtx, attemptCancel := context.WithTimeout(ctx, g.cfg.AttemptTimeout)
		result, err := provider.Translate(attemptCtx, req)
		attemptCancel()

		if err == nil {
			breaker.RecordSuccess()
			result.Provider = provider.Name()
			return result, nil
		}

		breaker.RecordFailure()
		lastErr = ClassifyError(provider.Name(), err)
		g.logger.Warn("provider attempt failed",
			zap.String("provider", provider.Name()),
			zap.Int("attempt", attempts),
			zap.Error(lastErr))
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, apperrors.Timeout(lastErr, "translation chain exceeded %s deadline", g.cfg.ChainDeadline)
	}
	return nil, apperrors.ProviderUnavailable(lastErr, "all translation providers failed or were skipped")
}

// DetectLanguage asks the first healthy provider to identify the language.
func (g *Gateway) DetectLanguage(ctx context.Context, text string) (*Detection, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.ChainDeadline)
	defer cancel()

	var lastErr error
	for _, name := range g.order {
		breaker := g.breakers[name]
		if allowed, _ := breaker.Allow(); !allowed {
			continue
		}

		attemptCtx, attemptCancel := context.WithTimeout(ctx, g.cfg.AttemptTimeout)
		detection, err := g.providers[name].DetectLanguage(attemptCtx, text)
		attemptCancel()

		if err == nil {
			breaker.RecordSuccess()
			return detection, nil
		}
		breaker.RecordFailure()
		lastErr = ClassifyError(name, err)
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, apperrors.Timeout(lastErr, "language detection exceeded deadline")
	}
	return nil, apperrors.ProviderUnavailable(lastErr, "no provider could detect the language")
}

// SupportedLanguages returns the union of all providers' supported codes.
func (g *Gateway) SupportedLanguages(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var codes []string

	for _, name := range g.order {
		supported, err := g.providers[name].SupportedLanguages(ctx)
		if err != nil {
			g.logger.Debug("supported-languages lookup failed",
				zap.String("provider", name), zap.Error(err))
			continue
		}
		for _, code := range supported {
			if !seen[code] {
				seen[code] = true
				codes = append(codes, code)
			}
		}
	}

	if len(codes) == 0 {
		return nil, apperrors.ProviderUnavailable(nil, "no provider reported supported languages")
	}
	sort.Strings(codes)
	return codes, nil
}

// Health reports per-provider advisory health in registration order.
func (g *Gateway) Health() []ProviderHealth {
	out := make([]ProviderHealth, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.breakers[name].Health())
	}
	return out
}
