package rfdc

import (
	"context"
	"fmt"
	"time"

	"github.com/cyberinferno/rftool/cacher"
	"github.com/cyberinferno/rftool/logger"
)

// CachedConverter serves read-backs from a cache and invalidates a block's
// entries whenever one of its settings changes. Keys have the form
// kind:tile:block:op so one prefix covers every read-back of a block.
type CachedConverter struct {
	Converter

	mixers cacher.Cacher[MixerSettings]
	values cacher.Cacher[uint32]
	ttl    time.Duration
	log    logger.Logger
}

// NewCachedConverter wraps conv.
//
// Parameters:
//   - conv: The converter that owns the state
//   - mixers: Cache for mixer read-backs
//   - values: Cache for factor and mode read-backs
//   - ttl: Lifetime of a cached read-back
//   - log: Receives cache invalidation failures; may be nil
//
// Returns:
//   - The caching decorator
func NewCachedConverter(conv Converter, mixers cacher.Cacher[MixerSettings], values cacher.Cacher[uint32], ttl time.Duration, log logger.Logger) *CachedConverter {
	if log == nil {
		log = logger.NewNop()
	}

	return &CachedConverter{
		Converter: conv,
		mixers:    mixers,
		values:    values,
		ttl:       ttl,
		log:       log.With(logger.Field{Key: "component", Value: "readback_cache"}),
	}
}

func blockPrefix(kind Kind, tile, block uint32) string {
	return fmt.Sprintf("%d:%d:%d:", kind, tile, block)
}

func cacheKey(kind Kind, tile, block uint32, op Op) string {
	return blockPrefix(kind, tile, block) + string(op)
}

// GetMixerSettings implements Converter.
func (c *CachedConverter) GetMixerSettings(ctx context.Context, kind Kind, tile, block uint32) (MixerSettings, error) {
	return c.mixers.GetOrFetch(ctx, cacheKey(kind, tile, block, OpGetMixerSettings), c.ttl, func(ctx context.Context) (MixerSettings, error) {
		return c.Converter.GetMixerSettings(ctx, kind, tile, block)
	})
}

// SetMixerSettings implements Converter.
func (c *CachedConverter) SetMixerSettings(ctx context.Context, kind Kind, tile, block uint32, settings MixerSettings) error {
	defer c.invalidate(ctx, kind, tile, block)
	return c.Converter.SetMixerSettings(ctx, kind, tile, block, settings)
}

// UpdateEvent implements Converter.
func (c *CachedConverter) UpdateEvent(ctx context.Context, kind Kind, tile, block, event uint32) error {
	defer c.invalidate(ctx, kind, tile, block)
	return c.Converter.UpdateEvent(ctx, kind, tile, block, event)
}

// GetDecimationFactor implements Converter.
func (c *CachedConverter) GetDecimationFactor(ctx context.Context, tile, block uint32) (uint32, error) {
	return c.values.GetOrFetch(ctx, cacheKey(ADC, tile, block, OpGetDecimationFactor), c.ttl, func(ctx context.Context) (uint32, error) {
		return c.Converter.GetDecimationFactor(ctx, tile, block)
	})
}

// SetDecimationFactor implements Converter.
func (c *CachedConverter) SetDecimationFactor(ctx context.Context, tile, block, factor uint32) error {
	defer c.invalidate(ctx, ADC, tile, block)
	return c.Converter.SetDecimationFactor(ctx, tile, block, factor)
}

// GetInterpolationFactor implements Converter.
func (c *CachedConverter) GetInterpolationFactor(ctx context.Context, tile, block uint32) (uint32, error) {
	return c.values.GetOrFetch(ctx, cacheKey(DAC, tile, block, OpGetInterpolationFactor), c.ttl, func(ctx context.Context) (uint32, error) {
		return c.Converter.GetInterpolationFactor(ctx, tile, block)
	})
}

// SetInterpolationFactor implements Converter.
func (c *CachedConverter) SetInterpolationFactor(ctx context.Context, tile, block, factor uint32) error {
	defer c.invalidate(ctx, DAC, tile, block)
	return c.Converter.SetInterpolationFactor(ctx, tile, block, factor)
}

// GetDataPathMode implements Converter.
func (c *CachedConverter) GetDataPathMode(ctx context.Context, tile, block uint32) (uint32, error) {
	return c.values.GetOrFetch(ctx, cacheKey(DAC, tile, block, OpGetDataPathMode), c.ttl, func(ctx context.Context) (uint32, error) {
		return c.Converter.GetDataPathMode(ctx, tile, block)
	})
}

// SetDataPathMode implements Converter.
func (c *CachedConverter) SetDataPathMode(ctx context.Context, tile, block, mode uint32) error {
	defer c.invalidate(ctx, DAC, tile, block)
	return c.Converter.SetDataPathMode(ctx, tile, block, mode)
}

// SetClkDistribution implements Converter. Sample rates may change, so the
// whole cache is dropped.
func (c *CachedConverter) SetClkDistribution(ctx context.Context, settings DistributionSettings) error {
	defer c.clear(ctx)
	return c.Converter.SetClkDistribution(ctx, settings)
}

// invalidate drops cached read-backs of a block. A failure is logged and the
// stale entry is served until its TTL expires.
func (c *CachedConverter) invalidate(ctx context.Context, kind Kind, tile, block uint32) {
	prefix := blockPrefix(kind, tile, block)

	if _, err := c.mixers.DeleteByPrefix(ctx, prefix); err != nil {
		c.warn("mixer read-back invalidation failed", prefix, err)
	}
	if _, err := c.values.DeleteByPrefix(ctx, prefix); err != nil {
		c.warn("value read-back invalidation failed", prefix, err)
	}
}

func (c *CachedConverter) clear(ctx context.Context) {
	if err := c.mixers.Clear(ctx); err != nil {
		c.warn("mixer read-back clear failed", "", err)
	}
	if err := c.values.Clear(ctx); err != nil {
		c.warn("value read-back clear failed", "", err)
	}
}

func (c *CachedConverter) warn(msg, prefix string, err error) {
	fields := []logger.Field{{Key: "error", Value: err.Error()}}
	if prefix != "" {
		fields = append(fields, logger.Field{Key: "prefix", Value: prefix})
	}

	c.log.Warn(msg, fields...)
}

// Close releases both caches.
func (c *CachedConverter) Close() error {
	err := c.mixers.Close()
	if verr := c.values.Close(); err == nil {
		err = verr
	}

	return err
}
