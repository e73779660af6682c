package decoder

import (
	"context"
	"fmt"
	"image"
	"log/slog"
)

// Result is a successful decode together with the name of the decoder that
// produced it.
type Result struct {
	Content string
	Decoder string
}

// AttemptObserver receives one event per decoder attempt. metrics.Recorder
// satisfies it.
type AttemptObserver interface {
	ObserveAttempt(decoder string, hit bool)
}

// Pool runs a fixed, ordered list of decoders against a raster and stops at
// the first hit. Order matters for latency only; any hit is accepted.
type Pool struct {
	decoders []Decoder
	logger   *slog.Logger
	observer AttemptObserver
}

// NewPool builds a pool from decoder names. Unknown names are rejected so a
// typo in configuration fails at startup rather than silently shrinking the
// pool.
func NewPool(names []string, logger *slog.Logger) (*Pool, error) {
	if len(names) == 0 {
		names = DefaultNames()
	}
	if logger == nil {
		logger = slog.Default()
	}
	decoders := make([]Decoder, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("decoder: duplicate name %q", name)
		}
		seen[name] = true
		d, err := byName(name)
		if err != nil {
			return nil, err
		}
		decoders = append(decoders, d)
	}
	return &Pool{decoders: decoders, logger: logger}, nil
}

func byName(name string) (Decoder, error) {
	switch name {
	case NameGoQR:
		return NewGoQR(), nil
	case NameZXingHybrid:
		return NewZXingHybrid(), nil
	case NameZXingGlobal:
		return NewZXingGlobal(), nil
	case NameZXingMulti:
		return NewZXingMulti(), nil
	}
	return nil, fmt.Errorf("decoder: unknown name %q", name)
}

// SetObserver attaches a per-attempt observer. Call before the pool is
// shared between goroutines.
func (p *Pool) SetObserver(o AttemptObserver) {
	p.observer = o
}

// Names returns the pool's decoder names in run order.
func (p *Pool) Names() []string {
	names := make([]string, len(p.decoders))
	for i, d := range p.decoders {
		names[i] = d.Name()
	}
	return names
}

// DecodeFirst tries each decoder in order and returns the first successful
// decode. A false second return means every decoder missed.
func (p *Pool) DecodeFirst(ctx context.Context, img *image.Gray) (Result, bool) {
	for _, d := range p.decoders {
		if ctx.Err() != nil {
			return Result{}, false
		}
		content, err := d.Decode(ctx, img)
		if p.observer != nil {
			p.observer.ObserveAttempt(d.Name(), err == nil)
		}
		if err != nil {
			continue
		}
		p.logger.Debug("decode hit", "decoder", d.Name(), "length", len(content))
		return Result{Content: content, Decoder: d.Name()}, true
	}
	return Result{}, false
}
