package credential

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"nutribot/internal/config"
)

// DefaultMaxErrors is the number of consecutive failures after which a slot is taken out of rotation.
const DefaultMaxErrors = 3

// Slot is one API key plus its usage and error bookkeeping.
type Slot struct {
	Key        string
	Label      string
	Active     bool
	UsageCount int
	ErrorCount int
	LastUsed   time.Time
}

// Credential is the key handed out for a single call. Index identifies the slot when
// reporting the outcome back to the pool.
type Credential struct {
	Index int
	Label string
	Key   string
}

// Pool rotates through a fixed set of API keys, taking a key out of rotation once it
// has failed maxErrors times in a row.
type Pool struct {
	mu        sync.Mutex
	slots     []*Slot
	current   int
	maxErrors int
	logger    *slog.Logger
	now       func() time.Time
}

// NewPool creates a pool from the configured credentials, keeping their order.
func NewPool(creds []config.Credential, maxErrors int, logger *slog.Logger) *Pool {
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrors
	}
	slots := make([]*Slot, 0, len(creds))
	for _, c := range creds {
		if c.Key == "" {
			continue
		}
		slots = append(slots, &Slot{Key: c.Key, Label: c.Label, Active: true})
	}

	p := &Pool{
		slots:     slots,
		maxErrors: maxErrors,
		logger:    logger.With("component", "credential_pool"),
		now:       time.Now,
	}
	if len(slots) == 0 {
		p.logger.Warn("No API keys configured. LLM calls will fail until keys are added.")
	} else {
		p.logger.Info("Credential pool initialized", "keys", len(slots), "max_errors_per_key", maxErrors)
	}
	return p
}

// Len returns the number of slots in the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

// MaxErrors returns the per-slot failure threshold.
func (p *Pool) MaxErrors() int {
	return p.maxErrors
}

// Current returns the credential to use for the next call. When every slot is exhausted the
// pool resets all slots and starts over from the first one rather than failing.
func (p *Pool) Current() (Credential, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.slots) == 0 {
		return Credential{}, false
	}

	if idx, ok := p.nextQualifying(p.current); ok {
		p.current = idx
		return p.credentialAt(idx), true
	}

	p.logger.Warn("All API keys exhausted, resetting every key")
	p.resetLocked()
	return p.credentialAt(0), true
}

// RecordError counts a failed call against the slot at index and takes it out of
// rotation once it reaches the threshold.
func (p *Pool) RecordError(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= len(p.slots) {
		return
	}
	s := p.slots[index]
	s.ErrorCount++
	p.logger.Warn("API key call failed", "key", s.Label, "key_suffix", safeKeySuffix(s.Key), "errors", s.ErrorCount)

	if s.ErrorCount < p.maxErrors {
		return
	}
	if s.Active {
		s.Active = false
		p.logger.Warn("Disabling key due to reaching failure threshold", "key", s.Label, "key_suffix", safeKeySuffix(s.Key), "failures", s.ErrorCount)
	}
	if index != p.current {
		return
	}
	// When nothing else qualifies the index stays put and the next Current call resets the pool.
	if next, ok := p.nextQualifying(index + 1); ok {
		p.current = next
		p.logger.Info("Switched to next API key", "key", p.slots[next].Label, "index", next)
	}
}

// RecordSuccess clears the error count of the slot at index and puts it back into rotation.
func (p *Pool) RecordSuccess(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= len(p.slots) {
		return
	}
	s := p.slots[index]
	if s.ErrorCount > 0 || !s.Active {
		p.logger.Info("Re-activating key after successful request", "key", s.Label, "old_failures", s.ErrorCount)
	}
	s.ErrorCount = 0
	s.UsageCount++
	s.Active = true
	s.LastUsed = p.now()
}

// Reset reactivates every slot, clears error counts and starts again from the first slot.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	p.logger.Info("All API keys have been reset")
}

// CheckHealth probes every slot. Failing keys are pushed to the threshold and disabled,
// passing keys are reactivated.
func (p *Pool) CheckHealth(ctx context.Context, prober Prober) {
	p.mu.Lock()
	type probe struct {
		index int
		key   string
		label string
	}
	probes := make([]probe, len(p.slots))
	for i, s := range p.slots {
		probes[i] = probe{index: i, key: s.Key, label: s.Label}
	}
	p.mu.Unlock()

	if len(probes) == 0 {
		return
	}
	p.logger.Info("Starting health check for all keys", "count", len(probes))

	var wg sync.WaitGroup
	for _, pr := range probes {
		wg.Add(1)
		go func(pr probe) {
			defer wg.Done()
			if err := prober.Probe(ctx, pr.key); err != nil {
				p.logger.Warn("Key failed health check, disabling it", "key", pr.label, "key_suffix", safeKeySuffix(pr.key), "error", err)
				p.disable(pr.index)
				return
			}
			p.mu.Lock()
			s := p.slots[pr.index]
			if !s.Active || s.ErrorCount > 0 {
				p.logger.Info("Key passed health check, re-activating it", "key", pr.label)
				s.Active = true
				s.ErrorCount = 0
			}
			p.mu.Unlock()
		}(pr)
	}
	wg.Wait()
	p.logger.Info("Finished health check for all keys")
}

// disable forces the slot at index to its threshold through the regular error path.
func (p *Pool) disable(index int) {
	p.mu.Lock()
	if index >= len(p.slots) {
		p.mu.Unlock()
		return
	}
	if p.slots[index].ErrorCount < p.maxErrors-1 {
		p.slots[index].ErrorCount = p.maxErrors - 1
	}
	p.mu.Unlock()
	p.RecordError(index)
}

// nextQualifying scans from start, wrapping once, for a slot that is active and under the threshold.
// The caller must hold the lock.
func (p *Pool) nextQualifying(start int) (int, bool) {
	n := len(p.slots)
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		s := p.slots[idx]
		if s.Active && s.ErrorCount < p.maxErrors {
			return idx, true
		}
	}
	return 0, false
}

func (p *Pool) resetLocked() {
	for _, s := range p.slots {
		s.ErrorCount = 0
		s.Active = true
	}
	p.current = 0
}

func (p *Pool) credentialAt(idx int) Credential {
	s := p.slots[idx]
	return Credential{Index: idx, Label: s.Label, Key: s.Key}
}

// safeKeySuffix returns the last 4 characters of a key, or the full key if it's shorter.
func safeKeySuffix(key string) string {
	if len(key) > 4 {
		return key[len(key)-4:]
	}
	return key
}
