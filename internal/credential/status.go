package credential

import "time"

// SlotStatus is the read-only view of one slot. It never carries the secret itself.
type SlotStatus struct {
	Name       string     `json:"name"`
	KeySuffix  string     `json:"key_suffix"`
	IsActive   bool       `json:"is_active"`
	ErrorCount int        `json:"error_count"`
	UsageCount int        `json:"usage_count"`
	LastUsed   *time.Time `json:"last_used"`
}

// Status is a snapshot of the pool for the observability endpoints.
type Status struct {
	TotalKeys       int          `json:"total_keys"`
	ActiveKeys      int          `json:"active_keys"`
	CurrentKeyIndex int          `json:"current_key_index"`
	CurrentKeyName  string       `json:"current_key_name"`
	MaxErrorsPerKey int          `json:"max_errors_per_key"`
	Keys            []SlotStatus `json:"keys"`
}

// Status returns a snapshot of every slot's counters.
func (p *Pool) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := Status{
		TotalKeys:       len(p.slots),
		CurrentKeyIndex: p.current,
		MaxErrorsPerKey: p.maxErrors,
		Keys:            make([]SlotStatus, 0, len(p.slots)),
	}
	for i, s := range p.slots {
		if s.Active {
			st.ActiveKeys++
		}
		if i == p.current {
			st.CurrentKeyName = s.Label
		}
		ss := SlotStatus{
			Name:       s.Label,
			KeySuffix:  safeKeySuffix(s.Key),
			IsActive:   s.Active,
			ErrorCount: s.ErrorCount,
			UsageCount: s.UsageCount,
		}
		if !s.LastUsed.IsZero() {
			lastUsed := s.LastUsed
			ss.LastUsed = &lastUsed
		}
		st.Keys = append(st.Keys, ss)
	}
	return st
}
