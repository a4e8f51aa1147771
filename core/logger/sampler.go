package logger

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// defaultDebugSample thins the per-update transport lines and the Mindee
// poll loop. Flow and extraction results are one line per user action and
// are never sampled.
const defaultDebugSample = "update.received=50,send.ok=20,mindee.job.poll=10"

// sampler keeps one debug event in N. A rule is keyed by event name or by
// component; the event rule wins. Each rule counts on its own, so a burst
// of transport events never hides a flow event.
type sampler struct {
	every map[string]uint64

	mu   sync.Mutex
	seen map[string]uint64
}

// newSampler parses "key=N" pairs separated by commas. N of 0 or 1 keeps
// every event.
func newSampler(spec string) (*sampler, error) {
	s := &sampler{every: map[string]uint64{}, seen: map[string]uint64{}}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, raw, ok := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("logger: debug_sample entry %q is not key=N", part)
		}
		n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("logger: debug_sample entry %q: %w", part, err)
		}
		if n > 1 {
			s.every[key] = n
		}
	}
	return s, nil
}

func (s *sampler) allow(component, event string) bool {
	if s == nil {
		return true
	}
	key := event
	n, ok := s.every[key]
	if !ok {
		key = component
		if n, ok = s.every[key]; !ok {
			return true
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[key]++
	return s.seen[key]%n == 1
}
