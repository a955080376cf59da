package pipeline

import (
	"bytes"
	"sort"
	"sync"

	"github.com/SparkyNY/worldmonitor/config"
)

// fingerprintOf reduces a source configuration to a stable pipe-joined
// key. Two refreshes with the same fingerprint are interchangeable, so
// concurrent callers can share one in-flight fetch.
func fingerprintOf(src config.SourceConfig) string {
	var b bytes.Buffer
	write := func(parts ...string) {
		for _, p := range parts {
			if b.Len() > 0 {
				b.WriteByte('|')
			}
			b.WriteString(p)
		}
	}
	write(src.Dataset, src.Mode, src.Feed)
	for _, tier := range src.Tiers {
		write(tier.Name, tier.URL)
		keys := make([]string, 0, len(tier.Params))
		for k := range tier.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			write(k + "=" + tier.Params[k])
		}
	}
	return b.String()
}

type call struct {
	done    chan struct{}
	payload Payload
	err     error
}

// flightGroup de-duplicates concurrent refreshes for the same
// fingerprint: the first caller performs the work, the rest block on the
// same outcome.
type flightGroup struct {
	mu       sync.Mutex
	inflight map[string]*call
}

func newFlightGroup() *flightGroup {
	return &flightGroup{inflight: map[string]*call{}}
}

func (g *flightGroup) do(key string, fn func() (Payload, error)) (Payload, error) {
	g.mu.Lock()
	if c, ok := g.inflight[key]; ok {
		g.mu.Unlock()
		<-c.done
		return c.payload, c.err
	}
	c := &call{done: make(chan struct{})}
	g.inflight[key] = c
	g.mu.Unlock()

	c.payload, c.err = fn()

	g.mu.Lock()
	delete(g.inflight, key)
	g.mu.Unlock()
	close(c.done)
	return c.payload, c.err
}
