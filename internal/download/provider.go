package download

import (
	"slices"
	"sync"
)

// Provider resolves configured download clients by name.
type Provider struct {
	mu      sync.RWMutex
	clients map[string]Downloader
	order   []string
}

// NewProvider creates a provider holding the given clients in priority order.
func NewProvider(clients ...Downloader) *Provider {
	p := &Provider{clients: make(map[string]Downloader)}
	for _, c := range clients {
		p.Set(c)
	}
	return p
}

// Get returns the client with the given name, or nil if it is not configured.
func (p *Provider) Get(name string) Downloader {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.clients[name]
}

// All returns every configured client in priority order.
func (p *Provider) All() []Downloader {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Downloader, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.clients[name])
	}
	return out
}

// ForProtocol returns the highest priority client for protocol, or nil.
func (p *Provider) ForProtocol(protocol Protocol) Downloader {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, name := range p.order {
		if c := p.clients[name]; c.Protocol() == protocol {
			return c
		}
	}
	return nil
}

// Set adds or replaces a client.
func (p *Provider) Set(c Downloader) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.clients[c.Name()]; !ok {
		p.order = append(p.order, c.Name())
	}
	p.clients[c.Name()] = c
}

// Remove drops a client. Items it reported stay tracked until their grace window expires.
func (p *Provider) Remove(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.clients, name)
	p.order = slices.DeleteFunc(p.order, func(n string) bool { return n == name })
}
