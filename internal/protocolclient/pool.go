package protocolclient

import (
	"context"
	"fmt"
	"sync"

	"streamvault/internal/models"
)

// Pool caches one connected Client per source so the Indexer's directory
// walk and the Streamer's range reads don't pay a fresh FTP/SMB handshake
// per file.
type Pool struct {
	serverSecret string
	mu           sync.Mutex
	clients      map[int64]Client
}

func NewPool(serverSecret string) *Pool {
	return &Pool{serverSecret: serverSecret, clients: map[int64]Client{}}
}

// Get returns a connected Client for source, building and caching one on
// first use.
func (p *Pool) Get(ctx context.Context, source *models.Source) (Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[source.ID]; ok {
		return c, nil
	}

	c, err := p.build(source)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	p.clients[source.ID] = c
	return c, nil
}

// Invalidate drops a cached connection, e.g. after a source's credentials
// change or a Transient error suggests the connection went stale.
func (p *Pool) Invalidate(sourceID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[sourceID]; ok {
		c.Close()
		delete(p.clients, sourceID)
	}
}

func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, c := range p.clients {
		c.Close()
		delete(p.clients, id)
	}
}

func (p *Pool) build(source *models.Source) (Client, error) {
	var creds Credentials
	if source.EncryptedCredential != nil && *source.EncryptedCredential != "" {
		decrypted, err := Decrypt(p.serverSecret, *source.EncryptedCredential)
		if err != nil {
			return nil, err
		}
		creds = decrypted
	}

	basePath := ""
	if source.BasePath != nil {
		basePath = *source.BasePath
	}

	switch source.Protocol {
	case models.SourceLocal:
		return NewLocal(basePath), nil
	case models.SourceFTP:
		return NewFTP(hostPort(source), basePath, creds), nil
	case models.SourceSMB:
		domain := ""
		if source.Domain != nil {
			domain = *source.Domain
		}
		creds.Domain = domain
		return NewSMB(hostPort(source), basePath, "", creds), nil
	case models.SourceUPnP:
		host := ""
		if source.Host != nil {
			host = *source.Host
		}
		return NewUPnP(host), nil
	default:
		return nil, fmt.Errorf("protocolclient: unknown protocol %q", source.Protocol)
	}
}

func hostPort(source *models.Source) string {
	host := ""
	if source.Host != nil {
		host = *source.Host
	}
	if source.Port != nil {
		return fmt.Sprintf("%s:%d", host, *source.Port)
	}
	return host
}
