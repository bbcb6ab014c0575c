package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/rs/zerolog/log"
)

// ErrToolNotFound is returned by Dispatch when no registered server
// advertises the requested tool name.
var ErrToolNotFound = errors.New("tool not found")

// Tool describes a callable operation advertised by a tool server.
// Immutable after registration.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Session is a live connection to a tool server. Content returned by
// CallTool is raw: a string, a structured object, or a list whose elements
// may carry a text field. It must go through the normalize package before
// structural use.
type Session interface {
	ListTools(ctx context.Context) ([]Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (any, error)
	Close() error
}

type serverEntry struct {
	session Session
	tools   []Tool
}

// Registry maps tool names to the server that owns them and routes
// dispatches to the owning session. Registration is mutex-guarded so
// concurrent first-requests cannot race to populate it; at steady state the
// maps are effectively append-free and reads go through the RLock.
type Registry struct {
	mu        sync.RWMutex
	servers   map[string]*serverEntry
	order     []string          // server registration order, for stable catalogs
	toolOwner map[string]string // tool name -> server id, last registration wins
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		servers:   make(map[string]*serverEntry),
		toolOwner: make(map[string]string),
	}
}

// Register lists the session's tools and records them under serverID.
// Re-registering a serverID replaces its tool set; tool names collide
// globally and the last registration wins.
func (r *Registry) Register(ctx context.Context, serverID string, session Session) error {
	tools, err := session.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("list tools on %q: %w", serverID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.servers[serverID]; ok {
		// Drop stale name mappings still pointing at this server.
		for _, t := range prev.tools {
			if r.toolOwner[t.Name] == serverID {
				delete(r.toolOwner, t.Name)
			}
		}
	} else {
		r.order = append(r.order, serverID)
	}

	r.servers[serverID] = &serverEntry{session: session, tools: tools}
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		r.toolOwner[t.Name] = serverID
		names = append(names, t.Name)
	}

	log.Info().Str("server", serverID).Strs("tools", names).Msg("Registered tool server")
	return nil
}

// Has reports whether a tool name is currently registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.toolOwner[name]
	return ok
}

// Dispatch routes a tool call to the owning server's session and returns its
// raw content unmodified.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	serverID, ok := r.toolOwner[name]
	var session Session
	if ok {
		session = r.servers[serverID].session
	}
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	log.Debug().Str("server", serverID).Str("tool", name).Interface("args", args).Msg("Dispatching tool call")
	return session.CallTool(ctx, name, args)
}

// ListAllTools returns every registered tool in a stable order: server
// registration order, then per-server listing order. Tools shadowed by a
// later registration of the same name are omitted so the catalog offered to
// the model matches what Dispatch would actually route.
func (r *Registry) ListAllTools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []Tool
	for _, id := range r.order {
		for _, t := range r.servers[id].tools {
			if r.toolOwner[t.Name] == id {
				all = append(all, t)
			}
		}
	}
	return all
}

// Close tears down every session. Errors are logged, not returned, since
// shutdown should proceed past a single failed transport.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, entry := range r.servers {
		if err := entry.session.Close(); err != nil {
			log.Warn().Err(err).Str("server", id).Msg("Failed to close tool server session")
		}
	}
	r.servers = make(map[string]*serverEntry)
	r.toolOwner = make(map[string]string)
	r.order = nil
}
