package api

import (
	"sync"

	"github.com/google/uuid"

	"schoolwijzer/internal/assembler"
	"schoolwijzer/internal/conversation"
)

// registry tracks live conversations by id. Guest conversations exist only
// here; owned conversations are additionally synchronized to the store.
// Because a conversation's id is remapped to the store-assigned id on first
// synchronization, entries are re-keyed after every turn.
type registry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*entry
}

type entry struct {
	conv    *conversation.Conversation
	profile *assembler.Profile
}

func newRegistry() *registry {
	return &registry{entries: make(map[uuid.UUID]*entry)}
}

func (r *registry) add(conv *conversation.Conversation, profile *assembler.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[conv.ID()] = &entry{conv: conv, profile: profile}
}

func (r *registry) get(id uuid.UUID) (*conversation.Conversation, *assembler.Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, nil, false
	}
	return e.conv, e.profile, true
}

// rekey moves a conversation from its old id to its current one after a
// store remap. A no-op when the id did not change.
func (r *registry) rekey(oldID uuid.UUID, conv *conversation.Conversation) {
	newID := conv.ID()
	if oldID == newID {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[oldID]; ok {
		delete(r.entries, oldID)
		r.entries[newID] = e
	}
}

func (r *registry) remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}
