package memory

import (
	"context"
	"sync"
)

// Entitlements is a static in-memory policy table keyed by actor ID.
type Entitlements struct {
	mu          sync.RWMutex
	autoApprove map[string]bool
	approvers   map[string]bool
}

func NewEntitlements() *Entitlements {
	return &Entitlements{
		autoApprove: make(map[string]bool),
		approvers:   make(map[string]bool),
	}
}

func (e *Entitlements) GrantAutoApprove(actorID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.autoApprove[actorID] = true
}

func (e *Entitlements) GrantApprovalAuthority(actorID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.approvers[actorID] = true
}

func (e *Entitlements) HasAutoApprove(_ context.Context, actorID string, _ string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.autoApprove[actorID], nil
}

func (e *Entitlements) HasApprovalAuthority(_ context.Context, actorID string, _ string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.approvers[actorID], nil
}
