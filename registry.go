package main

import (
	"crypto/rand"
	"sync"
)

// Registry holds every live game behind the single process-wide lock. Handlers
// lock it, mutate, collect a fan-out plan, unlock, then deliver.
type Registry struct {
	mu    sync.Mutex
	games map[string]*Game
}

func newRegistry() *Registry {
	return &Registry{
		games: make(map[string]*Game),
	}
}

const gameCodeLength = 4

// generateCode returns a random 4-letter game code not currently in use.
// Caller holds the lock.
func (r *Registry) generateCode() string {
	for {
		code := make([]byte, gameCodeLength)
		if _, err := rand.Read(code); err != nil {
			panic(err)
		}
		for i := range code {
			code[i] = 'A' + code[i]%26
		}
		if _, exists := r.games[string(code)]; !exists {
			return string(code)
		}
	}
}

// anyHostConnected reports whether any game still has a live host connection.
// Caller holds the lock.
func (r *Registry) anyHostConnected() bool {
	for _, g := range r.games {
		if g.host != nil {
			return true
		}
	}
	return false
}
