// Package auth resolves request credentials to actors. API keys come from a
// key ring built once at startup; bearer tokens are optional HS256 JWTs.
package auth

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"mic/pkg/requestcontext"
)

// KeyRing maps API keys to actors. It is immutable after ParseKeyRing and safe
// for concurrent use. Keys are held as SHA-256 digests.
type KeyRing struct {
	actors map[[sha256.Size]byte]requestcontext.Actor
}

// ParseKeyRing parses "key:actor_type:actor_id" entries separated by commas.
// Blank entries are ignored; malformed or duplicate entries are errors.
func ParseKeyRing(spec string) (*KeyRing, error) {
	kr := &KeyRing{actors: make(map[[sha256.Size]byte]requestcontext.Actor)}
	for i, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("api key entry %d: want key:actor_type:actor_id", i+1)
		}
		key, actorType, actorID := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2])
		if key == "" || actorType == "" || actorID == "" {
			return nil, fmt.Errorf("api key entry %d: empty field", i+1)
		}
		digest := sha256.Sum256([]byte(key))
		if _, dup := kr.actors[digest]; dup {
			return nil, fmt.Errorf("api key entry %d: duplicate key", i+1)
		}
		kr.actors[digest] = requestcontext.Actor{Type: actorType, ID: actorID}
	}
	return kr, nil
}

// Lookup returns the actor registered for key.
func (k *KeyRing) Lookup(key string) (requestcontext.Actor, bool) {
	if k == nil || key == "" {
		return requestcontext.Actor{}, false
	}
	actor, ok := k.actors[sha256.Sum256([]byte(key))]
	return actor, ok
}

// Len returns the number of registered keys.
func (k *KeyRing) Len() int {
	if k == nil {
		return 0
	}
	return len(k.actors)
}
