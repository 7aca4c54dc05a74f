package perftest

import "sync"

// registry maps a name to an Impl. Because a perftest child is a fresh
// execution of the same binary (re-exec substitutes for fork — see
// platform.SpawnProcess), the child has none of the parent's in-memory
// closures; it only has whatever got registered by the time its own
// main() reaches MaybeRunChild(). Callers must therefore register every
// Impl they intend to run via Exec, unconditionally, before calling
// MaybeRunChild() — typically from an init() func or the top of main(),
// so the registration happens identically whether this process turns out
// to be the parent or a re-exec'd child.
var registry struct {
	sync.RWMutex
	byName map[string]Impl
}

// Register associates name with impl for later lookup by Exec and by
// re-exec'd children. Registering the same name twice replaces the prior
// entry.
func Register(name string, impl Impl) {
	registry.Lock()
	defer registry.Unlock()
	if registry.byName == nil {
		registry.byName = make(map[string]Impl)
	}
	registry.byName[name] = impl
}

func lookup(name string) (Impl, bool) {
	registry.RLock()
	defer registry.RUnlock()
	impl, ok := registry.byName[name]
	return impl, ok
}
