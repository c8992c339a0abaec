// Package portprobe determines which TCP port a supervised process tree is
// serving on.
//
// Results are advisory. The search is a tiered heuristic over black-box
// socket listings: it can miss a port outside the well-known table and, in
// rare concurrent scenarios, attribute a port to the wrong owner. Callers
// treat a hit as a strong hint, not a guarantee.
package portprobe

import (
	"github.com/portside/portside/internal/inspect"
	"github.com/portside/portside/internal/proctree"
)

// wellKnownPorts is the last-resort scan list: the default port of each
// supported framework plus the next few slots those tools roll over to
// when the default is taken.
var wellKnownPorts = []uint16{
	4321, 4322, 4323, 4324, 4325, // astro
	3000, 3001, 3002, 3003, 3004, // next, react, nuxt
	5173, 5174, 5175, 5176, 5177, // vite, sveltekit
	8000, 8001, 8002, 8003, 8004, // deno
}

// maxOwnershipHops bounds the parent-chain walk used to attribute a
// well-known-port listener back to the probed tree.
const maxOwnershipHops = 5

// Prober locates listening ports for a pid and its descendants.
type Prober struct {
	host  inspect.Host
	depth int
	ports []uint16
}

// NewProber returns a Prober walking depth descendant levels. Non-positive
// depth selects the default; a nil port table selects the built-in
// well-known list.
func NewProber(host inspect.Host, depth int, ports []uint16) *Prober {
	if depth <= 0 {
		depth = proctree.DefaultProbeDepth
	}
	if ports == nil {
		ports = wellKnownPorts
	}
	return &Prober{host: host, depth: depth, ports: ports}
}

// FindPort returns the first TCP listening port attributable to root or
// its descendants, or 0 when nothing is found. A zero result is not an
// error; dev servers often take a moment to bind. Inspection failures on
// individual branches degrade to "no data".
//
// Tiers, returning on first hit:
//  1. sockets owned by root itself
//  2. sockets owned by any discovered descendant
//  3. well-known framework ports whose listener is root, a discovered
//     descendant, or reaches one of those by walking up its parent chain
func (p *Prober) FindPort(root int) (uint16, error) {
	if port := p.portOf(root); port != 0 {
		return port, nil
	}

	tree := proctree.Descendants(p.host, root, p.depth)
	members := make(map[int]struct{}, len(tree))
	for _, pid := range tree {
		members[pid] = struct{}{}
	}
	for _, pid := range tree[1:] {
		if port := p.portOf(pid); port != 0 {
			return port, nil
		}
	}

	for _, port := range p.ports {
		listeners, err := p.host.ListenersOnPort(port)
		if err != nil {
			continue
		}
		for _, listener := range listeners {
			if p.owns(listener, members) {
				return port, nil
			}
		}
	}
	return 0, nil
}

func (p *Prober) portOf(pid int) uint16 {
	ports, err := p.host.ListeningPorts(pid)
	if err != nil || len(ports) == 0 {
		return 0
	}
	return ports[0]
}

// owns reports whether listener belongs to the probed tree: a direct
// member, or one whose parent chain reaches a member within a bounded
// number of hops. Without the bound a coincidental listener would drag the
// walk all the way to init.
func (p *Prober) owns(listener int, members map[int]struct{}) bool {
	if _, ok := members[listener]; ok {
		return true
	}
	current := listener
	for hop := 0; hop < maxOwnershipHops; hop++ {
		parent, err := p.host.ParentOf(current)
		if err != nil {
			return false
		}
		if _, ok := members[parent]; ok {
			return true
		}
		current = parent
	}
	return false
}
