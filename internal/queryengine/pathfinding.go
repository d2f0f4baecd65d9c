package queryengine

import (
	"context"
	"time"

	"github.com/kgraph/kgraph/internal/apperr"
	"github.com/kgraph/kgraph/internal/graphstore"
)

const (
	defaultMaxHops = 6
	// defaultFrontierCap equals the Graph Store Facade's own neighbor-batch
	// cap (spec §4.6). A frontier over that cap makes Neighbors return a
	// ValidationError, which ShortestPath reports as a budget-exceeded result.
	defaultFrontierCap = 1000
	defaultPathTimeout = 30 * time.Second
)

// PathOptions bounds a pathfinding request (spec §4.10).
type PathOptions struct {
	MaxHops     int
	Direction   graphstore.Direction // defaults to DirectionBoth: undirected shortest path
	FrontierCap int
	Timeout     time.Duration
}

func (o PathOptions) normalized() PathOptions {
	if o.MaxHops <= 0 {
		o.MaxHops = defaultMaxHops
	}
	if o.Direction == "" {
		o.Direction = graphstore.DirectionBoth
	}
	if o.FrontierCap <= 0 {
		o.FrontierCap = defaultFrontierCap
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultPathTimeout
	}
	return o
}

// Path is one shortest path between two concepts.
type Path struct {
	ConceptIDs     []string
	BudgetExceeded bool
}

// Pathfinder runs bidirectional BFS over a Store's batched one-hop neighbor
// query — never a variable-length graph query — per spec §4.10. Each
// iteration expands whichever frontier (rooted at `from` or at `to`) is
// currently smaller, so total work is O(b^(d/2)) rather than O(b^d).
type Pathfinder struct {
	store graphstore.Store
}

func NewPathfinder(store graphstore.Store) *Pathfinder {
	return &Pathfinder{store: store}
}

// ShortestPath finds a shortest path of length <= opt.MaxHops between from
// and to using at most opt.MaxHops+1 batched neighbor queries.
func (p *Pathfinder) ShortestPath(ctx context.Context, from, to string, opt PathOptions) (Path, error) {
	opt = opt.normalized()
	if from == to {
		return Path{ConceptIDs: []string{from}}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, opt.Timeout)
	defer cancel()

	// parentFrom/parentTo map a discovered node to the node it was reached
	// from, rooted at `from` and `to` respectively. The empty string marks
	// a root (no parent). These two maps keep a fixed meaning regardless of
	// which frontier is expanded in a given iteration.
	parentFrom := map[string]string{from: ""}
	parentTo := map[string]string{to: ""}
	frontierFrom := []string{from}
	frontierTo := []string{to}

	for hop := 0; hop < opt.MaxHops; hop++ {
		select {
		case <-ctx.Done():
			return Path{BudgetExceeded: true}, nil
		default:
		}

		expandFrom := len(frontierFrom) <= len(frontierTo)
		frontier, parentMap, otherParentMap := frontierTo, parentTo, parentFrom
		if expandFrom {
			frontier, parentMap, otherParentMap = frontierFrom, parentFrom, parentTo
		}
		if len(frontier) == 0 {
			return Path{}, nil
		}

		neighbors, err := p.store.Neighbors(ctx, frontier, nil, opt.Direction)
		if err != nil {
			if apperr.Is(err, apperr.KindValidation) {
				return Path{BudgetExceeded: true}, nil
			}
			return Path{}, err
		}

		var next []string
		meet := ""
		for _, node := range frontier {
			for _, edge := range neighbors[node] {
				child := edge.OtherConceptID
				if _, seen := parentMap[child]; seen {
					continue
				}
				parentMap[child] = node
				if _, metOther := otherParentMap[child]; metOther {
					meet = child
					break
				}
				next = append(next, child)
				if len(next) >= opt.FrontierCap {
					return Path{BudgetExceeded: true}, nil
				}
			}
			if meet != "" {
				break
			}
		}
		if meet != "" {
			return buildPath(parentFrom, parentTo, meet), nil
		}
		if expandFrom {
			frontierFrom = next
		} else {
			frontierTo = next
		}
	}
	return Path{}, nil
}

// buildPath walks parentFrom from meet back to `from` (reversed into
// forward order), then walks parentTo from meet out to `to`, producing one
// contiguous chain with meet appearing once.
func buildPath(parentFrom, parentTo map[string]string, meet string) Path {
	var forward []string
	for cur := meet; ; {
		forward = append(forward, cur)
		par, ok := parentFrom[cur]
		if !ok || par == "" {
			break
		}
		cur = par
	}
	reverse(forward)

	var backward []string
	for cur := meet; ; {
		par, ok := parentTo[cur]
		if !ok || par == "" {
			break
		}
		backward = append(backward, par)
		cur = par
	}

	return Path{ConceptIDs: append(forward, backward...)}
}

func reverse(xs []string) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}
