package knowledge

import (
	"fmt"
	"strings"

	"github.com/Stryk91/PhiSHRI/internal/door"
)

// Chain is an ordered set of doors ready to be read front to back.
type Chain struct {
	Doors                 []*door.Door
	Order                 []string
	PrerequisitesIncluded bool
}

// Text renders the load order followed by the full text of every door.
func (c *Chain) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Door Chain (%d doors)\n\n", len(c.Doors))
	if c.PrerequisitesIncluded {
		b.WriteString("*Prerequisites automatically included*\n\n")
	}
	b.WriteString("## Load Order\n")
	for i, code := range c.Order {
		fmt.Fprintf(&b, "%d. %s\n", i+1, code)
	}
	b.WriteString("\n---\n\n")
	for _, d := range c.Doors {
		b.WriteString(d.FullText())
		b.WriteString("\n---\n\n")
	}
	return b.String()
}

// LoadChain loads codes and, when includePrereqs is set, their transitive
// prerequisites. Traversal is depth-first over an explicit stack; the
// visit order is reversed at the end so prerequisites come before the
// doors that need them along a single prerequisite path. The result is not
// a full topological sort: with A needing B and C, and B needing C, the
// order is B, C, A, and seeds that depend on each other keep their
// request order. Any door that cannot be loaded aborts the whole chain.
func (m *Manager) LoadChain(codes []string, includePrereqs bool) (*Chain, error) {
	seen := make(map[string]bool)
	stack := make([]string, 0, len(codes))
	for _, c := range codes {
		stack = append(stack, door.NormalizeCode(c))
	}

	chain := &Chain{PrerequisitesIncluded: includePrereqs}
	for len(stack) > 0 {
		code := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[code] {
			continue
		}

		d, err := m.store.LoadDocument(code)
		if err != nil {
			return nil, fmt.Errorf("loading chain member %s: %w", code, err)
		}
		resolved := door.NormalizeCode(d.DoorCode)
		seen[code] = true
		seen[resolved] = true

		if includePrereqs {
			for _, p := range d.ContextBundle.Prerequisites {
				if p := door.NormalizeCode(p); p != "" && !seen[p] {
					stack = append(stack, p)
				}
			}
		}
		chain.Order = append(chain.Order, resolved)
		chain.Doors = append(chain.Doors, d)
	}

	reverse(chain.Order)
	reverse(chain.Doors)
	return chain, nil
}

// prereqFrame is one door on the prerequisite walk: its code, its
// prerequisite list and how far through that list the walk has got.
type prereqFrame struct {
	code    string
	prereqs []string
	next    int
}

// GetPrerequisites returns the transitive prerequisites of code in reading
// order, ending with code itself. Prerequisites that cannot be loaded are
// listed as "CODE[MISSING]" and the walk carries on; only a missing target
// door is an error. Each code appears at most once, so cycles terminate.
func (m *Manager) GetPrerequisites(code string) ([]string, error) {
	target, err := m.store.LoadDocument(code)
	if err != nil {
		return nil, err
	}

	root := door.NormalizeCode(target.DoorCode)
	seen := map[string]bool{root: true, door.NormalizeCode(code): true}
	stack := []*prereqFrame{{code: root, prereqs: target.ContextBundle.Prerequisites}}
	var out []string

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.prereqs) {
			stack = stack[:len(stack)-1]
			out = append(out, top.code)
			continue
		}

		p := door.NormalizeCode(top.prereqs[top.next])
		top.next++
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true

		d, err := m.store.LoadDocument(p)
		if err != nil {
			out = append(out, p+"[MISSING]")
			continue
		}
		stack = append(stack, &prereqFrame{code: p, prereqs: d.ContextBundle.Prerequisites})
	}
	return out, nil
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
