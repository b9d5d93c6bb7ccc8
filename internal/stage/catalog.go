package stage

import (
	"fmt"
	"strings"
)

// Catalog is an immutable, validated, ordered list of stages.
// It is safe for concurrent use because it is never mutated after New.
type Catalog struct {
	stages    []Stage
	index     map[string]int
	reviewers []int // reviewer stage indexes in catalog order
	gate      int   // -1 when absent
	gateNext  int   // index the gate advances to once cleared
	fanOut    int   // -1 when absent
	final     int
	prev      []int // predecessor on the pointer path, -1 for none
}

// New validates stages and builds a Catalog. Reviewer stages declared without
// sub-steps receive the standard review/processing pair.
func New(stages []Stage) (*Catalog, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("catalog: at least one stage is required")
	}

	c := &Catalog{
		stages: make([]Stage, len(stages)),
		index:  make(map[string]int, len(stages)),
		gate:   -1,
		fanOut: -1,
		final:  -1,
	}

	for i, s := range stages {
		s = s.clone()
		if s.Role == RoleReviewer && len(s.Substeps) == 0 {
			s.Substeps = ReviewerSubsteps()
		}
		if err := validateStage(s); err != nil {
			return nil, fmt.Errorf("catalog stage[%d]: %w", i, err)
		}
		if _, dup := c.index[s.Key]; dup {
			return nil, fmt.Errorf("catalog: duplicate stage key %s", s.Key)
		}
		c.index[s.Key] = i
		c.stages[i] = s

		if s.IsReviewer() {
			c.reviewers = append(c.reviewers, i)
		}
		if s.Gate {
			if c.gate >= 0 {
				return nil, fmt.Errorf("catalog: multiple gate stages (%s, %s)", c.stages[c.gate].Key, s.Key)
			}
			c.gate = i
		}
		if s.FanOut {
			if c.fanOut >= 0 {
				return nil, fmt.Errorf("catalog: multiple fan-out stages (%s, %s)", c.stages[c.fanOut].Key, s.Key)
			}
			c.fanOut = i
		}
		if s.Final {
			if c.final >= 0 {
				return nil, fmt.Errorf("catalog: multiple final stages (%s, %s)", c.stages[c.final].Key, s.Key)
			}
			c.final = i
		}
	}

	if err := c.validateGraph(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNew is like New but panics on an invalid catalog.
func MustNew(stages []Stage) *Catalog {
	c, err := New(stages)
	if err != nil {
		panic(err)
	}
	return c
}

func validateStage(s Stage) error {
	if s.Key == "" {
		return fmt.Errorf("key is required")
	}
	if strings.ContainsAny(s.Key, "/# \t\n") {
		return fmt.Errorf("key %q must not contain '/', '#' or whitespace", s.Key)
	}
	if !s.Role.Valid() {
		return fmt.Errorf("stage %s: invalid role %q", s.Key, s.Role)
	}
	if s.IsReviewer() {
		if len(s.Substeps) != 2 ||
			s.Substeps[0].Role != SubstepReview ||
			s.Substeps[1].Role != SubstepProcessing {
			return fmt.Errorf("stage %s: reviewer must declare review then processing sub-steps", s.Key)
		}
		if s.Gate || s.FanOut || s.Final {
			return fmt.Errorf("stage %s: reviewer cannot be gate, fan-out or final", s.Key)
		}
	} else if len(s.Substeps) > 0 {
		return fmt.Errorf("stage %s: only reviewer stages may declare sub-steps", s.Key)
	}
	if s.Target != "" && !s.Gate {
		return fmt.Errorf("stage %s: target is only valid on the gate stage", s.Key)
	}
	return nil
}

func (c *Catalog) validateGraph() error {
	last := len(c.stages) - 1
	if c.final < 0 {
		return fmt.Errorf("catalog: a final stage is required")
	}
	if c.final != last {
		return fmt.Errorf("catalog: final stage %s must be last", c.stages[c.final].Key)
	}

	if c.gate >= 0 {
		if c.gate == c.final {
			return fmt.Errorf("catalog: gate stage cannot be final")
		}
		c.gateNext = c.gate + 1
		if target := c.stages[c.gate].Target; target != "" {
			idx, ok := c.index[target]
			if !ok {
				return fmt.Errorf("catalog: gate target %s is not a stage", target)
			}
			if idx <= c.gate {
				return fmt.Errorf("catalog: gate target %s must come after the gate", target)
			}
			c.gateNext = idx
		}
	}

	if c.fanOut >= 0 {
		if len(c.reviewers) == 0 {
			return fmt.Errorf("catalog: fan-out stage %s has no reviewers", c.stages[c.fanOut].Key)
		}
		if c.stages[c.fanOut].Role != RoleGenerator {
			return fmt.Errorf("catalog: fan-out stage %s must be a generator", c.stages[c.fanOut].Key)
		}
		if c.reviewers[0] <= c.fanOut {
			return fmt.Errorf("catalog: reviewers must follow fan-out stage %s", c.stages[c.fanOut].Key)
		}
	}

	c.linkPath()
	return nil
}

// successor returns the stage the pointer moves to once stage i is cleared.
// It must not be called for the final stage.
func (c *Catalog) successor(i int) int {
	switch {
	case i == c.gate:
		return c.gateNext
	case i == c.fanOut:
		return c.reviewers[0]
	case c.stages[i].IsReviewer():
		return c.NextReviewer(i)
	}
	return i + 1
}

// linkPath records the predecessor of every stage. Stages the pointer
// passes through follow the path from the first stage to the final one,
// which can skip stages after the gate, the fan-out or the last reviewer.
// Stages off that path keep their catalog neighbour.
func (c *Catalog) linkPath() {
	c.prev = make([]int, len(c.stages))
	for i := range c.prev {
		c.prev[i] = i - 1
	}
	for i := 0; i != c.final; {
		next := c.successor(i)
		c.prev[next] = i
		i = next
	}
}

// Len returns the number of stages.
func (c *Catalog) Len() int {
	return len(c.stages)
}

// At returns the stage at index i. It panics if i is out of range.
func (c *Catalog) At(i int) Stage {
	return c.stages[i].clone()
}

// Key returns the key of the stage at index i.
func (c *Catalog) Key(i int) string {
	return c.stages[i].Key
}

// Index returns the position of key, or -1.
func (c *Catalog) Index(key string) int {
	if i, ok := c.index[key]; ok {
		return i
	}
	return -1
}

// Lookup returns the stage with the given key.
func (c *Catalog) Lookup(key string) (Stage, bool) {
	i, ok := c.index[key]
	if !ok {
		return Stage{}, false
	}
	return c.stages[i].clone(), true
}

// Contains reports whether key names a stage.
func (c *Catalog) Contains(key string) bool {
	_, ok := c.index[key]
	return ok
}

// Stages returns a copy of all stages in order.
func (c *Catalog) Stages() []Stage {
	out := make([]Stage, len(c.stages))
	for i, s := range c.stages {
		out[i] = s.clone()
	}
	return out
}

// Keys returns all stage keys in order.
func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.stages))
	for i, s := range c.stages {
		keys[i] = s.Key
	}
	return keys
}

// KeysFrom returns the keys of the stage at index i and every stage after it.
func (c *Catalog) KeysFrom(i int) []string {
	if i < 0 {
		i = 0
	}
	if i >= len(c.stages) {
		return nil
	}
	keys := make([]string, 0, len(c.stages)-i)
	for _, s := range c.stages[i:] {
		keys = append(keys, s.Key)
	}
	return keys
}

// Gate returns the gate stage index, if any.
func (c *Catalog) Gate() (int, bool) {
	return c.gate, c.gate >= 0
}

// GateTarget returns the index the gate advances to once cleared.
// It is only meaningful when the catalog has a gate.
func (c *Catalog) GateTarget() int {
	return c.gateNext
}

// Predecessor returns the stage that must be cleared before stage i may
// run: the stage the pointer visits right before i. The first stage has
// none.
func (c *Catalog) Predecessor(i int) (int, bool) {
	if i <= 0 || i >= len(c.prev) {
		return -1, false
	}
	return c.prev[i], true
}

// FanOut returns the fan-out stage index, if any.
func (c *Catalog) FanOut() (int, bool) {
	return c.fanOut, c.fanOut >= 0
}

// Final returns the final stage index.
func (c *Catalog) Final() int {
	return c.final
}

// Reviewers returns the reviewer stage indexes in order.
func (c *Catalog) Reviewers() []int {
	out := make([]int, len(c.reviewers))
	copy(out, c.reviewers)
	return out
}

// NextReviewer returns the reviewer that follows reviewer index i, or the
// final stage when i is the last reviewer.
func (c *Catalog) NextReviewer(i int) int {
	for n, r := range c.reviewers {
		if r == i && n+1 < len(c.reviewers) {
			return c.reviewers[n+1]
		}
	}
	return c.final
}

// Clamp bounds i to a valid stage index.
func (c *Catalog) Clamp(i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(c.stages) {
		return len(c.stages) - 1
	}
	return i
}
