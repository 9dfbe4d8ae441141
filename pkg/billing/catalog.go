package billing

import (
	"errors"
	"fmt"
	"slices"
)

// Catalog is the immutable set of plans loaded at startup.
// It is safe for concurrent use since nothing mutates it after NewCatalog returns.
type Catalog struct {
	plans       []Plan
	byID        map[PlanID]int
	byProcessor map[string]int
}

// NewCatalog validates plans and builds the lookup indexes.
// A plan without a processor plan ID is a configuration error and must abort startup.
func NewCatalog(plans ...Plan) (*Catalog, error) {
	if len(plans) == 0 {
		return nil, errors.Join(ErrInvalidPlanConfiguration, errors.New("catalog has no plans"))
	}

	c := &Catalog{
		plans:       make([]Plan, 0, len(plans)),
		byID:        make(map[PlanID]int, len(plans)),
		byProcessor: make(map[string]int, len(plans)),
	}

	for _, p := range plans {
		if _, err := ParsePlanID(string(p.ID)); err != nil {
			return nil, errors.Join(ErrInvalidPlanConfiguration, err)
		}
		if p.ProcessorPlanID == "" {
			return nil, fmt.Errorf("%w: processor plan ID for %s is empty", ErrMissingConfiguration, p.ID)
		}
		if err := p.Effect.Validate(); err != nil {
			return nil, errors.Join(ErrInvalidPlanConfiguration, fmt.Errorf("plan %s: %w", p.ID, err))
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, errors.Join(ErrInvalidPlanConfiguration, fmt.Errorf("duplicate plan %s", p.ID))
		}
		if other, dup := c.byProcessor[p.ProcessorPlanID]; dup {
			return nil, errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plans %s and %s share processor plan ID %s", c.plans[other].ID, p.ID, p.ProcessorPlanID))
		}

		c.byID[p.ID] = len(c.plans)
		c.byProcessor[p.ProcessorPlanID] = len(c.plans)
		c.plans = append(c.plans, p)
	}

	return c, nil
}

// MustNewCatalog is like NewCatalog but panics on error.
func MustNewCatalog(plans ...Plan) *Catalog {
	c, err := NewCatalog(plans...)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the plan for id. It never falls back to a default plan.
func (c *Catalog) Lookup(id PlanID) (Plan, error) {
	i, ok := c.byID[id]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", ErrInvalidPlanID, id)
	}
	return c.plans[i], nil
}

// LookupString parses untrusted input and returns the matching plan.
func (c *Catalog) LookupString(s string) (Plan, error) {
	id, err := ParsePlanID(s)
	if err != nil {
		return Plan{}, err
	}
	return c.Lookup(id)
}

// ByProcessorPlanID maps a processor price ID back to the plan that uses it.
func (c *Catalog) ByProcessorPlanID(processorPlanID string) (Plan, error) {
	i, ok := c.byProcessor[processorPlanID]
	if !ok {
		return Plan{}, fmt.Errorf("%w: no plan for processor plan %q", ErrInvalidPlanID, processorPlanID)
	}
	return c.plans[i], nil
}

// Plans returns the plans in catalog order.
func (c *Catalog) Plans() []Plan {
	return slices.Clone(c.plans)
}

// SubscriptionPlanIDs lists plans that activate a subscription.
func (c *Catalog) SubscriptionPlanIDs() []PlanID {
	var ids []PlanID
	for _, p := range c.plans {
		if p.Effect.IsSubscription() {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Name returns the display name of a plan, or the raw ID when unknown.
func (c *Catalog) Name(id PlanID) string {
	p, err := c.Lookup(id)
	if err != nil || p.Name == "" {
		return string(id)
	}
	return p.Name
}
