package billing

// Config holds the processor price identifiers for every plan.
// All values are required; a missing one aborts startup.
type Config struct {
	Credits5000PlanID  string `env:"PAYMENTS_CREDITS_5000_PLAN_ID,required"`
	Credits10000PlanID string `env:"PAYMENTS_CREDITS_10000_PLAN_ID,required"`
	Credits20000PlanID string `env:"PAYMENTS_CREDITS_20000_PLAN_ID,required"`
}

// DefaultPlans returns the three credit tiers sold by the service.
func DefaultPlans(cfg Config) []Plan {
	return []Plan{
		{
			ID:              PlanCredits5000,
			Name:            "基础套餐",
			ProcessorPlanID: cfg.Credits5000PlanID,
			Effect:          CreditsEffect(5000),
		},
		{
			ID:              PlanCredits10000,
			Name:            "标准套餐",
			ProcessorPlanID: cfg.Credits10000PlanID,
			Effect:          CreditsEffect(10000),
		},
		{
			ID:              PlanCredits20000,
			Name:            "高级套餐",
			ProcessorPlanID: cfg.Credits20000PlanID,
			Effect:          CreditsEffect(20000),
		},
	}
}

// NewCatalogFromConfig builds the default catalog from configuration.
func NewCatalogFromConfig(cfg Config) (*Catalog, error) {
	return NewCatalog(DefaultPlans(cfg)...)
}
