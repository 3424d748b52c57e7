package config

// Validator runs all configuration validation rules against a Config.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator bound to the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll runs every validation rule, returning the first failure.
func (v *Validator) ValidateAll() error {
	checks := []func() error{
		v.validateStorage,
		v.validateQueue,
		v.validateGenome,
		v.validateAnchor,
		v.validateResilience,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}
