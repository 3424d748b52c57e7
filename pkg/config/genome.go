package config

// CanonicalTraitNames is the fixed K=5 trait set every genome carries.
var CanonicalTraitNames = [5]string{
	"exploration", "precision", "creativity", "skepticism", "verbosity",
}

// GenomeConfig controls the evolutionary loop: mutation, crossover selection
// pressure, and the debate/consensus parameters of the executor.
type GenomeConfig struct {
	// MutationRate is the per-trait probability of mutation during crossover.
	MutationRate float64 `yaml:"mutation_rate"`

	// MutationRange is validated to [0,1] but is not read by genome.Mutate,
	// which always draws the mutation epsilon from [-0.2, 0.2].
	MutationRange float64 `yaml:"mutation_range"`

	// TournamentSize is the number of individuals sampled for tournament selection.
	TournamentSize int `yaml:"tournament_size"`

	// MaxDepth bounds agent spawn depth (root = depth 0).
	MaxDepth int `yaml:"max_depth"`

	// AgentsPerLevel is the number of children the orchestrator spawns per level.
	AgentsPerLevel int `yaml:"agents_per_level"`

	// MaxDebateRounds bounds the blue/red debate loop.
	MaxDebateRounds int `yaml:"max_debate_rounds"`

	// ConsensusProtocol selects the decision rule; one of
	// majority, super_majority, unanimous, weighted_confidence.
	ConsensusProtocol string `yaml:"consensus_protocol"`

	// AdversarialEnabled toggles the red-agent debate loop entirely.
	AdversarialEnabled bool `yaml:"adversarial_enabled"`
}

// DefaultGenomeConfig returns the built-in evolution defaults.
func DefaultGenomeConfig() *GenomeConfig {
	return &GenomeConfig{
		MutationRate:       0.1,
		MutationRange:      0.2,
		TournamentSize:     2,
		MaxDepth:           3,
		AgentsPerLevel:     2,
		MaxDebateRounds:    3,
		ConsensusProtocol:  "super_majority",
		AdversarialEnabled: true,
	}
}

func (v *Validator) validateGenome() error {
	g := v.cfg.Genome
	if g == nil {
		return NewValidationError("genome", "", ErrMissingRequiredField)
	}
	if g.MutationRate < 0 || g.MutationRate > 1 {
		return NewValidationError("genome", "mutation_rate", ErrInvalidValue)
	}
	if g.MutationRange < 0 || g.MutationRange > 1 {
		return NewValidationError("genome", "mutation_range", ErrInvalidValue)
	}
	if g.TournamentSize < 1 {
		return NewValidationError("genome", "tournament_size", ErrInvalidValue)
	}
	if g.MaxDepth < 0 {
		return NewValidationError("genome", "max_depth", ErrInvalidValue)
	}
	if g.AgentsPerLevel < 1 {
		return NewValidationError("genome", "agents_per_level", ErrInvalidValue)
	}
	if g.MaxDebateRounds < 1 {
		return NewValidationError("genome", "max_debate_rounds", ErrInvalidValue)
	}
	switch g.ConsensusProtocol {
	case "majority", "super_majority", "unanimous", "weighted_confidence":
	default:
		return NewValidationError("genome", "consensus_protocol", ErrInvalidValue)
	}
	return nil
}
