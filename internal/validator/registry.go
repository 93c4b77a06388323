package validator

// Registry maps rule keys to Validator implementations. Registration order
// is preserved so a run always reports results in the same sequence.
type Registry struct {
	validators map[string]Validator
	order      []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{validators: make(map[string]Validator)}
}

// Register adds a validator to the registry. Re-registering a key replaces
// the validator but keeps its original position.
func (r *Registry) Register(v Validator) {
	key := v.RuleKey()
	if _, exists := r.validators[key]; !exists {
		r.order = append(r.order, key)
	}
	r.validators[key] = v
}

// Get returns the validator for a given rule key, or nil if not found.
func (r *Registry) Get(key string) Validator {
	return r.validators[key]
}

// All returns all registered validators in registration order.
func (r *Registry) All() []Validator {
	out := make([]Validator, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.validators[key])
	}
	return out
}
