package provider

// Registry binds provider slugs to adapter factories. Factories receive
// tenant credentials per call so adapters never outlive a request.
type Registry struct {
	sequencers map[string]func(Credentials) EmailSequencer
	linkedin   map[string]func(Credentials) LinkedInOutreach
	directMail map[string]func(Credentials) DirectMail
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sequencers: make(map[string]func(Credentials) EmailSequencer),
		linkedin:   make(map[string]func(Credentials) LinkedInOutreach),
		directMail: make(map[string]func(Credentials) DirectMail),
	}
}

// RegisterEmailSequencer wires an email outreach provider.
func (r *Registry) RegisterEmailSequencer(slug string, factory func(Credentials) EmailSequencer) {
	r.sequencers[slug] = factory
}

// RegisterLinkedIn wires a LinkedIn outreach provider.
func (r *Registry) RegisterLinkedIn(slug string, factory func(Credentials) LinkedInOutreach) {
	r.linkedin[slug] = factory
}

// RegisterDirectMail wires a direct-mail provider.
func (r *Registry) RegisterDirectMail(slug string, factory func(Credentials) DirectMail) {
	r.directMail[slug] = factory
}

// EmailSequencer builds the adapter for slug, or reports it unsupported.
func (r *Registry) EmailSequencer(slug string, creds Credentials) (EmailSequencer, bool) {
	factory, ok := r.sequencers[slug]
	if !ok {
		return nil, false
	}
	return factory(creds), true
}

// LinkedIn builds the adapter for slug, or reports it unsupported.
func (r *Registry) LinkedIn(slug string, creds Credentials) (LinkedInOutreach, bool) {
	factory, ok := r.linkedin[slug]
	if !ok {
		return nil, false
	}
	return factory(creds), true
}

// DirectMail builds the adapter for slug, or reports it unsupported.
func (r *Registry) DirectMail(slug string, creds Credentials) (DirectMail, bool) {
	factory, ok := r.directMail[slug]
	if !ok {
		return nil, false
	}
	return factory(creds), true
}

// Supports reports whether any capability is registered for slug.
func (r *Registry) Supports(slug string) bool {
	if _, ok := r.sequencers[slug]; ok {
		return true
	}
	if _, ok := r.linkedin[slug]; ok {
		return true
	}
	_, ok := r.directMail[slug]
	return ok
}
