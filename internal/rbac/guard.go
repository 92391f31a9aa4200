package rbac

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/login"

// Subject is the slice of session state a guard decides on.
type Subject struct {
	Loading       bool
	Authenticated bool
	Role          Role
}

// Outcome enumerates guard results.
type Outcome int

const (
	// OutcomeRender lets the protected screen render.
	OutcomeRender Outcome = iota
	// OutcomeRedirect sends the visitor to Decision.Location.
	OutcomeRedirect
	// OutcomeWait means the session is still being restored.
	OutcomeWait
)

// Decision is the result of a guard evaluation.
type Decision struct {
	Outcome  Outcome
	Location string
	Reason   string
}

func render() Decision {
	return Decision{Outcome: OutcomeRender}
}

func redirect(location, reason string) Decision {
	if location == "" {
		location = "/"
	}
	return Decision{Outcome: OutcomeRedirect, Location: location, Reason: reason}
}

// DecideAuthenticated requires any authenticated session.
func DecideAuthenticated(s Subject) Decision {
	if s.Loading {
		return Decision{Outcome: OutcomeWait}
	}
	if !s.Authenticated {
		return redirect(LoginPath, "unauthenticated")
	}
	return render()
}

// DecideRole requires the session role to be one of allowed. An empty list
// admits every authenticated role.
func (r *Registry) DecideRole(s Subject, allowed ...Role) Decision {
	if d := DecideAuthenticated(s); d.Outcome != OutcomeRender {
		return d
	}
	if len(allowed) == 0 {
		return render()
	}
	for _, role := range allowed {
		if role == s.Role {
			return render()
		}
	}
	return redirect(r.ResolveDefaultPathForRole(s.Role), "role")
}

// DecideFeature requires view permission on featureKey.
func (r *Registry) DecideFeature(s Subject, featureKey string) (Decision, Access) {
	if d := DecideAuthenticated(s); d.Outcome != OutcomeRender {
		return d, Access{}
	}
	access := r.ResolveAccess(featureKey, s.Role)
	if !access.Permissions.CanView {
		return redirect(r.ResolveDefaultPathForRole(s.Role), "feature"), access
	}
	return render(), access
}

// DecideFeatureAction requires view plus the given action on featureKey.
func (r *Registry) DecideFeatureAction(s Subject, featureKey string, action Action) (Decision, Access) {
	d, access := r.DecideFeature(s, featureKey)
	if d.Outcome != OutcomeRender {
		return d, access
	}
	if !access.Permissions.Allows(action) {
		path := FeaturePath(access.Feature.Path)
		return redirect(path, "action"), access
	}
	return d, access
}
