package mutate

// IdempotentMutationPolicy classifies a single mutation as
// idempotent (safe to resend) or not.
type IdempotentMutationPolicy interface {
	// IsIdempotent reports whether resending m cannot
	// change the final stored state beyond what a single
	// application would produce.
	IsIdempotent(m Mutation) bool
	// Clone produces a fresh policy for a new logical
	// operation.
	Clone() IdempotentMutationPolicy
}

var _ IdempotentMutationPolicy = SafeIdempotentPolicy{}
var _ IdempotentMutationPolicy = AlwaysRetryPolicy{}

// SafeIdempotentPolicy is the default rule: a set-cell
// mutation is idempotent iff it carries a fully-specified,
// caller-assigned timestamp. Deletes are idempotent, their
// targets being explicit by construction. A mutation whose
// timestamp is assigned on the server is not idempotent.
type SafeIdempotentPolicy struct{}

// IsIdempotent implements IdempotentMutationPolicy.IsIdempotent
func (SafeIdempotentPolicy) IsIdempotent(m Mutation) bool {
	if m.kind == KindSetCell {
		return m.timestamp != ServerTime
	}

	return true
}

// Clone implements IdempotentMutationPolicy.Clone
func (p SafeIdempotentPolicy) Clone() IdempotentMutationPolicy {
	return p
}

// AlwaysRetryPolicy treats every mutation as idempotent,
// including server-timestamped writes. The caller accepts
// at-least-once semantics for every mutation type; use it
// only where duplication is acceptable to the application.
type AlwaysRetryPolicy struct{}

// IsIdempotent implements IdempotentMutationPolicy.IsIdempotent
func (AlwaysRetryPolicy) IsIdempotent(Mutation) bool {
	return true
}

// Clone implements IdempotentMutationPolicy.Clone
func (p AlwaysRetryPolicy) Clone() IdempotentMutationPolicy {
	return p
}
