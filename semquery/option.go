package semquery

// Option configures Condense.
type Option func(o *options)

type options struct {
	k        int
	karma    float64
	epsilon  float64
	maxSteps int
}

// WithK sets the number of seeds and carriers per step (default 8).
func WithK(k int) Option { return func(o *options) { o.k = k } }

// WithKarma sets the share of the original query kept each step (default 0.9).
func WithKarma(karma float64) Option { return func(o *options) { o.karma = karma } }

// WithEpsilon sets the saturation distance (default 0.001).
func WithEpsilon(eps float64) Option { return func(o *options) { o.epsilon = eps } }

// WithMaxSteps bounds the number of steps (default 16).
func WithMaxSteps(n int) Option { return func(o *options) { o.maxSteps = n } }

func newOptions(opts []Option) *options {
	o := &options{k: 8, karma: 0.9, epsilon: 0.001, maxSteps: 16}
	for _, opt := range opts {
		opt(o)
	}
	if o.k < 1 {
		o.k = 1
	}
	if o.maxSteps < 1 {
		o.maxSteps = 1
	}
	return o
}
