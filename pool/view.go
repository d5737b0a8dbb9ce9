package pool

// Empty is the trivial View for task groups that need no cross-shard
// reduction at all — vertexMap's outer group, for instance, where each
// shard's task already wrote everything it owns and there is nothing
// left to fold.
type Empty[D any] struct{}

func (Empty[D]) Apply(D, func(func())) {}
