package consensus

// idGenerator hands out the per image cluster ids
type idGenerator struct {
	id int
}

// next returns the current id and advances the counter
func (g *idGenerator) next() int {
	id := g.id
	g.id++
	return id
}
