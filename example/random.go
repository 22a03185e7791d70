package example

// Random produces bounded values. The interface carries the contract:
// generation renames its methods to internal slots and emits a companion
// type RandomContract whose public methods run the checks before
// delegating. Callers construct RandomContract{Impl: gen} and use that.
//
// @contract_trait
type Random interface {
	// Gen returns a value in the closed interval [min, max].
	//
	//@pre(min <= max)
	//@post(min <= ret, ret <= max, "result stays in bounds")
	Gen(min, max int) (ret int)
}

// AlwaysMin is the trivial generator: it returns the lower bound.
//
// @contract_trait(Random)
type AlwaysMin struct{}

// Gen implements Random.
func (AlwaysMin) Gen(min, max int) int {
	return min
}
