package dataset

// Side identifies one of the two datasets in a linkage review.
type Side int

const (
	// Left is the first dataset.
	Left Side = iota
	// Right is the second dataset.
	Right
)

// String implements fmt.Stringer.
func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == Left {
		return Right
	}
	return Left
}
