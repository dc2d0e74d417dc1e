// Package dataset holds the left and right datasets under review and
// their uniqueness-constrained row identifiers.
//
// A Registry owns at most one Dataset per Side. Rows are addressed by
// an id tuple (the ordered values of the dataset's id columns) through
// an index built once at load time. Replacing a side bumps the registry
// generation, which downstream consumers (field-group schema, comparison
// set) use to detect that they must be redefined.
package dataset
