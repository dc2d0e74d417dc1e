// Package compare holds the comparison set: the table of candidate
// pairs under review plus per-pair review metadata.
//
// Pairs reference rows of the left and right datasets by id tuple. The
// loader verifies prerequisites and id-column presence, probes every
// pair against the dataset registry, and maintains the four reserved
// review columns (rlr_label, rlr_label_ind, rlr_modified, rlr_note).
// Data-quality findings (duplicate pair tuples, a below-threshold id
// match rate) are warnings, not failures: the set loads with a visible
// caveat rather than refusing.
package compare
