// Package tabular provides the in-memory table model and file codecs.
//
// A Table is an ordered set of named columns over rows of scalar Values
// (string, number, or null). Tables are read from and written to flat
// files in one of two formats, dispatched on file extension: delimited
// text (.csv) and Parquet (.parquet). Unknown extensions fail with
// ErrUnsupportedFormat.
package tabular
