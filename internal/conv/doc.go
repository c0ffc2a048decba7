// Package conv provides checked integer conversions for values that are
// narrowed to the fixed-width fields of the file format.
package conv
