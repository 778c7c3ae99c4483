// Package cleaning implements the basic cleaning step of the rental price
// pipeline.
//
// The step is a straight line:
//
//	resolve input artifact -> load CSV -> drop price outliers ->
//	parse last_review -> write clean_sample.csv -> publish new version
//
// Any failure ends the run. Nothing is rolled back: a partially written
// clean_sample.csv may remain in the working directory, but no artifact
// version is published unless every earlier stage succeeded.
//
// The table keeps every cell's original text so columns the step does not
// touch are written back unchanged. Only price (for filtering) and
// last_review (for normalization) are typed.
package cleaning
