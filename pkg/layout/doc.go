// Package layout plans the geometry of an affixed image.
//
// Given the inspected bounds of the selected photos, a stacking direction and
// a spacing, the planner computes the natural (unscaled) canvas, then picks
// the largest scale factor whose estimated peak memory fits the budget. The
// resulting Plan carries the final canvas size and the offset and size of
// every image in input order.
//
// # Peak memory
//
// The composition engine holds the canvas plus exactly one decoded source at
// any time, so the peak for a scale s is estimated as
//
//	W(s) * H(s) * 4 + max(w_i * h_i * 4)
//
// Sources are always decoded at full resolution before being scaled into the
// canvas, so the second term does not shrink with s.
//
// # Scale search
//
// Candidates are 1, 1/2, 1/4, ... down to Options.MinScale. The first
// candidate that fits wins. A scale forced by the user is checked against the
// same budget and rejected with LAYOUT_ERROR if it does not fit.
package layout
