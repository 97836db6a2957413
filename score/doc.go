// Package score ranks park locations for events.
//
// A Scorer combines two signals for each candidate park: accessibility
// (walking distance to the nearest subway station) and social activity
// (density of quality restaurants nearby). Both are normalized to a
// 0-100 scale and averaged into a combined score, then the top parks
// are selected per borough so results cover the whole city.
//
// Scoring is pure in-memory computation and deterministic for fixed
// inputs, which makes a full ranking run memoizable through the cache
// package.
package score
