// Package dataset downloads NYC Open Data sets (parks, restaurant
// inspections, subway stations) through the Socrata SODA API and caches
// the cleaned results through the computation cache.
package dataset
