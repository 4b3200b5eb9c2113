// Package scope holds the application's root data-binding state.
//
// A State is a set of named fields observed by views. States are bound to
// element identifiers in a Registry, and components look them up by id at
// startup instead of reaching for a global document.
package scope
