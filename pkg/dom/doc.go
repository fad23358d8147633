// Package dom provides the headless document tree the runtime renders into:
// a mutable element/text node tree with ordered attributes, live properties,
// and synchronous event listener dispatch.
//
// Fragments of HTML are parsed with golang.org/x/net/html, so entity
// handling, raw-text elements, and tag-soup recovery follow the HTML5
// parsing algorithm. Serialization back to HTML is provided for tests and
// for serving snapshots of a live tree.
package dom
