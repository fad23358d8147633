// Package reconcile patches a live dom tree to match a freshly parsed HTML
// fragment, preserving node identity wherever possible so listeners, focus,
// and transition state survive re-renders.
//
// The algorithm is a two-pointer structural diff over each matched pair of
// child lists, with a lazily built key map for identity-preserving reorder
// of keyed elements. Patching is synchronous and uninterruptible once
// started: a container is never observed half-patched.
package reconcile
