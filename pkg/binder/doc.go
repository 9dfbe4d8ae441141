// Package binder provides request binders for handler.Wrap: a strict JSON body
// binder and a path parameter binder driven by a router-specific extractor.
package binder
