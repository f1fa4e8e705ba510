// Package connectors reads source documents for the pipeline. Each
// subpackage knows how to fetch from one kind of location (local
// filesystem, HTTP); Router picks one by URI scheme.
package connectors
