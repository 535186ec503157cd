// Package rag implements the question-answering pipeline: resolve the
// caller's access scope, retrieve matching chunks from the vector index,
// and compose a grounded answer with source attribution.
//
// Access control is enforced before retrieval. The caller's identity is
// resolved to a set of allowed access targets and that set is pushed into
// the index query itself, so chunks outside the caller's scope never enter
// the pipeline.
package rag
