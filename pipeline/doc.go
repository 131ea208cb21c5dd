// Package pipeline implements the video question-answering pipeline:
// fetch a remote video to local disk, upload it to an inference backend,
// wait for the backend to finish preprocessing, run a streamed generation
// against the ready asset, and always clean up both the local file and the
// remote asset exactly once.
//
// The pipeline is deliberately synchronous: one request runs to completion
// (or failure) with blocking I/O at every stage. The backend and the video
// fetcher are injected behind small interfaces so they can be substituted
// in tests or swapped for another provider.
package pipeline
