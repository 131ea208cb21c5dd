// Package fetch resolves public YouTube links to locally stored media
// files, selecting the highest-resolution stream that carries both audio
// and video.
package fetch
