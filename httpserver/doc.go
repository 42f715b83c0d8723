/*
Package httpserver implements the HTTP server run by a subnet module process.

It serves the module API for one role behind a token-bucket rate limiter:
a miner answers generation calls, a validator answers scoring calls, and
both describe themselves through a metadata endpoint. Inference itself is
delegated to remote APIs through the Provider and Scorer interfaces.

Main features:

  - POST /method/generate: prompt to base64 PNG through a Provider
  - POST /method/score: image and prompt to similarity score through a Scorer
  - GET /method/metadata: identity, role and backend of the running module
  - Health and diagnostics endpoints (/livez, /readyz, /drain, /undrain)
  - Prometheus metrics served on a separate listener

# Rate Limiting

Module endpoints share one token bucket. The defaults suit public serving;
the launcher's test-serve path injects MOSAIC_RATE_LIMIT_RPS and
MOSAIC_RATE_LIMIT_BURST into the process environment to relax them for
local smoke tests. The overrides are read once at server construction and
are never persisted.

# Remote Inference

RemoteProvider forwards generation to an OpenAI-style images API
(POST /images/generations, response_format b64_json) and accepts both
inline base64 data and URL answers. RemoteScorer posts to a scoring API
(POST /score) and accepts both "score" and the older "similarity" response
field.
*/
package httpserver
