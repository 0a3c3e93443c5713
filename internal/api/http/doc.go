// Package http implements the local bridge API.
//
// The bridge lets a browser or desktop front-end drive the chat session
// that runs in this process. Routes:
//
//	GET  /health                 liveness probe
//	GET  /api/status             connection state and waiting flag
//	GET  /api/events?after=<id>  conversation history
//	POST /api/login              {"username","password"}
//	POST /api/logout
//	POST /api/messages           {"text"}
//	POST /api/recording/start
//	POST /api/recording/stop
//	GET  /api/audio/:ref         bytes of a playable audio reference
//	GET  /api/stream             WebSocket push of new chat events
//	POST /api/logs               front-end log ingestion
//
// Handlers never block on the remote service beyond the login call; every
// other command is a post to the session loop.
package http
