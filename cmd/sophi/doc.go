// Command sophi is the terminal client of the Sophi conversational
// assistant.
//
// Architecture:
//
//	terminal / bridge API → session orchestrator → auth client (HTTP)
//	                                             → transport session (Socket.IO)
//	                                             → audio controller (capture)
//
// Commands:
//   - chat: interactive line client, optionally with the bridge API
//   - serve: headless session behind the bridge API
//   - logout: clear the stored token
//   - version
//
// Configuration:
//   - Environment variables (SOPHI_API_URL, SOPHI_WS_URL, SOPHI_ASSET_URL, ...)
//   - .env in the working directory
//   - --config file (YAML or TOML), layered under the environment
//
// Usage:
//
//	# Chat with colored debug logs on stderr
//	sophi chat --dev
//
//	# Bridge for a browser front-end on 127.0.0.1:8787
//	sophi serve
//
//	# Try voice without a microphone
//	sophi chat --audio-file sample.webm
package main
