// Package session provides the chat session orchestrator.
//
// The Orchestrator owns the conversation history and the authentication
// lifecycle and coordinates the collaborators around them.
//
// Components:
//   - Auth client: credential exchange and profile lookup
//   - Credential store: token persistence across restarts
//   - Transport: the real-time channel and its reconnect policy
//   - Decoder: raw frames into chat events
//   - Recorder: voice capture and transmission
//
// Concurrency:
//   - One goroutine (Run) applies every state change
//   - Public commands post closures to that loop
//   - Login performs its HTTP call off the loop; a login epoch discards
//     responses that arrive after a newer login or a logout
//   - Readers (History, Status) take snapshots under a lock
//
// Presentation:
//   - History / HistoryAfter: append-only event list
//   - Status: connection state, waiting flag, recording flag, user
//   - Subscribe: push of new events; slow subscribers drop events
//
// Example Usage:
//
//	orch := session.New(session.Options{Transport: tr, Auth: client, Store: store, Decoder: dec})
//	go orch.Run(ctx)
//	err := orch.Login(ctx, "ana", "secret")
package session
