// Package connection implements the realtime Connection Manager.
//
// The Connection Manager:
//   - Maintains at most one WebSocket session to the Nexus realtime endpoint
//   - Authenticates sessions with a bearer token from the token store
//   - Fans inbound named events out to subscribers in registration order
//   - Handles reconnection with capped exponential backoff
//   - Answers server heartbeat pings and reacts to auth-expiry signals
package connection
