// Package agentsdk is the client-side companion of the auth bridge: the state
// machine a browser-extension background process runs to track whether its
// user is signed in.
//
// The background process is ephemeral. It can be killed and restarted between
// any two events, so every conclusion it reaches is persisted through a
// StateStore immediately and rehydrated on construction. The bridge's stored
// token is the source of truth; the local state is a cache that is
// periodically reconciled against the bridge's status endpoint.
package agentsdk
