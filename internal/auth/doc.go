// Package auth implements the browser-based OAuth2 authorization flow and
// token lifecycle for the CLI.
//
// # Components
//
// [Allocate] binds the first free loopback port from a fixed candidate list.
//
// [Listener] hosts a single-use HTTP responder on the bound port and captures
// exactly one redirect, releasing the socket on every exit path.
//
// [Flow] drives the authorization state machine: bind a port, emit the
// authorize URL with a state nonce and PKCE challenge, wait for the callback,
// and exchange the code for tokens. Completed or failed flows are terminal;
// callers construct a new Flow to retry.
//
// [Store] persists the [TokenPair] with user-only permissions and exposes
// refresh-on-demand through [Store.GetValidAccessToken], the single entry
// point every API command's credentials pass through.
package auth
