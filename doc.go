// Package fedwire converts strongly-typed, per-endpoint request and response
// values of a federated chat protocol's HTTP API into wire-level HTTP messages
// and back.
//
// Each endpoint is described once by an immutable [Metadata] value (HTTP
// method, authentication scheme, and the endpoint's path-template history
// across protocol generations) plus a [WireMapping] that places every struct
// field on the wire: path segment, query parameter, header, JSON body field,
// or raw body. Together they form an [Endpoint], the unit a declarative
// generator emits. [DeriveMapping] builds the mapping from `fed:"..."` struct
// tags for hand-written endpoint definitions.
//
// [MarshalRequest] and [UnmarshalResponse] implement the client side of a
// call; [UnmarshalRequest] and [MarshalResponse] implement the server mirror.
// All four are synchronous, pure functions over immutable inputs: no network
// I/O, no retries, no caching. Version negotiation happens per call via
// [Metadata.ResolvePath], which picks the newest path variant valid for the
// negotiated [SpecVersion] set.
//
// Thin composition layers are provided on top: [Client] drives a typed call
// through any http.RoundTripper-style transport, and [Mux] routes inbound
// HTTP requests to registered endpoints. Neither adds semantics beyond the
// core marshalling functions.
package fedwire
