// Package service provides the registry of host services callable from views.
//
// View scripts cannot touch host resources directly; every privileged
// operation goes through a registered provider, addressed by a dotted tool ID
// (service.tool). Calls arrive over the message bridge as untrusted input and
// are validated and resolved against the registry before execution.
//
// Components:
//   - Registry: central service catalog
//   - Provider: interface for service implementations
//   - Discovery with relevance scoring for embedder tooling
package service
