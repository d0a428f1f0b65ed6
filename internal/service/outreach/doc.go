// Package outreach implements the user-facing domain operations: campaign
// and lead writes, direct-mail pieces, inbox sync, warmup toggles, and
// analytics proxies.
//
// Every operation follows one pattern: resolve the caller's tenant scope,
// resolve the entitlement and provider for the capability, load org
// credentials per request, dispatch through the provider adapter and its
// error envelope, then converge local rows. Reads serve from the local
// projection tables; only writes touch the provider.
package outreach
