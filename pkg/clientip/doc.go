// Package clientip resolves the originating client address when the service
// runs behind reverse proxies.
//
// Headers are consulted in the configured order and the first valid address
// wins; RemoteAddr is the fallback. The default order is CF-Connecting-IP,
// X-Forwarded-For, X-Real-IP. Only list headers your edge proxy overwrites,
// otherwise clients can choose their own address.
//
// Middleware stores the address in the request context, LoggerExtractor adds
// it to log records and RateLimitKey keys public routes by address.
package clientip
