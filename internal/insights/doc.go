// Package insights fetches Directory Insights events for one time window.
//
// Each selected service is paged independently: a request carries the
// window bounds and a page limit, and follow-up requests carry the
// server's continuation cursor until a page comes back short. Results are
// framed as newline-joined single-record JSON arrays.
package insights
