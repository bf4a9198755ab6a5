// Package registry maps human-readable domain names and document keys to the
// 16-bit ids packed into semantic addresses. Ids are allocated monotonically
// as max(id)+1 starting at 1; id 0 is reserved for "absent".
package registry
