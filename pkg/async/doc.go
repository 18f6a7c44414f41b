// Package async runs side effects in the background and exposes their
// outcome as a Future. It is used for work that must not block or roll back
// the caller, such as notification emails after an admin change.
package async
