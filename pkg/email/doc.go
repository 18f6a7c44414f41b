// Package email sends transactional messages through Postmark, or logs them
// when no Postmark token is configured.
package email
