// Package admin implements operator edits of subscription facts: full
// replacement, plan grants and revocation. Changes are validated with
// entitlement.ValidateSubscriptionFacts and saved under the user's row lock.
// When a sender is configured the user is emailed after the change commits.
package admin
