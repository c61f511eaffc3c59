// Package suppression implements the global do-not-send list.
//
// Suppressions flow in from classified hard bounces and from manual API
// actions, and are checked before every send. The service layer contains
// pure business logic and depends on the Repository interface; it never
// imports net/http or database/sql directly.
package suppression
