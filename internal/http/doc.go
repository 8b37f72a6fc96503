// Package http provides HTTP handlers and middleware for the reminders API.
//
// The router exposes the following endpoints:
//   - GET /users/{id}/reminder-settings: returns the user's settings
//     aggregate, creating a default one on first access.
//   - PUT /users/{id}/reminder-settings: replaces the aggregate wholesale
//     with the submitted `settingsRequest` payload.
//   - GET /users/{id}/reminders/{reminderID}/preview?as_of=RFC3339: reports
//     the weekdays the reminder's rule resolves to at the given instant
//     without modifying the stored reminder.
//   - GET /templates, POST /templates, GET /templates/{id},
//     DELETE /templates/{id}, POST /templates/{id}/like,
//     POST /templates/{id}/apply: shareable template endpoints exchanging the
//     `templateDTO` payload defined in template_handler.go. The acting user is
//     identified by the `X-User-ID` header; private templates are only
//     visible to their author.
//   - POST /scheduler/start, POST /scheduler/stop, GET /scheduler/status:
//     lifecycle control for the polling reminder engine. Start expects
//     {"user_id"}; starting for a new user stops the previous run first.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
