// Package http provides HTTP handlers and middleware for the office-hours API.
//
// The router exposes the following endpoints:
//   - GET /healthz and GET /public/events?start=&end=: unauthenticated. Public
//     events carry the host display name instead of notes.
//   - GET /me, PUT /me/out-of-office, PUT /me/notification-settings: the
//     caller's own directory entry.
//   - GET /events, POST /events, GET /events/unclaimed, GET /events/coverage:
//     session listing over an RFC 3339 window, one-off creation and coverage
//     reporting.
//   - POST /events/{assign,unassign,update,cancel,ics}: per-session mutations.
//     The body addresses the session with either series_id and
//     occurrence_start or instance_id.
//   - GET /series, POST /series, GET/PUT/DELETE /series/{id}, GET /series/{id}/ics:
//     recurring series management exchanging the `seriesDTO` payload.
//   - GET /users, POST /users, PUT /users/{id}, POST /users/{id}/{disable,enable}:
//     administrator controlled directory endpoints.
//   - GET/POST /users/{id}/tokens and DELETE /tokens/{id}: bearer tokens.
//   - GET /settings, PUT /settings: the global settings singleton.
//   - GET /notifications/pending, POST /notifications/{id}/{sent,failed}: the
//     outbox consumed by an external mail worker.
//
// Every endpoint except the first two requires an `Authorization: Bearer`
// header. Mutations are serialized against each other and against
// materializing reads.
package http
