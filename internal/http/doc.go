// Package http provides HTTP handlers and middleware for the scheduling API.
//
// The router exposes the following endpoints:
//   - POST /therapists, GET /therapists, GET /therapists/{id}, PUT
//     /therapists/{id}: therapist registration exchanging the
//     `therapistDTO` payload defined in therapist_handler.go.
//   - GET /therapists/{id}/availability?start=&end=: the clipped calendar
//     view over a local datetime range of at most 31 days. Responds with
//     available working-hours windows and blocking windows from time off
//     and booked appointments, all rendered in the therapist's timezone.
//   - POST/GET /therapists/{id}/time-off, PUT/DELETE
//     /therapists/{id}/time-off/{occurrenceID}: blocked intervals,
//     optionally recurring. DELETE takes ?scope=single|series.
//   - POST/GET /therapists/{id}/working-hours, PUT/DELETE
//     /therapists/{id}/working-hours/{occurrenceID}: bookable blocks
//     anchored on a weekday, optionally recurring. Single deletes of
//     series-linked blocks are rejected with 409 SERIES_LOCKED.
//   - POST/GET /therapists/{id}/appointments: booked client sessions.
//
// Request datetimes are therapist-local wall-clock values (RFC 3339 or
// YYYY-MM-DDTHH:MM); response datetimes carry the therapist's UTC offset.
// Request/response DTOs live alongside their respective handlers.
package http
