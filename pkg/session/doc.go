/*
Package session implements session management and persistence orchestration.

It keeps the live learning sessions of a replica, persists a snapshot after
every action, and resumes sessions from the snapshot store when a request
lands on a replica that has not seen them yet. Store access is serialized with
local reference-counted locks and an optional distributed lock.
*/
package session
