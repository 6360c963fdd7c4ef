// Package reststore maps CRUD operations on a collection of records onto a
// single REST resource and keeps an in-memory cache that mirrors, and
// optimistically anticipates, the server state.
//
// A Store issues at most one HTTP exchange per call through its Executor:
//
//	GET    <base>        Fetch
//	POST   <base>        Save of a new record
//	PUT    <base>/<id>   Save of a persisted record
//	DELETE <base>/<id>   Delete
//
// All, Find, Where and WhereExpr read the cache only. Every exchange is
// classified into a payload or an *Error whose Kind is one of
// ArgumentError, ConnectionError, ServerError, HttpError or
// HttpResponseError; cache misses report NotFoundError.
//
// NewFromEnv selects between a real endpoint and the in-memory mock resource
// using RESTSTORE_MODE, RESTSTORE_URL and RESTSTORE_MOCK_SEED.
package reststore
