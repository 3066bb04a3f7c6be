// Package picking holds the batch-picking screen state: the delivery item being picked,
// its product age range, open quantity and the stock candidates with their split
// allocation.
//
// [Store] talks to the warehouse API through any [Doer]; [*api.Client] is the usual one.
// Failed calls record the server's field errors on the store and return the error to the
// caller.
//
// # What this package must NOT do
//
//   - Hold or refresh the api token; the client's token source does.
//   - Decide navigation.
package picking
