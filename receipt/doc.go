// Package receipt keeps the filter state of the goods-receipt screens.
//
// Filters are persisted under one named record of a [storage.StateStorage], so they
// survive restarts and logouts and are shared by every terminal on the same backend.
package receipt
