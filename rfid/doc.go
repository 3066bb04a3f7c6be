// Package rfid holds the pallet registration lookups of the RFID screens.
//
// Fetches record server field errors on the [Store] instead of returning them;
// [Store.CheckTagRegistration] reads every failure as "not registered".
package rfid
