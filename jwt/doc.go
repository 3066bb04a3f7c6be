// Package jwt issues and inspects the api tokens exchanged with the warehouse Auth API.
//
// The client side only ever inspects tokens ([Inspect]): the signature is the server's
// business, but a readable "exp" claim lets a session fail fast once the token has
// expired. [Manager] signs and verifies tokens and backs the local fake Auth API.
package jwt
