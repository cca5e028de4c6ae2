// Package endpoint derives the HTTP upload and health URLs from the
// configured streaming URL and attaches the credential to the dial URL.
package endpoint
