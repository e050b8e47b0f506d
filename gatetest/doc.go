/*
Package gatetest provides test doubles and helpers shared by the package
tests: in-memory stores, authentication mocks and random fixtures.

Nothing in this package is safe for production use.
*/
package gatetest
