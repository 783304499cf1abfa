// Package mock provides test doubles shared across tether's package tests.
package mock
