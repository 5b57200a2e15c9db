// Package main provides the entry point for the PharmView service. It
// starts a Fiber web server exposing a JSON API for facility and product
// management, consumption reporting and analytics, and role-based access
// administration. Data is persisted with gorm on Postgres or MySQL.
package main
