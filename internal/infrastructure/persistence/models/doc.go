// Package models contains the GORM persistence models for the ledger tables.
//
// Models are kept apart from domain types: repositories load a model, convert it with
// ToDomain and convert back with FromDomain before writing. Money columns are
// decimal(18,4); calendar dates are date columns normalized to UTC midnight.
package models
