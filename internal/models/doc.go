// Package models defines the core domain models for Splitledger.
//
// # Ledger
//
// The ledger is made of two stored entities:
//   - Expense: an amount paid by one user, optionally inside a group
//   - ExpenseShare: the part of an expense a single user owes
//
// Recorded settlements reuse the same shape: a settlement is an Expense with
// the exact policy, a single paid share and IsSettlement set. Balance
// aggregation therefore treats expenses and settlements uniformly.
//
// # Derived views
//
// Balance, SettlementTransfer, GroupSettlement and UserSettlementSummary are
// never persisted. They are recomputed from the ledger on every query.
//
// # Conventions
//
//  1. IDs are UUID strings generated by the store
//  2. Monetary values are decimal.Decimal, rounded to cents at the edges
//  3. Relationships are expressed with ID strings, never pointers
//  4. Timestamps are Unix seconds
package models
