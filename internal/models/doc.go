// Package models defines the core domain models for Dutch.
//
// # Models
//
//   - User: Registered account; members are resolved from usernames
//   - Group: Shared-expense pool owned by the user who created it
//   - Member: A user's participation in a group, with the amount they paid
//   - Transfer: One computed payment obligation from a debtor to a creditor
//
// # Design Principles
//
// 1. **Money is decimal**: all amounts are decimal.Decimal, never float64
// 2. **Transfers are derived**: they are recomputed and replaced as a whole, never patched
// 3. **Avoid circular references**: Use ID strings instead of pointers for relationships
package models
