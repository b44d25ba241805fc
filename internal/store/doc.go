// Package store provides SQLite-backed durable storage for proxies, proxy
// grants and XP records.
//
// Three relations are kept:
//   - proxies: proxy_key PK, proxy_name, avatar_url
//   - proxy_users: (proxy_key, user_id) PK, the access set of each proxy
//   - xp: user_id PK, xp, level
//
// # Critical Patterns
//
// Atomic multi-row writes
//   - Creating a proxy inserts the proxy and its creator's grant in one
//     transaction; deleting a proxy removes grants and proxy in one transaction
//   - XP updates are load-modify-store inside one transaction so concurrent
//     awards for the same user never lose an increment
//
// Idempotent edges
//   - Grants use ON CONFLICT DO NOTHING, granting twice leaves one row
//   - Deleting an unknown proxy is a successful no-op
//
// Deterministic reads
//   - List queries ORDER BY their key columns COLLATE BINARY
//   - Empty results are empty slices, never nil
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Grants cannot dangle
//   - One open connection: SQLite has a single writer, transactions serialize
//
// Databases created by earlier releases of the bot (same table names, no
// foreign key) open cleanly; migrations only add indexes.
package store
