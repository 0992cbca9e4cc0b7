// Package pg provides pgx connection-pool helpers shared by the postgres
// bookkeeping repositories.
package pg
